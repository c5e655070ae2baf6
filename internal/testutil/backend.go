package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/agora/internal/inference"
)

// ErrScriptExhausted is returned by ScriptedBackend once every scripted
// response has been used and no fallback is set.
var ErrScriptExhausted = errors.New("scripted backend: no more responses")

// ScriptedBackend returns canned completions in order and records every
// prompt it receives.
//
// Thread-safety: safe for concurrent use.
type ScriptedBackend struct {
	mu        sync.Mutex
	responses []string
	fallback  string
	err       error

	Prompts []inference.Prompt
}

// NewScriptedBackend creates a backend answering with responses in order.
func NewScriptedBackend(responses ...string) *ScriptedBackend {
	return &ScriptedBackend{responses: responses}
}

// WithFallback sets the answer used after the script runs out.
func (b *ScriptedBackend) WithFallback(text string) *ScriptedBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fallback = text
	return b
}

// WithError makes every call fail with err.
func (b *ScriptedBackend) WithError(err error) *ScriptedBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
	return b
}

// Complete implements inference.Backend.
func (b *ScriptedBackend) Complete(_ context.Context, prompt inference.Prompt) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Prompts = append(b.Prompts, append(inference.Prompt(nil), prompt...))

	if b.err != nil {
		return "", b.err
	}
	if len(b.responses) > 0 {
		out := b.responses[0]
		b.responses = b.responses[1:]
		return out, nil
	}
	if b.fallback != "" {
		return b.fallback, nil
	}
	return "", ErrScriptExhausted
}

// Calls returns how many completions were requested.
func (b *ScriptedBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Prompts)
}
