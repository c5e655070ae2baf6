package inference

import (
	"context"

	"github.com/roach88/agora/internal/channel"
)

// NoResponse is the completion text returned when a backend call fails.
const NoResponse = "No response."

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Role constants for Message.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Prompt is an ordered chat transcript sent to a backend.
type Prompt []Message

// Backend produces a completion for a prompt.
type Backend interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, prompt Prompt) (string, error)

// Complete implements Backend.
func (f BackendFunc) Complete(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

// Channel carries prompts in and completion text out.
type Channel = channel.Channel[Prompt, string]

// NewChannel creates an inference channel.
func NewChannel(opts ...channel.Option) *Channel {
	return channel.New[Prompt, string](opts...)
}

// EchoBackend answers without a model. With Reply set it always returns
// Reply; otherwise it echoes the last message's content.
type EchoBackend struct {
	Reply string
}

// Complete implements Backend.
func (b EchoBackend) Complete(_ context.Context, prompt Prompt) (string, error) {
	if b.Reply != "" {
		return b.Reply, nil
	}
	if len(prompt) == 0 {
		return "", nil
	}
	return prompt[len(prompt)-1].Content, nil
}
