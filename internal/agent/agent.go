// Package agent implements the simulated users: a typed action client over
// the platform channel and the model-driven decision step.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/inference"
)

const (
	// DefaultMaxAttempts bounds completions per step when the model's answer
	// cannot be parsed.
	DefaultMaxAttempts = 5

	// DefaultMemoryWindow is the number of chat turns kept between steps.
	DefaultMemoryWindow = 5
)

// ErrNoDecision is returned by ParseDecision when the answer carries no
// usable function calls.
var ErrNoDecision = errors.New("no decision in response")

// Agent is one simulated user.
type Agent struct {
	id      int64
	profile Profile
	conn    Conn
	model   inference.Backend
	system  string
	logger  *slog.Logger

	maxAttempts int
	window      int
	memory      []inference.Message
}

// Option configures an Agent.
type Option func(*Agent)

// WithStyle selects the system prompt variant (default StyleTwitter).
func WithStyle(s Style) Option {
	return func(a *Agent) {
		a.system = SystemPrompt(a.profile, s)
	}
}

// WithMaxAttempts sets the completion retry bound.
func WithMaxAttempts(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithMemoryWindow sets how many chat turns persist between steps.
func WithMemoryWindow(n int) Option {
	return func(a *Agent) {
		if n >= 0 {
			a.window = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates agent id playing profile. It acts through conn and decides
// with model.
func New(id int64, profile Profile, conn Conn, model inference.Backend, opts ...Option) *Agent {
	a := &Agent{
		id:          id,
		profile:     profile,
		conn:        conn,
		model:       model,
		system:      SystemPrompt(profile, StyleTwitter),
		logger:      slog.Default(),
		maxAttempts: DefaultMaxAttempts,
		window:      DefaultMemoryWindow,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("agent_id", id)
	return a
}

// ID returns the agent's identifier, which is also its user_id.
func (a *Agent) ID() int64 { return a.id }

// Profile returns the agent's persona.
func (a *Agent) Profile() Profile { return a.profile }

// SignUp registers the agent's account.
func (a *Agent) SignUp(ctx context.Context) error {
	res, err := a.conn.Do(ctx, action.SignUp{UserName: a.profile.UserName, Name: a.profile.Name, Bio: a.profile.Bio})
	if err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("sign up agent %d: %s", a.id, res.Error())
	}
	return nil
}

// Outcome is what one Step did.
type Outcome struct {
	// Response is the model text the decision came from, or
	// inference.NoResponse when every attempt failed to parse.
	Response string
	Attempts int
	Commands []action.Command
	Results  []action.Result
}

// Step observes the feed, asks the model for actions and performs them.
// Rejected actions are logged and do not fail the step; only transport
// errors are returned.
func (a *Agent) Step(ctx context.Context) (Outcome, error) {
	feed, err := a.conn.Do(ctx, action.Refresh{})
	if err != nil {
		return Outcome{}, err
	}
	a.remember(inference.Message{Role: inference.RoleUser, Content: userTurn(EnvironmentPrompt(feed))})

	var out Outcome
	for out.Attempts < a.maxAttempts {
		out.Attempts++
		text, err := a.model.Complete(ctx, a.prompt())
		if err != nil {
			return out, fmt.Errorf("agent %d: complete: %w", a.id, err)
		}
		cmds, err := ParseDecision(text)
		if err != nil {
			a.logger.Warn("unparseable decision", "attempt", out.Attempts, "error", err)
			continue
		}
		out.Response = text
		out.Commands = cmds
		break
	}
	if out.Commands == nil {
		out.Response = inference.NoResponse
	}

	for _, cmd := range out.Commands {
		res, err := a.conn.Do(ctx, cmd)
		if err != nil {
			return out, err
		}
		if !res.Success() {
			a.logger.Debug("action rejected", "action", cmd.Kind(), "error", res.Error(), "message", res.Message())
		}
		out.Results = append(out.Results, res)
	}

	a.remember(inference.Message{Role: inference.RoleAssistant, Content: out.Response})
	return out, nil
}

// prompt is the system message followed by the memory window.
func (a *Agent) prompt() inference.Prompt {
	p := make(inference.Prompt, 0, len(a.memory)+1)
	p = append(p, inference.Message{Role: inference.RoleSystem, Content: a.system})
	return append(p, a.memory...)
}

func (a *Agent) remember(m inference.Message) {
	a.memory = append(a.memory, m)
	if over := len(a.memory) - a.window; over > 0 {
		a.memory = append(a.memory[:0], a.memory[over:]...)
	}
}

type decision struct {
	Functions []struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"functions"`
}

// ParseDecision extracts the commands from a model answer of the form
// {"functions": [{"name": ..., "arguments": {...}}]}. do_nothing ignores its
// arguments. Actions agents may not issue are rejected.
func ParseDecision(text string) ([]action.Command, error) {
	var d decision
	if err := json.Unmarshal([]byte(text), &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoDecision, err)
	}
	if len(d.Functions) == 0 {
		return nil, ErrNoDecision
	}

	cmds := make([]action.Command, 0, len(d.Functions))
	for _, fn := range d.Functions {
		kind, err := action.ParseKind(fn.Name)
		if err != nil {
			return nil, err
		}
		if !action.AgentFacing(kind) {
			return nil, fmt.Errorf("action %q is not available to agents", kind)
		}
		args := fn.Arguments
		if kind == action.KindDoNothing {
			args = nil
		}
		cmd, err := action.Decode(fn.Name, args)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
