package harness

import (
	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/clock"
)

// TraceEvent is one trace row as the harness reports it. Info is the
// decoded JSON object; its numbers are float64.
type TraceEvent struct {
	Seq       int            `json:"seq"`
	UserID    int64          `json:"user_id"`
	Action    string         `json:"action"`
	CreatedAt clock.Stamp    `json:"created_at"`
	Info      map[string]any `json:"info"`
}

// StepResult records what the platform answered to one flow step.
type StepResult struct {
	Step    int           `json:"step"`
	Agent   int64         `json:"agent"`
	Action  string        `json:"action"`
	Tick    int64         `json:"tick"`
	Outcome string        `json:"outcome"`
	Result  action.Result `json:"result"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	Steps  []StepResult `json:"steps"`
	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// outcomeOf names a result's case as expect clauses spell it.
func outcomeOf(res action.Result) string {
	if res.Success() {
		return CaseSuccess
	}
	return CaseFailure
}
