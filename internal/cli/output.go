package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/agora/internal/sim"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenario or validation failure, failed simulation
	ExitCommandError = 2 // Command error (invalid paths, database not found, etc.)
)

// Error codes carried in CLIError.Code.
const (
	ErrCodeConfig     = "E_CONFIG"
	ErrCodeStore      = "E_STORE"
	ErrCodeScenario   = "E_SCENARIO"
	ErrCodeTestFailed = "E_TEST_FAILED"
	ErrCodeSimulation = "E_SIMULATION"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors that are not
// an ExitError map to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the JSON envelope every command writes with --format json.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"` // one of the ErrCode* constants
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// textRenderer is implemented by command results with a human-readable
// form. Results without one are printed with fmt.
type textRenderer interface {
	renderText(w io.Writer)
}

// OutputFormatter writes command results as text or as a CLIResponse.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; defaults to Writer
	Verbose   bool
}

// newFormatter builds the formatter for cmd from the global flags.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// Success writes data as an "ok" response.
func (f *OutputFormatter) Success(data any) error {
	return f.Result(data, nil)
}

// Result writes data, with cliErr marking the response as failed. In text
// mode only data is written; failures are reported through the exit error.
func (f *OutputFormatter) Result(data any, cliErr *CLIError) error {
	if f.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: data, Error: cliErr}
		if cliErr != nil {
			resp.Status = "error"
		}
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(resp)
	}

	if r, ok := data.(textRenderer); ok {
		r.renderText(f.Writer)
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error writes a failure that has no result payload.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes a diagnostic line when verbose mode is on. It goes to
// ErrWriter so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// runReport renders a simulation report.
type runReport sim.Report

func (r runReport) renderText(w io.Writer) {
	fmt.Fprintf(w, "Simulation %s finished\n", r.RunID)
	fmt.Fprintf(w, "  Steps:      %d\n", r.Steps)
	fmt.Fprintf(w, "  Activated:  %d\n", r.Activated)
	fmt.Fprintf(w, "  Commands:   %d\n", r.Commands)
	fmt.Fprintf(w, "  Rejections: %d\n", r.Rejections)
	fmt.Fprintf(w, "  Fallbacks:  %d\n", r.Fallbacks)
}

func (r TraceResult) renderText(w io.Writer) {
	fmt.Fprintf(w, "Trace for %s\n", r.Database)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(r.Entries) == 0 {
		fmt.Fprintln(w, "  (no entries)")
	}
	for _, e := range r.Entries {
		fmt.Fprintf(w, "  [%d] %s user %d %s %s\n", e.Seq, e.CreatedAt, e.UserID, e.Action, formatArgs(e.Info))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total: %d\n", len(r.Entries))
	for _, name := range sortedKeys(r.Stats) {
		fmt.Fprintf(w, "  %s: %d\n", name, r.Stats[name])
	}
}

// renderText prints the summary; per-scenario lines are written as each
// scenario finishes.
func (r TestResult) renderText(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
}

func (r ValidationResult) renderText(w io.Writer) {
	if r.Valid {
		fmt.Fprintf(w, "✓ %s valid (%d agent(s))\n", r.Path, r.Agents)
		return
	}
	fmt.Fprintln(w, "✗ Validation failed")
	fmt.Fprintln(w)
	for _, issue := range r.Issues {
		if issue.Line > 0 {
			fmt.Fprintf(w, "line %d, column %d\n", issue.Line, issue.Column)
		}
		fmt.Fprintf(w, "  %s: %s\n\n", issue.Field, issue.Message)
	}
}

// formatArgs formats a map with sorted keys.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats nested values deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
