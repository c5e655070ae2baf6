package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/agora/internal/action"
	"github.com/roach88/agora/internal/clock"
	"github.com/roach88/agora/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Driver   string
	User     int64
	Actions  []string
	Limit    int
}

// TraceRow is one trace entry with its info decoded.
type TraceRow struct {
	Seq       int            `json:"seq"`
	UserID    int64          `json:"user_id"`
	CreatedAt clock.Stamp    `json:"created_at"`
	Action    string         `json:"action"`
	Info      map[string]any `json:"info"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Database string         `json:"database"`
	Entries  []TraceRow     `json:"entries"`
	Stats    map[string]int `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the action trace of a simulation database",
		Long: `Print the trace table of a simulation database.

Every accepted agent action is recorded with the acting user, its simulated
timestamp and an info object. Entries are printed in insertion order,
followed by a count per action.

Examples:
  agora trace --db ./agora.db
  agora trace --db ./agora.db --user 3 --action like_post --action follow
  agora trace --db ./agora.db --limit 20 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Driver, "driver", store.DriverCGO, "SQLite driver (sqlite3|sqlite)")
	cmd.Flags().Int64Var(&opts.User, "user", 0, "only entries of this user")
	cmd.Flags().StringSliceVar(&opts.Actions, "action", nil, "only entries of these actions")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of entries (0 for all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	// store.Open creates missing files; a typo should not.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeStore, "database not found", opts.Database)
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	for _, name := range opts.Actions {
		if _, err := action.ParseKind(name); err != nil {
			return WrapExitError(ExitCommandError, "invalid --action", err)
		}
	}

	st, err := store.Open(opts.Database, store.WithDriver(opts.Driver))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	filter := store.TraceFilter{
		UserID:  opts.User,
		HasUser: cmd.Flags().Changed("user"),
		Actions: opts.Actions,
		Limit:   opts.Limit,
	}
	entries, err := st.ReadTrace(ctx, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	result := TraceResult{
		Database: opts.Database,
		Entries:  make([]TraceRow, 0, len(entries)),
		Stats:    map[string]int{},
	}
	for i, e := range entries {
		info := map[string]any{}
		if err := json.Unmarshal([]byte(e.Info), &info); err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("trace row %d has invalid info", i+1), err)
		}
		result.Entries = append(result.Entries, TraceRow{
			Seq:       i + 1,
			UserID:    e.UserID,
			CreatedAt: e.CreatedAt,
			Action:    e.Action,
			Info:      info,
		})
		result.Stats[e.Action]++
	}

	return formatter.Success(result)
}
