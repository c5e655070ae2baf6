package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/agora/internal/config"
)

// ValidationIssue is one problem found in a configuration file.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Path   string            `json:"path"`
	Valid  bool              `json:"valid"`
	Agents int               `json:"agents"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a simulation configuration",
		Long: `Validate a simulation configuration without running it.

The file is checked against the embedded schema, decoded strictly and its
platform, clock and channel settings are resolved. Errors carry the line and
column of the offending value.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := config.Load(path)
	if err != nil {
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			issue := ValidationIssue{Field: ve.Field, Message: ve.Message}
			if ve.Pos.IsValid() {
				issue.Line = ve.Pos.Line()
				issue.Column = ve.Pos.Column()
			}
			return outputValidationIssues(formatter, path, []ValidationIssue{issue})
		}
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	formatter.VerboseLog("Loaded %s: %d agent(s), %d endpoint URL(s)", path, len(cfg.Agents), len(cfg.EndpointURLs()))

	issues := resolveConfig(cfg)
	if len(issues) > 0 {
		return outputValidationIssues(formatter, path, issues)
	}
	return formatter.Success(ValidationResult{Path: path, Valid: true, Agents: len(cfg.Agents)})
}

// resolveConfig builds every derived setting the schema cannot check.
func resolveConfig(cfg *config.Config) []ValidationIssue {
	var issues []ValidationIssue
	if _, err := cfg.PlatformConfig(); err != nil {
		issues = append(issues, ValidationIssue{Field: "platform.recsys", Message: err.Error()})
	}
	if _, err := cfg.Clock(); err != nil {
		issues = append(issues, ValidationIssue{Field: "platform.clock", Message: err.Error()})
	}
	if _, err := cfg.IDGenerator(); err != nil {
		issues = append(issues, ValidationIssue{Field: "channel.ids", Message: err.Error()})
	}

	seen := make(map[string]int, len(cfg.Agents))
	for i, p := range cfg.Agents {
		if prev, ok := seen[p.UserName]; ok {
			issues = append(issues, ValidationIssue{
				Field:   fmt.Sprintf("agents.%d.user_name", i),
				Message: fmt.Sprintf("duplicate user_name %q (also agents.%d)", p.UserName, prev),
			})
			continue
		}
		seen[p.UserName] = i
	}
	return issues
}

func outputValidationIssues(formatter *OutputFormatter, path string, issues []ValidationIssue) error {
	result := ValidationResult{Path: path, Issues: issues}
	if err := formatter.Result(result, &CLIError{Code: ErrCodeConfig, Message: issues[0].Message}); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
