package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/agora/internal/config"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Snapshot string
	Steps    int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Run a simulation",
		Long: `Run a simulation described by a configuration file.

The platform loop, the inference worker pool and the simulation driver start
together. The driver signs every configured agent up, then for each timestep
rebuilds the recommendation table and lets the activated agents act. When the
steps are done the platform exits, snapshotting an in-memory database if a
snapshot path is set.

Without inference endpoints the agents are served by an offline echo
backend.

Example:
  agora run sim.yaml
  agora run sim.yaml --db ./agora.db --steps 10
  agora run sim.yaml --snapshot ./out.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "override database.path")
	cmd.Flags().StringVar(&opts.Snapshot, "snapshot", "", "override database.snapshot")
	cmd.Flags().IntVar(&opts.Steps, "steps", 0, "override simulation.num_timesteps")

	return cmd
}

func (o *RunOptions) apply(cfg *config.Config) {
	if o.Database != "" {
		cfg.Database.Path = o.Database
	}
	if o.Snapshot != "" {
		cfg.Database.Snapshot = o.Snapshot
	}
	if o.Steps > 0 {
		cfg.Simulation.Steps = o.Steps
	}
}

func runSimulation(opts *RunOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := loadConfig(path)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}
	opts.apply(cfg)
	if len(cfg.Agents) == 0 {
		_ = formatter.Error(ErrCodeConfig, "no agents configured", nil)
		return NewExitError(ExitCommandError, "no agents configured")
	}

	s, err := openStack(cfg, logger)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return err
	}
	defer s.close(logger)

	simulation, err := buildSimulation(cfg, s, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	logger.Info("simulation configured",
		"agents", len(cfg.Agents),
		"steps", cfg.Simulation.Steps,
		"workers", len(simulation.Manager.Workers()),
		"run_id", simulation.Driver.RunID(),
	)
	report, err := simulation.Run(ctx)
	if err != nil && !isShutdown(err) {
		_ = formatter.Error(ErrCodeSimulation, err.Error(), runReport(report))
		return WrapExitError(ExitFailure, "simulation failed", err)
	}

	return formatter.Success(runReport(report))
}
