package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/agora/internal/agent"
	"github.com/roach88/agora/internal/channel"
	"github.com/roach88/agora/internal/config"
	"github.com/roach88/agora/internal/gateway"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen      string
	Database    string
	RecInterval time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve <config.yaml>",
		Short: "Serve the platform over a websocket gateway",
		Long: `Start the platform loop and expose it to out-of-process agents.

Agents connect to /ws and exchange JSON frames; /healthz reports whether the
platform is accepting requests and /metrics exposes Prometheus metrics. The
recommendation table is rebuilt every --rec-interval. On SIGINT or SIGTERM
the platform exits, snapshotting an in-memory database if configured.

Example:
  agora serve sim.yaml
  agora serve sim.yaml --listen :9090 --rec-interval 30s`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "override gateway.listen")
	cmd.Flags().StringVar(&opts.Database, "db", "", "override database.path")
	cmd.Flags().DurationVar(&opts.RecInterval, "rec-interval", time.Minute, "recommendation rebuild period (0 disables)")

	return cmd
}

func runServe(opts *ServeOptions, path string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.Gateway.Listen = opts.Listen
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}

	ln, err := net.Listen("tcp", cfg.Gateway.Listen)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return serve(ctx, cfg, ln, opts.RecInterval, cmd.OutOrStdout(), logger)
}

// serve runs the platform behind a gateway on ln until ctx is done or the
// platform stops. ln is closed on return.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener, recInterval time.Duration, out io.Writer, logger *slog.Logger) error {
	s, err := openStack(cfg, logger)
	if err != nil {
		ln.Close()
		return err
	}
	defer s.close(logger)

	srv := &http.Server{
		Handler: gateway.NewServer(s.channel,
			gateway.WithMetrics(s.metrics),
			gateway.WithLogger(logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	platformDone := make(chan error, 1)
	go func() { platformDone <- s.platform.Run(context.WithoutCancel(ctx)) }()

	httpDone := make(chan error, 1)
	go func() { httpDone <- srv.Serve(ln) }()

	ctl := agent.NewClient(0, s.channel)
	recCtx, stopRecs := context.WithCancel(ctx)
	defer stopRecs()
	if recInterval > 0 {
		go rebuildRecs(recCtx, ctl, recInterval, logger)
	}

	fmt.Fprintf(out, "Gateway listening on %s\n", ln.Addr())
	logger.Info("gateway started", "addr", ln.Addr().String())

	var runErr error
	stopped := false
	select {
	case <-ctx.Done():
		logger.Info("gateway stopping")
	case err := <-httpDone:
		runErr = fmt.Errorf("gateway: %w", err)
	case err := <-platformDone:
		stopped = true
		if err != nil {
			runErr = WrapExitError(ExitFailure, "platform error", err)
		}
	}

	stopRecs()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if !stopped {
		if _, err := ctl.Exit(shutdownCtx); err != nil && !errors.Is(err, channel.ErrClosed) {
			runErr = errors.Join(runErr, fmt.Errorf("exit: %w", err))
		}
		if err := <-platformDone; err != nil {
			runErr = errors.Join(runErr, WrapExitError(ExitFailure, "platform error", err))
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown: %w", err))
	}

	logger.Info("gateway stopped")
	return runErr
}

// rebuildRecs sends update_rec_table every interval until ctx is done or
// the platform channel closes.
func rebuildRecs(ctx context.Context, ctl *agent.Client, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := ctl.UpdateRecTable(ctx)
			if err != nil {
				if !errors.Is(err, channel.ErrClosed) && !isShutdown(err) {
					logger.Error("rec rebuild failed", "error", err)
				}
				return
			}
			logger.Debug("rec table rebuilt", "success", res.Success())
		}
	}
}
