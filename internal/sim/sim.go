package sim

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/agora/internal/channel"
	"github.com/roach88/agora/internal/inference"
	"github.com/roach88/agora/internal/platform"
)

// Simulation is a fully wired run: the platform loop, the inference pool and
// the driver, each in its own goroutine.
type Simulation struct {
	Platform  *platform.Platform
	Inference *inference.Channel
	Manager   *inference.Manager
	Driver    *Driver
}

// Run blocks until the driver has sent Exit and the platform loop and pool
// have stopped. When ctx is cancelled the returned error wraps ctx.Err().
func (s *Simulation) Run(ctx context.Context) (Report, error) {
	var report Report
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Platform.Run(gctx)
	})
	if s.Manager != nil {
		g.Go(func() error {
			return s.Manager.Run(gctx)
		})
	}
	g.Go(func() error {
		var err error
		report, err = s.Driver.Run(gctx)
		if s.Manager != nil {
			s.Manager.Stop()
		}
		if s.Inference != nil {
			s.Inference.Close()
		}
		return err
	})

	err := g.Wait()
	if cerr := ctx.Err(); cerr != nil && err != nil && !errors.Is(err, cerr) {
		// The loser of the shutdown race may report a closed channel.
		err = errors.Join(cerr, err)
	}
	return report, err
}

func isClosed(err error) bool {
	return errors.Is(err, channel.ErrClosed)
}
