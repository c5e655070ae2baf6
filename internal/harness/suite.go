package harness

import (
	"context"
	"fmt"
	"time"
)

// SuiteResult is one scenario's outcome within a suite.
type SuiteResult struct {
	Name     string
	Result   *Result
	Err      error
	Duration time.Duration
}

// Passed reports whether the scenario ran and every check held.
func (r SuiteResult) Passed() bool {
	return r.Err == nil && r.Result != nil && r.Result.Pass
}

// RunSuite runs scenarios in order. A scenario that cannot run is recorded
// and the suite continues; only ctx cancellation stops it early.
func RunSuite(ctx context.Context, scenarios []*Scenario, opts ...Option) ([]SuiteResult, error) {
	results := make([]SuiteResult, 0, len(scenarios))
	for _, s := range scenarios {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		start := time.Now()
		res, err := Run(ctx, s, opts...)
		results = append(results, SuiteResult{
			Name:     s.Name,
			Result:   res,
			Err:      err,
			Duration: time.Since(start),
		})
	}
	return results, nil
}

// RunDir loads and runs every scenario in dir.
func RunDir(ctx context.Context, dir string, opts ...Option) ([]SuiteResult, error) {
	scenarios, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", dir)
	}
	return RunSuite(ctx, scenarios, opts...)
}
