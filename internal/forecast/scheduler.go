package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/chrissnell/pvforecast/internal/metrics"
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// FailurePolicy decides what a batch does when one run fails
type FailurePolicy string

const (
	// Abort fails the whole batch on the first failed run
	Abort FailurePolicy = "abort"
	// Skip drops failed runs and fails only if every run failed
	Skip FailurePolicy = "skip"
)

// DefaultMaxRuns bounds the number of issue times in one batch
const DefaultMaxRuns = 500

// ParseFailurePolicy accepts "abort", "skip" or empty (abort)
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", Abort:
		return Abort, nil
	case Skip:
		return Skip, nil
	}
	return "", fmt.Errorf("unknown run failure policy %q (want abort or skip)", s)
}

// Runner is the part of Engine the scheduler needs
type Runner interface {
	Run(ctx context.Context, site types.Site, issueTime time.Time, policy WindowPolicy) ([]types.PredictionRecord, error)
}

// SchedulerConfig configures a Scheduler
type SchedulerConfig struct {
	Window    WindowPolicy
	OnFailure FailurePolicy
	MaxRuns   int
}

// Scheduler issues a forecast at every step between two instants
type Scheduler struct {
	runner  Runner
	config  SchedulerConfig
	logger  *zap.SugaredLogger
	metrics *metrics.Recorder
}

// NewScheduler creates a Scheduler. A nil window uses a DefaultHorizon
// Horizon and a zero MaxRuns uses DefaultMaxRuns.
func NewScheduler(r Runner, cfg SchedulerConfig, logger *zap.SugaredLogger, rec *metrics.Recorder) *Scheduler {
	if cfg.Window == nil {
		cfg.Window = Horizon{Length: DefaultHorizon}
	}
	if cfg.OnFailure == "" {
		cfg.OnFailure = Abort
	}
	if cfg.MaxRuns <= 0 {
		cfg.MaxRuns = DefaultMaxRuns
	}
	return &Scheduler{
		runner:  r,
		config:  cfg,
		logger:  logger,
		metrics: rec,
	}
}

// IssueTimes lists start, start+step, ... while not after end
func IssueTimes(start, end time.Time, step time.Duration) []time.Time {
	if step <= 0 {
		return nil
	}
	var out []time.Time
	for t := start; !t.After(end); t = t.Add(step) {
		out = append(out, t)
	}
	return out
}

// Generate runs the engine at every issue time in [start, end]. Each run
// keeps its own predictions; overlapping timestamps across runs are not
// merged.
func (s *Scheduler) Generate(ctx context.Context, site types.Site, start, end time.Time, step time.Duration) ([]types.ForecastRun, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: step must be positive, got %s", types.ErrValidation, step)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: window start %s is after end %s", types.ErrValidation,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if n := int(end.Sub(start)/step) + 1; n > s.config.MaxRuns {
		return nil, fmt.Errorf("%w: %d issue times requested, at most %d allowed", types.ErrValidation, n, s.config.MaxRuns)
	}

	issueTimes := IssueTimes(start, end, step)
	runs := make([]types.ForecastRun, 0, len(issueTimes))
	var errs *multierror.Error

	for _, issue := range issueTimes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		preds, err := s.runner.Run(ctx, site, issue, s.config.Window)
		if err != nil {
			s.metrics.Run("failed")
			err = fmt.Errorf("run issued at %s: %w", issue.Format(time.RFC3339), err)
			if s.config.OnFailure != Skip {
				return nil, err
			}
			s.logger.Warnf("skipping failed forecast run: %v", err)
			errs = multierror.Append(errs, err)
			continue
		}

		s.metrics.Run("succeeded")
		runs = append(runs, types.NewForecastRun(issue, preds))
	}

	if len(runs) == 0 && errs != nil {
		return nil, errs.ErrorOrNil()
	}
	if errs != nil {
		s.logger.Infof("generated %d of %d forecast runs for %s", len(runs), len(issueTimes), site.Key())
	}
	return runs, nil
}
