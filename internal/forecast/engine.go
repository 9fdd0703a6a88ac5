// Package forecast runs the forecast pipeline: stitch weather, derive
// features, predict, clamp and rescale.
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/chrissnell/pvforecast/internal/features"
	"github.com/chrissnell/pvforecast/internal/metrics"
	"github.com/chrissnell/pvforecast/internal/model"
	"github.com/chrissnell/pvforecast/internal/stitch"
	"github.com/chrissnell/pvforecast/internal/types"
	"go.uber.org/zap"
)

// DefaultReferenceCapacityKWp is the largest site the reference models were trained on
const DefaultReferenceCapacityKWp = 4.0

// Config controls post-processing of model output
type Config struct {
	// ReferenceCapacityKWp caps the capacity the model is run at. Larger sites
	// are predicted at the reference and scaled up linearly. Zero disables
	// the ceiling.
	ReferenceCapacityKWp float64
	// ClampNegative floors every prediction at zero
	ClampNegative bool
}

// DefaultConfig returns the reference ceiling and clamping enabled
func DefaultConfig() Config {
	return Config{
		ReferenceCapacityKWp: DefaultReferenceCapacityKWp,
		ClampNegative:        true,
	}
}

// Stitcher supplies the merged weather series for a site
type Stitcher interface {
	Stitch(ctx context.Context, site types.Site, start, end time.Time) ([]types.WeatherRecord, error)
}

// Engine produces power forecasts for a site. It is safe for concurrent use.
type Engine struct {
	stitcher Stitcher
	bundle   *model.Bundle
	config   Config
	logger   *zap.SugaredLogger
	metrics  *metrics.Recorder
}

// NewEngine creates an Engine. rec may be nil.
func NewEngine(s Stitcher, bundle *model.Bundle, cfg Config, logger *zap.SugaredLogger, rec *metrics.Recorder) *Engine {
	if cfg.ReferenceCapacityKWp < 0 {
		cfg.ReferenceCapacityKWp = 0
	}
	return &Engine{
		stitcher: s,
		bundle:   bundle,
		config:   cfg,
		logger:   logger,
		metrics:  rec,
	}
}

// Bundle returns the model bundle the engine predicts with
func (e *Engine) Bundle() *model.Bundle {
	return e.bundle
}

// Run forecasts power for site over the window that policy resolves for
// issueTime. The result is ordered by time and never partial.
func (e *Engine) Run(ctx context.Context, site types.Site, issueTime time.Time, policy WindowPolicy) ([]types.PredictionRecord, error) {
	if err := site.Validate(); err != nil {
		return nil, err
	}
	window, err := policy.Resolve(issueTime)
	if err != nil {
		return nil, err
	}

	startDate, endDate := window.Dates()
	started := time.Now()
	records, err := e.stitcher.Stitch(ctx, site, startDate, endDate)
	e.metrics.ObserveStage("stitch", started)
	if err != nil {
		return nil, err
	}

	trimmed := make([]types.WeatherRecord, 0, len(records))
	for _, r := range records {
		if window.Contains(r.Time) {
			trimmed = append(trimmed, r)
		}
	}
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: nothing inside %s", stitch.ErrNoWeatherData, window)
	}

	started = time.Now()
	var fvs []types.FeatureVector
	if e.bundle.NeedsSite() {
		fvs = features.DeriveForSite(trimmed, site)
	} else {
		fvs = features.Derive(trimmed)
	}
	e.metrics.ObserveStage("derive", started)

	started = time.Now()
	perKWp := e.bundle.Predict(fvs)
	e.metrics.ObserveStage("predict", started)
	if len(perKWp) != len(fvs) {
		return nil, fmt.Errorf("model %q returned %d predictions for %d inputs", e.bundle.Name, len(perKWp), len(fvs))
	}

	return e.postProcess(trimmed, perKWp, site.CapacityKWp), nil
}

// postProcess clamps and converts per-kWp output into absolute power
func (e *Engine) postProcess(records []types.WeatherRecord, perKWp []float64, capacity float64) []types.PredictionRecord {
	runCapacity := capacity
	scale := 1.0
	if ref := e.config.ReferenceCapacityKWp; ref > 0 && capacity > ref {
		e.logger.Warnf("site capacity %.2f kWp exceeds the %.2f kWp the model was trained on; "+
			"predicting at %.2f kWp and scaling the result", capacity, ref, ref)
		runCapacity = ref
		scale = capacity / ref
	}

	clamped := 0
	out := make([]types.PredictionRecord, len(records))
	for i, r := range records {
		p := perKWp[i]
		if e.config.ClampNegative && p < 0 {
			p = 0
			clamped++
		}
		w := p * runCapacity
		if e.config.ClampNegative && w < 0 {
			w = 0
		}
		w *= scale
		out[i] = types.PredictionRecord{
			Time:         r.Time,
			PowerW:       w,
			PowerKW:      w / 1000,
			PowerWPerKWp: p,
		}
	}
	if clamped > 0 {
		e.logger.Debugf("clamped %d negative predictions to zero", clamped)
		e.metrics.Clamped(clamped)
	}
	return out
}
