// Package pipeline assembles the forecast components from configuration and
// hands them to the controllers.
package pipeline

import (
	"fmt"
	"time"

	"github.com/chrissnell/pvforecast/internal/database"
	"github.com/chrissnell/pvforecast/internal/forecast"
	"github.com/chrissnell/pvforecast/internal/metrics"
	"github.com/chrissnell/pvforecast/internal/model"
	"github.com/chrissnell/pvforecast/internal/stitch"
	"github.com/chrissnell/pvforecast/internal/storage"
	"github.com/chrissnell/pvforecast/internal/weather"
	"github.com/chrissnell/pvforecast/pkg/config"
	"go.uber.org/zap"
)

// Limits are the request bounds the controllers enforce
type Limits struct {
	EarliestDate time.Time
	MaxLeadDays  int
	Horizon      time.Duration
	RunStep      time.Duration
}

// Pipeline holds the shared, read-only forecast components
type Pipeline struct {
	Engine    *forecast.Engine
	Scheduler *forecast.Scheduler
	History   *storage.History // nil without a configured database
	Health    *storage.HealthManager
	Metrics   *metrics.Recorder
	Limits    Limits
	Now       func() time.Time

	db *database.Client
}

// New wires the weather source, stitcher, model bundle, engine, scheduler
// and optional history store described by cfg. A bundle that fails to load
// is fatal.
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) (*Pipeline, error) {
	rec := metrics.NewRecorder()

	source := weather.NewOpenMeteo(weather.OpenMeteoConfig{
		HistoricalEndpoint: cfg.Weather.HistoricalEndpoint,
		ForecastEndpoint:   cfg.Weather.ForecastEndpoint,
		Timeout:            config.Duration(cfg.Weather.Timeout),
		Retry: weather.RetryPolicy{
			MaxAttempts: cfg.Weather.MaxAttempts,
			Delay:       config.Duration(cfg.Weather.RetryDelay),
		},
	}, logger.Named("weather"), weather.WithMetrics(rec))

	bundle, err := model.NewRegistry(cfg.Model.Dir, logger.Named("model")).Load(cfg.Model.Bundle)
	if err != nil {
		return nil, err
	}

	engineCfg := forecast.DefaultConfig()
	if v := cfg.Forecast.ReferenceCapacityKWp; v != nil {
		engineCfg.ReferenceCapacityKWp = *v
	}
	if v := cfg.Forecast.ClampNegative; v != nil {
		engineCfg.ClampNegative = *v
	}

	stitcher := stitch.New(source, time.Now, logger.Named("stitch"))
	engine := forecast.NewEngine(stitcher, bundle, engineCfg, logger.Named("engine"), rec)

	onFailure, err := forecast.ParseFailurePolicy(cfg.Forecast.OnRunFailure)
	if err != nil {
		return nil, err
	}
	horizon := config.Duration(cfg.Forecast.Horizon)
	scheduler := forecast.NewScheduler(engine, forecast.SchedulerConfig{
		Window:    forecast.Horizon{Length: horizon},
		OnFailure: onFailure,
		MaxRuns:   cfg.Forecast.MaxRuns,
	}, logger.Named("scheduler"), rec)

	p := &Pipeline{
		Engine:    engine,
		Scheduler: scheduler,
		Health:    storage.NewHealthManager(),
		Metrics:   rec,
		Limits: Limits{
			EarliestDate: cfg.Forecast.EarliestTime(),
			MaxLeadDays:  cfg.Forecast.MaxLeadDays,
			Horizon:      horizon,
			RunStep:      config.Duration(cfg.Forecast.RunStep),
		},
		Now: time.Now,
	}

	if db := cfg.Storage.Database; db != nil && db.DSN != "" {
		p.db = database.NewClient(*db, logger.Named("database"))
		if err := p.db.Connect(); err != nil {
			return nil, fmt.Errorf("history database: %w", err)
		}
		p.History = storage.NewHistory(p.db.DB, logger.Named("history"), p.Health)
	}

	return p, nil
}

// Close releases the history database, if any
func (p *Pipeline) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}
