// Package sitewatch periodically forecasts the configured sites and records
// the runs in the history store.
package sitewatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/pvforecast/internal/aggregate"
	"github.com/chrissnell/pvforecast/internal/forecast"
	"github.com/chrissnell/pvforecast/internal/log"
	"github.com/chrissnell/pvforecast/internal/pipeline"
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/config"
	"go.uber.org/zap"
)

// Controller runs a horizon forecast for each watched site on an interval
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	pipeline *pipeline.Pipeline
	sites    []types.Site
	interval time.Duration
	logger   *zap.SugaredLogger
}

// NewController selects the sites named in wc, or every configured site when
// wc names none.
func NewController(ctx context.Context, wg *sync.WaitGroup, wc config.SiteWatchData, sites []config.SiteData, p *pipeline.Pipeline, logger *zap.SugaredLogger) (*Controller, error) {
	if p == nil {
		return nil, fmt.Errorf("site watch requires a forecast pipeline")
	}

	interval := config.Duration(wc.Interval)
	if interval <= 0 {
		return nil, fmt.Errorf("site watch interval must be positive, got %q", wc.Interval)
	}

	byName := make(map[string]config.SiteData, len(sites))
	for _, s := range sites {
		byName[s.Name] = s
	}

	selected := sites
	if len(wc.Sites) > 0 {
		selected = make([]config.SiteData, 0, len(wc.Sites))
		for _, name := range wc.Sites {
			s, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("site watch references unknown site %q", name)
			}
			selected = append(selected, s)
		}
	}

	c := &Controller{
		ctx:      ctx,
		wg:       wg,
		pipeline: p,
		interval: interval,
		logger:   logger,
	}
	for _, s := range selected {
		c.sites = append(c.sites, siteFromConfig(s))
	}

	if p.History == nil {
		logger.Warn("no history database configured; site watch forecasts will be logged but not stored")
	}

	return c, nil
}

func siteFromConfig(s config.SiteData) types.Site {
	return types.Site{
		Name:        s.Name,
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
		CapacityKWp: s.CapacityKWp,
		Tilt:        s.Tilt,
		Orientation: s.Orientation,
	}
}

// StartController starts one refresh loop per watched site
func (c *Controller) StartController() error {
	log.Info("Starting site watch controller...")

	if len(c.sites) == 0 {
		log.Info("No sites configured for site watch")
		return nil
	}

	for _, site := range c.sites {
		log.Infof("Watching site %s (%.4f,%.4f, %v kWp) every %v", site.Name, site.Latitude, site.Longitude, site.CapacityKWp, c.interval)
		c.wg.Add(1)
		go c.refreshPeriodically(site)
	}
	return nil
}

func (c *Controller) refreshPeriodically(site types.Site) {
	defer c.wg.Done()

	// Tickers only fire after the first interval, so forecast once up front
	if err := c.forecastSite(site); err != nil {
		c.logger.Errorf("error forecasting site %s: %v", site.Name, err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.forecastSite(site); err != nil {
				c.logger.Errorf("error forecasting site %s: %v", site.Name, err)
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// forecastSite runs the horizon forecast for one site and stores it
func (c *Controller) forecastSite(site types.Site) error {
	p := c.pipeline
	issue := p.Now()

	preds, err := p.Engine.Run(c.ctx, site, issue, forecast.Horizon{Length: p.Limits.Horizon})
	if err == nil {
		err = aggregate.VerifyCadence(preds, time.Hour)
	}
	if err != nil {
		p.Metrics.Run("failed")
		return err
	}
	p.Metrics.Run("succeeded")

	// Only whole days are stored; a later run must not shrink a stored total
	run := types.NewForecastRun(issue, preds)
	totals := aggregate.CompleteDays(preds)
	c.logger.Infof("forecast run %s for %s: %d predictions, %.2f kWh, %d complete day(s)",
		run.ID, site.Name, len(preds), aggregate.Total(preds), len(totals))

	if p.History == nil {
		return nil
	}
	return p.History.SaveRun(c.ctx, site.Key(), run, totals)
}
