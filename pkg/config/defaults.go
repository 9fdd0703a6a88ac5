package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied by ApplyDefaults
const (
	DefaultHistoricalEndpoint = "https://archive-api.open-meteo.com/v1/era5"
	DefaultForecastEndpoint   = "https://api.open-meteo.com/v1/forecast"
	DefaultWeatherTimeout     = "30s"
	DefaultMaxAttempts        = 10
	DefaultRetryDelay         = "2s"

	DefaultModelDir    = "models"
	DefaultModelBundle = "default"

	DefaultReferenceCapacityKWp = 4.0
	DefaultHorizon              = "48h"
	DefaultRunStep              = "6h"
	DefaultOnRunFailure         = "abort"
	DefaultMaxRuns              = 500
	DefaultMaxLeadDays          = 13
	DefaultEarliestDate         = "2020-01-01"

	DefaultDatabaseDriver = "sqlite"
	DefaultRESTPort       = 8080
	DefaultWatchInterval  = "1h"

	DefaultTilt        = 35.0
	DefaultOrientation = 180.0
)

// Environment variables that override file configuration
const (
	EnvDatabaseDSN = "PVFORECAST_DATABASE_DSN"
	EnvModelDir    = "PVFORECAST_MODEL_DIR"
)

const dateLayout = "2006-01-02"

// ApplyDefaults fills every unset field with its default
func ApplyDefaults(c *ConfigData) {
	w := &c.Weather
	if w.HistoricalEndpoint == "" {
		w.HistoricalEndpoint = DefaultHistoricalEndpoint
	}
	if w.ForecastEndpoint == "" {
		w.ForecastEndpoint = DefaultForecastEndpoint
	}
	if w.Timeout == "" {
		w.Timeout = DefaultWeatherTimeout
	}
	if w.MaxAttempts == 0 {
		w.MaxAttempts = DefaultMaxAttempts
	}
	if w.RetryDelay == "" {
		w.RetryDelay = DefaultRetryDelay
	}

	if c.Model.Dir == "" {
		c.Model.Dir = DefaultModelDir
	}
	if c.Model.Bundle == "" {
		c.Model.Bundle = DefaultModelBundle
	}

	f := &c.Forecast
	if f.ReferenceCapacityKWp == nil {
		v := DefaultReferenceCapacityKWp
		f.ReferenceCapacityKWp = &v
	}
	if f.ClampNegative == nil {
		v := true
		f.ClampNegative = &v
	}
	if f.Horizon == "" {
		f.Horizon = DefaultHorizon
	}
	if f.RunStep == "" {
		f.RunStep = DefaultRunStep
	}
	if f.OnRunFailure == "" {
		f.OnRunFailure = DefaultOnRunFailure
	}
	if f.MaxRuns == 0 {
		f.MaxRuns = DefaultMaxRuns
	}
	if f.MaxLeadDays == 0 {
		f.MaxLeadDays = DefaultMaxLeadDays
	}
	if f.EarliestDate == "" {
		f.EarliestDate = DefaultEarliestDate
	}

	if db := c.Storage.Database; db != nil && db.Driver == "" {
		db.Driver = DefaultDatabaseDriver
	}

	for i := range c.Sites {
		if c.Sites[i].Tilt == 0 {
			c.Sites[i].Tilt = DefaultTilt
		}
		if c.Sites[i].Orientation == 0 {
			c.Sites[i].Orientation = DefaultOrientation
		}
	}

	for i := range c.Controllers {
		if r := c.Controllers[i].RESTServer; r != nil && r.Port == 0 {
			r.Port = DefaultRESTPort
		}
		if s := c.Controllers[i].SiteWatch; s != nil && s.Interval == "" {
			s.Interval = DefaultWatchInterval
		}
	}
}

// Validate checks that every value parses and refers to something that exists
func (c *ConfigData) Validate() error {
	for name, v := range map[string]string{
		"weather timeout":     c.Weather.Timeout,
		"weather retry delay": c.Weather.RetryDelay,
		"forecast horizon":    c.Forecast.Horizon,
		"forecast run step":   c.Forecast.RunStep,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.Weather.MaxAttempts < 1 {
		return fmt.Errorf("weather max attempts must be at least 1, got %d", c.Weather.MaxAttempts)
	}
	if _, err := time.Parse(dateLayout, c.Forecast.EarliestDate); err != nil {
		return fmt.Errorf("invalid forecast earliest date %q: %w", c.Forecast.EarliestDate, err)
	}
	switch c.Forecast.OnRunFailure {
	case "abort", "skip":
	default:
		return fmt.Errorf("forecast on-run-failure must be abort or skip, got %q", c.Forecast.OnRunFailure)
	}

	if db := c.Storage.Database; db != nil {
		switch db.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("unsupported database driver %q", db.Driver)
		}
		if db.DSN == "" {
			return errors.New("database dsn must be set")
		}
	}

	names := make(map[string]bool, len(c.Sites))
	for _, s := range c.Sites {
		if s.Name == "" {
			return errors.New("every configured site needs a name")
		}
		if names[s.Name] {
			return fmt.Errorf("site %q is configured twice", s.Name)
		}
		names[s.Name] = true
		if s.Latitude < -90 || s.Latitude > 90 || s.Longitude < -180 || s.Longitude > 180 {
			return fmt.Errorf("site %q has invalid coordinates %v,%v", s.Name, s.Latitude, s.Longitude)
		}
		if s.CapacityKWp < 0 {
			return fmt.Errorf("site %q has negative capacity", s.Name)
		}
	}

	for _, ctrl := range c.Controllers {
		if sw := ctrl.SiteWatch; sw != nil {
			d, err := time.ParseDuration(sw.Interval)
			if err != nil || d <= 0 {
				return fmt.Errorf("invalid sitewatch interval %q", sw.Interval)
			}
			for _, n := range sw.Sites {
				if !names[n] {
					return fmt.Errorf("sitewatch refers to unknown site %q", n)
				}
			}
		}
	}
	return nil
}

// ApplyEnv loads envFile, if it exists, into the process environment and then
// applies the PVFORECAST_* overrides to c. Variables already set in the
// environment win over the file.
func ApplyEnv(c *ConfigData, envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("loading %s: %w", envFile, err)
			}
		}
	}

	if dsn := os.Getenv(EnvDatabaseDSN); dsn != "" {
		if c.Storage.Database == nil {
			c.Storage.Database = &DatabaseData{Driver: DefaultDatabaseDriver}
		}
		c.Storage.Database.DSN = dsn
	}
	if dir := os.Getenv(EnvModelDir); dir != "" {
		c.Model.Dir = dir
	}
	return nil
}

// Duration parses a duration that Validate has already accepted
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// EarliestTime returns the first date forecasts may be requested for
func (f ForecastData) EarliestTime() time.Time {
	t, _ := time.Parse(dateLayout, f.EarliestDate)
	return t
}
