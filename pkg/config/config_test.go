package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLProviderLoadConfig(t *testing.T) {
	p := NewYAMLProvider(filepath.Join("testdata", "pvforecast.yaml"))
	cfg, err := p.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "10s", cfg.Weather.Timeout)
	assert.Equal(t, 5, cfg.Weather.MaxAttempts)
	assert.Equal(t, DefaultRetryDelay, cfg.Weather.RetryDelay)
	assert.Equal(t, DefaultForecastEndpoint, cfg.Weather.ForecastEndpoint)

	assert.Equal(t, "xgb-2024", cfg.Model.Bundle)
	assert.Equal(t, 5.0, *cfg.Forecast.ReferenceCapacityKWp)
	assert.False(t, *cfg.Forecast.ClampNegative)
	assert.Equal(t, "skip", cfg.Forecast.OnRunFailure)
	assert.Equal(t, DefaultHorizon, cfg.Forecast.Horizon)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), cfg.Forecast.EarliestTime())

	require.NotNil(t, cfg.Storage.Database)
	assert.Equal(t, "sqlite", cfg.Storage.Database.Driver)

	sites, err := p.GetSites()
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, 30.0, sites[0].Tilt)
	assert.Equal(t, DefaultOrientation, sites[0].Orientation)

	ctrls, err := p.GetControllers()
	require.NoError(t, err)
	require.Len(t, ctrls, 2)
	require.NotNil(t, ctrls[0].RESTServer)
	assert.Equal(t, DefaultRESTPort, ctrls[0].RESTServer.Port)
	assert.True(t, ctrls[0].RESTServer.GRPCHealth)
	require.NotNil(t, ctrls[1].SiteWatch)
	assert.Equal(t, 30*time.Minute, Duration(ctrls[1].SiteWatch.Interval))

	assert.NoError(t, p.Close())
}

func TestYAMLProviderMissingFile(t *testing.T) {
	_, err := NewYAMLProvider("testdata/nope.yaml").LoadConfig()
	assert.Error(t, err)
}

func TestApplyDefaultsOnEmptyConfig(t *testing.T) {
	cfg := &ConfigData{}
	ApplyDefaults(cfg)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultMaxAttempts, cfg.Weather.MaxAttempts)
	assert.Equal(t, 2*time.Second, Duration(cfg.Weather.RetryDelay))
	assert.Equal(t, 4.0, *cfg.Forecast.ReferenceCapacityKWp)
	assert.True(t, *cfg.Forecast.ClampNegative)
	assert.Equal(t, 13, cfg.Forecast.MaxLeadDays)
	assert.Nil(t, cfg.Storage.Database)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *ConfigData)
	}{
		{"bad duration", func(c *ConfigData) { c.Weather.Timeout = "soon" }},
		{"bad failure policy", func(c *ConfigData) { c.Forecast.OnRunFailure = "retry" }},
		{"bad earliest date", func(c *ConfigData) { c.Forecast.EarliestDate = "01/01/2020" }},
		{"unknown driver", func(c *ConfigData) { c.Storage.Database = &DatabaseData{Driver: "mysql", DSN: "x"} }},
		{"empty dsn", func(c *ConfigData) { c.Storage.Database = &DatabaseData{Driver: "sqlite"} }},
		{"unnamed site", func(c *ConfigData) { c.Sites = []SiteData{{Latitude: 1}} }},
		{"duplicate site", func(c *ConfigData) { c.Sites = []SiteData{{Name: "a"}, {Name: "a"}} }},
		{"site out of range", func(c *ConfigData) { c.Sites = []SiteData{{Name: "a", Latitude: 91}} }},
		{"watch unknown site", func(c *ConfigData) {
			c.Controllers = []ControllerData{{Type: "sitewatch", SiteWatch: &SiteWatchData{Interval: "1h", Sites: []string{"x"}}}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &ConfigData{}
			ApplyDefaults(cfg)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PVFORECAST_MODEL_DIR=/from/dotenv\n"), 0o600))

	t.Setenv(EnvDatabaseDSN, "postgres://localhost/pv")
	t.Setenv(EnvModelDir, "")
	os.Unsetenv(EnvModelDir)

	cfg := &ConfigData{}
	ApplyDefaults(cfg)
	require.NoError(t, ApplyEnv(cfg, envFile))

	assert.Equal(t, "/from/dotenv", cfg.Model.Dir)
	require.NotNil(t, cfg.Storage.Database)
	assert.Equal(t, "postgres://localhost/pv", cfg.Storage.Database.DSN)

	assert.NoError(t, ApplyEnv(cfg, filepath.Join(dir, "missing.env")))
}
