package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chrissnell/pvforecast/internal/model"
	"github.com/chrissnell/pvforecast/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const manifest = `{
  "name": "coef",
  "kind": "linear",
  "feature_order": ["shortwave_radiation"],
  "coefficients": [0.9]
}`

func testConfig(t *testing.T, withDB bool) *config.ConfigData {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "coef.json"), []byte(manifest), 0o644))

	c := &config.ConfigData{
		Model: config.ModelData{Dir: dir, Bundle: "coef"},
	}
	if withDB {
		c.Storage.Database = &config.DatabaseData{DSN: filepath.Join(dir, "history.db")}
	}
	config.ApplyDefaults(c)
	return c
}

func TestNew(t *testing.T) {
	p, err := New(testConfig(t, true), zap.NewNop().Sugar())
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "coef", p.Engine.Bundle().Name)
	assert.NotNil(t, p.Scheduler)
	assert.NotNil(t, p.History)
	assert.NotNil(t, p.Metrics)
	assert.Equal(t, 48*time.Hour, p.Limits.Horizon)
	assert.Equal(t, 6*time.Hour, p.Limits.RunStep)
	assert.Equal(t, 13, p.Limits.MaxLeadDays)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), p.Limits.EarliestDate)
}

func TestNewWithoutDatabase(t *testing.T) {
	p, err := New(testConfig(t, false), zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Nil(t, p.History)
	assert.NoError(t, p.Close())
}

func TestNewFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.ConfigData)
		is     error
	}{
		{"missing bundle", func(c *config.ConfigData) { c.Model.Bundle = "absent" }, model.ErrModelLoad},
		{"bad failure policy", func(c *config.ConfigData) { c.Forecast.OnRunFailure = "retry" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testConfig(t, false)
			tt.mutate(c)
			_, err := New(c, zap.NewNop().Sugar())
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}
