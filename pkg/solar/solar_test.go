package solar

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSunPosition(t *testing.T) {
	tests := []struct {
		name    string
		t       time.Time
		lat     float64
		lon     float64
		wantMin float64
		wantMax float64
	}{
		{
			name: "equinox noon at equator",
			t:    time.Date(2024, 3, 20, 12, 7, 0, 0, time.UTC),
			lat:  0, lon: 0,
			wantMin: 85, wantMax: 90.5,
		},
		{
			name: "midsummer noon in Brussels",
			t:    time.Date(2024, 6, 21, 11, 45, 0, 0, time.UTC),
			lat:  50.85, lon: 4.35,
			wantMin: 61, wantMax: 63.5,
		},
		{
			name: "midnight in Brussels",
			t:    time.Date(2024, 6, 21, 23, 45, 0, 0, time.UTC),
			lat:  50.85, lon: 4.35,
			wantMin: -25, wantMax: -10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := SunPosition(tt.t, tt.lat, tt.lon)
			assert.GreaterOrEqual(t, p.ElevationDeg, tt.wantMin)
			assert.LessOrEqual(t, p.ElevationDeg, tt.wantMax)
			assert.InDelta(t, 1.0, p.EarthSunAU, 0.02)
		})
	}
}

func TestSunPositionAzimuthMorningAfternoon(t *testing.T) {
	morning := SunPosition(time.Date(2024, 6, 21, 7, 0, 0, 0, time.UTC), 50.85, 4.35)
	afternoon := SunPosition(time.Date(2024, 6, 21, 16, 0, 0, 0, time.UTC), 50.85, 4.35)
	assert.Less(t, morning.AzimuthDeg, 180.0)
	assert.Greater(t, afternoon.AzimuthDeg, 180.0)
}

func TestClearSkyGHI(t *testing.T) {
	noon := ClearSkyGHI(time.Date(2024, 6, 21, 11, 45, 0, 0, time.UTC), 50.85, 4.35, 0)
	assert.Greater(t, noon, 700.0)
	assert.Less(t, noon, 1100.0)

	night := ClearSkyGHI(time.Date(2024, 6, 21, 23, 45, 0, 0, time.UTC), 50.85, 4.35, 0)
	assert.Equal(t, 0.0, night)

	winter := ClearSkyGHI(time.Date(2024, 12, 21, 11, 45, 0, 0, time.UTC), 50.85, 4.35, 0)
	assert.Less(t, winter, noon)
	assert.False(t, math.IsNaN(winter))
}

func TestClearSkyTurbidityLowersIrradiance(t *testing.T) {
	ts := time.Date(2024, 6, 21, 11, 45, 0, 0, time.UTC)
	clean := ClearSkyGHIWithTurbidity(ts, 50.85, 4.35, 0, 2)
	hazy := ClearSkyGHIWithTurbidity(ts, 50.85, 4.35, 0, 5)
	assert.Greater(t, clean, hazy)
}
