package features

import (
	"math"
	"testing"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []types.WeatherRecord {
	start := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	var recs []types.WeatherRecord
	for h := 0; h < 48; h++ {
		recs = append(recs, types.WeatherRecord{
			Time:               start.Add(time.Duration(h) * time.Hour),
			Temperature:        15 + float64(h%24)/2,
			CloudCover:         float64(h % 100),
			ShortwaveRadiation: math.Max(0, 800*math.Sin(math.Pi*float64(h%24-5)/15)),
			WindSpeed:          3,
		})
	}
	return recs
}

func TestDeriveCyclicalEncoding(t *testing.T) {
	fvs := Derive(sampleRecords())
	require.Len(t, fvs, 48)

	for _, fv := range fvs {
		assert.InDelta(t, 1.0, fv.HourSin*fv.HourSin+fv.HourCos*fv.HourCos, 1e-9)
		assert.InDelta(t, 1.0, fv.DaySin*fv.DaySin+fv.DayCos*fv.DayCos, 1e-9)
		assert.False(t, fv.SiteAware)
	}

	assert.InDelta(t, 0.0, fvs[0].HourSin, 1e-12)
	assert.InDelta(t, 1.0, fvs[0].HourCos, 1e-12)
	assert.InDelta(t, 1.0, fvs[6].HourSin, 1e-12)
	assert.Equal(t, fvs[3].HourSin, fvs[27].HourSin, "same hour on consecutive days")
}

func TestDeriveIsIdempotent(t *testing.T) {
	recs := sampleRecords()
	first := Derive(recs)
	second := Derive(recs)
	assert.Equal(t, first, second)

	assert.Equal(t, sampleRecords(), recs, "input must not be modified")
}

func TestDeriveKeepsMissingValues(t *testing.T) {
	fvs := Derive([]types.WeatherRecord{{
		Time:        time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Temperature: types.MissingValue(),
	}})
	require.Len(t, fvs, 1)
	assert.True(t, types.Missing(fvs[0].Temperature))
}

func TestDeriveForSite(t *testing.T) {
	site := types.NewSite(50.85, 4.35, 4)
	fvs := DeriveForSite(sampleRecords(), site)
	require.Len(t, fvs, 48)

	noon := fvs[12]
	midnight := fvs[0]
	assert.True(t, noon.SiteAware)
	assert.Greater(t, noon.SolarElevation, 55.0)
	assert.Greater(t, noon.ClearSkyGHI, 600.0)
	assert.Less(t, midnight.SolarElevation, 0.0)
	assert.Equal(t, 0.0, midnight.ClearSkyGHI)

	v, ok := noon.Value(types.ColumnSolarElevation)
	assert.True(t, ok)
	assert.Equal(t, noon.SolarElevation, v)

	plain := Derive(sampleRecords())
	assert.Equal(t, plain[12].HourSin, noon.HourSin)
}
