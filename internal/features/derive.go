// Package features turns weather records into model input vectors.
package features

import (
	"math"

	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/solar"
)

const (
	hoursPerDay = 24.0
	daysPerYear = 365.0
)

// Derive adds cyclical hour-of-day and day-of-year encodings to every record.
// It does not modify its input and always produces the same output for the
// same records.
func Derive(records []types.WeatherRecord) []types.FeatureVector {
	out := make([]types.FeatureVector, len(records))
	for i, r := range records {
		out[i] = derive(r)
	}
	return out
}

// DeriveForSite is Derive plus the sun's elevation and clear-sky irradiance at
// the site for each timestamp.
func DeriveForSite(records []types.WeatherRecord, site types.Site) []types.FeatureVector {
	out := make([]types.FeatureVector, len(records))
	for i, r := range records {
		fv := derive(r)
		pos := solar.SunPosition(r.Time, site.Latitude, site.Longitude)
		fv.SolarElevation = pos.ElevationDeg
		fv.ClearSkyGHI = solar.ClearSkyGHI(r.Time, site.Latitude, site.Longitude, 0)
		fv.SiteAware = true
		out[i] = fv
	}
	return out
}

func derive(r types.WeatherRecord) types.FeatureVector {
	t := r.Time.UTC()
	hourAngle := 2 * math.Pi * float64(t.Hour()) / hoursPerDay
	dayAngle := 2 * math.Pi * float64(t.YearDay()) / daysPerYear

	return types.FeatureVector{
		WeatherRecord: r,
		HourSin:       math.Sin(hourAngle),
		HourCos:       math.Cos(hourAngle),
		DaySin:        math.Sin(dayAngle),
		DayCos:        math.Cos(dayAngle),
	}
}
