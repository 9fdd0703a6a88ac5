package types

import (
	"math"
	"time"
)

// WeatherRecord is one hourly weather sample as returned by an upstream source.
// Values the upstream reported as null are stored as NaN; use Missing() to test
// for them. The feature projection turns missing values into zero.
type WeatherRecord struct {
	Time               time.Time `json:"time" msgpack:"time"`
	Temperature        float64   `json:"temperature_2m" msgpack:"temperature_2m"`
	CloudCover         float64   `json:"cloudcover" msgpack:"cloudcover"`
	ShortwaveRadiation float64   `json:"shortwave_radiation" msgpack:"shortwave_radiation"`
	WindSpeed          float64   `json:"wind_speed_10m" msgpack:"wind_speed_10m"`
}

// Missing reports whether v stands for a value the upstream did not provide
func Missing(v float64) bool {
	return math.IsNaN(v)
}

// MissingValue is the placeholder used for null upstream values
func MissingValue() float64 {
	return math.NaN()
}

// Column names shared by weather records, feature vectors and model bundles.
const (
	ColumnTemperature        = "temperature_2m"
	ColumnCloudCover         = "cloudcover"
	ColumnShortwaveRadiation = "shortwave_radiation"
	ColumnWindSpeed          = "wind_speed_10m"
	ColumnHourSin            = "hour_sin"
	ColumnHourCos            = "hour_cos"
	ColumnDaySin             = "day_sin"
	ColumnDayCos             = "day_cos"
	ColumnSolarElevation     = "solar_elevation"
	ColumnClearSkyGHI        = "clearsky_ghi"
)

// DefaultFeatureOrder is the column order the reference models were trained with
var DefaultFeatureOrder = []string{
	ColumnTemperature,
	ColumnCloudCover,
	ColumnShortwaveRadiation,
	ColumnWindSpeed,
	ColumnHourSin,
	ColumnHourCos,
	ColumnDaySin,
	ColumnDayCos,
}

// FeatureVector is a WeatherRecord extended with derived time features. The
// site-aware columns are only populated when derived with a Site.
type FeatureVector struct {
	WeatherRecord

	HourSin float64 `json:"hour_sin"`
	HourCos float64 `json:"hour_cos"`
	DaySin  float64 `json:"day_sin"`
	DayCos  float64 `json:"day_cos"`

	SolarElevation float64 `json:"solar_elevation,omitempty"`
	ClearSkyGHI    float64 `json:"clearsky_ghi,omitempty"`
	SiteAware      bool    `json:"-"`
}

// Value returns the named column. ok is false for unknown columns and for
// site-aware columns on a vector derived without a site.
func (f FeatureVector) Value(column string) (v float64, ok bool) {
	switch column {
	case ColumnTemperature:
		return f.Temperature, true
	case ColumnCloudCover:
		return f.CloudCover, true
	case ColumnShortwaveRadiation:
		return f.ShortwaveRadiation, true
	case ColumnWindSpeed:
		return f.WindSpeed, true
	case ColumnHourSin:
		return f.HourSin, true
	case ColumnHourCos:
		return f.HourCos, true
	case ColumnDaySin:
		return f.DaySin, true
	case ColumnDayCos:
		return f.DayCos, true
	case ColumnSolarElevation:
		return f.SolarElevation, f.SiteAware
	case ColumnClearSkyGHI:
		return f.ClearSkyGHI, f.SiteAware
	}
	return 0, false
}

// KnownColumn reports whether column can ever be produced by feature derivation
func KnownColumn(column string) bool {
	_, ok := FeatureVector{SiteAware: true}.Value(column)
	return ok
}
