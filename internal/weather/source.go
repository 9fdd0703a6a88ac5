// Package weather fetches hourly weather series from historical and forecast upstreams.
package weather

import (
	"context"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
)

// Kind selects which upstream endpoint serves a request
type Kind string

const (
	// Historical serves reanalysis data up to today
	Historical Kind = "historical"
	// Forecast serves NWP data from today onward
	Forecast Kind = "forecast"
)

// Source fetches raw hourly weather for a location and an inclusive date range.
// start and end are interpreted as UTC calendar dates.
type Source interface {
	Fetch(ctx context.Context, lat, lon float64, start, end time.Time, kind Kind) ([]types.WeatherRecord, error)
}
