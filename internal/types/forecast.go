package types

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar date format used on the wire
const DateLayout = "2006-01-02"

// PredictionRecord is one forecast sample. All power fields are floored at zero.
type PredictionRecord struct {
	Time         time.Time `json:"time" msgpack:"time"`
	PowerW       float64   `json:"power_w" msgpack:"power_w"`
	PowerKW      float64   `json:"power_kw" msgpack:"power_kw"`
	PowerWPerKWp float64   `json:"power_w_per_kwp" msgpack:"power_w_per_kwp"`
}

// DailyTotal is the energy produced over one UTC calendar day
type DailyTotal struct {
	Date      string  `json:"date"`
	EnergyKWh float64 `json:"energy_kwh"`
}

// ForecastRun is the output of a single forecast issued at IssueTime
type ForecastRun struct {
	ID          uuid.UUID          `json:"run_id"`
	IssueTime   time.Time          `json:"issue_time"`
	Predictions []PredictionRecord `json:"predictions"`
}

// NewForecastRun tags predictions with their issue time and a fresh run ID
func NewForecastRun(issueTime time.Time, predictions []PredictionRecord) ForecastRun {
	return ForecastRun{
		ID:          uuid.New(),
		IssueTime:   issueTime,
		Predictions: predictions,
	}
}
