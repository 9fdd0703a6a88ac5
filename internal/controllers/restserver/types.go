package restserver

import "github.com/chrissnell/pvforecast/internal/storage"

// ForecastPoint is one row of GET /forecast
type ForecastPoint struct {
	Time        string  `json:"time"`
	PredW       float64 `json:"pred_W"`
	PredKW      float64 `json:"pred_kW"`
	PredWPerKWp float64 `json:"pred_W_per_kWp"`
}

// DailyPoint is one row of GET /daily_forecast
type DailyPoint struct {
	Date    string  `json:"date"`
	PredKWh float64 `json:"pred_kWh"`
}

// RunRequest is the body of POST /forecast. Times use "2006-01-02 15:04:05" in UTC.
type RunRequest struct {
	StartDatetime string  `json:"start_datetime"`
	EndDatetime   string  `json:"end_datetime"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	CapacityKWp   float64 `json:"capacity_kwp"`
	Tilt          float64 `json:"tilt,omitempty"`
	Orientation   float64 `json:"orientation,omitempty"`
	InitTimeFreq  int     `json:"init_time_freq,omitempty"` // hours between issue times
}

// RunRow is one prediction of POST /forecast, tagged with the run it came from
type RunRow struct {
	Datetime         string  `json:"datetime"`
	PowerKW          float64 `json:"power_kw"`
	PowerW           float64 `json:"power_w"`
	PowerWPerKWp     float64 `json:"power_w_per_kwp"`
	ForecastInitTime string  `json:"forecast_init_time"`
	RunID            string  `json:"run_id"`
}

// PeriodTotal is the response of GET /period_total
type PeriodTotal struct {
	Period         string  `json:"period"`
	From           string  `json:"from"`
	To             string  `json:"to"`
	TotalEnergyKWh float64 `json:"total_energy_kwh"`
}

// ModelInfo describes the loaded model bundle
type ModelInfo struct {
	Name         string             `json:"name"`
	Kind         string             `json:"kind"`
	FeatureOrder []string           `json:"feature_order"`
	SiteAware    bool               `json:"site_aware"`
	Importances  map[string]float64 `json:"importances,omitempty"`
}

// HealthResponse is the response of GET /health
type HealthResponse struct {
	Status  string                 `json:"status"`
	Model   string                 `json:"model"`
	Storage map[string]*storage.HealthData `json:"storage,omitempty"`
}

type detailResponse struct {
	Detail string `json:"detail"`
}

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}
