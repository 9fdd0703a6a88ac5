package database

import (
	"time"
)

// ForecastRun is a persisted forecast run. Predictions are stored as a
// msgpack-encoded []types.PredictionRecord so the same schema works on both
// sqlite and postgres.
type ForecastRun struct {
	RunID       string    `gorm:"primaryKey;column:run_id;size:36"`
	Site        string    `gorm:"column:site;not null;index:idx_runs_site_issue,priority:1"`
	IssueTime   time.Time `gorm:"column:issue_time;not null;index:idx_runs_site_issue,priority:2"`
	Predictions int       `gorm:"column:predictions;not null"`
	Payload     []byte    `gorm:"column:payload;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for GORM
func (ForecastRun) TableName() string {
	return "forecast_runs"
}

// DailyEnergyTotal is the latest forecast energy for one site and UTC date
type DailyEnergyTotal struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Site      string    `gorm:"column:site;not null;uniqueIndex:idx_daily_site_date,priority:1"`
	Date      string    `gorm:"column:date;size:10;not null;uniqueIndex:idx_daily_site_date,priority:2"`
	EnergyKWh float64   `gorm:"column:energy_kwh;not null"`
	RunID     string    `gorm:"column:run_id;size:36"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for GORM
func (DailyEnergyTotal) TableName() string {
	return "daily_energy_totals"
}
