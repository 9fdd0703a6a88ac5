package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrissnell/pvforecast/internal/database"
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HistoryBackend is the name the history store reports its health under
const HistoryBackend = "history"

// ErrRunNotFound is returned when a run ID is not in the store
var ErrRunNotFound = errors.New("forecast run not found")

// RunSummary describes a stored run without its predictions
type RunSummary struct {
	ID          uuid.UUID `json:"run_id"`
	Site        string    `json:"site"`
	IssueTime   string    `json:"issue_time"`
	Predictions int       `json:"predictions"`
}

// History records forecast runs and their daily totals. It is a write-behind
// record only; forecasts are never served from it.
type History struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
	health *HealthManager
}

// NewHistory wraps an open, migrated database. health may be nil.
func NewHistory(db *gorm.DB, logger *zap.SugaredLogger, health *HealthManager) *History {
	return &History{
		db:     db,
		logger: logger,
		health: health,
	}
}

// Check pings the database and records the outcome as the store's health
func (h *History) Check(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	h.health.record(HistoryBackend, "database reachable", err)
	return err
}

// SaveRun stores a run and upserts the daily totals computed from it in one
// transaction. Newer runs overwrite the totals of older ones for the same
// site and date.
func (h *History) SaveRun(ctx context.Context, site string, run types.ForecastRun, totals []types.DailyTotal) error {
	payload, err := msgpack.Marshal(run.Predictions)
	if err != nil {
		return fmt.Errorf("encoding run %s: %w", run.ID, err)
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := database.ForecastRun{
			RunID:       run.ID.String(),
			Site:        site,
			IssueTime:   run.IssueTime.UTC(),
			Predictions: len(run.Predictions),
			Payload:     payload,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("storing run %s: %w", run.ID, err)
		}
		return upsertTotals(tx, site, run.ID.String(), totals)
	})

	h.health.record(HistoryBackend, fmt.Sprintf("stored run %s for %s", run.ID, site), err)
	if err != nil {
		return err
	}
	h.logger.Debugf("stored run %s for %s (%d predictions, %d daily totals)", run.ID, site, len(run.Predictions), len(totals))
	return nil
}

func upsertTotals(tx *gorm.DB, site, runID string, totals []types.DailyTotal) error {
	if len(totals) == 0 {
		return nil
	}
	rows := make([]database.DailyEnergyTotal, len(totals))
	for i, t := range totals {
		rows[i] = database.DailyEnergyTotal{
			Site:      site,
			Date:      t.Date,
			EnergyKWh: t.EnergyKWh,
			RunID:     runID,
		}
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "site"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"energy_kwh", "run_id", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("upserting daily totals: %w", err)
	}
	return nil
}

// Runs lists the most recent runs for a site, newest issue time first
func (h *History) Runs(ctx context.Context, site string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []database.ForecastRun
	err := h.db.WithContext(ctx).
		Select("run_id", "site", "issue_time", "predictions").
		Where("site = ?", site).
		Order("issue_time DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying runs for %s: %w", site, err)
	}

	out := make([]RunSummary, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.RunID)
		if err != nil {
			h.logger.Warnf("skipping run with malformed id %q", r.RunID)
			continue
		}
		out = append(out, RunSummary{
			ID:          id,
			Site:        r.Site,
			IssueTime:   r.IssueTime.UTC().Format("2006-01-02T15:04:05Z"),
			Predictions: r.Predictions,
		})
	}
	return out, nil
}

// Run loads a stored run with its predictions
func (h *History) Run(ctx context.Context, id uuid.UUID) (types.ForecastRun, error) {
	var row database.ForecastRun
	err := h.db.WithContext(ctx).Where("run_id = ?", id.String()).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ForecastRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return types.ForecastRun{}, fmt.Errorf("loading run %s: %w", id, err)
	}

	var preds []types.PredictionRecord
	if err := msgpack.Unmarshal(row.Payload, &preds); err != nil {
		return types.ForecastRun{}, fmt.Errorf("decoding run %s: %w", id, err)
	}
	for i := range preds {
		preds[i].Time = preds[i].Time.UTC()
	}
	return types.ForecastRun{
		ID:          id,
		IssueTime:   row.IssueTime.UTC(),
		Predictions: preds,
	}, nil
}

// DailyTotals returns stored totals for a site between two dates
// (YYYY-MM-DD, inclusive) in date order
func (h *History) DailyTotals(ctx context.Context, site, from, to string) ([]types.DailyTotal, error) {
	var rows []database.DailyEnergyTotal
	err := h.db.WithContext(ctx).
		Where("site = ? AND date >= ? AND date <= ?", site, from, to).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying daily totals for %s: %w", site, err)
	}

	out := make([]types.DailyTotal, len(rows))
	for i, r := range rows {
		out[i] = types.DailyTotal{Date: r.Date, EnergyKWh: r.EnergyKWh}
	}
	return out, nil
}
