package restserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/chrissnell/pvforecast/internal/aggregate"
	"github.com/chrissnell/pvforecast/internal/forecast"
	"github.com/chrissnell/pvforecast/internal/model"
	"github.com/chrissnell/pvforecast/internal/stitch"
	"github.com/chrissnell/pvforecast/internal/storage"
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/internal/weather"
	"github.com/chrissnell/pvforecast/pkg/forecastplot"
	"github.com/chrissnell/pvforecast/pkg/responseformat"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	pointTimeLayout    = "2006-01-02T15:04:05Z"
	defaultRunsLimit   = 50
	maxRunsLimit       = 500
	maxInitTimeFreq    = 24 * 365
	healthMaxAge       = 5 * time.Minute
	forecastCSVName    = "forecast.csv"
	historyUnavailable = "forecast history is not configured"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// GetUsage describes the API
func (h *Handlers) GetUsage(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, map[string]interface{}{
		"message": "PV power forecast API",
		"usage": map[string]string{
			"GET /forecast":       "?lat=&lon=&start=YYYY-MM-DD&end=YYYY-MM-DD&kwp=[&plot=true][&csv=true][&efficiency=]",
			"GET /daily_forecast": "?lat=&lon=&start=YYYY-MM-DD&end=YYYY-MM-DD&kwp=",
			"POST /forecast":      `{"start_datetime","end_datetime","latitude","longitude","capacity_kwp","init_time_freq"}`,
			"GET /period_total":   "?lat=&lon=&kwp=&period=day|week|month",
			"GET /model":          "loaded model bundle",
			"GET /history/daily":  "?site=&from=YYYY-MM-DD&to=YYYY-MM-DD",
			"GET /history/runs":   "?site=[&limit=]",
			"GET /health":         "service health",
			"GET /metrics":        "Prometheus metrics",
		},
	}, nil)
}

// GetForecast returns hourly predictions as JSON, CSV or a PNG plot
func (h *Handlers) GetForecast(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	site, start, end, err := h.forecastQuery(req)
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}
	plot, err := boolParam(q, "plot")
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}
	asCSV, err := boolParam(q, "csv")
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}

	preds, err := h.runRange(req, site, start, end)
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}

	switch {
	case plot:
		h.writePlot(w, req, site, start, end, preds)
	case asCSV:
		rows := make([][]string, 0, len(preds))
		for _, p := range preds {
			rows = append(rows, []string{
				p.Time.UTC().Format(pointTimeLayout),
				formatFloat(p.PowerW),
				formatFloat(p.PowerKW),
				formatFloat(p.PowerWPerKWp),
			})
		}
		if err := h.formatter.WriteCSV(w, forecastCSVName, []string{"time", "pred_W", "pred_kW", "pred_W_per_kWp"}, rows); err != nil {
			h.controller.logger.Errorf("error writing CSV response: %v", err)
		}
	default:
		points := make([]ForecastPoint, 0, len(preds))
		for _, p := range preds {
			points = append(points, ForecastPoint{
				Time:        p.Time.UTC().Format(pointTimeLayout),
				PredW:       p.PowerW,
				PredKW:      p.PowerKW,
				PredWPerKWp: p.PowerWPerKWp,
			})
		}
		h.formatter.WriteResponse(w, req, points, nil)
	}
}

func (h *Handlers) writePlot(w http.ResponseWriter, req *http.Request, site types.Site, start, end time.Time, preds []types.PredictionRecord) {
	points := make([]forecastplot.Point, 0, len(preds))
	for _, p := range preds {
		points = append(points, forecastplot.Point{Time: p.Time, Value: p.PowerKW})
	}

	img, err := forecastplot.Render(points, forecastplot.Options{
		Title: fmt.Sprintf("PV Forecast %s → %s | %.3f,%.3f | %s kWp",
			start.Format(types.DateLayout), end.Format(types.DateLayout),
			site.Latitude, site.Longitude, formatFloat(site.CapacityKWp)),
		YLabel: "Power (kW)",
	})
	if err != nil {
		h.writeDetail(w, req, fmt.Errorf("rendering plot: %w", err))
		return
	}
	if err := h.formatter.WritePNG(w, img); err != nil {
		h.controller.logger.Errorf("error writing plot: %v", err)
	}
}

// GetDailyForecast returns energy per UTC day in kWh
func (h *Handlers) GetDailyForecast(w http.ResponseWriter, req *http.Request) {
	site, start, end, err := h.forecastQuery(req)
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}

	preds, err := h.runRange(req, site, start, end)
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}
	if err := aggregate.VerifyCadence(preds, time.Hour); err != nil {
		h.writeDetail(w, req, err)
		return
	}

	totals := aggregate.Daily(preds)
	points := make([]DailyPoint, 0, len(totals))
	for _, t := range totals {
		points = append(points, DailyPoint{Date: t.Date, PredKWh: t.EnergyKWh})
	}
	h.formatter.WriteResponse(w, req, points, nil)
}

// PostForecast issues one forecast run per init time between the requested
// datetimes and returns every prediction tagged with its run.
func (h *Handlers) PostForecast(w http.ResponseWriter, req *http.Request) {
	var body RunRequest
	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		h.writeError(w, req, validationf("invalid request body: %v", err))
		return
	}

	start, err := time.ParseInLocation(requestTimeLayout, body.StartDatetime, time.UTC)
	if err != nil {
		h.writeError(w, req, validationf("start_datetime must be YYYY-MM-DD HH:MM:SS, got %q", body.StartDatetime))
		return
	}
	end, err := time.ParseInLocation(requestTimeLayout, body.EndDatetime, time.UTC)
	if err != nil {
		h.writeError(w, req, validationf("end_datetime must be YYYY-MM-DD HH:MM:SS, got %q", body.EndDatetime))
		return
	}
	if err := h.checkDates(start, end); err != nil {
		h.writeError(w, req, err)
		return
	}

	site := types.NewSite(body.Latitude, body.Longitude, body.CapacityKWp)
	if body.Tilt != 0 {
		site.Tilt = body.Tilt
	}
	if body.Orientation != 0 {
		site.Orientation = body.Orientation
	}
	if err := site.Validate(); err != nil {
		h.writeError(w, req, err)
		return
	}

	step := h.controller.pipeline.Limits.RunStep
	if body.InitTimeFreq < 0 {
		h.writeError(w, req, validationf("init_time_freq must be positive, got %d", body.InitTimeFreq))
		return
	}
	if body.InitTimeFreq > maxInitTimeFreq {
		h.writeError(w, req, validationf("init_time_freq must be at most %d hours, got %d", maxInitTimeFreq, body.InitTimeFreq))
		return
	}
	if body.InitTimeFreq > 0 {
		step = time.Duration(body.InitTimeFreq) * time.Hour
	}

	runs, err := h.controller.pipeline.Scheduler.Generate(req.Context(), site, start, end, step)
	if err != nil {
		h.writeError(w, req, err)
		return
	}

	rows := []RunRow{}
	for _, run := range runs {
		initTime := run.IssueTime.UTC().Format(requestTimeLayout)
		for _, p := range run.Predictions {
			rows = append(rows, RunRow{
				Datetime:         p.Time.UTC().Format(requestTimeLayout),
				PowerKW:          p.PowerKW,
				PowerW:           p.PowerW,
				PowerWPerKWp:     p.PowerWPerKWp,
				ForecastInitTime: initTime,
				RunID:            run.ID.String(),
			})
		}
	}
	h.formatter.WriteResponse(w, req, rows, nil)
}

// GetPeriodTotal returns the energy produced over today, the last week or the last month
func (h *Handlers) GetPeriodTotal(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()

	site, err := siteFromQuery(q)
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}
	period := q.Get("period")
	if period == "" {
		period = "day"
	}
	from, to, err := periodRange(period, h.controller.pipeline.Now())
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}

	preds, err := h.runRange(req, site, from, to)
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}
	if err := aggregate.VerifyCadence(preds, time.Hour); err != nil {
		h.writeDetail(w, req, err)
		return
	}

	h.formatter.WriteResponse(w, req, PeriodTotal{
		Period:         period,
		From:           from.Format(types.DateLayout),
		To:             to.Format(types.DateLayout),
		TotalEnergyKWh: aggregate.Round(aggregate.Total(preds), 2),
	}, nil)
}

// GetModel describes the loaded model bundle
func (h *Handlers) GetModel(w http.ResponseWriter, req *http.Request) {
	bundle := h.controller.pipeline.Engine.Bundle()
	info := ModelInfo{
		Name:         bundle.Name,
		Kind:         string(bundle.Kind),
		FeatureOrder: bundle.FeatureOrder,
		SiteAware:    bundle.NeedsSite(),
	}
	if imp, ok := bundle.Importances(); ok {
		info.Importances = imp
	}
	h.formatter.WriteResponse(w, req, info, nil)
}

// GetHistoryDaily returns stored daily totals for a site
func (h *Handlers) GetHistoryDaily(w http.ResponseWriter, req *http.Request) {
	history := h.controller.pipeline.History
	if history == nil {
		h.formatter.WriteStatus(w, req, http.StatusNotFound, detailResponse{Detail: historyUnavailable}, nil)
		return
	}

	q := req.URL.Query()
	site := q.Get("site")
	if site == "" {
		h.writeDetail(w, req, validationf("missing required parameter %q", "site"))
		return
	}
	from, err := dateParam(q, "from")
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}
	to, err := dateParam(q, "to")
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}
	if to.Before(from) {
		h.writeDetail(w, req, validationf("from %s is after to %s", from.Format(types.DateLayout), to.Format(types.DateLayout)))
		return
	}

	totals, err := history.DailyTotals(req.Context(), site, from.Format(types.DateLayout), to.Format(types.DateLayout))
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}
	h.formatter.WriteResponse(w, req, totals, nil)
}

// GetHistoryRuns lists stored runs for a site, newest first
func (h *Handlers) GetHistoryRuns(w http.ResponseWriter, req *http.Request) {
	history := h.controller.pipeline.History
	if history == nil {
		h.formatter.WriteStatus(w, req, http.StatusNotFound, detailResponse{Detail: historyUnavailable}, nil)
		return
	}

	q := req.URL.Query()
	site := q.Get("site")
	if site == "" {
		h.writeDetail(w, req, validationf("missing required parameter %q", "site"))
		return
	}
	limit := defaultRunsLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRunsLimit {
			h.writeDetail(w, req, validationf("limit must be between 1 and %d, got %q", maxRunsLimit, raw))
			return
		}
		limit = n
	}

	runs, err := history.Runs(req.Context(), site, limit)
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}
	h.formatter.WriteResponse(w, req, runs, nil)
}

// GetHistoryRun returns one stored run with its predictions
func (h *Handlers) GetHistoryRun(w http.ResponseWriter, req *http.Request) {
	history := h.controller.pipeline.History
	if history == nil {
		h.formatter.WriteStatus(w, req, http.StatusNotFound, detailResponse{Detail: historyUnavailable}, nil)
		return
	}

	id, err := uuid.Parse(mux.Vars(req)["id"])
	if err != nil {
		h.writeDetail(w, req, validationf("invalid run id %q", mux.Vars(req)["id"]))
		return
	}

	run, err := history.Run(req.Context(), id)
	if errors.Is(err, storage.ErrRunNotFound) {
		h.formatter.WriteStatus(w, req, http.StatusNotFound, detailResponse{Detail: err.Error()}, nil)
		return
	}
	if err != nil {
		h.writeDetail(w, req, err)
		return
	}
	h.formatter.WriteResponse(w, req, run, nil)
}

// GetHealth reports the loaded model and the health of the history store.
// A missing or stale history status is refreshed with a ping first.
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	p := h.controller.pipeline
	resp := HealthResponse{
		Status: storage.StatusHealthy,
		Model:  p.Engine.Bundle().Name,
	}
	status := http.StatusOK

	if p.History != nil {
		if !p.Health.IsHealthy(storage.HistoryBackend, healthMaxAge) {
			if err := p.History.Check(req.Context()); err != nil {
				h.controller.logger.Warnf("history store check failed: %v", err)
			}
		}
		if hd, ok := p.Health.GetHealth(storage.HistoryBackend); ok {
			resp.Storage = map[string]*storage.HealthData{storage.HistoryBackend: hd}
			if hd.Status != storage.StatusHealthy {
				resp.Status = storage.StatusUnhealthy
				status = http.StatusServiceUnavailable
			}
		}
	}
	h.formatter.WriteStatus(w, req, status, resp, nil)
}

// forecastQuery reads the site and date range shared by the GET forecast endpoints
func (h *Handlers) forecastQuery(req *http.Request) (types.Site, time.Time, time.Time, error) {
	q := req.URL.Query()

	site, err := siteFromQuery(q)
	if err != nil {
		return types.Site{}, time.Time{}, time.Time{}, err
	}
	start, err := dateParam(q, "start")
	if err != nil {
		return types.Site{}, time.Time{}, time.Time{}, err
	}
	end, err := dateParam(q, "end")
	if err != nil {
		return types.Site{}, time.Time{}, time.Time{}, err
	}
	if err := h.checkDates(start, end); err != nil {
		return types.Site{}, time.Time{}, time.Time{}, err
	}
	return site, start, end, nil
}

func (h *Handlers) runRange(req *http.Request, site types.Site, start, end time.Time) ([]types.PredictionRecord, error) {
	p := h.controller.pipeline
	return p.Engine.Run(req.Context(), site, p.Now(), forecast.DateRange{Start: start, End: end})
}

// writeDetail reports a GET failure as {"detail": ...}
func (h *Handlers) writeDetail(w http.ResponseWriter, req *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.controller.logger.Errorf("%s %s failed: %v", req.Method, req.URL.Path, err)
	}
	h.formatter.WriteStatus(w, req, status, detailResponse{Detail: err.Error()}, nil)
}

// writeError reports a POST failure as {"error": ..., "type": ...}
func (h *Handlers) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.controller.logger.Errorf("%s %s failed: %v", req.Method, req.URL.Path, err)
	}
	h.formatter.WriteStatus(w, req, status, errorResponse{Error: err.Error(), Type: errorType(err)}, nil)
}

func statusFor(err error) int {
	if errors.Is(err, types.ErrValidation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorType(err error) string {
	switch {
	case errors.Is(err, types.ErrValidation):
		return "validation_error"
	case errors.Is(err, weather.ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, weather.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, stitch.ErrNoWeatherData):
		return "no_weather_data"
	case errors.Is(err, model.ErrModelLoad):
		return "model_load"
	case errors.Is(err, aggregate.ErrIrregularCadence):
		return "irregular_cadence"
	default:
		return "internal_error"
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
