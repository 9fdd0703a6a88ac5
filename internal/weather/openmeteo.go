package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/pvforecast/internal/metrics"
	"github.com/chrissnell/pvforecast/internal/types"
	"go.uber.org/zap"
)

const (
	DefaultHistoricalEndpoint = "https://archive-api.open-meteo.com/v1/era5"
	DefaultForecastEndpoint   = "https://api.open-meteo.com/v1/forecast"
	DefaultTimeout            = 30 * time.Second

	hourlyVariables = "temperature_2m,cloudcover,shortwave_radiation,wind_speed_10m"
	maxBodyBytes    = 64 << 20
)

// OpenMeteoConfig holds the endpoints and retry behaviour of the client
type OpenMeteoConfig struct {
	HistoricalEndpoint string
	ForecastEndpoint   string
	Timeout            time.Duration
	Retry              RetryPolicy
}

// OpenMeteo is a Source backed by the Open-Meteo archive and forecast APIs
type OpenMeteo struct {
	config  OpenMeteoConfig
	client  *http.Client
	sleep   Sleeper
	logger  *zap.SugaredLogger
	metrics *metrics.Recorder
}

// Option customizes an OpenMeteo client
type Option func(o *OpenMeteo)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *OpenMeteo) {
		o.client = c
	}
}

// WithSleeper replaces the back-off sleep, mostly for tests
func WithSleeper(s Sleeper) Option {
	return func(o *OpenMeteo) {
		o.sleep = s
	}
}

// WithMetrics attaches a metrics recorder
func WithMetrics(r *metrics.Recorder) Option {
	return func(o *OpenMeteo) {
		o.metrics = r
	}
}

// NewOpenMeteo creates a client. Empty endpoints and a zero timeout fall back
// to the public Open-Meteo defaults.
func NewOpenMeteo(cfg OpenMeteoConfig, logger *zap.SugaredLogger, opts ...Option) *OpenMeteo {
	if cfg.HistoricalEndpoint == "" {
		cfg.HistoricalEndpoint = DefaultHistoricalEndpoint
	}
	if cfg.ForecastEndpoint == "" {
		cfg.ForecastEndpoint = DefaultForecastEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	cfg.Retry = cfg.Retry.normalized()

	o := &OpenMeteo{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		sleep:  ContextSleep,
		logger: logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Fetch implements Source. Transient failures are retried according to the
// configured RetryPolicy; anything else fails on the spot.
func (o *OpenMeteo) Fetch(ctx context.Context, lat, lon float64, start, end time.Time, kind Kind) ([]types.WeatherRecord, error) {
	endpoint, err := o.endpoint(kind)
	if err != nil {
		return nil, err
	}

	v := url.Values{}
	v.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	v.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	v.Set("start_date", start.UTC().Format(types.DateLayout))
	v.Set("end_date", end.UTC().Format(types.DateLayout))
	v.Set("hourly", hourlyVariables)
	v.Set("timezone", "UTC")
	reqURL := endpoint + "?" + v.Encode()

	label := string(kind)
	policy := o.config.Retry

	var lastErr error
	var lastStatus int

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch from %q abandoned after %d attempt(s): %w", label, attempt-1, err)
		}

		o.logger.Debugf("requesting %s weather (attempt %d/%d): %v", label, attempt, policy.MaxAttempts, reqURL)
		status, body, err := o.get(ctx, reqURL)
		outcome := Classify(status, body, err)
		o.metrics.UpstreamAttempt(label, outcome.String())

		switch outcome {
		case Success:
			return decodeHourly(label, body)
		case Fatal:
			return nil, &UpstreamError{
				Source:   label,
				Attempts: attempt,
				Status:   status,
				Err:      fmt.Errorf("non-retryable response: %s", snippet(body)),
			}
		}

		lastStatus = status
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("rate limited: %s", snippet(body))
		}

		if attempt == policy.MaxAttempts {
			break
		}

		o.logger.Warnw("transient weather upstream failure, retrying",
			"source", label, "attempt", attempt, "max_attempts", policy.MaxAttempts,
			"delay", policy.Delay, "error", lastErr)
		o.metrics.UpstreamRetry(label)

		if err := o.sleep(ctx, policy.Delay); err != nil {
			return nil, fmt.Errorf("fetch from %q abandoned after %d attempt(s): %w", label, attempt, err)
		}
	}

	return nil, &UpstreamError{
		Source:   label,
		Attempts: policy.MaxAttempts,
		Status:   lastStatus,
		Err:      lastErr,
	}
}

func (o *OpenMeteo) endpoint(kind Kind) (string, error) {
	switch kind {
	case Historical:
		return o.config.HistoricalEndpoint, nil
	case Forecast:
		return o.config.ForecastEndpoint, nil
	}
	return "", fmt.Errorf("unknown weather source kind %q", kind)
}

func (o *OpenMeteo) get(ctx context.Context, reqURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("error creating weather request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("error making weather request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("error reading weather response body: %w", err)
	}

	return resp.StatusCode, body, nil
}

type hourlyResponse struct {
	Hourly *struct {
		Time               []string   `json:"time"`
		Temperature        []*float64 `json:"temperature_2m"`
		CloudCover         []*float64 `json:"cloudcover"`
		ShortwaveRadiation []*float64 `json:"shortwave_radiation"`
		WindSpeed          []*float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}

var timeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func decodeHourly(source string, body []byte) ([]types.WeatherRecord, error) {
	var resp hourlyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, malformed(source, "unable to decode response: %v", err)
	}
	if resp.Hourly == nil {
		return nil, malformed(source, "response has no hourly data")
	}

	h := resp.Hourly
	n := len(h.Time)
	for name, series := range map[string][]*float64{
		"temperature_2m":      h.Temperature,
		"cloudcover":          h.CloudCover,
		"shortwave_radiation": h.ShortwaveRadiation,
		"wind_speed_10m":      h.WindSpeed,
	} {
		if len(series) != n {
			return nil, malformed(source, "hourly %s has %d values, expected %d", name, len(series), n)
		}
	}

	records := make([]types.WeatherRecord, 0, n)
	for i, raw := range h.Time {
		ts, err := parseTime(raw)
		if err != nil {
			return nil, malformed(source, "invalid hourly time %q", raw)
		}
		records = append(records, types.WeatherRecord{
			Time:               ts,
			Temperature:        valueOrMissing(h.Temperature[i]),
			CloudCover:         valueOrMissing(h.CloudCover[i]),
			ShortwaveRadiation: valueOrMissing(h.ShortwaveRadiation[i]),
			WindSpeed:          valueOrMissing(h.WindSpeed[i]),
		})
	}

	return records, nil
}

func parseTime(raw string) (time.Time, error) {
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		t, err = time.ParseInLocation(layout, raw, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

func valueOrMissing(v *float64) float64 {
	if v == nil {
		return types.MissingValue()
	}
	return *v
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
