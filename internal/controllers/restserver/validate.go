package restserver

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
)

const requestTimeLayout = "2006-01-02 15:04:05"

// periodDays is how many days before today each period reaches back
var periodDays = map[string]int{
	"day":   0,
	"week":  6,
	"month": 29,
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", types.ErrValidation, fmt.Sprintf(format, args...))
}

func floatParam(q url.Values, name string) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, validationf("missing required parameter %q", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, validationf("parameter %q must be a number, got %q", name, raw)
	}
	return v, nil
}

func optionalFloatParam(q url.Values, name string, def float64) (float64, error) {
	if q.Get(name) == "" {
		return def, nil
	}
	return floatParam(q, name)
}

func boolParam(q url.Values, name string) (bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, validationf("parameter %q must be true or false, got %q", name, raw)
	}
	return v, nil
}

func dateParam(q url.Values, name string) (time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return time.Time{}, validationf("missing required parameter %q", name)
	}
	t, err := time.Parse(types.DateLayout, raw)
	if err != nil {
		return time.Time{}, validationf("parameter %q must be YYYY-MM-DD, got %q", name, raw)
	}
	return t, nil
}

// siteFromQuery reads lat, lon and kwp plus the optional tilt, orientation
// and efficiency parameters.
func siteFromQuery(q url.Values) (types.Site, error) {
	lat, err := floatParam(q, "lat")
	if err != nil {
		return types.Site{}, err
	}
	lon, err := floatParam(q, "lon")
	if err != nil {
		return types.Site{}, err
	}
	kwp, err := floatParam(q, "kwp")
	if err != nil {
		return types.Site{}, err
	}

	site := types.NewSite(lat, lon, kwp)
	if site.Tilt, err = optionalFloatParam(q, "tilt", types.DefaultTilt); err != nil {
		return types.Site{}, err
	}
	if site.Orientation, err = optionalFloatParam(q, "orientation", types.DefaultOrientation); err != nil {
		return types.Site{}, err
	}

	efficiency, err := optionalFloatParam(q, "efficiency", 100)
	if err != nil {
		return types.Site{}, err
	}
	if err := applyEfficiency(&site, efficiency); err != nil {
		return types.Site{}, err
	}

	return site, site.Validate()
}

// applyEfficiency scales the site capacity by an inverter efficiency percentage
func applyEfficiency(site *types.Site, percent float64) error {
	if percent <= 0 || percent > 100 {
		return validationf("efficiency must be in (0,100], got %v", percent)
	}
	site.CapacityKWp *= percent / 100
	return nil
}

// checkDates enforces start <= end and the configured date bounds. today is
// the current UTC date.
func (h *Handlers) checkDates(start, end time.Time) error {
	limits := h.controller.pipeline.Limits
	today := truncateDay(h.controller.pipeline.Now())

	if truncateDay(end).Before(truncateDay(start)) {
		return validationf("start %s is after end %s", start.Format(types.DateLayout), end.Format(types.DateLayout))
	}
	if !limits.EarliestDate.IsZero() && start.Before(limits.EarliestDate) {
		return validationf("start %s is before %s", start.Format(types.DateLayout), limits.EarliestDate.Format(types.DateLayout))
	}
	latest := today.AddDate(0, 0, limits.MaxLeadDays)
	if truncateDay(end).After(latest) {
		return validationf("end %s is after %s", end.Format(types.DateLayout), latest.Format(types.DateLayout))
	}
	return nil
}

// periodRange returns the inclusive date range a period covers, ending today
func periodRange(period string, today time.Time) (time.Time, time.Time, error) {
	days, ok := periodDays[period]
	if !ok {
		return time.Time{}, time.Time{}, validationf("period must be one of day, week or month, got %q", period)
	}
	today = truncateDay(today)
	return today.AddDate(0, 0, -days), today, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
