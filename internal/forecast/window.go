package forecast

import (
	"fmt"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
)

// DefaultHorizon is how far ahead a Horizon window reaches when unset
const DefaultHorizon = 48 * time.Hour

// Window is a half-open interval [Start, End) of prediction timestamps
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Dates returns the inclusive UTC calendar dates the window touches
func (w Window) Dates() (time.Time, time.Time) {
	return truncateDay(w.Start), truncateDay(w.End.Add(-time.Nanosecond))
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

// WindowPolicy turns an issue time into the window a run should cover
type WindowPolicy interface {
	Resolve(issueTime time.Time) (Window, error)
}

// DateRange covers whole UTC days from Start through End regardless of the
// issue time.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Resolve implements WindowPolicy
func (d DateRange) Resolve(time.Time) (Window, error) {
	start, end := truncateDay(d.Start), truncateDay(d.End)
	if end.Before(start) {
		return Window{}, fmt.Errorf("%w: start date %s is after end date %s", types.ErrValidation,
			start.Format(types.DateLayout), end.Format(types.DateLayout))
	}
	return Window{Start: start, End: end.AddDate(0, 0, 1)}, nil
}

// Horizon covers the hours following the issue time. The issue time is
// rounded down to the hour.
type Horizon struct {
	Length time.Duration
}

// Resolve implements WindowPolicy
func (h Horizon) Resolve(issueTime time.Time) (Window, error) {
	length := h.Length
	if length == 0 {
		length = DefaultHorizon
	}
	if length < time.Hour {
		return Window{}, fmt.Errorf("%w: horizon %s is shorter than one hour", types.ErrValidation, length)
	}
	start := issueTime.UTC().Truncate(time.Hour)
	return Window{Start: start, End: start.Add(length)}, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
