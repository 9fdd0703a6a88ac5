// Package stitch joins historical and forecast weather into one continuous hourly series.
package stitch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/internal/weather"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoWeatherData is returned when neither segment produced any records
var ErrNoWeatherData = errors.New("no weather data for requested window")

// Clock returns the current time
type Clock func() time.Time

// Stitcher splits a requested date range at "today" and fetches each side from
// the matching source.
type Stitcher struct {
	source weather.Source
	now    Clock
	logger *zap.SugaredLogger
}

// New creates a Stitcher. A nil clock means time.Now.
func New(source weather.Source, now Clock, logger *zap.SugaredLogger) *Stitcher {
	if now == nil {
		now = time.Now
	}
	return &Stitcher{
		source: source,
		now:    now,
		logger: logger,
	}
}

// Segment is one date range to be served by one source kind
type Segment struct {
	Kind  weather.Kind
	Start time.Time
	End   time.Time
}

// Plan returns the segments needed to cover [start, end] given today's date.
// Dates are truncated to UTC midnight. The historical segment comes first.
func Plan(start, end, today time.Time) []Segment {
	start, end, today = day(start), day(end), day(today)
	if end.Before(start) {
		return nil
	}

	var segments []Segment
	if !start.After(today) {
		histEnd := end
		if histEnd.After(today) {
			histEnd = today
		}
		segments = append(segments, Segment{Kind: weather.Historical, Start: start, End: histEnd})
	}
	if end.After(today) {
		fcStart := today.AddDate(0, 0, 1)
		if start.After(fcStart) {
			fcStart = start
		}
		segments = append(segments, Segment{Kind: weather.Forecast, Start: fcStart, End: end})
	}
	return segments
}

// Stitch fetches every needed segment concurrently and merges them. Both
// fetches must succeed; there are no partial results.
func (s *Stitcher) Stitch(ctx context.Context, site types.Site, start, end time.Time) ([]types.WeatherRecord, error) {
	segments := Plan(start, end, s.now().UTC())
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: %s to %s", ErrNoWeatherData,
			start.UTC().Format(types.DateLayout), end.UTC().Format(types.DateLayout))
	}

	results := make([][]types.WeatherRecord, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	for i, seg := range segments {
		g.Go(func() error {
			recs, err := s.source.Fetch(gctx, site.Latitude, site.Longitude, seg.Start, seg.End, seg.Kind)
			if err != nil {
				return fmt.Errorf("fetching %s weather %s to %s: %w", seg.Kind,
					seg.Start.Format(types.DateLayout), seg.End.Format(types.DateLayout), err)
			}
			s.logger.Debugf("fetched %d %s records for %s", len(recs), seg.Kind, site.Key())
			results[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := Merge(results...)
	if len(merged) == 0 {
		return nil, fmt.Errorf("%w: %s to %s", ErrNoWeatherData,
			start.UTC().Format(types.DateLayout), end.UTC().Format(types.DateLayout))
	}
	return merged, nil
}

// Merge concatenates the series in order, keeps the first record seen for any
// timestamp and returns the result sorted by time.
func Merge(series ...[]types.WeatherRecord) []types.WeatherRecord {
	total := 0
	for _, s := range series {
		total += len(s)
	}

	seen := make(map[int64]struct{}, total)
	out := make([]types.WeatherRecord, 0, total)
	for _, s := range series {
		for _, r := range s {
			key := r.Time.UTC().UnixNano()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
