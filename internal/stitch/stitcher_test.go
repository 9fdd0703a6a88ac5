package stitch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/internal/weather"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type call struct {
	kind       weather.Kind
	start, end time.Time
}

type fakeSource struct {
	mu      sync.Mutex
	calls   []call
	records map[weather.Kind][]types.WeatherRecord
	errs    map[weather.Kind]error
}

func (f *fakeSource) Fetch(ctx context.Context, lat, lon float64, start, end time.Time, kind weather.Kind) ([]types.WeatherRecord, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{kind, start, end})
	f.mu.Unlock()
	if err := f.errs[kind]; err != nil {
		return nil, err
	}
	return f.records[kind], nil
}

func (f *fakeSource) callFor(kind weather.Kind) (call, bool) {
	for _, c := range f.calls {
		if c.kind == kind {
			return c, true
		}
	}
	return call{}, false
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func hour(d time.Time, h int) time.Time {
	return d.Add(time.Duration(h) * time.Hour)
}

func rec(t time.Time, ghi float64) types.WeatherRecord {
	return types.WeatherRecord{Time: t, ShortwaveRadiation: ghi}
}

var today = date(2024, 6, 10)

func fixedClock() time.Time {
	return today.Add(13 * time.Hour)
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       []Segment
	}{
		{
			name:  "entirely historical",
			start: date(2024, 6, 1), end: date(2024, 6, 5),
			want: []Segment{{weather.Historical, date(2024, 6, 1), date(2024, 6, 5)}},
		},
		{
			name:  "ends today",
			start: date(2024, 6, 8), end: today,
			want: []Segment{{weather.Historical, date(2024, 6, 8), today}},
		},
		{
			name:  "entirely future",
			start: date(2024, 6, 12), end: date(2024, 6, 14),
			want: []Segment{{weather.Forecast, date(2024, 6, 12), date(2024, 6, 14)}},
		},
		{
			name:  "straddles today",
			start: date(2024, 6, 9), end: date(2024, 6, 12),
			want: []Segment{
				{weather.Historical, date(2024, 6, 9), today},
				{weather.Forecast, date(2024, 6, 11), date(2024, 6, 12)},
			},
		},
		{
			name:  "inverted range",
			start: date(2024, 6, 12), end: date(2024, 6, 9),
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plan(tt.start, tt.end, fixedClock()))
		})
	}
}

func TestStitchDedupAndOrder(t *testing.T) {
	src := &fakeSource{records: map[weather.Kind][]types.WeatherRecord{
		weather.Historical: {
			rec(hour(today, 23), 1),
			rec(hour(today, 22), 2),
		},
		weather.Forecast: {
			rec(hour(today, 23), 99),
			rec(hour(today, 24), 3),
		},
	}}

	s := New(src, fixedClock, zap.NewNop().Sugar())
	got, err := s.Stitch(context.Background(), types.NewSite(50, 4, 4), date(2024, 6, 9), date(2024, 6, 11))
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Time.Before(got[i].Time), "records must be strictly ascending")
	}
	assert.Equal(t, 2.0, got[0].ShortwaveRadiation)
	assert.Equal(t, 1.0, got[1].ShortwaveRadiation, "first-seen record wins on duplicates")
	assert.Equal(t, 3.0, got[2].ShortwaveRadiation)
}

func TestStitchQueriesOnlyNeededSide(t *testing.T) {
	t.Run("historical only", func(t *testing.T) {
		src := &fakeSource{records: map[weather.Kind][]types.WeatherRecord{
			weather.Historical: {rec(hour(date(2024, 6, 1), 12), 500)},
		}}
		_, err := New(src, fixedClock, zap.NewNop().Sugar()).
			Stitch(context.Background(), types.NewSite(1, 1, 1), date(2024, 6, 1), date(2024, 6, 2))
		require.NoError(t, err)
		require.Len(t, src.calls, 1)
		assert.Equal(t, weather.Historical, src.calls[0].kind)
	})

	t.Run("forecast only", func(t *testing.T) {
		src := &fakeSource{records: map[weather.Kind][]types.WeatherRecord{
			weather.Forecast: {rec(hour(date(2024, 6, 12), 12), 500)},
		}}
		_, err := New(src, fixedClock, zap.NewNop().Sugar()).
			Stitch(context.Background(), types.NewSite(1, 1, 1), date(2024, 6, 12), date(2024, 6, 13))
		require.NoError(t, err)
		require.Len(t, src.calls, 1)
		assert.Equal(t, weather.Forecast, src.calls[0].kind)
	})

	t.Run("split boundaries", func(t *testing.T) {
		src := &fakeSource{records: map[weather.Kind][]types.WeatherRecord{
			weather.Historical: {rec(hour(today, 1), 1)},
		}}
		_, err := New(src, fixedClock, zap.NewNop().Sugar()).
			Stitch(context.Background(), types.NewSite(1, 1, 1), date(2024, 6, 9), date(2024, 6, 12))
		require.NoError(t, err)

		h, ok := src.callFor(weather.Historical)
		require.True(t, ok)
		assert.Equal(t, today, h.end)
		f, ok := src.callFor(weather.Forecast)
		require.True(t, ok)
		assert.Equal(t, date(2024, 6, 11), f.start)
		assert.Equal(t, date(2024, 6, 12), f.end)
	})
}

func TestStitchEmptyWindow(t *testing.T) {
	src := &fakeSource{}
	_, err := New(src, fixedClock, zap.NewNop().Sugar()).
		Stitch(context.Background(), types.NewSite(1, 1, 1), date(2024, 6, 1), date(2024, 6, 2))
	assert.ErrorIs(t, err, ErrNoWeatherData)
}

func TestStitchFailsWhenEitherSideFails(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{
		records: map[weather.Kind][]types.WeatherRecord{
			weather.Historical: {rec(hour(today, 1), 1)},
		},
		errs: map[weather.Kind]error{weather.Forecast: boom},
	}
	got, err := New(src, fixedClock, zap.NewNop().Sugar()).
		Stitch(context.Background(), types.NewSite(1, 1, 1), date(2024, 6, 9), date(2024, 6, 12))
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}
