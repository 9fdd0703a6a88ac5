package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	calls []time.Time
	fail  map[time.Time]error
}

func (f *fakeRunner) Run(ctx context.Context, site types.Site, issue time.Time, policy WindowPolicy) ([]types.PredictionRecord, error) {
	f.calls = append(f.calls, issue)
	if err := f.fail[issue]; err != nil {
		return nil, err
	}
	w, err := policy.Resolve(issue)
	if err != nil {
		return nil, err
	}
	return []types.PredictionRecord{{Time: w.Start, PowerW: 1}, {Time: w.Start.Add(time.Hour), PowerW: 2}}, nil
}

func newScheduler(r Runner, policy FailurePolicy) *Scheduler {
	return NewScheduler(r, SchedulerConfig{
		Window:    Horizon{Length: 2 * time.Hour},
		OnFailure: policy,
	}, zap.NewNop().Sugar(), nil)
}

func TestIssueTimes(t *testing.T) {
	tests := []struct {
		name string
		end  time.Time
		step time.Duration
		want int
	}{
		{"inclusive end", day.Add(12 * time.Hour), 6 * time.Hour, 3},
		{"end between steps", day.Add(13 * time.Hour), 6 * time.Hour, 3},
		{"single", day, time.Hour, 1},
		{"end before start", day.Add(-time.Hour), time.Hour, 0},
		{"zero step", day.Add(time.Hour), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, IssueTimes(day, tt.end, tt.step), tt.want)
		})
	}
}

func TestGenerateTagsEachRun(t *testing.T) {
	r := &fakeRunner{}
	runs, err := newScheduler(r, Abort).Generate(context.Background(), types.NewSite(50, 4, 1),
		day, day.Add(2*time.Hour), time.Hour)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	ids := map[string]bool{}
	for i, run := range runs {
		assert.Equal(t, day.Add(time.Duration(i)*time.Hour), run.IssueTime)
		assert.Len(t, run.Predictions, 2, "runs keep their own predictions")
		ids[run.ID.String()] = true
	}
	assert.Len(t, ids, 3)
	assert.Equal(t, runs[0].Predictions[1].Time, runs[1].Predictions[0].Time, "overlap is not deduplicated")
}

func TestGenerateFailurePolicies(t *testing.T) {
	boom := errors.New("boom")
	second := day.Add(time.Hour)

	t.Run("abort", func(t *testing.T) {
		r := &fakeRunner{fail: map[time.Time]error{second: boom}}
		runs, err := newScheduler(r, Abort).Generate(context.Background(), types.NewSite(50, 4, 1),
			day, day.Add(2*time.Hour), time.Hour)
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, runs)
		assert.Len(t, r.calls, 2, "stops at the first failure")
	})

	t.Run("skip", func(t *testing.T) {
		r := &fakeRunner{fail: map[time.Time]error{second: boom}}
		runs, err := newScheduler(r, Skip).Generate(context.Background(), types.NewSite(50, 4, 1),
			day, day.Add(2*time.Hour), time.Hour)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, day, runs[0].IssueTime)
		assert.Equal(t, day.Add(2*time.Hour), runs[1].IssueTime)
	})

	t.Run("skip with every run failing", func(t *testing.T) {
		other := errors.New("other")
		r := &fakeRunner{fail: map[time.Time]error{day: boom, second: other}}
		_, err := newScheduler(r, Skip).Generate(context.Background(), types.NewSite(50, 4, 1),
			day, second, time.Hour)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, other)
	})
}

func TestGenerateValidation(t *testing.T) {
	s := newScheduler(&fakeRunner{}, Abort)
	site := types.NewSite(50, 4, 1)

	_, err := s.Generate(context.Background(), site, day, day.Add(time.Hour), 0)
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = s.Generate(context.Background(), site, day, day.Add(-time.Hour), time.Hour)
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = s.Generate(context.Background(), site, day, day.AddDate(1, 0, 0), time.Hour)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Abort, p)

	p, err = ParseFailurePolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, Skip, p)

	_, err = ParseFailurePolicy("retry")
	assert.Error(t, err)
}
