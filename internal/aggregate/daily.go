// Package aggregate rolls hourly power forecasts up into energy totals.
package aggregate

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
	"gonum.org/v1/gonum/floats"
)

// ErrIrregularCadence is returned by VerifyCadence when samples are not evenly spaced
var ErrIrregularCadence = errors.New("predictions are not on a regular cadence")

// VerifyCadence checks that consecutive predictions are exactly step apart.
// Daily totals are only meaningful for hourly series, so callers verify
// before aggregating.
func VerifyCadence(preds []types.PredictionRecord, step time.Duration) error {
	for i := 1; i < len(preds); i++ {
		if d := preds[i].Time.Sub(preds[i-1].Time); d != step {
			return fmt.Errorf("%w: %s between %s and %s, expected %s", ErrIrregularCadence, d,
				preds[i-1].Time.Format(time.RFC3339), preds[i].Time.Format(time.RFC3339), step)
		}
	}
	return nil
}

// Daily sums power_kw per UTC calendar date. With hourly samples the sum is
// the day's energy in kWh. Totals are rounded to two decimals and returned in
// date order.
func Daily(preds []types.PredictionRecord) []types.DailyTotal {
	byDate := make(map[string][]float64)
	for _, p := range preds {
		d := p.Time.UTC().Format(types.DateLayout)
		byDate[d] = append(byDate[d], p.PowerKW)
	}

	out := make([]types.DailyTotal, 0, len(byDate))
	for d, kw := range byDate {
		out = append(out, types.DailyTotal{Date: d, EnergyKWh: Round(floats.Sum(kw), 2)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// CompleteDays is Daily restricted to the dates an hourly series covers in
// full. Partial first and last days of a horizon window are dropped so they
// never replace a stored whole-day total.
func CompleteDays(preds []types.PredictionRecord) []types.DailyTotal {
	counts := make(map[string]int)
	for _, p := range preds {
		counts[p.Time.UTC().Format(types.DateLayout)]++
	}

	all := Daily(preds)
	out := make([]types.DailyTotal, 0, len(all))
	for _, t := range all {
		if counts[t.Date] == 24 {
			out = append(out, t)
		}
	}
	return out
}

// Total returns the energy over every sample, rounded to two decimals
func Total(preds []types.PredictionRecord) float64 {
	kw := make([]float64, len(preds))
	for i, p := range preds {
		kw[i] = p.PowerKW
	}
	return Round(floats.Sum(kw), 2)
}

// Round rounds half away from zero to the given number of decimals
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
