package model

import (
	"testing"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

func leaf(v float64) *float64 { return &v }

func stump(feature string, threshold, yes, no float64) Node {
	return Node{
		NodeID: 0, Split: feature, SplitCondition: threshold, Yes: 1, No: 2, Missing: 1,
		Children: []Node{
			{NodeID: 1, Leaf: leaf(yes)},
			{NodeID: 2, Leaf: leaf(no)},
		},
	}
}

func fv(ghi, cloud, temp float64) types.FeatureVector {
	return types.FeatureVector{WeatherRecord: types.WeatherRecord{
		Time:               time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		ShortwaveRadiation: ghi,
		CloudCover:         cloud,
		Temperature:        temp,
	}}
}

func TestEnsembleComparison(t *testing.T) {
	order := []string{types.ColumnShortwaveRadiation}
	x := mat.NewDense(3, 1, []float64{99, 100, 101})

	tests := []struct {
		name string
		cmp  Comparison
		want []float64
	}{
		{"less than", LessThan, []float64{1, 2, 2}},
		{"less or equal", LessOrEqual, []float64{1, 1, 2}},
		{"default is less than", "", []float64{1, 2, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEnsemble(KindGBTree, []Node{stump(types.ColumnShortwaveRadiation, 100, 1, 2)}, order, tt.cmp, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Predict(x))
		})
	}
}

func TestEnsembleBoostingAndForest(t *testing.T) {
	order := []string{types.ColumnShortwaveRadiation}
	trees := []Node{
		stump(types.ColumnShortwaveRadiation, 100, 10, 20),
		stump(types.ColumnShortwaveRadiation, 200, 30, 40),
	}
	x := mat.NewDense(2, 1, []float64{50, 250})

	gb, err := NewEnsemble(KindGBTree, trees, order, LessThan, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{40.5, 60.5}, gb.Predict(x))

	rf, err := NewEnsemble(KindForest, trees, order, LessThan, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 30}, rf.Predict(x))

	assert.Equal(t, map[string]float64{types.ColumnShortwaveRadiation: 2}, gb.FeatureImportances())
}

func TestEnsembleMissingBranch(t *testing.T) {
	e, err := NewEnsemble(KindGBTree, []Node{{
		NodeID: 0, Split: "f0", SplitCondition: 1, Yes: 1, No: 2, Missing: 2,
		Children: []Node{{NodeID: 1, Leaf: leaf(5)}, {NodeID: 2, Leaf: leaf(7)}},
	}}, []string{types.ColumnCloudCover}, LessThan, 0)
	require.NoError(t, err)

	nan := types.MissingValue()
	assert.Equal(t, []float64{5, 7}, e.Predict(mat.NewDense(2, 1, []float64{0, nan})))
}

func TestEnsembleRejectsBadTrees(t *testing.T) {
	order := []string{types.ColumnShortwaveRadiation}
	tests := []struct {
		name  string
		kind  Kind
		trees []Node
	}{
		{"no trees", KindGBTree, nil},
		{"wrong kind", KindLinear, []Node{stump(types.ColumnShortwaveRadiation, 1, 1, 2)}},
		{"unknown split feature", KindGBTree, []Node{stump("humidity", 1, 1, 2)}},
		{"dangling child", KindGBTree, []Node{{NodeID: 0, Split: "f0", Yes: 1, No: 5, Children: []Node{{NodeID: 1, Leaf: leaf(1)}}}}},
		{"backward reference", KindGBTree, []Node{{NodeID: 0, Split: "f0", Yes: 0, No: 1, Children: []Node{{NodeID: 1, Leaf: leaf(1)}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEnsemble(tt.kind, tt.trees, order, LessThan, 0)
			assert.Error(t, err)
		})
	}
}

func TestLinear(t *testing.T) {
	l := NewLinear(1, []float64{2, 3})
	x := mat.NewDense(2, 2, []float64{1, 1, 0, 2})
	assert.Equal(t, []float64{6, 7}, l.Predict(x))
	assert.Empty(t, l.Predict(&mat.Dense{}))
}

func TestBundleProjection(t *testing.T) {
	b := &Bundle{
		FeatureOrder: []string{types.ColumnCloudCover, types.ColumnTemperature, types.ColumnClearSkyGHI},
		Predictor:    NewLinear(0, []float64{1, 1, 1}),
	}
	m := b.Matrix([]types.FeatureVector{fv(0, 40, types.MissingValue())})
	assert.Equal(t, []float64{40, 0, 0}, m.RawRowView(0), "missing and unavailable columns become zero")

	assert.True(t, b.NeedsSite())
	assert.Empty(t, b.Predict(nil))

	_, ok := b.Importances()
	assert.False(t, ok)
}

func TestRegistryLoad(t *testing.T) {
	reg := NewRegistry("testdata", zap.NewNop().Sugar())

	t.Run("gbtree", func(t *testing.T) {
		b, err := reg.Load("gbtree")
		require.NoError(t, err)
		assert.Equal(t, "xgb-test", b.Name)
		assert.Equal(t, KindGBTree, b.Kind)
		assert.False(t, b.NeedsSite())

		got := b.Predict([]types.FeatureVector{
			fv(50, 10, 20),  // 10 - 10 + 0
			fv(700, 20, 20), // 10 + 500 + 90
			fv(300, 80, 20), // 10 + 200 + 0
		})
		assert.Equal(t, []float64{0, 600, 210}, got)

		imp, ok := b.Importances()
		require.True(t, ok)
		assert.Equal(t, 2.0, imp[types.ColumnShortwaveRadiation])
		assert.Equal(t, 1.0, imp[types.ColumnCloudCover])
	})

	t.Run("linear takes its id as name", func(t *testing.T) {
		b, err := reg.Load("linear")
		require.NoError(t, err)
		assert.Equal(t, "linear", b.Name)
		assert.InDeltaSlice(t, []float64{-5 + 800 - 30}, b.Predict([]types.FeatureVector{fv(1000, 0, 20)}), 1e-9)
	})

	for _, id := range []string{"missing", "truncated", "unknown-feature", "../gbtree", ""} {
		t.Run("fails for "+id, func(t *testing.T) {
			_, err := reg.Load(id)
			assert.ErrorIs(t, err, ErrModelLoad)
		})
	}
}
