package forest

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/eval"
)

// monotonicData has one informative feature (wear, rising over a unit's life) and one noise
// feature. Target is RUL for runs of length 50.
func monotonicData(units int) ([][]float64, []float64) {
	rng := rand.New(rand.NewPCG(1, 2))
	var x [][]float64
	var y []float64
	for u := 0; u < units; u++ {
		for c := 1; c <= 50; c++ {
			x = append(x, []float64{float64(c) * 0.5, rng.Float64()})
			y = append(y, float64(50-c))
		}
	}
	return x, y
}

var testFeatures = []string{"wear", "noise"}

func fitSmall(t *testing.T, opts Options) *Model {
	t.Helper()
	x, y := monotonicData(4)
	m, err := NewRegressor(opts).Fit(context.Background(), x, y, testFeatures)
	require.NoError(t, err)
	return m
}

func TestFitPredictsWithinTrainingRange(t *testing.T) {
	m := fitSmall(t, Options{Trees: 20, Seed: 42})
	require.Len(t, m.Trees, 20)

	for _, wear := range []float64{-100, 0, 0.5, 3, 12.25, 25, 1e6} {
		p, err := m.Predict([]float64{wear, 0.5})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, 0.0, "wear %g", wear)
		assert.LessOrEqual(t, p, 49.0, "wear %g", wear)
	}

	// Predictions follow the trend
	early, _ := m.Predict([]float64{1, 0.5})
	late, _ := m.Predict([]float64{24, 0.5})
	assert.Greater(t, early, late)
}

func TestFitAccuracyOnHeldOutUnit(t *testing.T) {
	m := fitSmall(t, Options{Trees: 30, Seed: 42})

	xTest, yTest := monotonicData(1)
	pred, err := m.PredictBatch(xTest)
	require.NoError(t, err)

	metrics, err := eval.Evaluate(yTest, pred)
	require.NoError(t, err)
	assert.Less(t, metrics.MAE, 3.0)
	assert.Greater(t, metrics.R2Score, 0.9)
}

func TestFitIsReproducible(t *testing.T) {
	a := fitSmall(t, Options{Trees: 8, Seed: 7, Workers: 1})
	b := fitSmall(t, Options{Trees: 8, Seed: 7, Workers: 4})
	assert.Equal(t, a.Trees, b.Trees)

	c := fitSmall(t, Options{Trees: 8, Seed: 8})
	assert.NotEqual(t, a.Trees, c.Trees)
}

func TestFitOptions(t *testing.T) {
	m := fitSmall(t, Options{Trees: 5, Seed: 1, MaxDepth: 2})
	for _, tree := range m.Trees {
		assert.LessOrEqual(t, tree.Depth, 2)
		assert.LessOrEqual(t, len(tree.Outputs), 4)
	}

	m = fitSmall(t, Options{Trees: 5, Seed: 1, MinSamplesLeaf: 200})
	for _, tree := range m.Trees {
		// 200 rows cannot be split into two leaves of 200
		assert.Empty(t, tree.Nodes)
		assert.Len(t, tree.Outputs, 1)
	}

	m = fitSmall(t, Options{Trees: 5, Seed: 1, MaxFeatures: 1})
	assert.Len(t, m.Trees, 5)
}

func TestFitConstantTarget(t *testing.T) {
	x := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	m, err := NewRegressor(Options{Trees: 3}).Fit(context.Background(), x, []float64{7, 7, 7}, testFeatures)
	require.NoError(t, err)

	p, err := m.Predict([]float64{100, -1})
	require.NoError(t, err)
	assert.Equal(t, 7.0, p)
}

func TestFitInvalidData(t *testing.T) {
	tests := []struct {
		name  string
		x     [][]float64
		y     []float64
		names []string
	}{
		{name: "empty", x: nil, y: nil, names: testFeatures},
		{name: "length mismatch", x: [][]float64{{1, 2}}, y: []float64{1, 2}, names: testFeatures},
		{name: "ragged", x: [][]float64{{1, 2}, {1}}, y: []float64{1, 2}, names: testFeatures},
		{name: "names mismatch", x: [][]float64{{1, 2}}, y: []float64{1}, names: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegressor(DefaultOptions()).Fit(context.Background(), tt.x, tt.y, tt.names)
			assert.True(t, errors.Is(err, ErrInvalidTrainingData))
		})
	}
}

func TestFitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x, y := monotonicData(1)
	_, err := NewRegressor(Options{Trees: 4}).Fit(ctx, x, y, testFeatures)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPredictFeatureMismatch(t *testing.T) {
	m := fitSmall(t, Options{Trees: 2})
	_, err := m.Predict([]float64{1})
	assert.True(t, errors.Is(err, ErrFeatureMismatch))

	_, err = m.PredictBatch([][]float64{{1, 2}, {1, 2, 3}})
	assert.True(t, errors.Is(err, ErrFeatureMismatch))
	assert.Contains(t, err.Error(), "row 1")
}

func TestSaveLoad(t *testing.T) {
	m := fitSmall(t, Options{Trees: 6, Seed: 3})
	m.Metadata = Metadata{
		Strategy:     "unit-holdout",
		TestFraction: 0.2,
		Seed:         3,
		TrainRows:    200,
		TestRows:     50,
		TrainUnits:   4,
		TestUnits:    1,
		Metrics:      eval.Metrics{MAE: 1.5, Samples: 50},
		TrainedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	path := filepath.Join(t.TempDir(), "models", "rul.json.gz")
	require.NoError(t, Save(path, m))
	// Overwrite in place
	require.NoError(t, Save(path, m))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	loaded, err := Load(path, testFeatures)
	require.NoError(t, err)
	assert.Equal(t, m, loaded)

	for _, row := range [][]float64{{2, 0.1}, {20, 0.9}} {
		want, _ := m.Predict(row)
		got, _ := loaded.Predict(row)
		assert.Equal(t, want, got)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json.gz"), testFeatures)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	garbage := filepath.Join(dir, "garbage.json.gz")
	require.NoError(t, os.WriteFile(garbage, []byte("not a model"), 0644))
	_, err = Load(garbage, testFeatures)
	assert.True(t, errors.Is(err, ErrInvalidModel))

	m := fitSmall(t, Options{Trees: 2})
	path := filepath.Join(dir, "model.json.gz")
	require.NoError(t, Save(path, m))
	_, err = Load(path, []string{"noise", "wear"})
	assert.True(t, errors.Is(err, ErrInvalidModel))
}

func TestReadRejectsCorruptTrees(t *testing.T) {
	tests := []struct {
		name  string
		model Model
	}{
		{
			name:  "no trees",
			model: Model{FeatureNames: testFeatures},
		},
		{
			name: "leaf out of range",
			model: Model{FeatureNames: testFeatures, Trees: []DecisionTree{{
				Nodes:       []Node{{FeatureIndex: 0, LeftChild: 0, LeftIsLeaf: true, RightChild: 5, RightIsLeaf: true}},
				Outputs:     []float64{1, 2},
				FeatureSize: 2,
				Depth:       1,
			}}},
		},
		{
			name: "feature out of range",
			model: Model{FeatureNames: testFeatures, Trees: []DecisionTree{{
				Nodes:       []Node{{FeatureIndex: 2, LeftChild: 0, LeftIsLeaf: true, RightChild: 1, RightIsLeaf: true}},
				Outputs:     []float64{1, 2},
				FeatureSize: 2,
				Depth:       1,
			}}},
		},
		{
			name: "cycle",
			model: Model{FeatureNames: testFeatures, Trees: []DecisionTree{{
				Nodes: []Node{
					{FeatureIndex: 0, LeftChild: 1, RightChild: 0, RightIsLeaf: true},
					{FeatureIndex: 0, LeftChild: 1, RightChild: 0, RightIsLeaf: true},
				},
				Outputs:     []float64{1},
				FeatureSize: 2,
				Depth:       2,
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, &tt.model))
			_, err := Read(&buf)
			assert.True(t, errors.Is(err, ErrInvalidModel))
		})
	}
}

func TestSingleLeafTree(t *testing.T) {
	tree := DecisionTree{Outputs: []float64{12}, FeatureSize: 2}
	require.NoError(t, tree.validate())
	assert.Equal(t, 12.0, tree.Evaluate([]float64{0, 0}))
}
