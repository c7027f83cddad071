// Package forest implements a random forest regressor: bootstrap-sampled CART trees whose
// predictions are averaged. Trees are stored in a flat node layout so a fitted model serializes
// to plain JSON.
package forest

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/eval"
)

var (
	// ErrInvalidTrainingData means the inputs to Fit are empty or inconsistent
	ErrInvalidTrainingData = errors.New("invalid training data")

	// ErrFeatureMismatch means a feature vector does not match the model's width or names
	ErrFeatureMismatch = errors.New("feature mismatch")
)

// Options controls forest fitting
type Options struct {
	Trees          int
	Seed           uint64
	Workers        int // 0 uses runtime.GOMAXPROCS(0)
	MaxDepth       int // 0 means unlimited
	MinSamplesLeaf int
	MaxFeatures    int // 0 considers every feature at each split
}

// DefaultOptions returns 100 fully grown trees seeded with 42
func DefaultOptions() Options {
	return Options{
		Trees:          100,
		Seed:           42,
		MinSamplesLeaf: 1,
	}
}

// Metadata describes how a model was produced
type Metadata struct {
	Strategy     string       `json:"strategy"`
	TestFraction float64      `json:"test_fraction"`
	Seed         uint64       `json:"seed"`
	TrainRows    int          `json:"train_rows"`
	TestRows     int          `json:"test_rows"`
	TrainUnits   int          `json:"train_units"`
	TestUnits    int          `json:"test_units"`
	Metrics      eval.Metrics `json:"metrics"`
	TrainedAt    time.Time    `json:"trained_at"`
}

// Model is a fitted forest. It is never mutated after Fit, so concurrent Predict calls are safe.
type Model struct {
	Trees        []DecisionTree `json:"trees"`
	FeatureNames []string       `json:"feature_names"`
	Metadata     Metadata       `json:"metadata"`
}

// Regressor fits forests with fixed options
type Regressor struct {
	opts Options
}

// NewRegressor creates a regressor, filling zero options with defaults
func NewRegressor(opts Options) *Regressor {
	if opts.Trees <= 0 {
		opts.Trees = DefaultOptions().Trees
	}
	if opts.MinSamplesLeaf <= 0 {
		opts.MinSamplesLeaf = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Regressor{opts: opts}
}

// Fit grows the forest on x (rows of equal width) and targets y. featureNames labels the
// columns of x and is stored with the model.
func (r *Regressor) Fit(ctx context.Context, x [][]float64, y []float64, featureNames []string) (*Model, error) {
	if err := checkTrainingData(x, y, featureNames); err != nil {
		return nil, err
	}

	// Per-tree seeds are fixed up front so the result does not depend on worker scheduling
	master := rand.New(rand.NewPCG(r.opts.Seed, r.opts.Seed))
	seeds := make([]uint64, r.opts.Trees)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	start := time.Now()
	trees := make([]DecisionTree, r.opts.Trees)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(seeds[i], uint64(i)))
			b := newTreeBuilder(x, y, r.opts, rng)
			trees[i] = b.build(b.bootstrap(len(x)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "forest fitting interrupted")
	}

	klog.V(2).InfoS("Fitted random forest",
		"trees", len(trees),
		"rows", len(x),
		"features", len(x[0]),
		"workers", r.opts.Workers,
		"duration", time.Since(start))

	return &Model{
		Trees:        trees,
		FeatureNames: append([]string(nil), featureNames...),
		Metadata:     Metadata{Seed: r.opts.Seed},
	}, nil
}

func checkTrainingData(x [][]float64, y []float64, featureNames []string) error {
	if len(x) == 0 {
		return errors.Wrap(ErrInvalidTrainingData, "no rows")
	}
	if len(x) != len(y) {
		return errors.Wrapf(ErrInvalidTrainingData, "%d rows but %d targets", len(x), len(y))
	}
	width := len(x[0])
	if width == 0 {
		return errors.Wrap(ErrInvalidTrainingData, "rows have no features")
	}
	if len(featureNames) != width {
		return errors.Wrapf(ErrInvalidTrainingData, "%d feature names for %d columns", len(featureNames), width)
	}
	for i, row := range x {
		if len(row) != width {
			return errors.Wrapf(ErrInvalidTrainingData, "row %d has %d features, want %d", i, len(row), width)
		}
		for _, v := range row {
			if math.IsNaN(v) {
				return errors.Wrapf(ErrInvalidTrainingData, "row %d contains NaN", i)
			}
		}
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return errors.Wrapf(ErrInvalidTrainingData, "target %d is not finite", i)
		}
	}
	return nil
}

// FeatureSize returns the width of the vectors the model accepts
func (m *Model) FeatureSize() int {
	return len(m.FeatureNames)
}

// Predict returns the mean of the tree outputs for one feature vector
func (m *Model) Predict(x []float64) (float64, error) {
	if len(x) != m.FeatureSize() {
		return 0, errors.Wrapf(ErrFeatureMismatch, "got %d features, model expects %d", len(x), m.FeatureSize())
	}
	var sum float64
	for i := range m.Trees {
		sum += m.Trees[i].Evaluate(x)
	}
	return sum / float64(len(m.Trees)), nil
}

// PredictBatch predicts every row of x
func (m *Model) PredictBatch(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		p, err := m.Predict(row)
		if err != nil {
			return nil, errors.WithMessagef(err, "row %d", i)
		}
		out[i] = p
	}
	return out, nil
}

// CheckFeatures verifies the model was trained on exactly the given columns in order
func (m *Model) CheckFeatures(names []string) error {
	if len(names) != len(m.FeatureNames) {
		return errors.Wrapf(ErrFeatureMismatch, "model has %d features, want %d", len(m.FeatureNames), len(names))
	}
	for i := range names {
		if names[i] != m.FeatureNames[i] {
			return errors.Wrapf(ErrFeatureMismatch, "feature %d is %q, want %q", i, m.FeatureNames[i], names[i])
		}
	}
	return nil
}
