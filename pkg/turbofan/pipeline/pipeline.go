// Package pipeline composes ingestion, labeling, partitioning, training and export into the
// runs the command-line tool exposes. Only store extraction is retried; every other step fails
// the run on its first error.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/common"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/config"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/eval"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/export"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/forest"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/ingest"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/label"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/metrics"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/retry"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/split"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/store"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

// Training data sources
const (
	SourceStore = "store"
	SourceCSV   = "csv"
)

// TrainingReport summarizes a completed training run
type TrainingReport struct {
	Strategy     string
	TestFraction float64
	TrainRows    int
	TestRows     int
	TrainUnits   int
	TestUnits    int
	Metrics      eval.Metrics
	ModelPath    string
	TrainedAt    time.Time
	Duration     time.Duration
}

// Runner executes pipeline stages against one store
type Runner struct {
	cfg   *config.Config
	store store.ReadingStore
	clock clock.PassiveClock
}

// NewRunner creates a runner. A nil clock uses the real clock.
func NewRunner(cfg *config.Config, s store.ReadingStore, clk clock.PassiveClock) *Runner {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Runner{
		cfg:   cfg,
		store: s,
		clock: clk,
	}
}

// Ingest parses the raw log at path and writes it to the store. ModeReplace drops existing rows,
// ModeAppend keeps them. Nothing is written if any line is malformed.
func (r *Runner) Ingest(ctx context.Context, path, mode string) (int, error) {
	readings, err := ingest.ParseFile(path)
	if err != nil {
		return 0, err
	}
	if err := r.Store(ctx, readings, mode); err != nil {
		return 0, err
	}
	return len(readings), nil
}

// Store writes already-parsed readings using the given mode
func (r *Runner) Store(ctx context.Context, readings []types.SensorReading, mode string) error {
	var err error
	switch mode {
	case common.ModeReplace, "":
		mode = common.ModeReplace
		err = r.store.Replace(ctx, readings)
	case common.ModeAppend:
		err = r.store.Append(ctx, readings)
	default:
		return fmt.Errorf("unknown ingestion mode %q", mode)
	}
	if err != nil {
		return errors.WithMessagef(err, "failed to %s readings", mode)
	}

	metrics.IngestedRows.WithLabelValues(mode).Add(float64(len(readings)))
	klog.InfoS("Ingested sensor readings", "rows", len(readings), "mode", mode)
	return nil
}

// Extract reads every reading from the store, retrying transient failures per the store policy
func (r *Runner) Extract(ctx context.Context) ([]types.SensorReading, error) {
	policy := retry.Policy{
		MaxRetries: r.cfg.Store.MaxRetries,
		Delay:      r.cfg.Store.RetryDelay,
		OnRetry: func(int, error) {
			metrics.StoreRetries.Inc()
		},
	}

	var readings []types.SensorReading
	err := retry.OnTransient(ctx, policy, store.IsTransient, func(ctx context.Context) error {
		var err error
		readings, err = r.store.ReadAll(ctx)
		return err
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to extract readings")
	}

	klog.V(2).InfoS("Extracted sensor readings", "rows", len(readings))
	return readings, nil
}

// RunETL extracts, labels and writes the labeled CSV hand-off file. It returns the row count.
func (r *Runner) RunETL(ctx context.Context) (int, error) {
	readings, err := r.Extract(ctx)
	if err != nil {
		return 0, err
	}
	labeled, err := label.Label(readings)
	if err != nil {
		return 0, err
	}
	if err := export.WriteCSV(r.cfg.Export.CSVPath, labeled); err != nil {
		return 0, err
	}
	return len(labeled), nil
}

// labeledFrom loads labeled rows from the store or from the exported CSV
func (r *Runner) labeledFrom(ctx context.Context, source string) ([]types.LabeledReading, error) {
	switch source {
	case SourceStore, "":
		readings, err := r.Extract(ctx)
		if err != nil {
			return nil, err
		}
		return label.Label(readings)
	case SourceCSV:
		return export.ReadCSV(r.cfg.Export.CSVPath)
	default:
		return nil, fmt.Errorf("unknown training source %q", source)
	}
}

// RunTraining fits a model on the configured split, evaluates it on the held-out side and
// saves it, replacing any previous artifact.
func (r *Runner) RunTraining(ctx context.Context, source string) (report *TrainingReport, err error) {
	tc := r.cfg.Training
	start := r.clock.Now()
	defer func() {
		result := "success"
		if err != nil {
			result = "error"
		}
		metrics.TrainingRuns.WithLabelValues(tc.SplitStrategy, result).Inc()
	}()

	splitter, err := split.ByName(tc.SplitStrategy)
	if err != nil {
		return nil, err
	}

	labeled, err := r.labeledFrom(ctx, source)
	if err != nil {
		return nil, err
	}

	partition, err := splitter(labeled, tc.TestFraction, tc.Seed)
	if err != nil {
		return nil, err
	}
	klog.InfoS("Prepared training data",
		"strategy", partition.Strategy,
		"trainRows", len(partition.Train),
		"testRows", len(partition.Test),
		"trainUnits", len(partition.TrainUnits),
		"testUnits", len(partition.TestUnits))

	xTrain, yTrain, xTest, yTest := partition.XY()

	regressor := forest.NewRegressor(forest.Options{
		Trees:          tc.Trees,
		Seed:           tc.Seed,
		Workers:        tc.Workers,
		MaxDepth:       tc.MaxDepth,
		MinSamplesLeaf: tc.MinSamplesLeaf,
		MaxFeatures:    tc.MaxFeatures,
	})
	model, err := regressor.Fit(ctx, xTrain, yTrain, common.FeatureColumns[:])
	if err != nil {
		return nil, err
	}

	predictions, err := model.PredictBatch(xTest)
	if err != nil {
		return nil, err
	}
	scores, err := eval.Evaluate(yTest, predictions)
	if err != nil {
		return nil, err
	}

	trainedAt := r.clock.Now().UTC()
	model.Metadata = forest.Metadata{
		Strategy:     partition.Strategy,
		TestFraction: tc.TestFraction,
		Seed:         tc.Seed,
		TrainRows:    len(partition.Train),
		TestRows:     len(partition.Test),
		TrainUnits:   len(partition.TrainUnits),
		TestUnits:    len(partition.TestUnits),
		Metrics:      scores,
		TrainedAt:    trainedAt,
	}
	if err := forest.Save(tc.ModelPath, model); err != nil {
		return nil, err
	}

	duration := r.clock.Since(start)
	metrics.TrainingDuration.WithLabelValues(partition.Strategy).Observe(duration.Seconds())
	metrics.ModelError.WithLabelValues(partition.Strategy, "mae").Set(scores.MAE)
	metrics.ModelError.WithLabelValues(partition.Strategy, "rmse").Set(scores.RMSE)

	klog.InfoS("Model trained",
		"strategy", partition.Strategy,
		"mae", fmt.Sprintf("%.2f", scores.MAE),
		"rmse", fmt.Sprintf("%.2f", scores.RMSE),
		"r2", fmt.Sprintf("%.3f", scores.R2Score),
		"path", tc.ModelPath,
		"duration", duration)

	return &TrainingReport{
		Strategy:     partition.Strategy,
		TestFraction: tc.TestFraction,
		TrainRows:    len(partition.Train),
		TestRows:     len(partition.Test),
		TrainUnits:   len(partition.TrainUnits),
		TestUnits:    len(partition.TestUnits),
		Metrics:      scores,
		ModelPath:    tc.ModelPath,
		TrainedAt:    trainedAt,
		Duration:     duration,
	}, nil
}
