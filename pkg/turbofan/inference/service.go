// Package inference serves RUL predictions from a persisted model artifact.
package inference

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/common"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/eval"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/forest"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/metrics"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

var (
	// ErrModelNotTrained means no artifact exists at the model path yet
	ErrModelNotTrained = errors.New("model not trained yet")

	// ErrModelInvalid means the artifact exists but cannot be used
	ErrModelInvalid = errors.New("model artifact is invalid")

	// ErrInvalidInput means the feature vector contains values the model cannot score
	ErrInvalidInput = errors.New("invalid feature vector")
)

// Prediction is one scored feature vector
type Prediction struct {
	// RUL is the raw forest output in cycles
	RUL float64 `json:"rul"`
	// Cycles is RUL truncated to whole cycles, as displayed
	Cycles int `json:"cycles"`
	// Strategy is the split strategy the model was evaluated with
	Strategy string `json:"strategy"`
}

// Status describes the model the service holds, if any
type Status struct {
	Loaded     bool         `json:"loaded"`
	ModelPath  string       `json:"modelPath"`
	Strategy   string       `json:"strategy,omitempty"`
	Trees      int          `json:"trees,omitempty"`
	TrainRows  int          `json:"trainRows,omitempty"`
	TestRows   int          `json:"testRows,omitempty"`
	Metrics    eval.Metrics `json:"metrics"`
	TrainedAt  time.Time    `json:"trainedAt"`
	LoadedAt   time.Time    `json:"loadedAt"`
}

// Service holds the lazily loaded model for the life of the process. Only a successful load is
// cached: while the artifact is missing every call looks for it again, so a model trained after
// the server started is picked up without a restart.
type Service struct {
	modelPath string

	mutex    sync.RWMutex
	model    *forest.Model
	loadedAt time.Time
}

// New creates a service for the artifact at modelPath. Nothing is read until first use.
func New(modelPath string) *Service {
	return &Service{modelPath: modelPath}
}

// Load reads the artifact now instead of on the first prediction
func (s *Service) Load() error {
	_, err := s.get()
	return err
}

func (s *Service) get() (*forest.Model, error) {
	s.mutex.RLock()
	m := s.model
	s.mutex.RUnlock()
	if m != nil {
		return m, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.model != nil {
		return s.model, nil
	}

	m, err := forest.Load(s.modelPath, common.FeatureColumns[:])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(ErrModelNotTrained, "no model at %s; run training first", s.modelPath)
		}
		klog.ErrorS(err, "Failed to load model", "path", s.modelPath)
		return nil, fmt.Errorf("%w: %w", ErrModelInvalid, err)
	}

	s.model = m
	s.loadedAt = time.Now()
	metrics.ModelLoaded.Set(1)
	klog.InfoS("Loaded model",
		"path", s.modelPath,
		"trees", len(m.Trees),
		"strategy", m.Metadata.Strategy,
		"mae", m.Metadata.Metrics.MAE)
	return m, nil
}

// Predict scores one feature vector in common.FeatureColumns order
func (s *Service) Predict(ctx context.Context, fv types.FeatureVector) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	for i, v := range fv {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Prediction{}, errors.Wrapf(ErrInvalidInput, "%s is not a finite number", common.FeatureColumns[i])
		}
	}

	m, err := s.get()
	if err != nil {
		return Prediction{}, err
	}

	start := time.Now()
	rul, err := m.Predict(fv[:])
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrModelInvalid, err)
	}
	metrics.PredictionLatency.Observe(time.Since(start).Seconds())

	klog.V(3).InfoS("Predicted RUL", "rul", rul)
	return Prediction{
		RUL:      rul,
		Cycles:   int(rul),
		Strategy: m.Metadata.Strategy,
	}, nil
}

// Status reports the loaded model without triggering a load
func (s *Service) Status() Status {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	st := Status{ModelPath: s.modelPath}
	if s.model == nil {
		return st
	}
	md := s.model.Metadata
	st.Loaded = true
	st.Strategy = md.Strategy
	st.Trees = len(s.model.Trees)
	st.TrainRows = md.TrainRows
	st.TestRows = md.TestRows
	st.Metrics = md.Metrics
	st.TrainedAt = md.TrainedAt
	st.LoadedAt = s.loadedAt
	return st
}
