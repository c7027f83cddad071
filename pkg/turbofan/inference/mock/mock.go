package mock

import (
	"context"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/inference"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

// MockPredictor implements the server's Predictor interface for testing
type MockPredictor struct {
	LoadFunc    func() error
	PredictFunc func(ctx context.Context, fv types.FeatureVector) (inference.Prediction, error)
	StatusFunc  func() inference.Status

	// LastVector is the most recent vector passed to Predict
	LastVector types.FeatureVector
}

// Load delegates to the mock function
func (m *MockPredictor) Load() error {
	if m.LoadFunc != nil {
		return m.LoadFunc()
	}
	return nil
}

// Predict records the vector and delegates to the mock function
func (m *MockPredictor) Predict(ctx context.Context, fv types.FeatureVector) (inference.Prediction, error) {
	m.LastVector = fv
	if m.PredictFunc != nil {
		return m.PredictFunc(ctx, fv)
	}
	return inference.Prediction{}, nil
}

// Status delegates to the mock function
func (m *MockPredictor) Status() inference.Status {
	if m.StatusFunc != nil {
		return m.StatusFunc()
	}
	return inference.Status{}
}
