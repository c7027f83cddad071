package mock

import (
	"context"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/store"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

// MockReadingStore implements store.ReadingStore for testing
type MockReadingStore struct {
	ReplaceFunc func(ctx context.Context, readings []types.SensorReading) error
	AppendFunc  func(ctx context.Context, readings []types.SensorReading) error
	ReadAllFunc func(ctx context.Context) ([]types.SensorReading, error)
	SummaryFunc func(ctx context.Context) (store.Summary, error)
	CloseFunc   func() error

	ReadAllCalls int
}

var _ store.ReadingStore = &MockReadingStore{}

// Replace delegates to the mock function
func (m *MockReadingStore) Replace(ctx context.Context, readings []types.SensorReading) error {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, readings)
	}
	return nil
}

// Append delegates to the mock function
func (m *MockReadingStore) Append(ctx context.Context, readings []types.SensorReading) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, readings)
	}
	return nil
}

// ReadAll delegates to the mock function and counts calls
func (m *MockReadingStore) ReadAll(ctx context.Context) ([]types.SensorReading, error) {
	m.ReadAllCalls++
	if m.ReadAllFunc != nil {
		return m.ReadAllFunc(ctx)
	}
	return nil, nil
}

// Summary delegates to the mock function
func (m *MockReadingStore) Summary(ctx context.Context) (store.Summary, error) {
	if m.SummaryFunc != nil {
		return m.SummaryFunc(ctx)
	}
	return store.Summary{}, nil
}

// Close delegates to the mock function
func (m *MockReadingStore) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
