// Package label derives the remaining-useful-life target for sensor readings.
package label

import (
	"github.com/pkg/errors"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

// ErrInvalidReading marks a reading whose unit or cycle cannot be labeled
var ErrInvalidReading = errors.Wrap(types.ErrMalformedInput, "invalid reading")

// Label computes rul = (max cycle of the reading's unit) - (the reading's cycle) for every
// reading. Output order matches input order.
func Label(readings []types.SensorReading) ([]types.LabeledReading, error) {
	maxCycles := make(map[int]int)
	for i, r := range readings {
		if r.UnitNumber <= 0 || r.TimeInCycles <= 0 {
			return nil, errors.WithMessagef(ErrInvalidReading,
				"row %d: unit %d cycle %d", i, r.UnitNumber, r.TimeInCycles)
		}
		if r.TimeInCycles > maxCycles[r.UnitNumber] {
			maxCycles[r.UnitNumber] = r.TimeInCycles
		}
	}

	labeled := make([]types.LabeledReading, len(readings))
	for i, r := range readings {
		labeled[i] = types.LabeledReading{
			SensorReading: r,
			RUL:           maxCycles[r.UnitNumber] - r.TimeInCycles,
		}
	}
	return labeled, nil
}

// Relabel discards any existing rul values and labels again
func Relabel(labeled []types.LabeledReading) ([]types.LabeledReading, error) {
	return Label(Strip(labeled))
}

// Strip drops the rul column
func Strip(labeled []types.LabeledReading) []types.SensorReading {
	out := make([]types.SensorReading, len(labeled))
	for i := range labeled {
		out[i] = labeled[i].SensorReading
	}
	return out
}

// Units returns the number of distinct units in labeled
func Units(labeled []types.LabeledReading) int {
	seen := make(map[int]struct{})
	for i := range labeled {
		seen[labeled[i].UnitNumber] = struct{}{}
	}
	return len(seen)
}
