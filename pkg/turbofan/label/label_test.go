package label

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

func unitRun(unit, cycles int) []types.SensorReading {
	out := make([]types.SensorReading, 0, cycles)
	for c := 1; c <= cycles; c++ {
		out = append(out, types.SensorReading{UnitNumber: unit, TimeInCycles: c, Sensor2: float64(c)})
	}
	return out
}

func ruls(labeled []types.LabeledReading) []int {
	out := make([]int, len(labeled))
	for i, l := range labeled {
		out[i] = l.RUL
	}
	return out
}

func TestLabelTwoUnits(t *testing.T) {
	readings := append(unitRun(1, 3), unitRun(2, 5)...)

	labeled, err := Label(readings)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, ruls(labeled[:3]))
	assert.Equal(t, []int{4, 3, 2, 1, 0}, ruls(labeled[3:]))
	assert.Equal(t, 2, Units(labeled))
}

func TestLabelPreservesOrderOfShuffledInput(t *testing.T) {
	readings := append(unitRun(1, 4), unitRun(2, 6)...)
	rng := rand.New(rand.NewPCG(7, 7))
	rng.Shuffle(len(readings), func(i, j int) { readings[i], readings[j] = readings[j], readings[i] })

	labeled, err := Label(readings)
	require.NoError(t, err)

	maxByUnit := map[int]int{1: 4, 2: 6}
	for i, l := range labeled {
		assert.Equal(t, readings[i], l.SensorReading)
		assert.Equal(t, maxByUnit[l.UnitNumber]-l.TimeInCycles, l.RUL)
	}
}

func TestLabelPerUnitBounds(t *testing.T) {
	counts := map[int]int{1: 1, 2: 7, 3: 192, 4: 20}
	var readings []types.SensorReading
	for unit := 1; unit <= 4; unit++ {
		readings = append(readings, unitRun(unit, counts[unit])...)
	}

	labeled, err := Label(readings)
	require.NoError(t, err)

	maxRUL := map[int]int{}
	minRUL := map[int]int{}
	for _, l := range labeled {
		if l.RUL > maxRUL[l.UnitNumber] {
			maxRUL[l.UnitNumber] = l.RUL
		}
		if cur, ok := minRUL[l.UnitNumber]; !ok || l.RUL < cur {
			minRUL[l.UnitNumber] = l.RUL
		}
		if l.TimeInCycles == counts[l.UnitNumber] {
			assert.Zero(t, l.RUL)
		}
	}
	for unit, n := range counts {
		assert.Equal(t, n-1, maxRUL[unit], "unit %d", unit)
		assert.Zero(t, minRUL[unit], "unit %d", unit)
	}
}

func TestLabelDecreasesByCycleDelta(t *testing.T) {
	labeled, err := Label(unitRun(9, 50))
	require.NoError(t, err)
	for i := 1; i < len(labeled); i++ {
		assert.Equal(t, labeled[i-1].RUL-1, labeled[i].RUL)
	}
}

func TestRelabelIsIdempotent(t *testing.T) {
	first, err := Label(append(unitRun(3, 10), unitRun(1, 4)...))
	require.NoError(t, err)

	// Corrupt the prior labels; they must be ignored
	stale := append([]types.LabeledReading(nil), first...)
	for i := range stale {
		stale[i].RUL = 999
	}

	second, err := Relabel(stale)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLabelEmpty(t *testing.T) {
	labeled, err := Label(nil)
	require.NoError(t, err)
	assert.Empty(t, labeled)
}

func TestLabelInvalidReadings(t *testing.T) {
	tests := []struct {
		name    string
		reading types.SensorReading
	}{
		{name: "zero unit", reading: types.SensorReading{UnitNumber: 0, TimeInCycles: 1}},
		{name: "negative cycle", reading: types.SensorReading{UnitNumber: 1, TimeInCycles: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			labeled, err := Label(append(unitRun(1, 2), tt.reading))
			require.Error(t, err)
			assert.Nil(t, labeled)
			assert.True(t, errors.Is(err, ErrInvalidReading))
			assert.True(t, errors.Is(err, types.ErrMalformedInput))
			assert.Contains(t, err.Error(), "row 2")
		})
	}
}
