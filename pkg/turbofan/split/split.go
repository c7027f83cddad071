// Package split partitions labeled readings into training and evaluation sets.
//
// Two strategies exist. UnitHoldout keeps every cycle of an engine unit on one side and is the
// one to use. RowRandom samples rows independently, so adjacent cycles of the same unit end up
// on both sides and the reported error is optimistic; it is kept as a baseline for comparison
// with older models.
package split

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/common"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

// ErrConfiguration means the requested split leaves one side empty
var ErrConfiguration = errors.New("invalid split configuration")

// floorTolerance absorbs float error in N*(1-f), e.g. 100*(1-0.2) = 79.99999999999999
const floorTolerance = 1e-9

// Partition is the result of a split
type Partition struct {
	Strategy   string
	Fraction   float64
	Train      []types.LabeledReading
	Test       []types.LabeledReading
	TrainUnits []int
	TestUnits  []int
}

// Splitter partitions labeled rows with a test fraction
type Splitter func(rows []types.LabeledReading, fraction float64, seed uint64) (*Partition, error)

// ByName resolves a strategy name. An empty name selects unit-holdout.
func ByName(strategy string) (Splitter, error) {
	switch strategy {
	case "", common.StrategyUnitHoldout:
		return func(rows []types.LabeledReading, fraction float64, _ uint64) (*Partition, error) {
			return UnitHoldout(rows, fraction)
		}, nil
	case common.StrategyRowRandom:
		return RowRandom, nil
	default:
		return nil, errors.Wrapf(ErrConfiguration, "unknown strategy %q", strategy)
	}
}

func checkFraction(fraction float64) error {
	if math.IsNaN(fraction) || fraction <= 0 || fraction >= 1 {
		return errors.Wrapf(ErrConfiguration, "test fraction must be in (0, 1), got %g", fraction)
	}
	return nil
}

// RowRandom assigns ceil(n*fraction) rows, chosen by a permutation seeded with seed, to the test
// set and the rest to the training set. Both sets keep the permutation order.
func RowRandom(rows []types.LabeledReading, fraction float64, seed uint64) (*Partition, error) {
	if err := checkFraction(fraction); err != nil {
		return nil, err
	}

	n := len(rows)
	nTest := int(math.Ceil(float64(n)*fraction - floorTolerance))
	if nTest <= 0 || nTest >= n {
		return nil, errors.Wrapf(ErrConfiguration,
			"%d rows at test fraction %g leave an empty side", n, fraction)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)

	p := &Partition{
		Strategy: common.StrategyRowRandom,
		Fraction: fraction,
		Test:     make([]types.LabeledReading, 0, nTest),
		Train:    make([]types.LabeledReading, 0, n-nTest),
	}
	for i, idx := range perm {
		if i < nTest {
			p.Test = append(p.Test, rows[idx])
		} else {
			p.Train = append(p.Train, rows[idx])
		}
	}
	p.TrainUnits = unitsOf(p.Train)
	p.TestUnits = unitsOf(p.Test)

	klog.InfoS("Split rows at random (rows of one unit may appear in both sets)",
		"train", len(p.Train), "test", len(p.Test), "seed", seed)
	return p, nil
}

// UnitHoldout sorts the distinct unit numbers ascending and assigns the first
// floor(N*(1-fraction)) units to training and the rest to testing. Row order within each set
// follows the input.
func UnitHoldout(rows []types.LabeledReading, fraction float64) (*Partition, error) {
	if err := checkFraction(fraction); err != nil {
		return nil, err
	}

	units := unitsOf(rows)
	n := len(units)
	if n < 2 {
		return nil, errors.Wrapf(ErrConfiguration, "unit holdout needs at least 2 units, got %d", n)
	}

	k := int(math.Floor(float64(n)*(1-fraction) + floorTolerance))
	if k >= n || k <= 0 {
		return nil, errors.Wrapf(ErrConfiguration,
			"%d units at test fraction %g leave an empty side (%d train units)", n, fraction, k)
	}

	trainSet := make(map[int]struct{}, k)
	for _, u := range units[:k] {
		trainSet[u] = struct{}{}
	}

	p := &Partition{
		Strategy:   common.StrategyUnitHoldout,
		Fraction:   fraction,
		TrainUnits: append([]int(nil), units[:k]...),
		TestUnits:  append([]int(nil), units[k:]...),
	}
	for _, r := range rows {
		if _, ok := trainSet[r.UnitNumber]; ok {
			p.Train = append(p.Train, r)
		} else {
			p.Test = append(p.Test, r)
		}
	}

	klog.InfoS("Split by engine unit",
		"trainUnits", len(p.TrainUnits), "testUnits", len(p.TestUnits),
		"trainRows", len(p.Train), "testRows", len(p.Test))
	return p, nil
}

// XY returns feature matrices and targets for both sides. Identifier columns and the target
// are never part of X.
func (p *Partition) XY() (xTrain [][]float64, yTrain []float64, xTest [][]float64, yTest []float64) {
	xTrain, yTrain = Matrix(p.Train)
	xTest, yTest = Matrix(p.Test)
	return
}

// Matrix converts labeled rows into a feature matrix in common.FeatureColumns order and a
// target vector
func Matrix(rows []types.LabeledReading) ([][]float64, []float64) {
	x := make([][]float64, len(rows))
	y := make([]float64, len(rows))
	for i := range rows {
		x[i] = rows[i].Features().Slice()
		y[i] = float64(rows[i].RUL)
	}
	return x, y
}

func unitsOf(rows []types.LabeledReading) []int {
	seen := make(map[int]struct{})
	var units []int
	for i := range rows {
		u := rows[i].UnitNumber
		if _, ok := seen[u]; !ok {
			seen[u] = struct{}{}
			units = append(units, u)
		}
	}
	sort.Ints(units)
	return units
}
