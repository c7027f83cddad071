package eval

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// ErrLengthMismatch means predictions and targets do not line up
var ErrLengthMismatch = errors.New("predictions and targets differ in length")

// Evaluate compares predictions against true targets
func Evaluate(yTrue, yPred []float64) (Metrics, error) {
	if len(yTrue) != len(yPred) {
		return Metrics{}, errors.Wrapf(ErrLengthMismatch, "%d targets, %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Metrics{}, fmt.Errorf("no samples to evaluate")
	}

	absErr := make(stats.Float64Data, len(yTrue))
	sqErr := make(stats.Float64Data, len(yTrue))
	for i := range yTrue {
		d := yPred[i] - yTrue[i]
		absErr[i] = math.Abs(d)
		sqErr[i] = d * d
	}

	mae, err := stats.Mean(absErr)
	if err != nil {
		return Metrics{}, errors.Wrap(err, "failed to compute MAE")
	}
	mse, err := stats.Mean(sqErr)
	if err != nil {
		return Metrics{}, errors.Wrap(err, "failed to compute MSE")
	}
	variance, err := stats.PopulationVariance(yTrue)
	if err != nil {
		return Metrics{}, errors.Wrap(err, "failed to compute target variance")
	}

	r2 := 0.0
	if variance > 0 {
		r2 = 1 - mse/variance
	}

	return Metrics{
		MAE:     mae,
		RMSE:    math.Sqrt(mse),
		R2Score: r2,
		Samples: len(yTrue),
	}, nil
}

// String renders the metrics the way training reports them
func (m Metrics) String() string {
	return fmt.Sprintf("MAE %.2f cycles, RMSE %.2f, R2 %.3f over %d rows", m.MAE, m.RMSE, m.R2Score, m.Samples)
}
