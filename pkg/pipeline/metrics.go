package pipeline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"eqsmagnetics/internal/models"
)

// Metrics compares a predicted anomaly with a reference one
type Metrics struct {
	// RMSE is the root mean square difference, in nT
	RMSE float64

	// MaxAbs is the largest absolute difference, in nT
	MaxAbs float64

	// Correlation is the Pearson correlation between both anomalies
	Correlation float64

	// R2 is the coefficient of determination of the prediction
	R2 float64
}

// CalculateMetrics computes the validation metrics of predicted against
// reference values.
func CalculateMetrics(reference, predicted []float64) (Metrics, error) {
	if len(reference) != len(predicted) {
		return Metrics{}, fmt.Errorf("%w: %d reference values but %d predicted",
			models.ErrLengthMismatch, len(reference), len(predicted))
	}
	if len(reference) == 0 {
		return Metrics{}, models.ErrEmptyPoints
	}

	diff := make([]float64, len(reference))
	floats.SubTo(diff, reference, predicted)

	return Metrics{
		RMSE:        floats.Norm(diff, 2) / math.Sqrt(float64(len(diff))),
		MaxAbs:      floats.Norm(diff, math.Inf(1)),
		Correlation: stat.Correlation(reference, predicted, nil),
		R2:          stat.RSquaredFrom(predicted, reference, nil),
	}, nil
}
