package training

import (
	"fmt"
	"math"

	"revenue-feature-lab/internal/domain"
)

// Evaluation holds regression error metrics over N samples.
type Evaluation struct {
	MAE  float64
	RMSE float64
	R2   float64
	N    int
}

// Evaluate scores p on every sample of ds.
// R2 is 1 when the targets have no variance and predictions are exact,
// and 0 when they have no variance otherwise.
func Evaluate(p Predictor, ds *Dataset) (Evaluation, error) {
	n := ds.Len()
	if n == 0 {
		return Evaluation{}, &domain.ValidationError{Stage: "evaluate", Row: -1, Field: "dataset", Reason: "no samples"}
	}

	var mean float64
	for _, y := range ds.Y {
		mean += y
	}
	mean /= float64(n)

	var absErr, sqErr, sqTot float64
	for i, x := range ds.X {
		pred, err := p.Predict(x)
		if err != nil {
			return Evaluation{}, fmt.Errorf("evaluate sample %d: %w", i, err)
		}
		d := ds.Y[i] - pred
		absErr += math.Abs(d)
		sqErr += d * d
		t := ds.Y[i] - mean
		sqTot += t * t
	}

	ev := Evaluation{
		MAE:  absErr / float64(n),
		RMSE: math.Sqrt(sqErr / float64(n)),
		N:    n,
	}
	switch {
	case sqTot != 0:
		ev.R2 = 1 - sqErr/sqTot
	case sqErr == 0:
		ev.R2 = 1
	}
	return ev, nil
}
