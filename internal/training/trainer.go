package training

import (
	"context"
	"fmt"

	"revenue-feature-lab/internal/domain"
)

// Predictor scores one feature vector laid out as Dataset.Columns.
type Predictor interface {
	Predict(x []float64) (float64, error)
}

// Trainer fits a Predictor on a dataset.
type Trainer interface {
	Name() string
	Train(ctx context.Context, ds *Dataset) (Predictor, error)
}

// MeanTrainer predicts the mean training target for every input.
type MeanTrainer struct{}

var _ Trainer = MeanTrainer{}

func (MeanTrainer) Name() string { return "mean" }

// Train returns a constant predictor. An empty dataset is rejected.
func (MeanTrainer) Train(ctx context.Context, ds *Dataset) (Predictor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, &domain.ValidationError{Stage: "train", Row: -1, Field: "dataset", Reason: "no samples"}
	}

	var sum float64
	for _, y := range ds.Y {
		sum += y
	}
	return &constantPredictor{value: sum / float64(ds.Len()), width: len(ds.Columns)}, nil
}

type constantPredictor struct {
	value float64
	width int
}

func (p *constantPredictor) Predict(x []float64) (float64, error) {
	if len(x) != p.width {
		return 0, fmt.Errorf("predict: got %d values, expected %d", len(x), p.width)
	}
	return p.value, nil
}
