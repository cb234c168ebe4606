package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"stockbench/internal/config"
)

// SVM is a linear soft-margin classifier trained with the Pegasos
// subgradient method. Training passes are cyclic rather than sampled, so a
// fit is fully deterministic.
type SVM struct {
	cfg config.SVM
	w   []float64
	b   float64
}

var _ Classifier = (*SVM)(nil)

// NewSVM creates an untrained model with the given hyperparameters.
func NewSVM(cfg config.SVM) *SVM {
	return &SVM{cfg: cfg}
}

func (m *SVM) Name() string {
	return ModelSVM
}

func (m *SVM) Fit(x [][]float64, y []int) error {
	n := len(x)
	if n == 0 {
		return errors.New("svm: empty training set")
	}
	if m.cfg.Lambda <= 0 {
		return errors.New("svm: lambda must be positive")
	}

	w := make([]float64, len(x[0]))
	var b float64
	step := 0

	for epoch := 0; epoch < m.cfg.Epochs; epoch++ {
		for i, row := range x {
			step++
			eta := 1 / (m.cfg.Lambda * float64(step))

			yi := -1.0
			if y[i] == 1 {
				yi = 1.0
			}

			margin := yi * (floats.Dot(w, row) + b)
			floats.Scale(1-eta*m.cfg.Lambda, w)
			if margin < 1 {
				floats.AddScaled(w, eta*yi, row)
				b += eta * yi
			}
		}
	}

	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("svm: diverged after %d epochs", m.cfg.Epochs)
		}
	}

	m.w = w
	m.b = b
	return nil
}

func (m *SVM) Predict(row []float64) int {
	if floats.Dot(m.w, row)+m.b >= 0 {
		return 1
	}
	return 0
}
