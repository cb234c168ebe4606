package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"stockbench/internal/config"
)

// LogisticRegression is an L2-regularized logistic regression trained with
// batch gradient descent.
type LogisticRegression struct {
	cfg     config.Logistic
	weights *mat.VecDense // feature weights plus trailing bias term
}

var _ Classifier = (*LogisticRegression)(nil)

// NewLogisticRegression creates an untrained model with the given hyperparameters.
func NewLogisticRegression(cfg config.Logistic) *LogisticRegression {
	return &LogisticRegression{cfg: cfg}
}

func (m *LogisticRegression) Name() string {
	return ModelLogisticRegression
}

// Fit trains the model. It fails if the training set is empty or if the
// optimization diverges to non-finite weights.
func (m *LogisticRegression) Fit(x [][]float64, y []int) error {
	n := len(x)
	if n == 0 {
		return errors.New("logistic regression: empty training set")
	}
	d := len(x[0])

	// Design matrix with a trailing all-ones bias column.
	design := mat.NewDense(n, d+1, nil)
	for i, row := range x {
		for j, v := range row {
			design.Set(i, j, v)
		}
		design.Set(i, d, 1)
	}

	w := mat.NewVecDense(d+1, nil)
	grad := mat.NewVecDense(d+1, nil)
	resid := mat.NewVecDense(n, nil)

	for epoch := 0; epoch < m.cfg.Epochs; epoch++ {
		resid.MulVec(design, w)
		for i := 0; i < n; i++ {
			resid.SetVec(i, sigmoid(resid.AtVec(i))-float64(y[i]))
		}

		grad.MulVec(design.T(), resid)
		grad.AddScaledVec(grad, m.cfg.L2, w)
		w.AddScaledVec(w, -m.cfg.LearningRate/float64(n), grad)
	}

	for i := 0; i < w.Len(); i++ {
		if math.IsNaN(w.AtVec(i)) || math.IsInf(w.AtVec(i), 0) {
			return fmt.Errorf("logistic regression: diverged after %d epochs", m.cfg.Epochs)
		}
	}

	m.weights = w
	return nil
}

func (m *LogisticRegression) Predict(row []float64) int {
	z := m.weights.AtVec(m.weights.Len() - 1) // bias
	for j, v := range row {
		z += m.weights.AtVec(j) * v
	}
	if sigmoid(z) >= 0.5 {
		return 1
	}
	return 0
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
