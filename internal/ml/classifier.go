package ml

import (
	"stockbench/internal/config"
)

// Fixed model identifiers, also the report order.
const (
	ModelLogisticRegression = "logistic_regression"
	ModelRandomForest       = "random_forest"
	ModelSVM                = "svm"
	ModelGradientBoosting   = "gradient_boosting"
)

// ModelNames lists the benchmarked models in their fixed reporting order.
var ModelNames = []string{
	ModelLogisticRegression,
	ModelRandomForest,
	ModelSVM,
	ModelGradientBoosting,
}

// Classifier is a binary classifier over fixed-width feature rows.
type Classifier interface {
	// Name returns the model's fixed identifier.
	Name() string

	// Fit trains on feature rows x with labels y (0 or 1).
	Fit(x [][]float64, y []int) error

	// Predict returns the predicted label for a single feature row.
	// Only valid after a successful Fit.
	Predict(row []float64) int
}

// NewClassifiers builds all four benchmark models from their configured
// hyperparameters. The seed drives the tree ensembles so a run is
// reproducible; models are freshly constructed per symbol so no state
// leaks between fits.
func NewClassifiers(cfg *config.Models, seed int64) []Classifier {
	return []Classifier{
		NewLogisticRegression(cfg.Logistic),
		NewRandomForest(cfg.RandomForest, seed),
		NewSVM(cfg.SVM),
		NewGradientBoosting(cfg.GradientBoosting, seed),
	}
}
