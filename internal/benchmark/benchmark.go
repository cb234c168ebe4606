package benchmark

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"stockbench/internal/dataset"
	"stockbench/internal/ml"
)

// Score is one model's benchmark outcome. A non-nil Err marks the model as
// failed; Accuracy is only meaningful when Err is nil.
type Score struct {
	Model    string
	Accuracy float64
	Err      error
}

// Failed reports whether the model produced no usable score.
func (s Score) Failed() bool {
	return s.Err != nil
}

// Runner benchmarks classifiers on a chronologically split labeled table.
type Runner struct {
	logger    *zap.Logger
	trainFrac float64
}

// NewRunner creates a benchmark runner using the configured train fraction.
func NewRunner(logger *zap.Logger, trainFrac float64) *Runner {
	return &Runner{
		logger:    logger.Named("benchmark"),
		trainFrac: trainFrac,
	}
}

// Run splits the table by position (training on the first part, testing on
// the chronologically last part), fits every classifier on the identical
// training partition, and scores each by held-out accuracy. One model's
// failure never aborts the others; the result always carries one entry per
// classifier, in order.
func (r *Runner) Run(symbol string, tbl *dataset.Table, classifiers []ml.Classifier) []Score {
	l := r.logger.With(zap.String("symbol", symbol))

	train, test := tbl.Split(r.trainFrac)
	l.Info("Split table chronologically",
		zap.Int("train_rows", train.Len()),
		zap.Int("test_rows", test.Len()),
	)

	scores := make([]Score, 0, len(classifiers))

	if train.Len() == 0 || test.Len() == 0 {
		err := errors.New("empty train or test partition")
		for _, c := range classifiers {
			scores = append(scores, Score{Model: c.Name(), Err: err})
		}
		l.Warn("Table too small to benchmark", zap.Error(err))
		return scores
	}

	// Standardize on training statistics only.
	scaler := ml.FitScaler(train.X)
	trainX := scaler.Transform(train.X)
	testX := scaler.Transform(test.X)

	for _, c := range classifiers {
		accuracy, err := fitAndScore(c, trainX, train.Y, testX, test.Y)
		if err != nil {
			l.Warn("Model failed, continuing with remaining models",
				zap.String("model", c.Name()), zap.Error(err))
			scores = append(scores, Score{Model: c.Name(), Err: err})
			continue
		}
		l.Info("Model scored",
			zap.String("model", c.Name()),
			zap.Float64("accuracy", accuracy),
		)
		scores = append(scores, Score{Model: c.Name(), Accuracy: accuracy})
	}

	return scores
}

// fitAndScore isolates a single model: a panic inside Fit or Predict is
// converted into that model's error instead of taking down the run.
func fitAndScore(c ml.Classifier, trainX [][]float64, trainY []int, testX [][]float64, testY []int) (accuracy float64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("model panicked: %v", p)
		}
	}()

	if err := c.Fit(trainX, trainY); err != nil {
		return 0, err
	}

	correct := 0
	for i, row := range testX {
		if c.Predict(row) == testY[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(testX)), nil
}
