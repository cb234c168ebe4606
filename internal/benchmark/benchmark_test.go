package benchmark

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stockbench/internal/config"
	"stockbench/internal/dataset"
	"stockbench/internal/marketdata"
	"stockbench/internal/ml"
)

// stubClassifier is a controllable ml.Classifier for isolation tests.
type stubClassifier struct {
	name    string
	fitErr  error
	panics  bool
	label   int
	trained int // rows seen in Fit
}

func (s *stubClassifier) Name() string { return s.name }

func (s *stubClassifier) Fit(x [][]float64, y []int) error {
	if s.panics {
		panic("boom")
	}
	s.trained = len(x)
	return s.fitErr
}

func (s *stubClassifier) Predict(row []float64) int { return s.label }

// tableWithTailLabels builds a labeled table whose last `tail` rows are
// labeled 1 and all earlier rows 0.
func tableWithTailLabels(t *testing.T, n, tail int) *dataset.Table {
	t.Helper()
	base := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	candles := make([]marketdata.Candle, n+1)
	price := 100.0
	for i := range candles {
		candles[i] = marketdata.Candle{
			Date: base.AddDate(0, 0, i), Open: price, High: price + 1,
			Low: price - 1, Close: price, Volume: 1000,
		}
		// Row i is labeled by the close step from i to i+1.
		if i >= n-tail {
			price += 1 // rising tail → label 1
		} else {
			price -= 1 // falling head → label 0
		}
	}

	tbl, err := dataset.Build(candles)
	require.NoError(t, err)
	require.Equal(t, n, tbl.Len())
	return tbl
}

func TestRun(t *testing.T) {
	runner := NewRunner(zap.NewNop(), 0.8)

	t.Run("OneFailureNeverAbortsTheRest", func(t *testing.T) {
		tbl := tableWithTailLabels(t, 50, 10)
		classifiers := []ml.Classifier{
			&stubClassifier{name: "a", label: 1},
			&stubClassifier{name: "b", fitErr: errors.New("singular matrix")},
			&stubClassifier{name: "c", label: 0},
			&stubClassifier{name: "d", label: 1},
		}

		scores := runner.Run("TEST", tbl, classifiers)

		require.Len(t, scores, 4)
		assert.False(t, scores[0].Failed())
		assert.True(t, scores[1].Failed())
		assert.False(t, scores[2].Failed())
		assert.False(t, scores[3].Failed())
		for _, s := range scores {
			if !s.Failed() {
				assert.GreaterOrEqual(t, s.Accuracy, 0.0)
				assert.LessOrEqual(t, s.Accuracy, 1.0)
			}
		}
	})

	t.Run("PanicIsIsolated", func(t *testing.T) {
		tbl := tableWithTailLabels(t, 20, 4)
		classifiers := []ml.Classifier{
			&stubClassifier{name: "panicker", panics: true},
			&stubClassifier{name: "ok", label: 1},
		}

		scores := runner.Run("TEST", tbl, classifiers)

		require.Len(t, scores, 2)
		assert.True(t, scores[0].Failed())
		assert.Contains(t, scores[0].Err.Error(), "panicked")
		assert.False(t, scores[1].Failed())
	})

	t.Run("TestPartitionIsTheChronologicalTail", func(t *testing.T) {
		// The last 20% of a 50-row table is exactly the rising tail, so a
		// constant up-predictor is perfect and a down-predictor scores zero.
		tbl := tableWithTailLabels(t, 50, 10)
		up := &stubClassifier{name: "up", label: 1}
		down := &stubClassifier{name: "down", label: 0}

		scores := runner.Run("TEST", tbl, []ml.Classifier{up, down})

		require.Len(t, scores, 2)
		assert.Equal(t, 1.0, scores[0].Accuracy)
		assert.Equal(t, 0.0, scores[1].Accuracy)
		// And the training partition is everything before the tail.
		assert.Equal(t, 40, up.trained)
	})

	t.Run("TinyTableFailsAllModels", func(t *testing.T) {
		tbl := tableWithTailLabels(t, 1, 1)
		scores := runner.Run("TEST", tbl, []ml.Classifier{
			&stubClassifier{name: "a"},
			&stubClassifier{name: "b"},
		})

		require.Len(t, scores, 2)
		for _, s := range scores {
			assert.True(t, s.Failed())
		}
	})

	t.Run("RealModelsEndToEnd", func(t *testing.T) {
		tbl := tableWithTailLabels(t, 60, 12)
		classifiers := []ml.Classifier{
			ml.NewSVM(config.SVM{Lambda: 0.01, Epochs: 50}),
		}

		scores := runner.Run("TEST", tbl, classifiers)

		require.Len(t, scores, 1)
		require.False(t, scores[0].Failed())
		assert.GreaterOrEqual(t, scores[0].Accuracy, 0.0)
		assert.LessOrEqual(t, scores[0].Accuracy, 1.0)
	})
}
