package export

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbench/internal/benchmark"
)

func TestWriteModelResults(t *testing.T) {
	dir := t.TempDir()

	scores := []benchmark.Score{
		{Model: "logistic_regression", Accuracy: 0.5125},
		{Model: "random_forest", Accuracy: 0.55},
		{Model: "svm", Err: errors.New("diverged")},
		{Model: "gradient_boosting", Accuracy: 0.4875},
	}

	path, err := WriteModelResults(dir, "AAPL.US", scores)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "AAPL.US_model_results.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	// Header plus one row per model, failed or not.
	require.Len(t, records, 5)
	assert.Equal(t, []string{"model", "accuracy"}, records[0])
	assert.Equal(t, []string{"logistic_regression", "0.512500"}, records[1])
	assert.Equal(t, []string{"svm", FailedMarker}, records[3])
}

func TestWriteModelResultsCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "run1")

	_, err := WriteModelResults(dir, "MSFT.US", []benchmark.Score{{Model: "svm", Accuracy: 1}})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "MSFT.US_model_results.csv"))
	assert.NoError(t, err)
}
