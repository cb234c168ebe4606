package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"stockbench/internal/benchmark"
)

// FailedMarker is written in place of an accuracy for a model that did not
// produce a score.
const FailedMarker = "failed"

// WriteModelResults writes the per-symbol two-column model/accuracy CSV and
// returns its path. Failed models keep their row with the failed marker so
// the file always has one row per benchmarked model.
func WriteModelResults(dir, symbol string, scores []benchmark.Score) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_model_results.csv", symbol))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"model", "accuracy"}); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	for _, score := range scores {
		value := FailedMarker
		if !score.Failed() {
			value = strconv.FormatFloat(score.Accuracy, 'f', 6, 64)
		}
		if err := w.Write([]string{score.Model, value}); err != nil {
			return "", fmt.Errorf("failed to write row for %s: %w", score.Model, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush results file: %w", err)
	}

	return path, nil
}
