package ml

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes feature columns to zero mean and unit variance using
// statistics from the training partition only, so no test information
// leaks into a fit.
type Scaler struct {
	mean []float64
	std  []float64
}

// FitScaler computes per-column mean and standard deviation of x.
func FitScaler(x [][]float64) *Scaler {
	if len(x) == 0 {
		return &Scaler{}
	}

	cols := len(x[0])
	s := &Scaler{
		mean: make([]float64, cols),
		std:  make([]float64, cols),
	}

	col := make([]float64, len(x))
	for j := 0; j < cols; j++ {
		for i, row := range x {
			col[i] = row[j]
		}
		mean, std := stat.MeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1 // constant column, leave values centered only
		}
		s.mean[j] = mean
		s.std[j] = std
	}

	return s
}

// Transform returns standardized copies of the given rows.
func (s *Scaler) Transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = s.TransformRow(row)
	}
	return out
}

// TransformRow standardizes a single row.
func (s *Scaler) TransformRow(row []float64) []float64 {
	if len(s.mean) == 0 {
		return append([]float64(nil), row...)
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.mean[j]) / s.std[j]
	}
	return out
}
