package dataset

import (
	"errors"
	"math"
	"time"

	"stockbench/internal/marketdata"
)

// ErrInsufficientRows signals that the price history is too short to derive
// a single labeled sample. Callers treat it exactly like a no-data fetch.
var ErrInsufficientRows = errors.New("not enough rows to label")

// Feature column order for every classifier input row.
const (
	FeatureOpen = iota
	FeatureHigh
	FeatureLow
	FeatureClose
	FeatureVolume
	FeatureCount
)

// Table is a labeled daily price table. Row i of X holds the five OHLCV
// features for one day, Y[i] holds 1 when the next day's close was strictly
// higher and 0 otherwise. Dates stay aligned with the rows.
type Table struct {
	Dates []time.Time
	X     [][]float64
	Y     []int

	// DroppedRows counts input rows excluded for missing values.
	DroppedRows int
}

// Build derives the labeled table from raw candles. The final candle has no
// next day and is always dropped; rows with a missing OHLCV field are
// dropped and counted. A history shorter than two rows cannot produce any
// label and yields ErrInsufficientRows.
func Build(candles []marketdata.Candle) (*Table, error) {
	if len(candles) < 2 {
		return nil, ErrInsufficientRows
	}

	t := &Table{
		Dates: make([]time.Time, 0, len(candles)-1),
		X:     make([][]float64, 0, len(candles)-1),
		Y:     make([]int, 0, len(candles)-1),
	}

	for i := 0; i < len(candles)-1; i++ {
		row := featureRow(candles[i])
		if hasNaN(row) {
			t.DroppedRows++
			continue
		}

		target := 0
		// A NaN next close compares false, matching the unlabeled case.
		if candles[i+1].Close > candles[i].Close {
			target = 1
		}

		t.Dates = append(t.Dates, candles[i].Date)
		t.X = append(t.X, row)
		t.Y = append(t.Y, target)
	}

	if len(t.X) == 0 {
		return nil, ErrInsufficientRows
	}

	return t, nil
}

// Len returns the number of labeled rows.
func (t *Table) Len() int {
	return len(t.X)
}

// ClassCounts returns how many rows are labeled up (1) and down (0).
func (t *Table) ClassCounts() (up, down int) {
	for _, y := range t.Y {
		if y == 1 {
			up++
		} else {
			down++
		}
	}
	return up, down
}

// Closes returns the close column.
func (t *Table) Closes() []float64 {
	closes := make([]float64, t.Len())
	for i, row := range t.X {
		closes[i] = row[FeatureClose]
	}
	return closes
}

// Volumes returns the volume column.
func (t *Table) Volumes() []float64 {
	volumes := make([]float64, t.Len())
	for i, row := range t.X {
		volumes[i] = row[FeatureVolume]
	}
	return volumes
}

// Returns computes day-over-day close returns; length is Len()-1.
func (t *Table) Returns() []float64 {
	if t.Len() < 2 {
		return nil
	}
	closes := t.Closes()
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	return returns
}

// Split partitions the table by position, never shuffling: the training
// partition is the first floor(trainFrac*n) rows, the test partition the
// chronologically last remainder.
func (t *Table) Split(trainFrac float64) (train, test *Table) {
	n := t.Len()
	cut := int(float64(n) * trainFrac)
	if cut < 0 {
		cut = 0
	}
	if cut > n {
		cut = n
	}
	return t.slice(0, cut), t.slice(cut, n)
}

func (t *Table) slice(from, to int) *Table {
	return &Table{
		Dates: t.Dates[from:to],
		X:     t.X[from:to],
		Y:     t.Y[from:to],
	}
}

func featureRow(c marketdata.Candle) []float64 {
	return []float64{c.Open, c.High, c.Low, c.Close, c.Volume}
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
