package models

import (
	"time"

	"gorm.io/gorm"
)

// BenchmarkScore is one persisted model accuracy from a benchmark run.
// Rows accumulate across runs so score history per symbol can be compared.
type BenchmarkScore struct {
	gorm.Model
	Symbol    string    `gorm:"index" json:"symbol"`
	ModelName string    `gorm:"index" json:"model_name"`
	Accuracy  float64   `json:"accuracy"`
	Failed    bool      `json:"failed"`
	RunAt     time.Time `json:"run_at"`
}
