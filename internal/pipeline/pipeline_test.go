package pipeline

import (
	"context"
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"stockbench/internal/config"
	"stockbench/internal/database"
	"stockbench/internal/marketdata"
	"stockbench/internal/ml"
	"stockbench/internal/models"
)

// stubProvider serves canned histories; unknown symbols behave like a
// provider with no data.
type stubProvider struct {
	data  map[string][]marketdata.Candle
	calls []string
}

func (s *stubProvider) DailyHistory(ctx context.Context, symbol string, start, end time.Time) ([]marketdata.Candle, error) {
	s.calls = append(s.calls, symbol)
	candles, ok := s.data[symbol]
	if !ok || len(candles) == 0 {
		return nil, marketdata.ErrNoData
	}
	return candles, nil
}

// randomWalk builds n sequential daily candles starting 2023-01-01.
func randomWalk(n int, seed int64) []marketdata.Candle {
	rng := rand.New(rand.NewSource(seed))
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]marketdata.Candle, n)
	price := 100.0
	for i := range candles {
		move := rng.NormFloat64()
		candles[i] = marketdata.Candle{
			Date:   base.AddDate(0, 0, i),
			Open:   price,
			High:   price + 1.5,
			Low:    price - 1.5,
			Close:  price + move,
			Volume: 1e6 + 1e4*rng.Float64(),
		}
		price += move
	}
	return candles
}

func testConfig(t *testing.T, symbols []string) *config.Config {
	t.Helper()
	return &config.Config{
		Benchmark: config.Benchmark{
			Symbols:       symbols,
			StartDate:     "2023-01-01",
			EndDate:       "2023-12-31",
			TrainFraction: 0.8,
			Seed:          42,
			Models: config.Models{
				Logistic:         config.Logistic{LearningRate: 0.1, Epochs: 100, L2: 0.001},
				RandomForest:     config.RandomForest{Trees: 10, MaxDepth: 4, MinLeaf: 2},
				SVM:              config.SVM{Lambda: 0.01, Epochs: 20},
				GradientBoosting: config.GradientBoosting{Trees: 10, LearningRate: 0.1, MaxDepth: 2, Subsample: 0.8},
			},
		},
		Output: config.Output{Dir: t.TempDir()},
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	return db
}

func artifactNames(symbol string) []string {
	return []string{
		symbol + "_price_trend.png",
		symbol + "_volume_dist.png",
		symbol + "_returns_dist.png",
		symbol + "_target_dist.png",
		symbol + "_model_results.csv",
	}
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t, []string{"GOOD.US"})
	provider := &stubProvider{data: map[string][]marketdata.Candle{
		"GOOD.US": randomWalk(300, 1),
	}}
	db := openTestDB(t)

	engine := NewEngine(zap.NewNop(), cfg, provider, db)
	require.NoError(t, engine.Run(context.Background()))

	// All five artifacts exist.
	for _, name := range artifactNames("GOOD.US") {
		_, err := os.Stat(filepath.Join(cfg.Output.Dir, name))
		assert.NoError(t, err, "expected artifact %s", name)
	}

	// The export has the header plus exactly one row per model.
	f, err := os.Open(filepath.Join(cfg.Output.Dir, "GOOD.US_model_results.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(ml.ModelNames)+1)
	for i, name := range ml.ModelNames {
		assert.Equal(t, name, records[i+1][0])
	}

	// Run history captured one row per model.
	var count int64
	require.NoError(t, db.Model(&models.BenchmarkScore{}).Where("symbol = ?", "GOOD.US").Count(&count).Error)
	assert.Equal(t, int64(len(ml.ModelNames)), count)
}

func TestRunSkipsNoDataAndContinues(t *testing.T) {
	cfg := testConfig(t, []string{"EMPTY.US", "GOOD.US"})
	provider := &stubProvider{data: map[string][]marketdata.Candle{
		"GOOD.US": randomWalk(120, 2),
	}}
	db := openTestDB(t)

	engine := NewEngine(zap.NewNop(), cfg, provider, db)
	require.NoError(t, engine.Run(context.Background()))

	// Both symbols were attempted, in order.
	assert.Equal(t, []string{"EMPTY.US", "GOOD.US"}, provider.calls)

	// The empty symbol left no artifacts behind.
	for _, name := range artifactNames("EMPTY.US") {
		_, err := os.Stat(filepath.Join(cfg.Output.Dir, name))
		assert.True(t, os.IsNotExist(err), "unexpected artifact %s", name)
	}

	// The later symbol still produced everything.
	for _, name := range artifactNames("GOOD.US") {
		_, err := os.Stat(filepath.Join(cfg.Output.Dir, name))
		assert.NoError(t, err, "expected artifact %s", name)
	}

	var count int64
	require.NoError(t, db.Model(&models.BenchmarkScore{}).Where("symbol = ?", "EMPTY.US").Count(&count).Error)
	assert.Zero(t, count)
}

func TestRunSkipsInsufficientHistory(t *testing.T) {
	cfg := testConfig(t, []string{"SHORT.US"})
	provider := &stubProvider{data: map[string][]marketdata.Candle{
		"SHORT.US": randomWalk(1, 3),
	}}

	engine := NewEngine(zap.NewNop(), cfg, provider, openTestDB(t))
	require.NoError(t, engine.Run(context.Background()))

	entries, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunConfigValidation(t *testing.T) {
	t.Run("BadDates", func(t *testing.T) {
		cfg := testConfig(t, []string{"GOOD.US"})
		cfg.Benchmark.StartDate = "not-a-date"

		engine := NewEngine(zap.NewNop(), cfg, &stubProvider{}, nil)
		assert.Error(t, engine.Run(context.Background()))
	})

	t.Run("NoSymbols", func(t *testing.T) {
		cfg := testConfig(t, nil)
		engine := NewEngine(zap.NewNop(), cfg, &stubProvider{}, nil)
		assert.Error(t, engine.Run(context.Background()))
	})
}

func TestRunHonorsCancellation(t *testing.T) {
	cfg := testConfig(t, []string{"A.US", "B.US"})
	provider := &stubProvider{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(zap.NewNop(), cfg, provider, nil)
	err := engine.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, provider.calls)
}

func TestArtifactNamingIsDeterministic(t *testing.T) {
	// Same table, same config: repeated runs rewrite the same file set.
	cfg := testConfig(t, []string{"GOOD.US"})
	provider := &stubProvider{data: map[string][]marketdata.Candle{
		"GOOD.US": randomWalk(90, 4),
	}}
	engine := NewEngine(zap.NewNop(), cfg, provider, nil)

	require.NoError(t, engine.Run(context.Background()))
	first, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)

	require.NoError(t, engine.Run(context.Background()))
	second, err := os.ReadDir(cfg.Output.Dir)
	require.NoError(t, err)

	assert.Equal(t, names(first), names(second))
	assert.Len(t, second, 5)
}

func names(entries []os.DirEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name()
	}
	return out
}
