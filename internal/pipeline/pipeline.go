package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"stockbench/internal/benchmark"
	"stockbench/internal/charts"
	"stockbench/internal/config"
	"stockbench/internal/dataset"
	"stockbench/internal/export"
	"stockbench/internal/marketdata"
	"stockbench/internal/ml"
	"stockbench/internal/models"
)

// Engine runs the per-symbol benchmark pipeline: download, label, chart,
// benchmark, export, record. Symbols are processed strictly in configured
// order with no shared state between them; one symbol's failure only skips
// the remainder of that symbol's stages.
type Engine struct {
	logger   *zap.Logger
	cfg      *config.Config
	provider marketdata.HistoryProvider
	db       *gorm.DB
	renderer *charts.Renderer
	runner   *benchmark.Runner
}

// NewEngine creates a new pipeline engine.
func NewEngine(logger *zap.Logger, cfg *config.Config, provider marketdata.HistoryProvider, db *gorm.DB) *Engine {
	return &Engine{
		logger:   logger,
		cfg:      cfg,
		provider: provider,
		db:       db,
		renderer: charts.NewRenderer(cfg.Output.Dir, logger),
		runner:   benchmark.NewRunner(logger, cfg.Benchmark.TrainFraction),
	}
}

// Run processes every configured symbol in order. It returns an error only
// for configuration problems; per-symbol failures are logged and absorbed
// so the run always completes the full list.
func (e *Engine) Run(ctx context.Context) error {
	start, end, err := e.cfg.Benchmark.DateRange()
	if err != nil {
		return err
	}
	if len(e.cfg.Benchmark.Symbols) == 0 {
		return errors.New("no symbols configured")
	}

	e.logger.Info("Starting benchmark run",
		zap.Strings("symbols", e.cfg.Benchmark.Symbols),
		zap.String("start", e.cfg.Benchmark.StartDate),
		zap.String("end", e.cfg.Benchmark.EndDate),
	)

	for _, symbol := range e.cfg.Benchmark.Symbols {
		if err := ctx.Err(); err != nil {
			e.logger.Info("Run cancelled", zap.Error(err))
			return err
		}
		e.processSymbol(ctx, symbol, start, end)
	}

	e.logger.Info("Benchmark run complete")
	return nil
}

func (e *Engine) processSymbol(ctx context.Context, symbol string, start, end time.Time) {
	l := e.logger.With(zap.String("symbol", symbol))

	l.Info("Downloading daily history")
	candles, err := e.provider.DailyHistory(ctx, symbol, start, end)
	if err != nil {
		if errors.Is(err, marketdata.ErrNoData) {
			l.Warn("No data available, skipping symbol")
		} else {
			l.Warn("Download failed, skipping symbol", zap.Error(err))
		}
		return
	}

	tbl, err := dataset.Build(candles)
	if err != nil {
		if errors.Is(err, dataset.ErrInsufficientRows) {
			l.Warn("Not enough rows to label, skipping symbol",
				zap.Int("candles", len(candles)))
		} else {
			l.Warn("Labeling failed, skipping symbol", zap.Error(err))
		}
		return
	}

	up, down := tbl.ClassCounts()
	l.Info("Labeled price table",
		zap.Int("rows", tbl.Len()),
		zap.Int("dropped_rows", tbl.DroppedRows),
		zap.Int("target_up", up),
		zap.Int("target_down", down),
	)

	if err := e.renderer.RenderAll(symbol, tbl); err != nil {
		l.Error("Chart rendering failed, aborting remaining stages for symbol", zap.Error(err))
		return
	}
	l.Info("Rendered chart artifacts", zap.String("dir", e.cfg.Output.Dir))

	classifiers := ml.NewClassifiers(&e.cfg.Benchmark.Models, e.cfg.Benchmark.Seed)
	scores := e.runner.Run(symbol, tbl, classifiers)

	path, err := export.WriteModelResults(e.cfg.Output.Dir, symbol, scores)
	if err != nil {
		l.Error("Failed to write model results, aborting remaining stages for symbol", zap.Error(err))
		return
	}
	l.Info("Wrote model results", zap.String("path", path))

	e.recordScores(l, symbol, scores)
}

// recordScores appends the run's scores to the history database. A write
// failure is logged and absorbed; the exported CSV is the primary artifact.
func (e *Engine) recordScores(l *zap.Logger, symbol string, scores []benchmark.Score) {
	if e.db == nil {
		return
	}

	runAt := time.Now().UTC()
	for _, score := range scores {
		record := models.BenchmarkScore{
			Symbol:    symbol,
			ModelName: score.Model,
			Accuracy:  score.Accuracy,
			Failed:    score.Failed(),
			RunAt:     runAt,
		}
		if err := e.db.Create(&record).Error; err != nil {
			l.Error("Failed to save benchmark score",
				zap.String("model", score.Model), zap.Error(err))
			return
		}
	}
	l.Info("Recorded scores in run history", zap.Int("count", len(scores)))
}
