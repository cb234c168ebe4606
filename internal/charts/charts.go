package charts

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"
	"go.uber.org/zap"

	"stockbench/internal/dataset"
)

const histogramBins = 12

// Renderer writes the four descriptive chart artifacts for a symbol into
// the output directory.
type Renderer struct {
	outDir string
	logger *zap.Logger
}

// NewRenderer creates a chart renderer rooted at dir.
func NewRenderer(dir string, logger *zap.Logger) *Renderer {
	return &Renderer{
		outDir: dir,
		logger: logger.Named("charts"),
	}
}

// RenderAll produces the price trend, volume distribution, returns
// distribution, and target distribution charts. It stops at the first
// failure; the caller decides what a chart failure means for the symbol.
func (r *Renderer) RenderAll(symbol string, tbl *dataset.Table) error {
	if err := os.MkdirAll(r.outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	steps := []struct {
		name   string
		render func(string, *dataset.Table) error
	}{
		{"price_trend", r.renderPriceTrend},
		{"volume_dist", r.renderVolumeDist},
		{"returns_dist", r.renderReturnsDist},
		{"target_dist", r.renderTargetDist},
	}

	for _, step := range steps {
		if err := step.render(symbol, tbl); err != nil {
			return fmt.Errorf("failed to render %s for %s: %w", step.name, symbol, err)
		}
		r.logger.Debug("Rendered chart",
			zap.String("symbol", symbol),
			zap.String("chart", step.name),
		)
	}

	return nil
}

func (r *Renderer) renderPriceTrend(symbol string, tbl *dataset.Table) error {
	graph := chart.Chart{
		Title:  fmt.Sprintf("%s Close Price", symbol),
		Width:  1024,
		Height: 512,
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Close",
				XValues: tbl.Dates,
				YValues: tbl.Closes(),
			},
		},
	}
	return r.save(symbol, "price_trend", graph.Render)
}

func (r *Renderer) renderVolumeDist(symbol string, tbl *dataset.Table) error {
	graph := chart.BarChart{
		Title:    fmt.Sprintf("%s Volume Distribution", symbol),
		Width:    1024,
		Height:   512,
		BarWidth: 48,
		Bars:     binValues(tbl.Volumes(), histogramBins),
	}
	return r.save(symbol, "volume_dist", graph.Render)
}

func (r *Renderer) renderReturnsDist(symbol string, tbl *dataset.Table) error {
	graph := chart.BarChart{
		Title:    fmt.Sprintf("%s Daily Returns Distribution", symbol),
		Width:    1024,
		Height:   512,
		BarWidth: 48,
		Bars:     binValues(tbl.Returns(), histogramBins),
	}
	return r.save(symbol, "returns_dist", graph.Render)
}

func (r *Renderer) renderTargetDist(symbol string, tbl *dataset.Table) error {
	up, down := tbl.ClassCounts()

	var values []chart.Value
	if up > 0 {
		values = append(values, chart.Value{Value: float64(up), Label: fmt.Sprintf("Up (%d)", up)})
	}
	if down > 0 {
		values = append(values, chart.Value{Value: float64(down), Label: fmt.Sprintf("Down (%d)", down)})
	}

	graph := chart.PieChart{
		Title:  fmt.Sprintf("%s Target Distribution", symbol),
		Width:  512,
		Height: 512,
		Values: values,
	}
	return r.save(symbol, "target_dist", graph.Render)
}

// save renders a chart as PNG under the deterministic {symbol}_{kind}.png name.
func (r *Renderer) save(symbol, kind string, render func(chart.RendererProvider, io.Writer) error) error {
	path := filepath.Join(r.outDir, fmt.Sprintf("%s_%s.png", symbol, kind))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return render(chart.PNG, f)
}

// binValues buckets values into equal-width bins labeled by bin center.
func binValues(values []float64, bins int) []chart.Value {
	if len(values) == 0 || bins < 1 {
		return nil
	}

	minV, maxV := values[0], values[0]
	for _, v := range values {
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	if minV == maxV {
		return []chart.Value{{Value: float64(len(values)), Label: formatBinLabel(minV)}}
	}

	width := (maxV - minV) / float64(bins)
	counts := make([]int, bins)
	for _, v := range values {
		b := int((v - minV) / width)
		if b >= bins {
			b = bins - 1 // max value lands in the last bin
		}
		counts[b]++
	}

	out := make([]chart.Value, bins)
	for b, count := range counts {
		center := minV + (float64(b)+0.5)*width
		out[b] = chart.Value{Value: float64(count), Label: formatBinLabel(center)}
	}
	return out
}

func formatBinLabel(v float64) string {
	return fmt.Sprintf("%.3g", v)
}
