package ml

import (
	"errors"
	"math"
	"math/rand"

	"stockbench/internal/config"
)

// GradientBoosting is a boosted ensemble of shallow regression trees fit to
// the gradient of the logistic loss. Row subsampling per stage makes it
// stochastic; a fresh seeded source per Fit keeps runs reproducible.
type GradientBoosting struct {
	cfg   config.GradientBoosting
	seed  int64
	bias  float64
	trees []*treeNode
}

var _ Classifier = (*GradientBoosting)(nil)

// NewGradientBoosting creates an untrained model with the given hyperparameters.
func NewGradientBoosting(cfg config.GradientBoosting, seed int64) *GradientBoosting {
	return &GradientBoosting{cfg: cfg, seed: seed}
}

func (m *GradientBoosting) Name() string {
	return ModelGradientBoosting
}

func (m *GradientBoosting) Fit(x [][]float64, y []int) error {
	n := len(x)
	if n == 0 {
		return errors.New("gradient boosting: empty training set")
	}
	if m.cfg.Trees < 1 {
		return errors.New("gradient boosting: trees must be positive")
	}

	rng := rand.New(rand.NewSource(m.seed))

	// Initial raw score is the log-odds of the positive class, clamped so a
	// single-class partition stays finite.
	var positives float64
	for _, label := range y {
		positives += float64(label)
	}
	p := positives / float64(n)
	p = math.Min(math.Max(p, 1e-6), 1-1e-6)
	m.bias = math.Log(p / (1 - p))

	scores := make([]float64, n)
	for i := range scores {
		scores[i] = m.bias
	}

	sampleSize := int(m.cfg.Subsample * float64(n))
	if sampleSize < 1 || sampleSize > n {
		sampleSize = n
	}

	params := treeParams{maxDepth: m.cfg.MaxDepth, minLeaf: 1}
	residual := make([]float64, n)
	m.trees = make([]*treeNode, 0, m.cfg.Trees)

	for t := 0; t < m.cfg.Trees; t++ {
		for i := range residual {
			residual[i] = float64(y[i]) - sigmoid(scores[i])
		}

		idx := rng.Perm(n)[:sampleSize]
		tree := growTree(x, residual, idx, 0, params, rng)
		m.trees = append(m.trees, tree)

		for i, row := range x {
			scores[i] += m.cfg.LearningRate * predictTree(tree, row)
		}
	}

	return nil
}

func (m *GradientBoosting) Predict(row []float64) int {
	z := m.bias
	for _, tree := range m.trees {
		z += m.cfg.LearningRate * predictTree(tree, row)
	}
	if sigmoid(z) >= 0.5 {
		return 1
	}
	return 0
}
