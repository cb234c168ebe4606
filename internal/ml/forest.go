package ml

import (
	"errors"
	"math"
	"math/rand"

	"stockbench/internal/config"
)

// RandomForest is a bagged ensemble of regression trees over 0/1 labels,
// classifying by the averaged vote. A fresh seeded source is created on
// every Fit so runs with the same seed are reproducible.
type RandomForest struct {
	cfg   config.RandomForest
	seed  int64
	trees []*treeNode
}

var _ Classifier = (*RandomForest)(nil)

// NewRandomForest creates an untrained forest with the given hyperparameters.
func NewRandomForest(cfg config.RandomForest, seed int64) *RandomForest {
	return &RandomForest{cfg: cfg, seed: seed}
}

func (m *RandomForest) Name() string {
	return ModelRandomForest
}

func (m *RandomForest) Fit(x [][]float64, y []int) error {
	n := len(x)
	if n == 0 {
		return errors.New("random forest: empty training set")
	}
	if m.cfg.Trees < 1 {
		return errors.New("random forest: trees must be positive")
	}

	rng := rand.New(rand.NewSource(m.seed))
	d := len(x[0])
	mtry := int(math.Sqrt(float64(d)))
	if mtry < 1 {
		mtry = 1
	}

	yf := make([]float64, n)
	for i, label := range y {
		yf[i] = float64(label)
	}

	params := treeParams{
		maxDepth: m.cfg.MaxDepth,
		minLeaf:  m.cfg.MinLeaf,
		mtry:     mtry,
	}

	m.trees = make([]*treeNode, 0, m.cfg.Trees)
	idx := make([]int, n)
	for t := 0; t < m.cfg.Trees; t++ {
		// Bootstrap sample: n draws with replacement.
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		m.trees = append(m.trees, growTree(x, yf, idx, 0, params, rng))
	}

	return nil
}

func (m *RandomForest) Predict(row []float64) int {
	var sum float64
	for _, tree := range m.trees {
		sum += predictTree(tree, row)
	}
	if sum/float64(len(m.trees)) >= 0.5 {
		return 1
	}
	return 0
}
