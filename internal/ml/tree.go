package ml

import (
	"math/rand"
	"sort"
)

// treeNode is a node of a regression tree fit by variance reduction. Both
// ensemble models share it: the forest averages trees fit on 0/1 labels,
// the booster fits trees to loss gradients.
type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

type treeParams struct {
	maxDepth int
	minLeaf  int
	// mtry is the number of features considered per split; 0 means all.
	mtry int
}

// growTree builds a tree over the rows selected by idx.
func growTree(x [][]float64, y []float64, idx []int, depth int, p treeParams, rng *rand.Rand) *treeNode {
	node := &treeNode{leaf: true, value: meanAt(y, idx)}

	minLeaf := p.minLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}
	if depth >= p.maxDepth || len(idx) < 2*minLeaf {
		return node
	}

	feature, threshold, ok := bestSplit(x, y, idx, minLeaf, p.mtry, rng)
	if !ok {
		return node
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < minLeaf || len(rightIdx) < minLeaf {
		return node
	}

	node.leaf = false
	node.feature = feature
	node.threshold = threshold
	node.left = growTree(x, y, leftIdx, depth+1, p, rng)
	node.right = growTree(x, y, rightIdx, depth+1, p, rng)
	return node
}

// bestSplit searches candidate features for the split maximizing the
// reduction in squared error, using prefix sums over rows sorted by the
// feature value.
func bestSplit(x [][]float64, y []float64, idx []int, minLeaf, mtry int, rng *rand.Rand) (feature int, threshold float64, ok bool) {
	n := len(idx)
	d := len(x[idx[0]])

	features := make([]int, d)
	for j := range features {
		features[j] = j
	}
	if mtry > 0 && mtry < d {
		rng.Shuffle(d, func(a, b int) {
			features[a], features[b] = features[b], features[a]
		})
		features = features[:mtry]
	}

	var total float64
	for _, i := range idx {
		total += y[i]
	}
	baseScore := total * total / float64(n)

	bestScore := baseScore + 1e-12
	sorted := make([]int, n)

	for _, f := range features {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool {
			return x[sorted[a]][f] < x[sorted[b]][f]
		})

		var leftSum float64
		for k := 1; k < n; k++ {
			leftSum += y[sorted[k-1]]

			prev, cur := x[sorted[k-1]][f], x[sorted[k]][f]
			if prev == cur {
				continue // cannot separate equal values
			}
			if k < minLeaf || n-k < minLeaf {
				continue
			}

			rightSum := total - leftSum
			score := leftSum*leftSum/float64(k) + rightSum*rightSum/float64(n-k)
			if score > bestScore {
				bestScore = score
				feature = f
				threshold = (prev + cur) / 2
				ok = true
			}
		}
	}

	return feature, threshold, ok
}

func predictTree(node *treeNode, row []float64) float64 {
	for !node.leaf {
		if row[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node.value
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}
