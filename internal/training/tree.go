package training

import (
	"math/rand"
	"sort"
)

const minGain = 1e-12

type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// fitTree grows a variance-reduction regression tree over the rows in idx.
// Split gains are accumulated into importance by feature index.
func fitTree(x [][]float64, y []float64, idx []int, depth int, p treeParams, rng *rand.Rand, importance []float64) *treeNode {
	node := &treeNode{leaf: true, value: meanAt(y, idx)}
	if depth >= p.maxDepth || len(idx) < p.minSamplesSplit || len(idx) < 2*p.minSamplesLeaf {
		return node
	}

	nFeatures := len(x[0])
	candidates := rng.Perm(nFeatures)
	if p.maxFeatures < len(candidates) {
		candidates = candidates[:p.maxFeatures]
	}
	sort.Ints(candidates)

	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0
	parentSS := sumSquaresAt(y, idx)

	order := make([]int, len(idx))
	for _, f := range candidates {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool { return x[order[a]][f] < x[order[b]][f] })

		var leftSum, leftSq float64
		totalSum, totalSq := sumsAt(y, idx)
		for pos := 0; pos < len(order)-1; pos++ {
			v := y[order[pos]]
			leftSum += v
			leftSq += v * v

			nL := pos + 1
			nR := len(order) - nL
			if nL < p.minSamplesLeaf || nR < p.minSamplesLeaf {
				continue
			}
			// No valid threshold between equal feature values.
			if x[order[pos]][f] == x[order[pos+1]][f] {
				continue
			}

			leftSS := leftSq - leftSum*leftSum/float64(nL)
			rightSum := totalSum - leftSum
			rightSS := (totalSq - leftSq) - rightSum*rightSum/float64(nR)
			gain := parentSS - leftSS - rightSS
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (x[order[pos]][f] + x[order[pos+1]][f]) / 2
			}
		}
	}

	if bestFeature < 0 || bestGain <= minGain {
		return node
	}
	importance[bestFeature] += bestGain

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if x[i][bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.leaf = false
	node.feature = bestFeature
	node.threshold = bestThreshold
	node.left = fitTree(x, y, left, depth+1, p, rng, importance)
	node.right = fitTree(x, y, right, depth+1, p, rng, importance)
	return node
}

func (n *treeNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

func sumsAt(y []float64, idx []int) (sum, sq float64) {
	for _, i := range idx {
		sum += y[i]
		sq += y[i] * y[i]
	}
	return sum, sq
}

func sumSquaresAt(y []float64, idx []int) float64 {
	sum, sq := sumsAt(y, idx)
	return sq - sum*sum/float64(len(idx))
}
