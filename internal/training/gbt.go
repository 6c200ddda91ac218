package training

import (
	"math"
	"math/rand"
	"sort"
)

// GBTParams are the fixed gradient-boosting hyperparameters. They are
// configuration, not the output of a tuning loop.
type GBTParams struct {
	Estimators      int
	MaxDepth        int
	LearningRate    float64
	Subsample       float64
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            int64
}

// boostedEnsemble is a least-squares gradient-boosted tree regressor. Each
// stage fits a tree to the current residuals on a seeded row subsample with
// sqrt feature sampling, so identical seeds produce identical ensembles.
type boostedEnsemble struct {
	base       float64
	shrinkage  float64
	trees      []*treeNode
	importance []float64
}

func fitBoostedEnsemble(x [][]float64, y []float64, p GBTParams) *boostedEnsemble {
	n := len(y)
	nFeatures := len(x[0])
	rng := rand.New(rand.NewSource(p.Seed))

	maxFeatures := int(math.Sqrt(float64(nFeatures)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	tp := treeParams{
		maxDepth:        p.MaxDepth,
		minSamplesSplit: p.MinSamplesSplit,
		minSamplesLeaf:  p.MinSamplesLeaf,
		maxFeatures:     maxFeatures,
	}

	sampleSize := int(p.Subsample * float64(n))
	if sampleSize < 1 || sampleSize > n {
		sampleSize = n
	}

	ensemble := &boostedEnsemble{
		base:       mean(y),
		shrinkage:  p.LearningRate,
		trees:      make([]*treeNode, 0, p.Estimators),
		importance: make([]float64, nFeatures),
	}

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = ensemble.base
	}

	residual := make([]float64, n)
	for m := 0; m < p.Estimators; m++ {
		for i := 0; i < n; i++ {
			residual[i] = y[i] - pred[i]
		}

		idx := rng.Perm(n)[:sampleSize]
		sort.Ints(idx)

		tree := fitTree(x, residual, idx, 0, tp, rng, ensemble.importance)
		ensemble.trees = append(ensemble.trees, tree)

		for i := 0; i < n; i++ {
			pred[i] += ensemble.shrinkage * tree.predict(x[i])
		}
	}

	normalize(ensemble.importance)
	return ensemble
}

func (e *boostedEnsemble) predict(row []float64) float64 {
	out := e.base
	for _, tree := range e.trees {
		out += e.shrinkage * tree.predict(row)
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func normalize(values []float64) {
	total := 0.0
	for _, v := range values {
		total += v
	}
	if total <= 0 {
		return
	}
	for i := range values {
		values[i] /= total
	}
}
