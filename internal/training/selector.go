package training

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/foodcaststack/surpluscast/internal/models"
)

// SelectTopK ranks columns by univariate F-statistic relevance to the target
// and returns the top k names. Ties and the final order are stable with
// respect to the incoming column order, which keeps selection deterministic.
func SelectTopK(rows []models.FeatureRow, columns []string, k int) []string {
	if k <= 0 || len(rows) == 0 {
		return nil
	}
	if k > len(columns) {
		k = len(columns)
	}

	y := make([]float64, len(rows))
	for i, row := range rows {
		y[i] = row.Target
	}

	type scored struct {
		name  string
		order int
		f     float64
	}
	scores := make([]scored, 0, len(columns))
	x := make([]float64, len(rows))
	for order, name := range columns {
		for i, row := range rows {
			x[i] = row.Values[name]
		}
		scores = append(scores, scored{name: name, order: order, f: fStatistic(x, y)})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].f != scores[j].f {
			return scores[i].f > scores[j].f
		}
		return scores[i].order < scores[j].order
	})

	selected := make([]string, 0, k)
	for _, s := range scores[:k] {
		selected = append(selected, s.name)
	}
	// Preserve schema order within the selected set so the model's feature
	// vector layout is independent of score ties.
	ranking := make(map[string]int, len(columns))
	for i, name := range columns {
		ranking[name] = i
	}
	sort.Slice(selected, func(i, j int) bool {
		return ranking[selected[i]] < ranking[selected[j]]
	})
	return selected
}

// fStatistic is the univariate regression F-score: r^2 (n-2) / (1 - r^2).
// Constant columns score zero.
func fStatistic(x, y []float64) float64 {
	n := len(x)
	if n < 3 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	r2 := r * r
	if r2 >= 1 {
		return math.MaxFloat64
	}
	return r2 * float64(n-2) / (1 - r2)
}
