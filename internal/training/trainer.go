package training

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/foodcaststack/surpluscast/internal/features"
	"github.com/foodcaststack/surpluscast/internal/models"
	"github.com/foodcaststack/surpluscast/internal/utils"
)

// Config bundles the trainer's fixed settings.
type Config struct {
	GBT             GBTParams
	Folds           int
	TopK            int
	MinRows         int
	HoldoutFraction float64
}

// Trainer selects a bounded feature subset, fits the boosted ensemble under
// time-respecting cross-validation, and reports accuracy metrics.
type Trainer struct {
	logger *slog.Logger
	cfg    Config
}

// NewTrainer constructs a Trainer.
func NewTrainer(logger *slog.Logger, cfg Config) *Trainer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Folds <= 0 {
		cfg.Folds = 3
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 12
	}
	if cfg.MinRows <= 0 {
		cfg.MinRows = 50
	}
	if cfg.HoldoutFraction <= 0 || cfg.HoldoutFraction >= 1 {
		cfg.HoldoutFraction = 0.2
	}
	return &Trainer{logger: logger, cfg: cfg}
}

// Train fits the production model. Cross-validation folds are strictly
// chronological: every validation slice starts after its training slice
// ends. The production model is the refit on the complete dataset; the
// chronological last-20% holdout exists purely for the reported R2/MAE.
func (t *Trainer) Train(rows []models.FeatureRow) (*Model, error) {
	n := len(rows)
	if n < t.cfg.MinRows {
		return nil, &utils.InsufficientDataError{Rows: n, Min: t.cfg.MinRows}
	}

	ordered := make([]models.FeatureRow, n)
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Obs.Date.Before(ordered[j].Obs.Date)
	})

	y := make([]float64, n)
	for i, row := range ordered {
		y[i] = row.Target
	}
	if !hasVariance(y) {
		return nil, &utils.InsufficientDataError{Rows: n, Reason: "target column has a single value"}
	}

	selected := SelectTopK(ordered, features.ColumnNames(), t.cfg.TopK)
	x := buildMatrix(ordered, selected)

	foldR2 := t.crossValidate(x, y)
	ensemble := fitBoostedEnsemble(x, y, t.cfg.GBT)

	split := int(float64(n) * (1 - t.cfg.HoldoutFraction))
	if split <= 0 || split >= n {
		split = n - 1
	}
	holdoutPred := make([]float64, n-split)
	holdoutTrue := make([]float64, n-split)
	for i := split; i < n; i++ {
		holdoutPred[i-split] = ensemble.predict(x[i])
		holdoutTrue[i-split] = y[i]
	}

	metrics := models.TrainingMetrics{
		R2:                rSquared(holdoutTrue, holdoutPred),
		MAE:               meanAbsoluteError(holdoutTrue, holdoutPred),
		FoldR2:            foldR2,
		FeatureImportance: importanceMap(selected, ensemble.importance),
	}
	if len(foldR2) > 0 {
		metrics.CVMean = stat.Mean(foldR2, nil)
		metrics.CVStd = stat.PopStdDev(foldR2, nil)
	}

	t.logger.Info("model trained",
		slog.Int("rows", n),
		slog.Int("selected_features", len(selected)),
		slog.Float64("r2", metrics.R2),
		slog.Float64("mae", metrics.MAE),
		slog.Float64("cv_mean", metrics.CVMean))

	return &Model{features: selected, ensemble: ensemble, metrics: metrics}, nil
}

// crossValidate evaluates expanding-window folds: fold k trains on the first
// part of the series and validates on the next contiguous slice.
func (t *Trainer) crossValidate(x [][]float64, y []float64) []float64 {
	n := len(y)
	testSize := n / (t.cfg.Folds + 1)
	if testSize == 0 {
		return nil
	}

	scores := make([]float64, 0, t.cfg.Folds)
	for fold := 0; fold < t.cfg.Folds; fold++ {
		trainEnd := n - (t.cfg.Folds-fold)*testSize
		testEnd := trainEnd + testSize
		if trainEnd < 2 {
			continue
		}

		ensemble := fitBoostedEnsemble(x[:trainEnd], y[:trainEnd], t.cfg.GBT)
		pred := make([]float64, testEnd-trainEnd)
		for i := trainEnd; i < testEnd; i++ {
			pred[i-trainEnd] = ensemble.predict(x[i])
		}
		scores = append(scores, rSquared(y[trainEnd:testEnd], pred))
	}
	return scores
}

func buildMatrix(rows []models.FeatureRow, columns []string) [][]float64 {
	x := make([][]float64, len(rows))
	for i, row := range rows {
		vec := make([]float64, len(columns))
		for j, name := range columns {
			v := row.Values[name]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			vec[j] = v
		}
		x[i] = vec
	}
	return x
}

func importanceMap(columns []string, importance []float64) map[string]float64 {
	out := make(map[string]float64, len(columns))
	for i, name := range columns {
		out[name] = importance[i]
	}
	return out
}

func hasVariance(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return true
		}
	}
	return false
}

func rSquared(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	m := mean(actual)
	var ssRes, ssTot float64
	for i := range actual {
		ssRes += (actual[i] - predicted[i]) * (actual[i] - predicted[i])
		ssTot += (actual[i] - m) * (actual[i] - m)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

func meanAbsoluteError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	sum := 0.0
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}
