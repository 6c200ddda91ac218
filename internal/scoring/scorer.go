package scoring

import (
	"log/slog"
	"math"
	"sort"

	"github.com/foodcaststack/surpluscast/internal/models"
)

// Predictor is the read-only model surface the scorer depends on.
type Predictor interface {
	Predict(values map[string]float64) (float64, error)
}

// Scorer runs the fitted model over feature rows and derives the
// decision-support fields. It holds no state across calls and treats the
// model as a read-only artifact.
type Scorer struct {
	logger       *slog.Logger
	minSurplus   float64
	mealsPerUnit float64
}

// NewScorer constructs a Scorer. minSurplus bounds actionability: forecasts
// at or below it are excluded from output.
func NewScorer(logger *slog.Logger, minSurplus, mealsPerUnit float64) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	if mealsPerUnit <= 0 {
		mealsPerUnit = 2
	}
	return &Scorer{logger: logger, minSurplus: minSurplus, mealsPerUnit: mealsPerUnit}
}

// Score predicts surplus for every row and derives urgency, nutrition,
// confidence, priority, and impact. Output is ordered by descending urgency,
// ties broken by descending predicted surplus.
func (s *Scorer) Score(model Predictor, rows []models.FeatureRow) ([]models.ScoredPrediction, error) {
	predictions := make([]models.ScoredPrediction, 0, len(rows))
	skipped := 0

	for _, row := range rows {
		surplus, err := model.Predict(row.Values)
		if err != nil {
			return nil, err
		}
		if surplus <= s.minSurplus {
			skipped++
			continue
		}

		o := row.Obs
		urgency := urgencyScore(surplus, o.ShelfLifeDays, o.BrainDiet)
		nutrition := nutritionalValue(o.BrainDiet, o.ShelfLifeDays)

		predictions = append(predictions, models.ScoredPrediction{
			StoreID:          o.StoreID,
			ProductID:        o.ProductID,
			ProductName:      o.ProductName,
			Category:         o.Category,
			StoreLocation:    o.StoreLocation,
			Date:             o.Date,
			PredictedSurplus: surplus,
			EstimatedMeals:   int(math.Floor(surplus * s.mealsPerUnit)),
			UrgencyScore:     urgency,
			NutritionalValue: nutrition,
			Confidence:       confidenceLevel(surplus),
			Priority:         priorityLevel(urgency),
			ImpactScore:      impactScore(surplus, nutrition),
			ShelfLifeDays:    o.ShelfLifeDays,
			ExpiryDate:       o.Date.AddDate(0, 0, o.ShelfLifeDays),
			Price:            o.Price,
			BrainDiet:        o.BrainDiet,
		})
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		if predictions[i].UrgencyScore != predictions[j].UrgencyScore {
			return predictions[i].UrgencyScore > predictions[j].UrgencyScore
		}
		return predictions[i].PredictedSurplus > predictions[j].PredictedSurplus
	})

	s.logger.Debug("scoring complete",
		slog.Int("actionable", len(predictions)),
		slog.Int("below_threshold", skipped))
	return predictions, nil
}

// urgencyScore combines shelf-life risk, surplus magnitude, and a brain-diet
// bonus. Theoretical range is [2, 22]; in practice most rows land between 5
// and 17 because the top tiers of both tables rarely coincide.
func urgencyScore(surplus float64, shelfLifeDays int, brainDiet bool) int {
	score := shelfLifeTier(shelfLifeDays) + surplusTier(surplus)
	if brainDiet {
		score += 2
	}
	return score
}

func shelfLifeTier(days int) int {
	switch {
	case days <= 2:
		return 10
	case days <= 5:
		return 7
	case days <= 10:
		return 4
	default:
		return 1
	}
}

func surplusTier(surplus float64) int {
	switch {
	case surplus > 100:
		return 10
	case surplus > 50:
		return 7
	case surplus > 20:
		return 4
	default:
		return 1
	}
}

func nutritionalValue(brainDiet bool, shelfLifeDays int) int {
	value := 5
	if brainDiet {
		value = 8
	}
	if shelfLifeDays <= 3 {
		value += 2
	}
	return value
}

func confidenceLevel(surplus float64) models.Confidence {
	switch {
	case surplus > 100:
		return models.ConfidenceHigh
	case surplus > 50:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func priorityLevel(urgency int) models.Priority {
	switch {
	case urgency >= 15:
		return models.PriorityCritical
	case urgency >= 10:
		return models.PriorityHigh
	case urgency >= 7:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func impactScore(surplus float64, nutrition int) float64 {
	return math.Round((surplus*0.1+float64(nutrition)*2)*10) / 10
}
