package recipients

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/foodcaststack/surpluscast/internal/models"
)

// Rule matches scored predictions to one recipient cohort.
type Rule struct {
	ID     string    `yaml:"id"`
	Cohort string    `yaml:"cohort"`
	Match  RuleMatch `yaml:"match"`
}

// RuleMatch defines optional prediction attributes for rule matching. Empty
// fields match everything.
type RuleMatch struct {
	BrainDietOnly       bool     `yaml:"brain_diet_only"`
	Categories          []string `yaml:"categories"`
	MaxShelfLifeDays    int      `yaml:"max_shelf_life_days"`
	MinNutritionalValue int      `yaml:"min_nutritional_value"`
}

// RuleConfigFile is the YAML root structure.
type RuleConfigFile struct {
	Rules []Rule `yaml:"rules"`
}

// RuleEngine assigns scored predictions to recipient cohorts by preference.
type RuleEngine struct {
	rules  []Rule
	logger *slog.Logger
}

// NewRuleEngine loads rules from the provided path. If path is empty or the
// file does not exist, returns a nil engine and the filter is skipped.
func NewRuleEngine(path string, logger *slog.Logger) (*RuleEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg RuleConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleEngine{rules: cfg.Rules, logger: logger}, nil
}

// Assign buckets predictions into cohorts. A prediction may land in multiple
// cohorts; predictions matching no rule are omitted.
func (e *RuleEngine) Assign(predictions []models.ScoredPrediction) map[string][]models.ScoredPrediction {
	if e == nil || len(e.rules) == 0 {
		return nil
	}

	cohorts := make(map[string][]models.ScoredPrediction)
	for _, pred := range predictions {
		for _, rule := range e.rules {
			if ruleMatches(rule.Match, pred) {
				cohorts[rule.Cohort] = append(cohorts[rule.Cohort], pred)
			}
		}
	}
	return cohorts
}

// Counts returns per-cohort match counts for the run report.
func (e *RuleEngine) Counts(predictions []models.ScoredPrediction) map[string]int {
	cohorts := e.Assign(predictions)
	if cohorts == nil {
		return nil
	}
	counts := make(map[string]int, len(cohorts))
	for cohort, preds := range cohorts {
		counts[cohort] = len(preds)
	}
	return counts
}

func ruleMatches(m RuleMatch, pred models.ScoredPrediction) bool {
	if m.BrainDietOnly && !pred.BrainDiet {
		return false
	}
	if len(m.Categories) > 0 && !categoryMatches(m.Categories, pred.Category) {
		return false
	}
	if m.MaxShelfLifeDays > 0 && pred.ShelfLifeDays > m.MaxShelfLifeDays {
		return false
	}
	if m.MinNutritionalValue > 0 && pred.NutritionalValue < m.MinNutritionalValue {
		return false
	}
	return true
}

func categoryMatches(categories []string, category string) bool {
	for _, c := range categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}
