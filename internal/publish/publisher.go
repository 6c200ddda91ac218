package publish

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/goccy/go-json"

	"github.com/foodcaststack/surpluscast/internal/models"
	"github.com/foodcaststack/surpluscast/internal/utils"
)

// Record is the externally-consumed prediction schema. Numeric fields that
// can carry a non-finite value are pointers so coercion to null stays valid
// JSON.
type Record struct {
	StoreID          string   `json:"store_id"`
	ProductID        string   `json:"product_id"`
	ProductName      string   `json:"product_name"`
	Category         string   `json:"category"`
	PredictedSurplus *float64 `json:"predicted_surplus"`
	EstimatedMeals   int      `json:"estimated_meals"`
	UrgencyScore     int      `json:"urgency_score"`
	NutritionalValue int      `json:"nutritional_value"`
	Confidence       string   `json:"confidence"`
	ShelfLifeDays    int      `json:"shelf_life_days"`
	ExpiryDate       *string  `json:"expiry_date"`
	Price            *float64 `json:"price"`
	BrainDietFlag    bool     `json:"brain_diet_flag"`
	StoreLocation    *string  `json:"store_location"`
	Date             *string  `json:"date"`
	PriorityLevel    string   `json:"priority_level"`
	ImpactScore      *float64 `json:"impact_score"`
}

// Publisher serializes scored predictions to the prediction record contract.
type Publisher struct {
	logger *slog.Logger
	indent bool
}

// NewPublisher constructs a Publisher.
func NewPublisher(logger *slog.Logger, indent bool) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{logger: logger, indent: indent}
}

// Publish writes the record array to w. Non-finite numerics are coerced to
// null with a logged warning rather than aborting the batch; the returned
// warning count surfaces the condition in run metadata.
func (p *Publisher) Publish(w io.Writer, predictions []models.ScoredPrediction) (published, warnings int, err error) {
	records := make([]Record, 0, len(predictions))
	for _, pred := range predictions {
		record, n := p.toRecord(pred)
		warnings += n
		records = append(records, record)
	}

	var data []byte
	if p.indent {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return 0, warnings, utils.NewAppError("publish.Publish", "encode records", err)
	}
	if _, err := w.Write(data); err != nil {
		return 0, warnings, utils.NewAppError("publish.Publish", "write records", err)
	}
	return len(records), warnings, nil
}

// PublishFile writes the record array to path, creating or truncating it.
func (p *Publisher) PublishFile(path string, predictions []models.ScoredPrediction) (int, int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, 0, utils.NewAppError("publish.PublishFile", "create "+path, err)
	}
	defer f.Close()
	return p.Publish(f, predictions)
}

func (p *Publisher) toRecord(pred models.ScoredPrediction) (Record, int) {
	warnings := 0
	record := Record{
		StoreID:          pred.StoreID,
		ProductID:        pred.ProductID,
		ProductName:      pred.ProductName,
		Category:         pred.Category,
		EstimatedMeals:   pred.EstimatedMeals,
		UrgencyScore:     pred.UrgencyScore,
		NutritionalValue: pred.NutritionalValue,
		Confidence:       string(pred.Confidence),
		ShelfLifeDays:    pred.ShelfLifeDays,
		BrainDietFlag:    pred.BrainDiet,
		PriorityLevel:    string(pred.Priority),
	}

	record.PredictedSurplus = p.finiteOrNull("predicted_surplus", pred, round2(pred.PredictedSurplus), &warnings)
	record.Price = p.finiteOrNull("price", pred, round2(pred.Price), &warnings)
	record.ImpactScore = p.finiteOrNull("impact_score", pred, round1(pred.ImpactScore), &warnings)

	if !pred.ExpiryDate.IsZero() {
		s := utils.FormatDate(pred.ExpiryDate)
		record.ExpiryDate = &s
	}
	if !pred.Date.IsZero() {
		s := utils.FormatDate(pred.Date)
		record.Date = &s
	}
	if pred.StoreLocation != "" {
		s := pred.StoreLocation
		record.StoreLocation = &s
	}
	return record, warnings
}

// finiteOrNull rejects NaN/Infinity at the serialization boundary: the value
// becomes null and the condition is logged, never emitted as invalid JSON.
func (p *Publisher) finiteOrNull(field string, pred models.ScoredPrediction, value float64, warnings *int) *float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		*warnings++
		p.logger.Warn("non-finite value coerced to null",
			slog.String("field", field),
			slog.String("store_id", pred.StoreID),
			slog.String("product_id", pred.ProductID),
			slog.String("value", fmt.Sprint(value)))
		return nil
	}
	return &value
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
