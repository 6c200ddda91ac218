package models

import "time"

// Confidence buckets prediction magnitude for dashboards.
type Confidence string

const (
	ConfidenceLow    Confidence = "Low"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceHigh   Confidence = "High"
)

// Priority buckets urgency scores into distribution tiers.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// ScoredPrediction combines a raw surplus forecast with the derived
// decision-support fields. Immutable once produced by the scorer.
type ScoredPrediction struct {
	StoreID          string
	ProductID        string
	ProductName      string
	Category         string
	StoreLocation    string
	Date             time.Time
	PredictedSurplus float64
	EstimatedMeals   int
	UrgencyScore     int
	NutritionalValue int
	Confidence       Confidence
	Priority         Priority
	ImpactScore      float64
	ShelfLifeDays    int
	ExpiryDate       time.Time
	Price            float64
	BrainDiet        bool
}
