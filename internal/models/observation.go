package models

import "time"

// Observation is one reconciled (store, product, date) record.
type Observation struct {
	StoreID       string
	ProductID     string
	ProductName   string
	Category      string
	StoreLocation string
	Date          time.Time
	DailySales    float64
	StockLevel    float64
	EndInventory  float64
	Price         float64
	Promotion     bool
	ShelfLifeDays int
	BrainDiet     bool
}

// SeriesKey identifies one surplus series.
type SeriesKey struct {
	StoreID   string
	ProductID string
}

// Key returns the series the observation belongs to.
func (o Observation) Key() SeriesKey {
	return SeriesKey{StoreID: o.StoreID, ProductID: o.ProductID}
}

// FeatureRow pairs an observation with its engineered feature vector and the
// defined forecasting target (next period's end-of-period inventory).
type FeatureRow struct {
	Obs    Observation
	Target float64
	Values map[string]float64
}
