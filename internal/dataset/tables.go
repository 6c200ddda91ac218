package dataset

import "time"

// SalesRecord is one row of the historical sales table.
type SalesRecord struct {
	StoreID    string
	ProductID  string
	Day        time.Time
	DailySales float64
}

// SurplusRecord is one row of the surplus observation table.
type SurplusRecord struct {
	StoreID       string
	ProductID     string
	Date          time.Time
	ProductName   string
	Category      string
	StockLevel    float64
	EndInventory  float64
	Price         float64
	Promotion     bool
	ShelfLifeDays int
	StoreLocation string
}

// RecipientRecord is one row of the recipient community table.
type RecipientRecord struct {
	RecipientID       string
	Name              string
	PreferredCategory string
	BrainDietOnly     bool
}
