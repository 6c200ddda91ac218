package dataset

import (
	"sort"
	"time"

	"github.com/foodcaststack/surpluscast/internal/models"
	"github.com/foodcaststack/surpluscast/internal/utils"
)

type obsKey struct {
	store   string
	product string
	date    time.Time
}

// Reconcile merges the sales and surplus tables into one observation list
// keyed by (store, product, date), and joins the brain-diet flag by cleaned
// product name. Inner-join semantics: rows present in only one of the two
// sources are dropped. Missing nutrition matches default to false.
//
// Returns a DataContractError when the join yields zero rows, which signals
// a broken upstream contract rather than expected sparse overlap.
func Reconcile(sales []SalesRecord, surplus []SurplusRecord, nutrition map[string]bool) ([]models.Observation, error) {
	salesByKey := make(map[obsKey]float64, len(sales))
	for _, s := range sales {
		salesByKey[obsKey{s.StoreID, s.ProductID, s.Day}] = s.DailySales
	}

	seen := make(map[obsKey]struct{}, len(surplus))
	observations := make([]models.Observation, 0, len(surplus))
	for _, s := range surplus {
		key := obsKey{s.StoreID, s.ProductID, s.Date}
		dailySales, ok := salesByKey[key]
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		observations = append(observations, models.Observation{
			StoreID:       s.StoreID,
			ProductID:     s.ProductID,
			ProductName:   s.ProductName,
			Category:      s.Category,
			StoreLocation: s.StoreLocation,
			Date:          s.Date,
			DailySales:    dailySales,
			StockLevel:    s.StockLevel,
			EndInventory:  s.EndInventory,
			Price:         s.Price,
			Promotion:     s.Promotion,
			ShelfLifeDays: s.ShelfLifeDays,
			BrainDiet:     nutrition[cleanProductName(s.ProductName)],
		})
	}

	if len(observations) == 0 {
		return nil, &utils.DataContractError{
			Table: "surplus+sales",
			Msg:   "zero matching (store_id, product_id, date) keys after join",
		}
	}

	sort.Slice(observations, func(i, j int) bool {
		a, b := observations[i], observations[j]
		if a.StoreID != b.StoreID {
			return a.StoreID < b.StoreID
		}
		if a.ProductID != b.ProductID {
			return a.ProductID < b.ProductID
		}
		return a.Date.Before(b.Date)
	})

	return observations, nil
}
