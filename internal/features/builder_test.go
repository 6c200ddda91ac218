package features

import (
	"math"
	"testing"
	"time"

	"github.com/foodcaststack/surpluscast/internal/models"
)

func day(offset int) time.Time {
	return time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func seriesObservations(storeID, productID string, sales, stock []float64) []models.Observation {
	obs := make([]models.Observation, len(sales))
	for i := range sales {
		obs[i] = models.Observation{
			StoreID:       storeID,
			ProductID:     productID,
			ProductName:   "Spinach",
			Category:      "produce",
			Date:          day(i),
			DailySales:    sales[i],
			StockLevel:    stock[i],
			EndInventory:  stock[i],
			Price:         3.5,
			ShelfLifeDays: 3,
		}
	}
	return obs
}

func TestBuildFourDaySeries(t *testing.T) {
	obs := seriesObservations("1", "7", []float64{40, 45, 42, 38}, []float64{100, 90, 95, 40})

	builder := NewBuilder(nil, nil)
	rows, err := builder.Build(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("expected 3 feature rows (target requires a next period), got %d", len(rows))
	}

	// Targets are the next period's end-of-period inventory.
	wantTargets := []float64{90, 95, 40}
	for i, want := range wantTargets {
		if rows[i].Target != want {
			t.Errorf("row %d target = %v, want %v", i, rows[i].Target, want)
		}
	}

	if got := rows[1].Values["sales_lag_1"]; got != 40 {
		t.Errorf("row 2 sales_lag_1 = %v, want row 1 raw sales 40", got)
	}
	if got := rows[1].Values["stock_lag_1"]; got != 100 {
		t.Errorf("row 2 stock_lag_1 = %v, want row 1 raw stock 100", got)
	}

	wantAvg := (40.0 + 45.0 + 42.0) / 3
	if got := rows[2].Values["sales_3day_avg"]; math.Abs(got-wantAvg) > 1e-9 {
		t.Errorf("row 3 sales_3day_avg = %v, want %v", got, wantAvg)
	}
}

func TestBuildFillsFullSchema(t *testing.T) {
	obs := seriesObservations("1", "7", []float64{40, 45, 42, 38}, []float64{100, 90, 95, 40})

	rows, err := NewBuilder(nil, nil).Build(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, row := range rows {
		for _, name := range ColumnNames() {
			v, ok := row.Values[name]
			if !ok {
				t.Fatalf("row %d missing column %q", i, name)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("row %d column %q is non-finite: %v", i, name, v)
			}
		}
	}
}

// nonCausalColumns are the documented batch-retraining exceptions: computed
// over the entire history, so they may legitimately shift when future rows
// change.
var nonCausalColumns = map[string]bool{
	"store_avg_sales":       true,
	"product_avg_sales":     true,
	"store_avg_stock":       true,
	"product_avg_stock":     true,
	"price_normalized":      true,
	"shelf_life_normalized": true,
}

func TestCausalityUnderFutureMutation(t *testing.T) {
	sales := []float64{40, 45, 42, 38, 51, 47, 39, 44, 50, 36}
	stock := []float64{100, 90, 95, 40, 88, 76, 91, 63, 82, 70}
	obs := seriesObservations("1", "7", sales, stock)

	builder := NewBuilder(nil, nil)
	before, err := builder.Build(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Corrupt the final observation: it is strictly in the future of every
	// feature timestamp.
	mutated := append([]models.Observation(nil), obs...)
	mutated[len(mutated)-1].DailySales = 9999
	mutated[len(mutated)-1].StockLevel = -5000
	mutated[len(mutated)-1].EndInventory = 12345

	after, err := builder.Build(mutated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(before) != len(after) {
		t.Fatalf("row count changed: %d vs %d", len(before), len(after))
	}
	for i := range before {
		for _, name := range ColumnNames() {
			if nonCausalColumns[name] {
				continue
			}
			if before[i].Values[name] != after[i].Values[name] {
				t.Errorf("row %d column %q changed after future mutation: %v vs %v",
					i, name, before[i].Values[name], after[i].Values[name])
			}
		}
	}
}

func TestNoCrossSeriesLeakage(t *testing.T) {
	salesA := []float64{40, 45, 42, 38, 51, 47}
	stockA := []float64{100, 90, 95, 40, 88, 76}
	obsA := seriesObservations("1", "7", salesA, stockA)
	obsB := seriesObservations("2", "9", []float64{10, 12, 14, 11, 13, 15}, []float64{30, 28, 33, 29, 31, 27})

	builder := NewBuilder(nil, nil)
	combined, err := builder.Build(append(append([]models.Observation(nil), obsA...), obsB...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	alone, err := builder.Build(obsA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	combinedA := make([]models.FeatureRow, 0, len(alone))
	for _, row := range combined {
		if row.Obs.StoreID == "1" {
			combinedA = append(combinedA, row)
		}
	}
	if len(combinedA) != len(alone) {
		t.Fatalf("series A row count differs: %d vs %d", len(combinedA), len(alone))
	}
	for i := range alone {
		for _, name := range ColumnNames() {
			if nonCausalColumns[name] {
				continue
			}
			if combinedA[i].Values[name] != alone[i].Values[name] {
				t.Errorf("row %d column %q leaked across series: %v vs %v",
					i, name, combinedA[i].Values[name], alone[i].Values[name])
			}
		}
	}
}

func TestLagImputationStaysWithinSeries(t *testing.T) {
	obs := seriesObservations("1", "7", []float64{40, 45, 42}, []float64{100, 90, 95})

	rows, err := NewBuilder(nil, nil).Build(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Row 1 has no lag-2 history: imputed with the series median of the
	// causally available sales values, not a global statistic.
	if got, want := rows[1].Values["sales_lag_2"], 42.5; got != want {
		t.Errorf("sales_lag_2 = %v, want per-series median %v", got, want)
	}
	// Row 0 has no prior targets at all.
	if got := rows[0].Values["surplus_lag_1"]; got != 0 {
		t.Errorf("surplus_lag_1 = %v, want 0 for bare series", got)
	}
}

func TestBuilderDeterministicWithoutNoise(t *testing.T) {
	sales := []float64{40, 45, 42, 38, 51, 47, 39}
	stock := []float64{100, 90, 95, 40, 88, 76, 91}
	obs := seriesObservations("1", "7", sales, stock)

	builder := NewBuilder(nil, nil)
	first, err := builder.Build(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := builder.Build(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range first {
		if first[i].Target != second[i].Target {
			t.Fatalf("row %d target differs across runs", i)
		}
		for _, name := range ColumnNames() {
			if first[i].Values[name] != second[i].Values[name] {
				t.Fatalf("row %d column %q differs across runs", i, name)
			}
		}
	}
}

func TestNoiseInjectorSeededAndIsolated(t *testing.T) {
	sales := []float64{40, 45, 42, 38, 51, 47, 39}
	stock := []float64{100, 90, 95, 40, 88, 76, 91}
	obs := seriesObservations("1", "7", sales, stock)

	clean, err := NewBuilder(nil, nil).Build(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	noisyA, err := NewBuilder(nil, NewNoiseInjector(42, 0.35)).Build(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	noisyB, err := NewBuilder(nil, NewNoiseInjector(42, 0.35)).Build(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range clean {
		if noisyA[i].Target != noisyB[i].Target {
			t.Errorf("row %d noisy target not reproducible under fixed seed", i)
		}
		if noisyA[i].Target < 0 {
			t.Errorf("row %d noisy target negative: %v", i, noisyA[i].Target)
		}
		// Noise touches targets only, never features.
		for _, name := range ColumnNames() {
			if clean[i].Values[name] != noisyA[i].Values[name] {
				t.Errorf("row %d column %q altered by noise injection", i, name)
			}
		}
	}
}

func TestCalendarFeatures(t *testing.T) {
	// 2024-03-30 is a Saturday at quarter end.
	obs := seriesObservations("1", "7", []float64{40, 45}, []float64{100, 90})
	obs[0].Date = time.Date(2024, 3, 30, 0, 0, 0, 0, time.UTC)
	obs[1].Date = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	rows, err := NewBuilder(nil, nil).Build(obs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := rows[0].Values

	checks := map[string]float64{
		"year":             2024,
		"month":            3,
		"day":              30,
		"dayofweek":        5,
		"quarter":          1,
		"is_weekend":       1,
		"is_month_start":   0,
		"is_month_end":     1,
		"is_quarter_start": 0,
		"is_quarter_end":   1,
	}
	for name, want := range checks {
		if got := v[name]; got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	if got, want := v["month_sin"], math.Sin(2*math.Pi*3/12); math.Abs(got-want) > 1e-12 {
		t.Errorf("month_sin = %v, want %v", got, want)
	}
}
