package features

// Engineered-column name fragments shared with the trainer and tests.
const (
	ColDailySales = "daily_sales"
	ColStockLevel = "stock_level"
	ColPrice      = "price"
)

// RollingWindows are the trailing window sizes for rolling statistics.
var RollingWindows = []int{3, 7, 14}

// SalesLags and SurplusLags are the lag offsets for lag features.
var (
	SalesLags   = []int{1, 2, 3, 7, 14}
	SurplusLags = []int{1, 2, 3, 7}
)

var columnNames = buildColumnNames()

// ColumnNames returns the static, ordered engineered-feature schema. The
// builder guarantees every listed column exists on every row; consumers must
// not depend on any column outside this list.
func ColumnNames() []string {
	out := make([]string, len(columnNames))
	copy(out, columnNames)
	return out
}

func buildColumnNames() []string {
	names := []string{
		ColDailySales, ColStockLevel, ColPrice, "promotion", "brain_diet",

		"year", "month", "day", "dayofweek", "dayofyear", "quarter", "week",
		"month_sin", "month_cos", "dayofweek_sin", "dayofweek_cos",
		"dayofyear_sin", "dayofyear_cos",

		"is_weekend", "is_month_start", "is_month_end", "is_quarter_start", "is_quarter_end",
	}
	for _, w := range RollingWindows {
		names = append(names, rollingName("sales", w, "avg"))
	}
	for _, w := range RollingWindows {
		names = append(names, rollingName("sales", w, "std"))
	}
	for _, w := range RollingWindows {
		names = append(names, rollingName("stock", w, "avg"))
	}
	for _, lag := range SalesLags {
		names = append(names, lagName("sales", lag))
	}
	for _, lag := range SalesLags {
		names = append(names, lagName("stock", lag))
	}
	for _, lag := range SurplusLags {
		names = append(names, lagName("surplus", lag))
	}
	names = append(names,
		"sales_trend_7day", "stock_trend_7day", "sales_volatility_7day",
		"store_avg_sales", "product_avg_sales", "store_avg_stock", "product_avg_stock",
		"promotion_sales_interaction", "price_normalized", "shelf_life_normalized",
	)
	return names
}
