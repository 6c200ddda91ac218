package features

import (
	"log/slog"
	"math"
	"sort"

	"github.com/foodcaststack/surpluscast/internal/models"
)

// Builder derives calendar, cyclical, rolling, lag, trend, and interaction
// features per (store, product) series. All per-row features are causal:
// computed only from current-and-past observations within the same series.
// The per-store and per-product aggregate means are the documented exception,
// computed over the entire available history as a batch-retraining
// simplification.
type Builder struct {
	logger *slog.Logger
	noise  *NoiseInjector
}

// NewBuilder constructs a Builder; noise may be nil for deterministic output.
func NewBuilder(logger *slog.Logger, noise *NoiseInjector) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger, noise: noise}
}

type globalStats struct {
	storeSales   map[string]float64
	storeStock   map[string]float64
	productSales map[string]float64
	productStock map[string]float64
	priceMean    float64
	priceStd     float64
	maxShelfLife float64
}

// Build turns reconciled observations into feature rows. The surplus target
// for time T is the next period's end-of-period inventory; series tails with
// no next period are dropped. Output is ordered chronologically so the
// trainer's time-respecting folds line up with real time.
func (b *Builder) Build(observations []models.Observation) ([]models.FeatureRow, error) {
	series := groupSeries(observations)
	keys := sortedKeys(series)
	global := computeGlobalStats(observations)

	rows := make([]models.FeatureRow, 0, len(observations))
	for _, key := range keys {
		rows = append(rows, b.buildSeries(series[key], global)...)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, bb := rows[i].Obs, rows[j].Obs
		if !a.Date.Equal(bb.Date) {
			return a.Date.Before(bb.Date)
		}
		if a.StoreID != bb.StoreID {
			return a.StoreID < bb.StoreID
		}
		return a.ProductID < bb.ProductID
	})

	b.logger.Debug("feature construction complete",
		slog.Int("series", len(series)),
		slog.Int("rows", len(rows)))
	return rows, nil
}

func (b *Builder) buildSeries(obs []models.Observation, global globalStats) []models.FeatureRow {
	n := len(obs)
	if n < 2 {
		return nil
	}

	sales := make([]float64, n)
	stock := make([]float64, n)
	for i, o := range obs {
		sales[i] = o.DailySales
		stock[i] = o.StockLevel
	}

	// Defined targets, before any noise: target[i] is the end inventory
	// observed in period i+1, so target[j] for j < i is causally available
	// as a surplus lag at row i.
	targets := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		targets[i] = obs[i+1].EndInventory
	}

	rows := make([]models.FeatureRow, 0, n-1)
	for i := 0; i < n-1; i++ {
		o := obs[i]
		v := make(map[string]float64, len(columnNames))

		v[ColDailySales] = o.DailySales
		v[ColStockLevel] = o.StockLevel
		v[ColPrice] = o.Price
		v["promotion"] = boolFeature(o.Promotion)
		v["brain_diet"] = boolFeature(o.BrainDiet)

		setCalendar(v, o)

		for _, w := range RollingWindows {
			window := trailing(sales, i, w)
			v[rollingName("sales", w, "avg")] = mean(window)
			v[rollingName("sales", w, "std")] = sampleStd(window)
			v[rollingName("stock", w, "avg")] = mean(trailing(stock, i, w))
		}

		for _, lag := range SalesLags {
			v[lagName("sales", lag)] = lagged(sales, i, lag)
			v[lagName("stock", lag)] = lagged(stock, i, lag)
		}
		for _, lag := range SurplusLags {
			v[lagName("surplus", lag)] = laggedTarget(targets, i, lag)
		}

		window7 := trailing(sales, i, 7)
		v["sales_trend_7day"] = trendSlope(window7)
		v["stock_trend_7day"] = trendSlope(trailing(stock, i, 7))
		v["sales_volatility_7day"] = coefficientOfVariation(window7)

		v["store_avg_sales"] = global.storeSales[o.StoreID]
		v["product_avg_sales"] = global.productSales[o.ProductID]
		v["store_avg_stock"] = global.storeStock[o.StoreID]
		v["product_avg_stock"] = global.productStock[o.ProductID]

		v["promotion_sales_interaction"] = boolFeature(o.Promotion) * o.DailySales
		v["price_normalized"] = (o.Price - global.priceMean) / (global.priceStd + epsilon)
		if global.maxShelfLife > 0 {
			v["shelf_life_normalized"] = float64(o.ShelfLifeDays) / global.maxShelfLife
		}

		fillDefaults(v)

		target := targets[i]
		if b.noise != nil {
			target = b.noise.Apply(target)
		}

		rows = append(rows, models.FeatureRow{Obs: o, Target: target, Values: v})
	}
	return rows
}

// lagged returns the value lag periods back, or the median of the causally
// available values when the series is too short. Imputation never crosses
// series boundaries.
func lagged(values []float64, i, lag int) float64 {
	if i-lag >= 0 {
		return values[i-lag]
	}
	return median(values[:i+1])
}

// laggedTarget imputes from targets strictly before row i, since the target
// at row i itself references the next period.
func laggedTarget(targets []float64, i, lag int) float64 {
	if i-lag >= 0 {
		return targets[i-lag]
	}
	if i == 0 {
		return 0
	}
	return median(targets[:i])
}

func setCalendar(v map[string]float64, o models.Observation) {
	year, month, day := o.Date.Date()
	// Monday=0 convention so the weekend flag covers Saturday and Sunday.
	dow := (int(o.Date.Weekday()) + 6) % 7
	doy := o.Date.YearDay()
	quarter := (int(month)-1)/3 + 1
	_, week := o.Date.ISOWeek()

	v["year"] = float64(year)
	v["month"] = float64(month)
	v["day"] = float64(day)
	v["dayofweek"] = float64(dow)
	v["dayofyear"] = float64(doy)
	v["quarter"] = float64(quarter)
	v["week"] = float64(week)

	v["month_sin"] = math.Sin(2 * math.Pi * float64(month) / 12)
	v["month_cos"] = math.Cos(2 * math.Pi * float64(month) / 12)
	v["dayofweek_sin"] = math.Sin(2 * math.Pi * float64(dow) / 7)
	v["dayofweek_cos"] = math.Cos(2 * math.Pi * float64(dow) / 7)
	v["dayofyear_sin"] = math.Sin(2 * math.Pi * float64(doy) / 365)
	v["dayofyear_cos"] = math.Cos(2 * math.Pi * float64(doy) / 365)

	v["is_weekend"] = boolFeature(dow >= 5)
	v["is_month_start"] = boolFeature(day <= 5)
	v["is_month_end"] = boolFeature(day >= 25)
	v["is_quarter_start"] = boolFeature(day == 1 && int(month)%3 == 1)
	v["is_quarter_end"] = boolFeature(day >= 28 && int(month)%3 == 0)
}

// fillDefaults synthesizes any schema column the construction left absent or
// non-finite as zero, so downstream consumers always see the full schema.
func fillDefaults(v map[string]float64) {
	for _, name := range columnNames {
		val, ok := v[name]
		if !ok || math.IsNaN(val) || math.IsInf(val, 0) {
			v[name] = 0
		}
	}
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func groupSeries(observations []models.Observation) map[models.SeriesKey][]models.Observation {
	series := make(map[models.SeriesKey][]models.Observation)
	for _, o := range observations {
		series[o.Key()] = append(series[o.Key()], o)
	}
	for key := range series {
		s := series[key]
		sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
		series[key] = s
	}
	return series
}

func sortedKeys(series map[models.SeriesKey][]models.Observation) []models.SeriesKey {
	keys := make([]models.SeriesKey, 0, len(series))
	for key := range series {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].StoreID != keys[j].StoreID {
			return keys[i].StoreID < keys[j].StoreID
		}
		return keys[i].ProductID < keys[j].ProductID
	})
	return keys
}

func computeGlobalStats(observations []models.Observation) globalStats {
	g := globalStats{
		storeSales:   make(map[string]float64),
		storeStock:   make(map[string]float64),
		productSales: make(map[string]float64),
		productStock: make(map[string]float64),
	}

	storeCount := make(map[string]float64)
	productCount := make(map[string]float64)
	prices := make([]float64, 0, len(observations))
	for _, o := range observations {
		g.storeSales[o.StoreID] += o.DailySales
		g.storeStock[o.StoreID] += o.StockLevel
		storeCount[o.StoreID]++
		g.productSales[o.ProductID] += o.DailySales
		g.productStock[o.ProductID] += o.StockLevel
		productCount[o.ProductID]++
		prices = append(prices, o.Price)
		if float64(o.ShelfLifeDays) > g.maxShelfLife {
			g.maxShelfLife = float64(o.ShelfLifeDays)
		}
	}
	for store, count := range storeCount {
		g.storeSales[store] /= count
		g.storeStock[store] /= count
	}
	for product, count := range productCount {
		g.productSales[product] /= count
		g.productStock[product] /= count
	}
	g.priceMean = mean(prices)
	g.priceStd = sampleStd(prices)
	return g
}
