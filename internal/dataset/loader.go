package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/foodcaststack/surpluscast/internal/cache"
	"github.com/foodcaststack/surpluscast/internal/config"
	"github.com/foodcaststack/surpluscast/internal/utils"
)

// Loader reads the raw source tables from CSV files. The parsed nutrition
// reference is cached by file checksum so scheduled retraining runs skip the
// parse when the table has not changed.
type Loader struct {
	logger   *slog.Logger
	cfg      config.DataConfig
	cache    cache.Provider
	cacheTTL time.Duration
}

// NewLoader constructs a Loader; provider may be nil to disable caching.
func NewLoader(logger *slog.Logger, cfg config.DataConfig, provider cache.Provider, ttl time.Duration) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &Loader{logger: logger, cfg: cfg, cache: provider, cacheTTL: ttl}
}

// Sales loads the historical sales table. IDs arrive with store_/prod_
// prefixes and dates as integer offsets from the configured origin.
func (l *Loader) Sales(ctx context.Context) ([]SalesRecord, error) {
	origin, err := utils.ParseDate(l.cfg.SalesDayOrigin)
	if err != nil {
		return nil, utils.NewAppError("dataset.Sales", "invalid salesDayOrigin", err)
	}

	var records []SalesRecord
	err = l.readTable(l.cfg.SalesPath, []string{"store_id", "product_id", "day", "daily_sales"}, func(row map[string]string) error {
		day, err := utils.ParseDayValue(row["day"], origin)
		if err != nil {
			return fmt.Errorf("row %d: %w", len(records)+1, err)
		}
		sales, err := parseFloat(row["daily_sales"])
		if err != nil {
			return fmt.Errorf("row %d: daily_sales: %w", len(records)+1, err)
		}
		records = append(records, SalesRecord{
			StoreID:    normalizeID(row["store_id"], "store_"),
			ProductID:  normalizeID(row["product_id"], "prod_"),
			Day:        day,
			DailySales: sales,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.Debug("sales table loaded", slog.Int("rows", len(records)))
	return records, nil
}

// Surplus loads the surplus observation table.
func (l *Loader) Surplus(ctx context.Context) ([]SurplusRecord, error) {
	required := []string{
		"store_id", "product_id", "date", "product_name", "category",
		"stock_level", "end_inventory", "price", "promotion_flag",
		"shelf_life_days", "store_location",
	}
	var records []SurplusRecord
	err := l.readTable(l.cfg.SurplusPath, required, func(row map[string]string) error {
		date, err := utils.ParseDate(row["date"])
		if err != nil {
			return fmt.Errorf("row %d: %w", len(records)+1, err)
		}
		stock, err := parseFloat(row["stock_level"])
		if err != nil {
			return fmt.Errorf("row %d: stock_level: %w", len(records)+1, err)
		}
		endInv, err := parseFloat(row["end_inventory"])
		if err != nil {
			return fmt.Errorf("row %d: end_inventory: %w", len(records)+1, err)
		}
		price, err := parseFloat(row["price"])
		if err != nil {
			return fmt.Errorf("row %d: price: %w", len(records)+1, err)
		}
		shelf, err := strconv.Atoi(strings.TrimSpace(row["shelf_life_days"]))
		if err != nil {
			return fmt.Errorf("row %d: shelf_life_days: %w", len(records)+1, err)
		}
		records = append(records, SurplusRecord{
			StoreID:       normalizeID(row["store_id"], "store_"),
			ProductID:     normalizeID(row["product_id"], "prod_"),
			Date:          date,
			ProductName:   strings.TrimSpace(row["product_name"]),
			Category:      strings.TrimSpace(row["category"]),
			StockLevel:    stock,
			EndInventory:  endInv,
			Price:         price,
			Promotion:     parseBool(row["promotion_flag"]),
			ShelfLifeDays: shelf,
			StoreLocation: strings.TrimSpace(row["store_location"]),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.Debug("surplus table loaded", slog.Int("rows", len(records)))
	return records, nil
}

// Nutrition loads the brain-diet reference and returns a flag mapping keyed by
// cleaned product name. The parsed mapping is cached by file checksum.
func (l *Loader) Nutrition(ctx context.Context) (map[string]bool, error) {
	sum, err := fileChecksum(l.cfg.NutritionPath)
	if err == nil {
		key := "surpluscast:nutrition:" + sum
		if data, cerr := l.cache.Get(ctx, key); cerr == nil {
			var flags map[string]bool
			if jerr := json.Unmarshal(data, &flags); jerr == nil {
				l.logger.Debug("nutrition reference served from cache", slog.Int("entries", len(flags)))
				return flags, nil
			}
		} else if !errors.Is(cerr, cache.ErrCacheMiss) {
			l.logger.Warn("nutrition cache lookup failed", slog.Any("error", cerr))
		}
	}

	flags := make(map[string]bool)
	err = l.readTable(l.cfg.NutritionPath, []string{"clean_name", "brain_diet_flag"}, func(row map[string]string) error {
		flags[cleanProductName(row["clean_name"])] = parseBool(row["brain_diet_flag"])
		return nil
	})
	if err != nil {
		return nil, err
	}

	if sum != "" {
		if data, jerr := json.Marshal(flags); jerr == nil {
			if cerr := l.cache.Set(ctx, "surpluscast:nutrition:"+sum, data, l.cacheTTL); cerr != nil {
				l.logger.Warn("nutrition cache store failed", slog.Any("error", cerr))
			}
		}
	}

	l.logger.Debug("nutrition reference loaded", slog.Int("entries", len(flags)))
	return flags, nil
}

// Recipients loads the recipient community table.
func (l *Loader) Recipients(ctx context.Context) ([]RecipientRecord, error) {
	var records []RecipientRecord
	err := l.readTable(l.cfg.RecipientsPath, []string{"recipient_id", "name"}, func(row map[string]string) error {
		records = append(records, RecipientRecord{
			RecipientID:       strings.TrimSpace(row["recipient_id"]),
			Name:              strings.TrimSpace(row["name"]),
			PreferredCategory: strings.TrimSpace(row["preferred_category"]),
			BrainDietOnly:     parseBool(row["brain_diet_only"]),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.logger.Debug("recipients table loaded", slog.Int("rows", len(records)))
	return records, nil
}

// readTable streams a CSV file, checks the required header columns are
// present, and invokes fn once per data row with a header-keyed cell map.
func (l *Loader) readTable(path string, required []string, fn func(row map[string]string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return &utils.DataContractError{Table: path, Msg: "source table missing: " + err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return &utils.DataContractError{Table: path, Msg: "cannot read header: " + err.Error()}
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return &utils.DataContractError{Table: path, Column: col, Msg: "required column missing"}
		}
	}

	for {
		cells, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return utils.NewAppError("dataset.readTable", "read "+path, err)
		}
		row := make(map[string]string, len(index))
		for name, i := range index {
			if i < len(cells) {
				row[name] = cells[i]
			}
		}
		if err := fn(row); err != nil {
			return utils.NewAppError("dataset.readTable", "parse "+path, err)
		}
	}
}

func normalizeID(value, prefix string) string {
	return strings.TrimPrefix(strings.TrimSpace(value), prefix)
}

func cleanProductName(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func parseFloat(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "t", "yes", "y":
		return true
	}
	return false
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
