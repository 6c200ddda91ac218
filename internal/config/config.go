package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures every setting required to run the forecasting batch.
type Config struct {
	Data       DataConfig       `yaml:"data"`
	Features   FeaturesConfig   `yaml:"features"`
	Training   TrainingConfig   `yaml:"training"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Output     OutputConfig     `yaml:"output"`
	Recipients RecipientsConfig `yaml:"recipients"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DataConfig locates the raw source tables.
type DataConfig struct {
	SalesPath      string `yaml:"salesPath"`
	SurplusPath    string `yaml:"surplusPath"`
	NutritionPath  string `yaml:"nutritionPath"`
	RecipientsPath string `yaml:"recipientsPath"`
	// SalesDayOrigin anchors integer day offsets in the sales table.
	SalesDayOrigin string `yaml:"salesDayOrigin"`
}

// FeaturesConfig controls target noise injection. The noise knob exists to
// emulate real-world unpredictability in training data; it is never part of
// the inference path and defaults to off.
type FeaturesConfig struct {
	Noise NoiseConfig `yaml:"noise"`
}

// NoiseConfig seeds the controlled target-noise multiplier.
type NoiseConfig struct {
	Enabled bool    `yaml:"enabled"`
	StdDev  float64 `yaml:"stdDev"`
	Seed    int64   `yaml:"seed"`
}

// TrainingConfig carries the fixed model hyperparameters. The CV loop reports
// fold accuracy only; it never tunes these values.
type TrainingConfig struct {
	Estimators      int     `yaml:"estimators"`
	MaxDepth        int     `yaml:"maxDepth"`
	LearningRate    float64 `yaml:"learningRate"`
	Subsample       float64 `yaml:"subsample"`
	MinSamplesSplit int     `yaml:"minSamplesSplit"`
	MinSamplesLeaf  int     `yaml:"minSamplesLeaf"`
	Folds           int     `yaml:"folds"`
	TopKFeatures    int     `yaml:"topKFeatures"`
	MinRows         int     `yaml:"minRows"`
	HoldoutFraction float64 `yaml:"holdoutFraction"`
	Seed            int64   `yaml:"seed"`
}

// ScoringConfig bounds which forecasts are actionable.
type ScoringConfig struct {
	MinSurplus   float64 `yaml:"minSurplus"`
	MealsPerUnit float64 `yaml:"mealsPerUnit"`
}

// OutputConfig controls the published prediction file.
type OutputConfig struct {
	Path   string `yaml:"path"`
	Indent bool   `yaml:"indent"`
}

// RecipientsConfig controls preference rule-pack loading.
type RecipientsConfig struct {
	RulesPath string `yaml:"rulesPath"`
}

// CacheConfig controls Valkey-backed caching of parsed reference tables.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	TTL      time.Duration `yaml:"ttl"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig controls the optional Prometheus listener. Empty address
// disables it; collectors are still registered and observed.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("SURPLUSCAST_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Data: DataConfig{
			SalesPath:      "data/historical_sales.csv",
			SurplusPath:    "data/food_surplus.csv",
			NutritionPath:  "data/brain_diet_foods.csv",
			RecipientsPath: "data/recipient_communities.csv",
			SalesDayOrigin: "2024-01-01",
		},
		Features: FeaturesConfig{
			Noise: NoiseConfig{Enabled: false, StdDev: 0.35, Seed: 42},
		},
		Training: TrainingConfig{
			Estimators:      80,
			MaxDepth:        5,
			LearningRate:    0.02,
			Subsample:       0.8,
			MinSamplesSplit: 15,
			MinSamplesLeaf:  8,
			Folds:           3,
			TopKFeatures:    12,
			MinRows:         50,
			HoldoutFraction: 0.2,
			Seed:            42,
		},
		Scoring: ScoringConfig{MinSurplus: 5, MealsPerUnit: 2},
		Output:  OutputConfig{Path: "predicted_surplus.json", Indent: true},
		Recipients: RecipientsConfig{
			RulesPath: "configs/rules/default.yaml",
		},
		Cache:   CacheConfig{Enabled: false, TTL: 12 * time.Hour},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SURPLUSCAST_SALES_PATH"); v != "" {
		cfg.Data.SalesPath = v
	}
	if v := os.Getenv("SURPLUSCAST_SURPLUS_PATH"); v != "" {
		cfg.Data.SurplusPath = v
	}
	if v := os.Getenv("SURPLUSCAST_NUTRITION_PATH"); v != "" {
		cfg.Data.NutritionPath = v
	}
	if v := os.Getenv("SURPLUSCAST_RECIPIENTS_PATH"); v != "" {
		cfg.Data.RecipientsPath = v
	}
	if v := os.Getenv("SURPLUSCAST_OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("SURPLUSCAST_RULES_PATH"); v != "" {
		cfg.Recipients.RulesPath = v
	}
	if v := os.Getenv("SURPLUSCAST_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SURPLUSCAST_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("SURPLUSCAST_METRICS_ADDRESS"); v != "" {
		cfg.Metrics.Address = v
	}
	if v := os.Getenv("SURPLUSCAST_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("SURPLUSCAST_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("SURPLUSCAST_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("SURPLUSCAST_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("SURPLUSCAST_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("SURPLUSCAST_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Training.Seed = seed
			cfg.Features.Noise.Seed = seed
		}
	}
	if v := os.Getenv("SURPLUSCAST_NOISE_ENABLED"); v != "" {
		cfg.Features.Noise.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
}
