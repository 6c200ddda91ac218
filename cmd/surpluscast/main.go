package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/foodcaststack/surpluscast/internal/cache"
	"github.com/foodcaststack/surpluscast/internal/config"
	"github.com/foodcaststack/surpluscast/internal/dataset"
	"github.com/foodcaststack/surpluscast/internal/features"
	"github.com/foodcaststack/surpluscast/internal/metrics"
	"github.com/foodcaststack/surpluscast/internal/pipeline"
	"github.com/foodcaststack/surpluscast/internal/publish"
	"github.com/foodcaststack/surpluscast/internal/recipients"
	"github.com/foodcaststack/surpluscast/internal/scoring"
	"github.com/foodcaststack/surpluscast/internal/training"
	"github.com/foodcaststack/surpluscast/internal/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "surpluscast",
		Short:         "Forecast next-day food surplus and emit redistribution records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var configPath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one full forecasting batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(configPath, outputPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to configuration file")
	cmd.Flags().StringVar(&outputPath, "output", "", "Override the prediction output path")
	return cmd
}

func runPipeline(configPath, outputPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		return err
	}
	if outputPath != "" {
		cfg.Output.Path = outputPath
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting surpluscast", slog.String("output", cfg.Output.Path))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Metrics.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Address, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics listener stopped", slog.Any("error", err))
			}
		}()
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:     cfg.Cache.Addr,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			defer provider.Close()
		}
	}

	loader := dataset.NewLoader(logger, cfg.Data, cacheProvider, cfg.Cache.TTL)

	var noise *features.NoiseInjector
	if cfg.Features.Noise.Enabled {
		noise = features.NewNoiseInjector(cfg.Features.Noise.Seed, cfg.Features.Noise.StdDev)
	}
	builder := features.NewBuilder(logger, noise)

	trainer := training.NewTrainer(logger, training.Config{
		GBT: training.GBTParams{
			Estimators:      cfg.Training.Estimators,
			MaxDepth:        cfg.Training.MaxDepth,
			LearningRate:    cfg.Training.LearningRate,
			Subsample:       cfg.Training.Subsample,
			MinSamplesSplit: cfg.Training.MinSamplesSplit,
			MinSamplesLeaf:  cfg.Training.MinSamplesLeaf,
			Seed:            cfg.Training.Seed,
		},
		Folds:           cfg.Training.Folds,
		TopK:            cfg.Training.TopKFeatures,
		MinRows:         cfg.Training.MinRows,
		HoldoutFraction: cfg.Training.HoldoutFraction,
	})

	scorer := scoring.NewScorer(logger, cfg.Scoring.MinSurplus, cfg.Scoring.MealsPerUnit)
	publisher := publish.NewPublisher(logger, cfg.Output.Indent)

	rules, err := recipients.NewRuleEngine(cfg.Recipients.RulesPath, logger)
	if err != nil {
		logger.Error("failed to load recipient rule pack", slog.Any("error", err))
		return err
	}

	pipe := pipeline.New(logger, loader, builder, trainer, scorer, publisher, rules, training.NewHandle(), cfg.Output.Path)

	report, err := pipe.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("run report",
		slog.String("run_id", report.RunID),
		slog.Int("rows_reconciled", report.RowsReconciled),
		slog.Int("feature_rows", report.FeatureRows),
		slog.Any("selected_features", report.SelectedFeatures),
		slog.Float64("r2", report.Metrics.R2),
		slog.Float64("mae", report.Metrics.MAE),
		slog.Float64("cv_mean", report.Metrics.CVMean),
		slog.Float64("cv_std", report.Metrics.CVStd),
		slog.Int("published", report.PredictionsPublished),
		slog.Int("serialization_warnings", report.SerializationWarnings))

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	return nil
}
