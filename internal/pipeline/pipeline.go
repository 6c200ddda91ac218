package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/foodcaststack/surpluscast/internal/dataset"
	"github.com/foodcaststack/surpluscast/internal/features"
	"github.com/foodcaststack/surpluscast/internal/metrics"
	"github.com/foodcaststack/surpluscast/internal/models"
	"github.com/foodcaststack/surpluscast/internal/publish"
	"github.com/foodcaststack/surpluscast/internal/recipients"
	"github.com/foodcaststack/surpluscast/internal/scoring"
	"github.com/foodcaststack/surpluscast/internal/training"
	"github.com/foodcaststack/surpluscast/internal/utils"
)

// TableSource provides the raw source tables for one run.
type TableSource interface {
	Sales(ctx context.Context) ([]dataset.SalesRecord, error)
	Surplus(ctx context.Context) ([]dataset.SurplusRecord, error)
	Nutrition(ctx context.Context) (map[string]bool, error)
	Recipients(ctx context.Context) ([]dataset.RecipientRecord, error)
}

// Pipeline executes one batch run: reconcile, build features, train, score,
// publish. Each run owns its own model; the shared Handle is only written
// after training and validation complete.
type Pipeline struct {
	logger     *slog.Logger
	source     TableSource
	builder    *features.Builder
	trainer    *training.Trainer
	scorer     *scoring.Scorer
	publisher  *publish.Publisher
	rules      *recipients.RuleEngine
	handle     *training.Handle
	outputPath string
}

// New constructs a Pipeline.
func New(
	logger *slog.Logger,
	source TableSource,
	builder *features.Builder,
	trainer *training.Trainer,
	scorer *scoring.Scorer,
	publisher *publish.Publisher,
	rules *recipients.RuleEngine,
	handle *training.Handle,
	outputPath string,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:     logger,
		source:     source,
		builder:    builder,
		trainer:    trainer,
		scorer:     scorer,
		publisher:  publisher,
		rules:      rules,
		handle:     handle,
		outputPath: outputPath,
	}
}

// Run executes the full batch and returns the run report. Fatal errors abort
// between stage boundaries; recoverable publishing conditions are surfaced in
// the report instead.
func (p *Pipeline) Run(ctx context.Context) (models.RunReport, error) {
	if p.source == nil {
		return models.RunReport{}, fmt.Errorf("table source not configured")
	}

	report := models.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	timer := utils.NewStageTimer()
	start := time.Now()

	var observations []models.Observation
	err := timer.Track("reconcile", func() error {
		sales, err := p.source.Sales(ctx)
		if err != nil {
			return err
		}
		surplus, err := p.source.Surplus(ctx)
		if err != nil {
			return err
		}
		nutrition, err := p.source.Nutrition(ctx)
		if err != nil {
			return err
		}
		if recips, err := p.source.Recipients(ctx); err != nil {
			p.logger.Warn("recipient table unavailable", slog.Any("error", err))
		} else {
			p.logger.Debug("recipient communities loaded", slog.Int("count", len(recips)))
		}

		observations, err = dataset.Reconcile(sales, surplus, nutrition)
		return err
	})
	if err != nil {
		return p.fail(report, timer, start, "reconcile", err)
	}
	report.RowsReconciled = len(observations)

	var rows []models.FeatureRow
	err = timer.Track("features", func() error {
		var buildErr error
		rows, buildErr = p.builder.Build(observations)
		return buildErr
	})
	if err != nil {
		return p.fail(report, timer, start, "features", err)
	}
	report.FeatureRows = len(rows)

	var model *training.Model
	err = timer.Track("train", func() error {
		var trainErr error
		model, trainErr = p.trainer.Train(rows)
		return trainErr
	})
	if err != nil {
		return p.fail(report, timer, start, "train", err)
	}
	report.SelectedFeatures = model.Features()
	report.Metrics = model.Metrics()

	var predictions []models.ScoredPrediction
	err = timer.Track("score", func() error {
		var scoreErr error
		predictions, scoreErr = p.scorer.Score(model, rows)
		return scoreErr
	})
	if err != nil {
		return p.fail(report, timer, start, "score", err)
	}
	report.PredictionsScored = len(predictions)
	report.CohortCounts = p.rules.Counts(predictions)

	err = timer.Track("publish", func() error {
		published, warnings, pubErr := p.publisher.PublishFile(p.outputPath, predictions)
		report.PredictionsPublished = published
		report.SerializationWarnings = warnings
		return pubErr
	})
	if err != nil {
		return p.fail(report, timer, start, "publish", err)
	}

	// The model is only visible to concurrent readers once the whole run
	// validated it end to end.
	if p.handle != nil {
		p.handle.Swap(model)
	}

	report.FinishedAt = time.Now().UTC()
	report.Stages = stageTimings(timer)

	metrics.ObserveRun(time.Since(start), metrics.OutcomeSuccess)
	metrics.AddPublished(report.PredictionsPublished)
	metrics.AddSerializationWarnings(report.SerializationWarnings)

	p.logger.Info("pipeline run complete",
		slog.String("run_id", report.RunID),
		slog.Int("rows", report.RowsReconciled),
		slog.Int("published", report.PredictionsPublished),
		slog.Int("warnings", report.SerializationWarnings),
		slog.Duration("elapsed", time.Since(start)))
	return report, nil
}

func (p *Pipeline) fail(report models.RunReport, timer *utils.StageTimer, start time.Time, stage string, err error) (models.RunReport, error) {
	report.FinishedAt = time.Now().UTC()
	report.Stages = stageTimings(timer)
	metrics.ObserveRun(time.Since(start), metrics.OutcomeError)
	p.logger.Error("pipeline run failed",
		slog.String("run_id", report.RunID),
		slog.String("stage", stage),
		slog.Any("error", err))
	return report, utils.NewAppError("pipeline.Run", stage+" stage", err)
}

func stageTimings(timer *utils.StageTimer) []models.StageTiming {
	stages := timer.Stages()
	out := make([]models.StageTiming, len(stages))
	for i, s := range stages {
		out[i] = models.StageTiming{Stage: s.Name, Duration: s.Duration}
	}
	return out
}
