package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/foodcaststack/surpluscast/internal/dataset"
	"github.com/foodcaststack/surpluscast/internal/features"
	"github.com/foodcaststack/surpluscast/internal/publish"
	"github.com/foodcaststack/surpluscast/internal/scoring"
	"github.com/foodcaststack/surpluscast/internal/training"
	"github.com/foodcaststack/surpluscast/internal/utils"
)

// fakeSource serves synthetic tables for two stores over 46 days.
type fakeSource struct {
	salesErr   error
	surplusErr error
}

func (f *fakeSource) Sales(ctx context.Context) ([]dataset.SalesRecord, error) {
	if f.salesErr != nil {
		return nil, f.salesErr
	}
	var records []dataset.SalesRecord
	for _, store := range []string{"1", "2"} {
		for i := 0; i < 46; i++ {
			records = append(records, dataset.SalesRecord{
				StoreID:    store,
				ProductID:  "7",
				Day:        fixtureDate(i),
				DailySales: 40 + 12*math.Sin(float64(i)/5),
			})
		}
	}
	return records, nil
}

func (f *fakeSource) Surplus(ctx context.Context) ([]dataset.SurplusRecord, error) {
	if f.surplusErr != nil {
		return nil, f.surplusErr
	}
	var records []dataset.SurplusRecord
	for si, store := range []string{"1", "2"} {
		for i := 0; i < 46; i++ {
			records = append(records, dataset.SurplusRecord{
				StoreID:       store,
				ProductID:     "7",
				Date:          fixtureDate(i),
				ProductName:   "Spinach",
				Category:      "produce",
				StoreLocation: "Downtown",
				StockLevel:    110 + 25*math.Cos(float64(i)/7),
				EndInventory:  60 + 30*math.Sin(float64(i+si)/6),
				Price:         3.5,
				ShelfLifeDays: 3,
			})
		}
	}
	return records, nil
}

func (f *fakeSource) Nutrition(ctx context.Context) (map[string]bool, error) {
	return map[string]bool{"spinach": true}, nil
}

func (f *fakeSource) Recipients(ctx context.Context) ([]dataset.RecipientRecord, error) {
	return []dataset.RecipientRecord{{RecipientID: "r1", Name: "Health Center"}}, nil
}

func fixtureDate(offset int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func testPipeline(t *testing.T, source TableSource, outputPath string) *Pipeline {
	t.Helper()
	trainer := training.NewTrainer(nil, training.Config{
		GBT: training.GBTParams{
			Estimators:      40,
			MaxDepth:        3,
			LearningRate:    0.1,
			Subsample:       0.8,
			MinSamplesSplit: 4,
			MinSamplesLeaf:  2,
			Seed:            42,
		},
		Folds:           3,
		TopK:            12,
		MinRows:         50,
		HoldoutFraction: 0.2,
	})
	return New(
		nil,
		source,
		features.NewBuilder(nil, nil),
		trainer,
		scoring.NewScorer(nil, 5, 2),
		publish.NewPublisher(nil, false),
		nil,
		training.NewHandle(),
		outputPath,
	)
}

func TestRunEndToEnd(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "predictions.json")
	p := testPipeline(t, &fakeSource{}, outputPath)

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.RunID == "" {
		t.Error("report missing run id")
	}
	if report.RowsReconciled != 92 {
		t.Errorf("rows reconciled = %d, want 92 (2 stores x 46 days)", report.RowsReconciled)
	}
	if report.FeatureRows != 90 {
		t.Errorf("feature rows = %d, want 90 (each series drops its tail)", report.FeatureRows)
	}
	if len(report.SelectedFeatures) != 12 {
		t.Errorf("selected features = %d, want 12", len(report.SelectedFeatures))
	}
	if report.PredictionsScored == 0 {
		t.Error("no predictions survived scoring")
	}
	if report.PredictionsPublished != report.PredictionsScored {
		t.Errorf("published %d of %d scored", report.PredictionsPublished, report.PredictionsScored)
	}
	if report.SerializationWarnings != 0 {
		t.Errorf("serialization warnings = %d", report.SerializationWarnings)
	}
	if report.FinishedAt.Before(report.StartedAt) {
		t.Error("finish time precedes start time")
	}
	wantStages := []string{"reconcile", "features", "train", "score", "publish"}
	if len(report.Stages) != len(wantStages) {
		t.Fatalf("got %d stage timings, want %d", len(report.Stages), len(wantStages))
	}
	for i, want := range wantStages {
		if report.Stages[i].Stage != want {
			t.Errorf("stage %d = %s, want %s", i, report.Stages[i].Stage, want)
		}
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("reading output file: %v", err)
	}
	var records []publish.Record
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(records) != report.PredictionsPublished {
		t.Fatalf("file holds %d records, report says %d", len(records), report.PredictionsPublished)
	}
	for _, r := range records {
		if r.PredictedSurplus == nil || *r.PredictedSurplus <= 5 {
			t.Errorf("below-threshold surplus published: %v", r.PredictedSurplus)
		}
		if !r.BrainDietFlag {
			t.Error("brain-diet flag lost between reconcile and publish")
		}
	}
}

func TestRunPublishesModelHandleAfterSuccess(t *testing.T) {
	handle := training.NewHandle()
	p := testPipeline(t, &fakeSource{}, filepath.Join(t.TempDir(), "out.json"))
	p.handle = handle

	if handle.Load() != nil {
		t.Fatal("handle populated before any run")
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle.Load() == nil {
		t.Fatal("handle empty after a successful run")
	}
}

func TestRunLeavesHandleUntouchedOnFailure(t *testing.T) {
	handle := training.NewHandle()
	source := &fakeSource{surplusErr: &utils.DataContractError{Table: "surplus", Msg: "required column missing"}}
	p := testPipeline(t, source, filepath.Join(t.TempDir(), "out.json"))
	p.handle = handle

	_, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected run failure")
	}
	if handle.Load() != nil {
		t.Fatal("failed run installed a model")
	}
}

func TestRunSourceErrorIsWrappedAndTyped(t *testing.T) {
	source := &fakeSource{surplusErr: &utils.DataContractError{Table: "surplus", Msg: "required column missing"}}
	p := testPipeline(t, source, filepath.Join(t.TempDir(), "out.json"))

	report, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	var contract *utils.DataContractError
	if !errors.As(err, &contract) {
		t.Errorf("contract error type lost in wrapping: %v", err)
	}
	var app *utils.AppError
	if !errors.As(err, &app) {
		t.Errorf("error not wrapped with operation context: %v", err)
	}
	if len(report.Stages) != 1 || report.Stages[0].Stage != "reconcile" {
		t.Errorf("failed run stages = %+v, want the reconcile attempt recorded", report.Stages)
	}
}

func TestRunDeterministicOutput(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.json")
	pathB := filepath.Join(dir, "b.json")

	if _, err := testPipeline(t, &fakeSource{}, pathA).Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := testPipeline(t, &fakeSource{}, pathB).Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	a, err := os.ReadFile(pathA)
	if err != nil {
		t.Fatalf("reading first output: %v", err)
	}
	b, err := os.ReadFile(pathB)
	if err != nil {
		t.Fatalf("reading second output: %v", err)
	}
	if string(a) != string(b) {
		t.Fatal("identical inputs and seed produced different published output")
	}
}

func TestRunWithoutSource(t *testing.T) {
	p := New(nil, nil, nil, nil, nil, nil, nil, nil, "")
	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected error when no table source configured")
	}
}
