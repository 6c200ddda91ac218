package models

import "time"

// TrainingMetrics summarises model accuracy after training.
type TrainingMetrics struct {
	R2                float64            `json:"r2"`
	MAE               float64            `json:"mae"`
	CVMean            float64            `json:"cv_mean"`
	CVStd             float64            `json:"cv_std"`
	FoldR2            []float64          `json:"fold_r2"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
}

// StageTiming records one pipeline phase duration for the run report.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// RunReport is the run metadata surface: counts, metrics, timings, and any
// recoverable conditions hit during publishing.
type RunReport struct {
	RunID                 string          `json:"run_id"`
	StartedAt             time.Time       `json:"started_at"`
	FinishedAt            time.Time       `json:"finished_at"`
	RowsReconciled        int             `json:"rows_reconciled"`
	FeatureRows           int             `json:"feature_rows"`
	SelectedFeatures      []string        `json:"selected_features"`
	Metrics               TrainingMetrics `json:"metrics"`
	PredictionsScored     int             `json:"predictions_scored"`
	PredictionsPublished  int             `json:"predictions_published"`
	SerializationWarnings int             `json:"serialization_warnings"`
	CohortCounts          map[string]int  `json:"cohort_counts,omitempty"`
	Stages                []StageTiming   `json:"stages"`
}
