package training

import (
	"sync/atomic"

	"github.com/foodcaststack/surpluscast/internal/models"
	"github.com/foodcaststack/surpluscast/internal/utils"
)

// Model is an immutable fitted regressor restricted to the feature set
// selected at training time. It is safe for concurrent readers; the trainer
// owns construction and nothing mutates it afterwards.
type Model struct {
	features []string
	ensemble *boostedEnsemble
	metrics  models.TrainingMetrics
}

// Features returns a copy of the selected feature names in vector order.
func (m *Model) Features() []string {
	out := make([]string, len(m.features))
	copy(out, m.features)
	return out
}

// Metrics returns the accuracy report captured at training time.
func (m *Model) Metrics() models.TrainingMetrics {
	return m.metrics
}

// Predict maps a feature vector to a non-negative surplus estimate. The
// vector must carry every selected feature; anything else is a
// FeatureMismatchError, never a silent fallback. Extra columns are ignored.
func (m *Model) Predict(values map[string]float64) (float64, error) {
	row := make([]float64, len(m.features))
	var missing []string
	for i, name := range m.features {
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		row[i] = v
	}
	if len(missing) > 0 {
		return 0, &utils.FeatureMismatchError{Missing: missing}
	}

	pred := m.ensemble.predict(row)
	if pred < 0 {
		pred = 0
	}
	return pred, nil
}

// Handle is an atomically swappable reference to the current production
// model. A retraining run publishes its model only after validation, so
// concurrent readers either see the previous model or the fully trained new
// one, never a partial artifact.
type Handle struct {
	ptr atomic.Pointer[Model]
}

// NewHandle creates an empty handle.
func NewHandle() *Handle {
	return &Handle{}
}

// Swap installs a new model and returns the previous one, which may be nil.
func (h *Handle) Swap(m *Model) *Model {
	return h.ptr.Swap(m)
}

// Load returns the current model, or nil when none has been published.
func (h *Handle) Load() *Model {
	return h.ptr.Load()
}
