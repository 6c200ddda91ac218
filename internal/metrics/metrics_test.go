package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRegisterIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("re-registration must tolerate AlreadyRegisteredError: %v", err)
	}
}

func TestObserveRunCollects(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("registration: %v", err)
	}

	ObserveRun(2*time.Second, OutcomeSuccess)
	ObserveRun(-time.Second, OutcomeError)
	ObserveRun(time.Second, "unexpected-label")
	AddPublished(5)
	AddPublished(-1)
	AddSerializationWarnings(2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"surpluscast_runs_total",
		"surpluscast_run_seconds",
		"surpluscast_predictions_published_total",
		"surpluscast_serialization_warnings_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not collected", want)
		}
	}
}
