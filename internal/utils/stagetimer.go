package utils

import (
	"sync"
	"time"
)

// Stage records one named pipeline phase and how long it took.
type Stage struct {
	Name     string
	Duration time.Duration
}

// StageTimer accumulates named stage durations for the run report.
type StageTimer struct {
	mu     sync.Mutex
	stages []Stage
}

// NewStageTimer creates an empty timer.
func NewStageTimer() *StageTimer {
	return &StageTimer{}
}

// Track runs fn and records its wall-clock duration under name, even when fn
// returns an error.
func (t *StageTimer) Track(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	t.mu.Lock()
	t.stages = append(t.stages, Stage{Name: name, Duration: time.Since(start)})
	t.mu.Unlock()
	return err
}

// Stages returns the recorded stages in execution order.
func (t *StageTimer) Stages() []Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Stage, len(t.stages))
	copy(out, t.stages)
	return out
}

// Total returns the sum of all recorded stage durations.
func (t *StageTimer) Total() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total time.Duration
	for _, s := range t.stages {
		total += s.Duration
	}
	return total
}
