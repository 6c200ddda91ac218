package features

import "math/rand"

// NoiseInjector applies a controlled multiplicative noise factor (mean 1.0,
// bounded variance) to defined targets. It emulates real-world
// unpredictability in training and test data and is never part of the
// inference path; the builder runs fully deterministic without one.
type NoiseInjector struct {
	rng *rand.Rand
	std float64
}

// NewNoiseInjector creates a seeded injector. The seed fixes the factor
// sequence so noisy runs stay reproducible.
func NewNoiseInjector(seed int64, std float64) *NoiseInjector {
	return &NoiseInjector{rng: rand.New(rand.NewSource(seed)), std: std}
}

// Apply scales target by a factor drawn from N(1.0, std), clamped to keep the
// result non-negative.
func (n *NoiseInjector) Apply(target float64) float64 {
	v := target * (1.0 + n.rng.NormFloat64()*n.std)
	if v < 0 {
		return 0
	}
	return v
}
