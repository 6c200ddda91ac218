package features

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const epsilon = 1e-8

func rollingName(base string, window int, kind string) string {
	return fmt.Sprintf("%s_%dday_%s", base, window, kind)
}

func lagName(base string, lag int) string {
	return fmt.Sprintf("%s_lag_%d", base, lag)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// sampleStd is the ddof=1 standard deviation; zero for fewer than two samples.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// trendSlope approximates a linear trend as last-minus-first over the window
// length. Requires at least three points; otherwise zero.
func trendSlope(window []float64) float64 {
	if len(window) < 3 {
		return 0
	}
	return (window[len(window)-1] - window[0]) / float64(len(window))
}

// coefficientOfVariation is std over mean for the trailing window. Requires at
// least three points; otherwise zero.
func coefficientOfVariation(window []float64) float64 {
	if len(window) < 3 {
		return 0
	}
	return sampleStd(window) / (mean(window) + epsilon)
}

// trailing returns the causal window ending at index i (inclusive), at most
// size elements long.
func trailing(values []float64, i, size int) []float64 {
	start := i - size + 1
	if start < 0 {
		start = 0
	}
	return values[start : i+1]
}
