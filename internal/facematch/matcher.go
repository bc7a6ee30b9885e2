package facematch

import (
	"fmt"
	"math"
)

// DefaultTolerance is the default maximum distance for two faces to be
// considered the same person.
const DefaultTolerance = 0.3

// Metric names a distance function between two face embeddings.
type Metric string

const (
	// MetricEuclidean is the L2 distance, used by dlib-style 128-d encoders.
	MetricEuclidean Metric = "euclidean"
	// MetricCosine is 1 - cosine similarity, used by InsightFace-style encoders.
	MetricCosine Metric = "cosine"
)

// ParseMetric returns the metric named by s.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricEuclidean, MetricCosine:
		return Metric(s), nil
	case "":
		return MetricEuclidean, nil
	default:
		return "", fmt.Errorf("unknown face metric %q", s)
	}
}

// Matcher compares a reference embedding against a candidate.
type Matcher struct {
	Metric    Metric
	Tolerance float64
}

// NewMatcher creates a matcher. A negative or non-finite tolerance is replaced
// by DefaultTolerance.
func NewMatcher(metric Metric, tolerance float64) *Matcher {
	if tolerance < 0 || math.IsNaN(tolerance) || math.IsInf(tolerance, 0) {
		tolerance = DefaultTolerance
	}
	if metric == "" {
		metric = MetricEuclidean
	}
	return &Matcher{Metric: metric, Tolerance: tolerance}
}

// Distance returns the configured metric's distance between two embeddings.
// Smaller means more similar.
func (m *Matcher) Distance(reference, candidate []float32) float64 {
	if m.Metric == MetricCosine {
		return CosineDistance(reference, candidate)
	}
	return EuclideanDistance(reference, candidate)
}

// Match reports whether candidate is the same face as reference.
func (m *Matcher) Match(reference, candidate []float32) bool {
	return Match(m.Distance(reference, candidate), m.Tolerance)
}

// Match is the single threshold rule: a distance at or below tolerance is a match.
func Match(distance, tolerance float64) bool {
	return distance <= tolerance
}
