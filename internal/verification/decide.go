package verification

import (
	"math"

	"github.com/kozaktomas/presence-check/internal/database"
	"github.com/kozaktomas/presence-check/internal/facematch"
	"github.com/kozaktomas/presence-check/internal/geo"
)

// Policy holds the two tunables of a decision.
type Policy struct {
	Matcher      *facematch.Matcher
	RadiusMeters float64
}

// DefaultPolicy uses the euclidean metric at the default tolerance and a 100 m radius.
func DefaultPolicy() Policy {
	return Policy{
		Matcher:      facematch.NewMatcher(facematch.MetricEuclidean, facematch.DefaultTolerance),
		RadiusMeters: geo.DefaultRadiusMeters,
	}
}

func (p Policy) normalized() Policy {
	if p.Matcher == nil {
		p.Matcher = facematch.NewMatcher(facematch.MetricEuclidean, facematch.DefaultTolerance)
	}
	if p.RadiusMeters < 0 || math.IsNaN(p.RadiusMeters) || math.IsInf(p.RadiusMeters, 0) {
		p.RadiusMeters = geo.DefaultRadiusMeters
	}
	return p
}

// Decide combines a face verdict with a distance. A mismatch wins over any
// distance; otherwise the inclusive radius check picks the outcome.
func Decide(match bool, distance, radius float64) Outcome {
	if !match {
		return RejectedFaceMismatch{}
	}
	if geo.WithinRadius(distance, radius) {
		return Validated{Distance: distance}
	}
	return RejectedTooFar{Distance: distance}
}

// Evaluate decides one attempt from the stored registration, the candidate
// embeddings found in the captured frame and the current position. It has no
// side effects.
func Evaluate(tmpl database.StoredTemplate, candidates [][]float32, current geo.Coordinate, p Policy) Outcome {
	p = p.normalized()

	if len(tmpl.Embedding) == 0 {
		return RejectedNoFaceDetected{Image: ReferenceImage, Faces: 0}
	}
	if len(candidates) != 1 {
		return RejectedNoFaceDetected{Image: CandidateImage, Faces: len(candidates)}
	}

	faceDistance := p.Matcher.Distance(tmpl.Embedding, candidates[0])
	if !facematch.Match(faceDistance, p.Matcher.Tolerance) {
		return RejectedFaceMismatch{FaceDistance: faceDistance}
	}
	return Decide(true, geo.DistanceMeters(tmpl.Base, current), p.RadiusMeters)
}
