package verification

import (
	"math"
	"testing"

	"github.com/kozaktomas/presence-check/internal/database"
	"github.com/kozaktomas/presence-check/internal/facematch"
	"github.com/kozaktomas/presence-check/internal/geo"
)

var (
	base      = geo.Coordinate{Latitude: 6.1319, Longitude: 1.2228}
	farAway   = geo.Coordinate{Latitude: 6.1400, Longitude: 1.2300}
	faceAgent = embedding(0.1)
	faceOther = embedding(0.5)
)

// embedding returns a 128-d vector with every component set to v.
func embedding(v float32) []float32 {
	e := make([]float32, 128)
	for i := range e {
		e[i] = v
	}
	return e
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		match    bool
		distance float64
		radius   float64
		want     Outcome
	}{
		{"match at base", true, 0, 100, Validated{Distance: 0}},
		{"match inside", true, 99.9, 100, Validated{Distance: 99.9}},
		{"match on the radius", true, 100, 100, Validated{Distance: 100}},
		{"match just outside", true, 100.0001, 100, RejectedTooFar{Distance: 100.0001}},
		{"match far", true, 1198.95, 100, RejectedTooFar{Distance: 1198.95}},
		{"zero radius at base", true, 0, 0, Validated{Distance: 0}},
		{"mismatch at base", false, 0, 100, RejectedFaceMismatch{}},
		{"mismatch far", false, 5000, 100, RejectedFaceMismatch{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.match, tc.distance, tc.radius); got != tc.want {
				t.Errorf("Decide(%t, %v, %v) = %#v, want %#v", tc.match, tc.distance, tc.radius, got, tc.want)
			}
		})
	}
}

func TestDecideMonotonicInDistance(t *testing.T) {
	const radius = 100.0
	for d := 0.0; d <= 300; d += 0.5 {
		got := Decide(true, d, radius)
		if d <= radius {
			if _, ok := got.(Validated); !ok {
				t.Fatalf("distance %v: got %T, want Validated", d, got)
			}
		} else if _, ok := got.(RejectedTooFar); !ok {
			t.Fatalf("distance %v: got %T, want RejectedTooFar", d, got)
		}
	}
}

func TestEvaluate(t *testing.T) {
	tmpl := database.StoredTemplate{AgentID: "12345678", Embedding: faceAgent, Base: base}
	policy := DefaultPolicy()

	tests := []struct {
		name       string
		tmpl       database.StoredTemplate
		candidates [][]float32
		current    geo.Coordinate
		check      func(t *testing.T, o Outcome)
	}{
		{
			name:       "same face at base",
			tmpl:       tmpl,
			candidates: [][]float32{faceAgent},
			current:    base,
			check: func(t *testing.T, o Outcome) {
				if o != (Validated{Distance: 0}) {
					t.Errorf("got %#v, want Validated(0)", o)
				}
			},
		},
		{
			name:       "same face far away",
			tmpl:       tmpl,
			candidates: [][]float32{faceAgent},
			current:    farAway,
			check: func(t *testing.T, o Outcome) {
				tf, ok := o.(RejectedTooFar)
				if !ok {
					t.Fatalf("got %#v, want RejectedTooFar", o)
				}
				if math.Abs(tf.Distance-1198.95) > 1 {
					t.Errorf("distance = %v, want about 1199 m", tf.Distance)
				}
			},
		},
		{
			name:       "other face",
			tmpl:       tmpl,
			candidates: [][]float32{faceOther},
			current:    base,
			check: func(t *testing.T, o Outcome) {
				fm, ok := o.(RejectedFaceMismatch)
				if !ok {
					t.Fatalf("got %#v, want RejectedFaceMismatch", o)
				}
				if fm.FaceDistance <= facematch.DefaultTolerance {
					t.Errorf("face distance = %v, want above tolerance", fm.FaceDistance)
				}
			},
		},
		{
			name:       "two candidate faces",
			tmpl:       tmpl,
			candidates: [][]float32{faceAgent, faceOther},
			current:    base,
			check: func(t *testing.T, o Outcome) {
				if o != (RejectedNoFaceDetected{Image: CandidateImage, Faces: 2}) {
					t.Errorf("got %#v", o)
				}
			},
		},
		{
			name:       "no candidate face",
			tmpl:       tmpl,
			candidates: nil,
			current:    base,
			check: func(t *testing.T, o Outcome) {
				if o != (RejectedNoFaceDetected{Image: CandidateImage, Faces: 0}) {
					t.Errorf("got %#v", o)
				}
			},
		},
		{
			name:       "reference without embedding",
			tmpl:       database.StoredTemplate{AgentID: "12345678", Base: base},
			candidates: [][]float32{faceAgent},
			current:    base,
			check: func(t *testing.T, o Outcome) {
				if o != (RejectedNoFaceDetected{Image: ReferenceImage, Faces: 0}) {
					t.Errorf("got %#v", o)
				}
			},
		},
		{
			name:       "dimension mismatch never matches",
			tmpl:       tmpl,
			candidates: [][]float32{make([]float32, 512)},
			current:    base,
			check: func(t *testing.T, o Outcome) {
				if _, ok := o.(RejectedFaceMismatch); !ok {
					t.Errorf("got %#v, want RejectedFaceMismatch", o)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, Evaluate(tc.tmpl, tc.candidates, tc.current, policy))
		})
	}
}

func TestEvaluateSelfMatchAtAnyTolerance(t *testing.T) {
	tmpl := database.StoredTemplate{Embedding: faceAgent, Base: base}
	for _, metric := range []facematch.Metric{facematch.MetricEuclidean, facematch.MetricCosine} {
		for _, tol := range []float64{0, 0.01, 0.3, 1} {
			p := Policy{Matcher: facematch.NewMatcher(metric, tol), RadiusMeters: 100}
			if _, ok := Evaluate(tmpl, [][]float32{faceAgent}, base, p).(Validated); !ok {
				t.Errorf("metric %s tolerance %v: self comparison not validated", metric, tol)
			}
		}
	}
}

func TestEvaluateNormalizesPolicy(t *testing.T) {
	tmpl := database.StoredTemplate{Embedding: faceAgent, Base: base}
	o := Evaluate(tmpl, [][]float32{faceAgent}, farAway, Policy{RadiusMeters: math.NaN()})
	if _, ok := o.(RejectedTooFar); !ok {
		t.Errorf("got %#v, want RejectedTooFar with the default radius", o)
	}
}

func TestJournalRecord(t *testing.T) {
	tests := []struct {
		outcome  Outcome
		wantOK   bool
		wantDist int
	}{
		{Validated{Distance: 42.9}, true, 42},
		{RejectedTooFar{Distance: 1198.95}, true, 1198},
		{RejectedFaceMismatch{FaceDistance: 0.7}, true, 0},
		{RejectedNoFaceDetected{Image: CandidateImage, Faces: 2}, false, 0},
		{RejectedNoRegistration{}, false, 0},
	}
	for _, tc := range tests {
		t.Run(tc.outcome.Label(), func(t *testing.T) {
			_, dist, ok := JournalRecord(tc.outcome)
			if ok != tc.wantOK || dist != tc.wantDist {
				t.Errorf("JournalRecord() = %d, %t, want %d, %t", dist, ok, tc.wantDist, tc.wantOK)
			}
			if ok != tc.outcome.Audited() {
				t.Errorf("Audited() = %t disagrees with JournalRecord", tc.outcome.Audited())
			}
		})
	}
}
