// Package verification decides attendance: it fuses the face match verdict
// and the geofence distance into one outcome and journals decided attempts.
package verification

import (
	"fmt"

	"github.com/kozaktomas/presence-check/internal/audit"
)

// Image names which frame of an attempt a detection refers to.
type Image string

const (
	ReferenceImage Image = "reference"
	CandidateImage Image = "candidate"
)

// Outcome is the result of one verification attempt. The set of
// implementations is closed: Validated, RejectedTooFar, RejectedFaceMismatch,
// RejectedNoFaceDetected and RejectedNoRegistration.
type Outcome interface {
	// Label is a stable snake_case name.
	Label() string
	// Audited reports whether the outcome is written to the journal.
	Audited() bool

	outcome()
}

// Validated means the face matched and the agent is within the geofence.
type Validated struct {
	Distance float64 // meters from the base location
}

// RejectedTooFar means the face matched but the agent is outside the geofence.
type RejectedTooFar struct {
	Distance float64
}

// RejectedFaceMismatch means the candidate face is not the registered one.
// FaceDistance is kept for the caller; the journal records a distance of 0.
type RejectedFaceMismatch struct {
	FaceDistance float64
}

// RejectedNoFaceDetected means the reference or candidate frame did not hold
// exactly one usable face.
type RejectedNoFaceDetected struct {
	Image Image
	Faces int
}

// RejectedNoRegistration means no template is on file for the agent.
type RejectedNoRegistration struct{}

func (Validated) Label() string              { return "validated" }
func (RejectedTooFar) Label() string         { return "rejected_too_far" }
func (RejectedFaceMismatch) Label() string   { return "rejected_face_mismatch" }
func (RejectedNoFaceDetected) Label() string { return "rejected_no_face_detected" }
func (RejectedNoRegistration) Label() string { return "rejected_no_registration" }

func (Validated) Audited() bool              { return true }
func (RejectedTooFar) Audited() bool         { return true }
func (RejectedFaceMismatch) Audited() bool   { return true }
func (RejectedNoFaceDetected) Audited() bool { return false }
func (RejectedNoRegistration) Audited() bool { return false }

func (Validated) outcome()              {}
func (RejectedTooFar) outcome()         {}
func (RejectedFaceMismatch) outcome()   {}
func (RejectedNoFaceDetected) outcome() {}
func (RejectedNoRegistration) outcome() {}

// JournalRecord returns the journal status and the integer distance written
// for o. ok is false for outcomes that are not journaled.
func JournalRecord(o Outcome) (status audit.Status, distance int, ok bool) {
	switch o := o.(type) {
	case Validated:
		return audit.StatusValidated, audit.TruncateDistance(o.Distance), true
	case RejectedTooFar:
		return audit.StatusRejectedTooFar, audit.TruncateDistance(o.Distance), true
	case RejectedFaceMismatch:
		return audit.StatusRejectedFaceMismatch, 0, true
	case RejectedNoFaceDetected, RejectedNoRegistration:
		return 0, 0, false
	default:
		panic(fmt.Sprintf("verification: unknown outcome %T", o))
	}
}

// OutcomeError returns the taxonomy error carried by a short-circuit
// outcome, or nil for decided outcomes.
func OutcomeError(o Outcome) error {
	switch o := o.(type) {
	case RejectedNoRegistration:
		return ErrNotRegistered
	case RejectedNoFaceDetected:
		return &DetectionError{Image: o.Image, Faces: o.Faces}
	default:
		return nil
	}
}

// Describe renders an outcome for operators.
func Describe(o Outcome) string {
	switch o := o.(type) {
	case Validated:
		return fmt.Sprintf("attendance validated (%d m from base)", audit.TruncateDistance(o.Distance))
	case RejectedTooFar:
		return fmt.Sprintf("rejected: %d m from base", audit.TruncateDistance(o.Distance))
	case RejectedFaceMismatch:
		return "rejected: face not recognized"
	case RejectedNoFaceDetected:
		if o.Faces == 0 {
			return fmt.Sprintf("no face detected in %s image", o.Image)
		}
		return fmt.Sprintf("%d faces detected in %s image, expected one", o.Faces, o.Image)
	case RejectedNoRegistration:
		return "agent not registered"
	default:
		return o.Label()
	}
}
