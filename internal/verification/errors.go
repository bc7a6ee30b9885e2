package verification

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/presence-check/internal/agent"
)

var (
	// ErrInvalidIdentifier is returned before any side effect for malformed agent IDs.
	ErrInvalidIdentifier = agent.ErrInvalidID

	// ErrNotRegistered means no template is on file for the agent.
	ErrNotRegistered = errors.New("agent not registered")

	// ErrSensorUnavailable is the parent of every collaborator failure.
	ErrSensorUnavailable = errors.New("sensor unavailable")

	ErrCameraUnavailable   = fmt.Errorf("camera unavailable: %w", ErrSensorUnavailable)
	ErrLocationUnavailable = fmt.Errorf("location unavailable: %w", ErrSensorUnavailable)
	ErrEncoderUnavailable  = fmt.Errorf("face encoder unavailable: %w", ErrSensorUnavailable)

	// ErrDetectionAmbiguous means a frame did not contain exactly one usable face.
	ErrDetectionAmbiguous = errors.New("expected exactly one face")

	// ErrStorage marks persistence failures. Use errors.As with *StorageError for details.
	ErrStorage = errors.New("storage failure")

	// ErrDuplicateFace is returned by Register when the face already belongs to another agent.
	ErrDuplicateFace = errors.New("face already registered to another agent")
)

// StorageError wraps a template store or journal failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrStorage and the underlying error.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// DetectionError reports the face count of the offending frame.
type DetectionError struct {
	Image Image
	Faces int
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("%s image: found %d faces, %v", e.Image, e.Faces, ErrDetectionAmbiguous)
}

func (e *DetectionError) Unwrap() error {
	return ErrDetectionAmbiguous
}

// DuplicateFaceError names the agent that already owns the face.
type DuplicateFaceError struct {
	ExistingAgentID string
	Distance        float64
}

func (e *DuplicateFaceError) Error() string {
	return fmt.Sprintf("%v: %s (distance %.3f)", ErrDuplicateFace, e.ExistingAgentID, e.Distance)
}

func (e *DuplicateFaceError) Unwrap() error {
	return ErrDuplicateFace
}

// sensorError wraps a collaborator failure under one of the sensor sentinels.
func sensorError(sentinel, err error) error {
	return fmt.Errorf("%w: %w", sentinel, err)
}

// Retryable reports whether the operator can fix the input or simply try
// again. Storage failures and unknown errors are system problems.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrStorage):
		return false
	case errors.Is(err, ErrInvalidIdentifier),
		errors.Is(err, ErrNotRegistered),
		errors.Is(err, ErrDetectionAmbiguous),
		errors.Is(err, ErrSensorUnavailable),
		errors.Is(err, ErrDuplicateFace):
		return true
	default:
		return false
	}
}

// Kind returns a short name for the error class, used for metrics and API responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrInvalidIdentifier):
		return "invalid_identifier"
	case errors.Is(err, ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, ErrDetectionAmbiguous):
		return "detection_ambiguous"
	case errors.Is(err, ErrDuplicateFace):
		return "duplicate_face"
	case errors.Is(err, ErrCameraUnavailable):
		return "camera_unavailable"
	case errors.Is(err, ErrLocationUnavailable):
		return "location_unavailable"
	case errors.Is(err, ErrEncoderUnavailable):
		return "encoder_unavailable"
	case errors.Is(err, ErrSensorUnavailable):
		return "sensor_unavailable"
	default:
		return "internal"
	}
}
