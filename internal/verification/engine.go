package verification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/presence-check/internal/agent"
	"github.com/kozaktomas/presence-check/internal/audit"
	"github.com/kozaktomas/presence-check/internal/capture"
	"github.com/kozaktomas/presence-check/internal/database"
	"github.com/kozaktomas/presence-check/internal/embedder"
	"github.com/kozaktomas/presence-check/internal/geo"
	"github.com/kozaktomas/presence-check/internal/location"
	"github.com/kozaktomas/presence-check/internal/metrics"
)

// Encoder detects faces in a frame and returns one embedding per usable face.
type Encoder interface {
	DetectAndEncode(ctx context.Context, image []byte) (*embedder.Result, error)
}

// Engine runs registration and verification attempts. It keeps no state
// between attempts beyond the template store, the journal and the optional
// duplicate-face index built from the store.
type Engine struct {
	store   database.TemplateWriter
	journal database.JournalWriter
	encoder Encoder
	policy  Policy

	camera  capture.Camera
	locator location.Locator
	index   *database.TemplateIndex
	metrics *metrics.Metrics

	maxFrameSize int
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the face tolerance, metric and geofence radius.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p.normalized() }
}

// WithCamera sets the default frame source, used when a request carries none.
func WithCamera(c capture.Camera) Option {
	return func(e *Engine) { e.camera = c }
}

// WithLocator sets the automatic position source. Manual coordinates in a
// request are tried after it.
func WithLocator(l location.Locator) Option {
	return func(e *Engine) { e.locator = l }
}

// WithDuplicateCheck refuses registrations whose face matches another agent in idx.
func WithDuplicateCheck(idx *database.TemplateIndex) Option {
	return func(e *Engine) { e.index = idx }
}

// WithMetrics records outcomes and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMaxFrameSize bounds the longest edge of stored and encoded frames.
func WithMaxFrameSize(px int) Option {
	return func(e *Engine) { e.maxFrameSize = px }
}

// WithClock replaces time.Now for journal timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over the given store, journal and face encoder.
func NewEngine(store database.TemplateWriter, journal database.JournalWriter, encoder Encoder, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		journal:      journal,
		encoder:      encoder,
		policy:       DefaultPolicy(),
		maxFrameSize: capture.MaxFrameSize,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the engine's decision policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// RegisterRequest is one registration attempt.
type RegisterRequest struct {
	AgentID string
	// Location is a manually entered base position, used when the automatic
	// source is missing or fails.
	Location *geo.Coordinate
	// Camera overrides the engine's camera, e.g. with an uploaded frame.
	Camera capture.Camera
}

// Register captures the agent's face at the current position and stores it
// as the agent's template, replacing any previous registration.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (database.StoredTemplate, error) {
	tmpl, err := e.register(ctx, req)
	if err != nil {
		e.metrics.IncrementFailure("register", Kind(err))
		log.Printf("Registration failed for agent %s: %v", sanitizeForLog(req.AgentID), err)
		return database.StoredTemplate{}, err
	}
	e.metrics.IncrementRegistrations()
	log.Printf("Registered agent %s at %s", tmpl.AgentID, tmpl.Base)
	return tmpl, nil
}

func (e *Engine) register(ctx context.Context, req RegisterRequest) (database.StoredTemplate, error) {
	id, err := agent.ParseID(req.AgentID)
	if err != nil {
		return database.StoredTemplate{}, err
	}

	base, err := e.locate(ctx, req.Location)
	if err != nil {
		return database.StoredTemplate{}, err
	}

	frame, err := e.capture(ctx, req.Camera)
	if err != nil {
		return database.StoredTemplate{}, err
	}

	faces, model, err := e.encode(ctx, frame)
	if err != nil {
		return database.StoredTemplate{}, err
	}
	if len(faces) != 1 {
		return database.StoredTemplate{}, &DetectionError{Image: ReferenceImage, Faces: len(faces)}
	}

	if e.index != nil {
		if m, dup := e.index.FindOtherAgent(faces[0], id.String()); dup {
			return database.StoredTemplate{}, &DuplicateFaceError{ExistingAgentID: m.AgentID, Distance: m.Distance}
		}
	}

	tmpl := database.StoredTemplate{
		AgentID:      id.String(),
		Embedding:    faces[0],
		Base:         base,
		Image:        frame,
		Model:        model,
		RegisteredAt: e.now(),
	}
	if err := e.store.SaveTemplate(ctx, tmpl); err != nil {
		return database.StoredTemplate{}, storageError("save template", err)
	}
	if e.index != nil {
		e.index.Upsert(tmpl)
	}
	return tmpl, nil
}

// VerifyRequest is one verification attempt.
type VerifyRequest struct {
	AgentID string
	// Location is a manually entered current position, tried after the
	// automatic source.
	Location *geo.Coordinate
	// Camera overrides the engine's camera.
	Camera capture.Camera
}

// Result describes a verification attempt that produced an outcome.
type Result struct {
	AttemptID string         `json:"attempt_id"`
	AgentID   string         `json:"agent_id"`
	Outcome   Outcome        `json:"-"`
	Current   geo.Coordinate `json:"current"`
	// Entry is the journaled row, nil when the outcome is not audited.
	Entry *audit.Entry `json:"entry,omitempty"`
}

// Verify runs one attempt through the state machine: identifier, registration,
// current position, capture, detection, decision. RejectedNoRegistration and
// RejectedNoFaceDetected are returned as outcomes with a nil error and are
// not journaled. Decided outcomes are appended to the journal; if that fails
// the result is returned together with a *StorageError.
func (e *Engine) Verify(ctx context.Context, req VerifyRequest) (Result, error) {
	start := time.Now()
	res := Result{AttemptID: uuid.NewString(), AgentID: req.AgentID}

	err := e.verify(ctx, req, &res)
	e.metrics.ObserveVerify(time.Since(start))

	if res.Outcome != nil {
		e.metrics.IncrementOutcome(res.Outcome.Label())
	}
	if err != nil {
		e.metrics.IncrementFailure("verify", Kind(err))
		log.Printf("Attempt %s for agent %s failed: %v", res.AttemptID, sanitizeForLog(req.AgentID), err)
		return res, err
	}

	distance := 0
	if res.Entry != nil {
		distance = res.Entry.DistanceMeters
	}
	log.Printf("Attempt %s for agent %s: %s (distance %d m, journaled %t)",
		res.AttemptID, res.AgentID, res.Outcome.Label(), distance, res.Entry != nil)
	return res, nil
}

func (e *Engine) verify(ctx context.Context, req VerifyRequest, res *Result) error {
	id, err := agent.ParseID(req.AgentID)
	if err != nil {
		return err
	}

	tmpl, err := e.store.GetTemplate(ctx, id.String())
	if err != nil {
		return storageError("get template", err)
	}
	if tmpl == nil {
		res.Outcome = RejectedNoRegistration{}
		return nil
	}

	current, err := e.locate(ctx, req.Location)
	if err != nil {
		return err
	}
	res.Current = current

	frame, err := e.capture(ctx, req.Camera)
	if err != nil {
		return err
	}

	candidates, _, err := e.encode(ctx, frame)
	if err != nil {
		return err
	}

	reference := *tmpl
	if len(reference.Embedding) == 0 && len(reference.Image) > 0 {
		faces, _, err := e.encode(ctx, reference.Image)
		if err != nil {
			return err
		}
		if len(faces) != 1 {
			res.Outcome = RejectedNoFaceDetected{Image: ReferenceImage, Faces: len(faces)}
			return nil
		}
		reference.Embedding = faces[0]
	}

	res.Outcome = Evaluate(reference, candidates, current, e.policy)

	status, distance, audited := JournalRecord(res.Outcome)
	if !audited {
		return nil
	}

	entry := audit.Entry{
		AgentID:        id.String(),
		Timestamp:      e.now().Truncate(time.Second),
		Latitude:       current.Latitude,
		Longitude:      current.Longitude,
		DistanceMeters: distance,
		Status:         status,
	}
	stepStart := time.Now()
	err = e.journal.Append(ctx, entry)
	e.metrics.ObserveStep("journal", time.Since(stepStart))
	if err != nil {
		return storageError("append journal entry", err)
	}
	res.Entry = &entry
	return nil
}

// locate tries the automatic source and then the manual coordinates.
func (e *Engine) locate(ctx context.Context, manual *geo.Coordinate) (geo.Coordinate, error) {
	chain := location.Chain{e.locator}
	if manual != nil {
		chain = append(chain, location.Static(*manual))
	}

	start := time.Now()
	pos, err := chain.Locate(ctx)
	e.metrics.ObserveStep("location", time.Since(start))
	if err != nil {
		return geo.Coordinate{}, sensorError(ErrLocationUnavailable, err)
	}
	return pos, nil
}

// capture grabs a frame and normalizes it to a bounded JPEG.
func (e *Engine) capture(ctx context.Context, override capture.Camera) ([]byte, error) {
	cam := override
	if cam == nil {
		cam = e.camera
	}
	if cam == nil {
		return nil, fmt.Errorf("%w: no camera configured", ErrCameraUnavailable)
	}

	start := time.Now()
	raw, err := cam.CaptureFrame(ctx)
	e.metrics.ObserveStep("capture", time.Since(start))
	if err != nil {
		return nil, sensorError(ErrCameraUnavailable, err)
	}

	frame, err := capture.Normalize(raw, e.maxFrameSize)
	if err != nil {
		return nil, sensorError(ErrCameraUnavailable, err)
	}
	return frame, nil
}

// encode returns the embeddings of the usable faces in frame.
func (e *Engine) encode(ctx context.Context, frame []byte) ([][]float32, string, error) {
	if e.encoder == nil {
		return nil, "", fmt.Errorf("%w: no encoder configured", ErrEncoderUnavailable)
	}

	start := time.Now()
	res, err := e.encoder.DetectAndEncode(ctx, frame)
	e.metrics.ObserveStep("encode", time.Since(start))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, "", err
		}
		return nil, "", sensorError(ErrEncoderUnavailable, err)
	}

	faces := make([][]float32, 0, len(res.Faces))
	for _, f := range res.Faces {
		faces = append(faces, f.Embedding)
	}
	return faces, res.Model, nil
}
