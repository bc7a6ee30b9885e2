package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/presence-check/internal/agent"
	"github.com/kozaktomas/presence-check/internal/audit"
	"github.com/kozaktomas/presence-check/internal/capture"
	"github.com/kozaktomas/presence-check/internal/database"
	"github.com/kozaktomas/presence-check/internal/geo"
	"github.com/kozaktomas/presence-check/internal/verification"
)

// AttendanceEngine is the subset of the verification engine used by the API.
type AttendanceEngine interface {
	Register(ctx context.Context, req verification.RegisterRequest) (database.StoredTemplate, error)
	Verify(ctx context.Context, req verification.VerifyRequest) (verification.Result, error)
}

// AgentsHandler serves registration, verification and registration lookups.
type AgentsHandler struct {
	engine    AttendanceEngine
	templates database.TemplateReader
}

// NewAgentsHandler creates a new agents handler.
func NewAgentsHandler(engine AttendanceEngine, templates database.TemplateReader) *AgentsHandler {
	return &AgentsHandler{engine: engine, templates: templates}
}

// AgentResponse describes a registration.
type AgentResponse struct {
	AgentID      string         `json:"agent_id"`
	Base         geo.Coordinate `json:"base"`
	Model        string         `json:"model,omitempty"`
	EmbeddingDim int            `json:"embedding_dim"`
	HasImage     bool           `json:"has_image"`
	RegisteredAt time.Time      `json:"registered_at"`
}

func agentResponse(tmpl *database.StoredTemplate) AgentResponse {
	return AgentResponse{
		AgentID:      tmpl.AgentID,
		Base:         tmpl.Base,
		Model:        tmpl.Model,
		EmbeddingDim: tmpl.Dim(),
		HasImage:     len(tmpl.Image) > 0,
		RegisteredAt: tmpl.RegisteredAt,
	}
}

// VerifyResponse is the body of a decided verification.
type VerifyResponse struct {
	AttemptID      string         `json:"attempt_id"`
	AgentID        string         `json:"agent_id"`
	Outcome        string         `json:"outcome"`
	Message        string         `json:"message"`
	Current        geo.Coordinate `json:"current"`
	DistanceMeters int            `json:"distance_m"`
	Journaled      bool           `json:"journaled"`
	Entry          *audit.Entry   `json:"entry,omitempty"`
}

// lookupTemplate validates the {id} URL parameter and loads the registration.
// It writes the error response itself and returns nil on failure.
func (h *AgentsHandler) lookupTemplate(w http.ResponseWriter, r *http.Request) *database.StoredTemplate {
	id, err := agent.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil
	}
	tmpl, err := h.templates.GetTemplate(r.Context(), id.String())
	if err != nil {
		log.Printf("Failed to load template for agent %s: %v", sanitizeForLog(id.String()), err)
		respondError(w, http.StatusInternalServerError, "failed to load registration")
		return nil
	}
	if tmpl == nil {
		respondError(w, http.StatusNotFound, "agent not registered")
		return nil
	}
	return tmpl
}

// Get returns the registration of one agent.
func (h *AgentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if tmpl := h.lookupTemplate(w, r); tmpl != nil {
		respondJSON(w, http.StatusOK, agentResponse(tmpl))
	}
}

// Image returns the reference frame of one agent.
func (h *AgentsHandler) Image(w http.ResponseWriter, r *http.Request) {
	tmpl := h.lookupTemplate(w, r)
	if tmpl == nil {
		return
	}
	if len(tmpl.Image) == 0 {
		respondError(w, http.StatusNotFound, "no reference image")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(tmpl.Image)
}

// attemptInput is the frame and manual location parsed from a request.
type attemptInput struct {
	camera   capture.Camera
	location *geo.Coordinate
}

// parseAttempt reads an optional "file" part and optional "latitude" and
// "longitude" fields. Without a file the server's camera is used.
func parseAttempt(w http.ResponseWriter, r *http.Request) (attemptInput, error) {
	var in attemptInput

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return in, fmt.Errorf("invalid form: %w", err)
	}

	if file, _, err := r.FormFile("file"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return in, fmt.Errorf("failed to read file: %w", err)
		}
		in.camera = capture.Frame(data)
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return in, fmt.Errorf("invalid file: %w", err)
	}

	latStr, lonStr := r.FormValue("latitude"), r.FormValue("longitude")
	switch {
	case latStr == "" && lonStr == "":
	case latStr == "" || lonStr == "":
		return in, errors.New("latitude and longitude must be given together")
	default:
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return in, fmt.Errorf("invalid latitude %q", latStr)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return in, fmt.Errorf("invalid longitude %q", lonStr)
		}
		c := geo.Coordinate{Latitude: lat, Longitude: lon}
		if err := c.Validate(); err != nil {
			return in, err
		}
		in.location = &c
	}
	return in, nil
}

// Register captures and stores the agent's reference face.
func (h *AgentsHandler) Register(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := agent.ParseID(id); err != nil {
		respondAttemptError(w, err, "")
		return
	}

	in, err := parseAttempt(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl, err := h.engine.Register(r.Context(), verification.RegisterRequest{
		AgentID:  id,
		Location: in.location,
		Camera:   in.camera,
	})
	if err != nil {
		respondAttemptError(w, err, "")
		return
	}
	respondJSON(w, http.StatusCreated, agentResponse(&tmpl))
}

// Verify runs one attendance verification.
func (h *AgentsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := agent.ParseID(id); err != nil {
		respondAttemptError(w, err, "")
		return
	}

	in, err := parseAttempt(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.engine.Verify(r.Context(), verification.VerifyRequest{
		AgentID:  id,
		Location: in.location,
		Camera:   in.camera,
	})
	if err != nil {
		outcome := ""
		if res.Outcome != nil {
			outcome = res.Outcome.Label()
		}
		respondAttemptError(w, err, outcome)
		return
	}

	if oerr := verification.OutcomeError(res.Outcome); oerr != nil {
		respondAttemptError(w, oerr, res.Outcome.Label())
		return
	}

	resp := VerifyResponse{
		AttemptID: res.AttemptID,
		AgentID:   res.AgentID,
		Outcome:   res.Outcome.Label(),
		Message:   verification.Describe(res.Outcome),
		Current:   res.Current,
		Journaled: res.Entry != nil,
		Entry:     res.Entry,
	}
	if res.Entry != nil {
		resp.DistanceMeters = res.Entry.DistanceMeters
	}
	respondJSON(w, http.StatusOK, resp)
}
