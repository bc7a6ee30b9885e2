package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/presence-check/internal/audit"
	"github.com/kozaktomas/presence-check/internal/database"
)

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	templates database.TemplateReader
	journal   database.JournalReader
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(templates database.TemplateReader, journal database.JournalReader) *StatsHandler {
	return &StatsHandler{
		templates: templates,
		journal:   journal,
	}
}

// StatsResponse represents the statistics response
type StatsResponse struct {
	RegisteredAgents int `json:"registered_agents"`
	JournalEntries   int `json:"journal_entries"`
	Validated        int `json:"validated"`
	RejectedTooFar   int `json:"rejected_too_far"`
	RejectedMismatch int `json:"rejected_face_mismatch"`
}

// Get returns registration and journal counts
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	count, err := h.templates.CountTemplates(r.Context())
	if err != nil {
		log.Printf("Failed to count templates: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to count registrations")
		return
	}

	entries, err := h.journal.Query(r.Context(), audit.Filter{})
	if err != nil {
		log.Printf("Failed to query journal: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}

	resp := StatsResponse{RegisteredAgents: count, JournalEntries: len(entries)}
	for _, e := range entries {
		switch e.Status {
		case audit.StatusValidated:
			resp.Validated++
		case audit.StatusRejectedTooFar:
			resp.RejectedTooFar++
		case audit.StatusRejectedFaceMismatch:
			resp.RejectedMismatch++
		}
	}
	respondJSON(w, http.StatusOK, resp)
}
