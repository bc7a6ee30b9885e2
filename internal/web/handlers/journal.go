package handlers

import (
	"bytes"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/presence-check/internal/agent"
	"github.com/kozaktomas/presence-check/internal/audit"
	"github.com/kozaktomas/presence-check/internal/database"
)

// ExportFilename is the attachment name of a journal download.
const ExportFilename = "journal_presence.csv"

// JournalHandler lists and exports the attendance journal.
type JournalHandler struct {
	journal database.JournalReader
	labels  audit.Labels
	loc     *time.Location
}

// NewJournalHandler creates a journal handler. Exports use labels and
// timestamps in loc.
func NewJournalHandler(journal database.JournalReader, labels audit.Labels, loc *time.Location) *JournalHandler {
	if loc == nil {
		loc = time.Local
	}
	return &JournalHandler{journal: journal, labels: labels, loc: loc}
}

// JournalResponse is a journal listing.
type JournalResponse struct {
	Entries []audit.Entry `json:"entries"`
	Count   int           `json:"count"`
}

// filter reads the optional ?agent= parameter.
func (h *JournalHandler) filter(w http.ResponseWriter, r *http.Request) (audit.Filter, bool) {
	id := r.URL.Query().Get("agent")
	if id != "" && !agent.IsValid(id) {
		respondError(w, http.StatusBadRequest, agent.ErrInvalidID.Error())
		return audit.Filter{}, false
	}
	return audit.Filter{AgentID: id}, true
}

func (h *JournalHandler) query(w http.ResponseWriter, r *http.Request) ([]audit.Entry, bool) {
	f, ok := h.filter(w, r)
	if !ok {
		return nil, false
	}
	entries, err := h.journal.Query(r.Context(), f)
	if err != nil {
		log.Printf("Failed to query journal: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to read journal")
		return nil, false
	}
	return audit.InLocation(entries, h.loc), true
}

// List returns journal entries in chronological order.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.query(w, r)
	if !ok {
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	respondJSON(w, http.StatusOK, JournalResponse{Entries: entries, Count: len(entries)})
}

// Export downloads the journal as CSV with a header row.
func (h *JournalHandler) Export(w http.ResponseWriter, r *http.Request) {
	entries, ok := h.query(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := audit.Encode(&buf, entries, h.labels); err != nil {
		log.Printf("Failed to encode journal export: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to export journal")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Failed to write journal export: %v", err)
	}
}
