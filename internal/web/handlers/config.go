package handlers

import (
	"net/http"

	"github.com/kozaktomas/presence-check/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse exposes the decision parameters in effect
type ConfigResponse struct {
	FaceMetric     string  `json:"face_metric"`
	FaceTolerance  float64 `json:"face_tolerance"`
	RadiusMeters   float64 `json:"radius_m"`
	DuplicateCheck bool    `json:"duplicate_check"`
	StorageBackend string  `json:"storage_backend"`
	JournalBackend string  `json:"journal_backend"`
	JournalLang    string  `json:"journal_language"`
	CameraEnabled  bool    `json:"camera_enabled"`
	LocatorEnabled bool    `json:"locator_enabled"`
}

// Get returns the configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ConfigResponse{
		FaceMetric:     h.config.Face.Metric,
		FaceTolerance:  h.config.Face.Tolerance,
		RadiusMeters:   h.config.Geofence.RadiusMeters,
		DuplicateCheck: h.config.Face.DuplicateCheck,
		StorageBackend: h.config.Storage.Backend,
		JournalBackend: h.config.Journal.Backend,
		JournalLang:    h.config.Journal.Language,
		CameraEnabled:  h.config.Camera.SnapshotURL != "",
		LocatorEnabled: h.config.Location.URL != "",
	})
}
