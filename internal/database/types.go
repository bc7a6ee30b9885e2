package database

import (
	"time"

	"github.com/kozaktomas/presence-check/internal/geo"
)

// StoredTemplate is an agent registration: the reference face embedding,
// the base location and the frame the embedding was computed from.
type StoredTemplate struct {
	AgentID      string
	Embedding    []float32
	Base         geo.Coordinate
	Image        []byte // reference frame (JPEG), may be empty
	Model        string // embedding model reported by the encoder
	RegisteredAt time.Time
}

// Dim returns the embedding dimension.
func (t *StoredTemplate) Dim() int {
	return len(t.Embedding)
}
