package database

import (
	"context"

	"github.com/kozaktomas/presence-check/internal/audit"
)

// TemplateReader provides read-only access to agent registrations
type TemplateReader interface {
	// GetTemplate retrieves the registration for an agent, returns nil if not found
	GetTemplate(ctx context.Context, agentID string) (*StoredTemplate, error)
	// HasTemplate checks if an agent is registered
	HasTemplate(ctx context.Context, agentID string) (bool, error)
	// CountTemplates returns the number of registered agents
	CountTemplates(ctx context.Context) (int, error)
	// ListTemplates returns every registration ordered by agent ID
	ListTemplates(ctx context.Context) ([]StoredTemplate, error)
}

// TemplateWriter provides write access to agent registrations
type TemplateWriter interface {
	TemplateReader

	// SaveTemplate stores a registration, replacing any previous one for the same agent
	SaveTemplate(ctx context.Context, tmpl StoredTemplate) error
}

// JournalReader provides read access to the attendance journal
type JournalReader interface {
	// Query returns journal entries in insertion order, optionally filtered by agent
	Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
}

// JournalWriter provides append-only write access to the attendance journal
type JournalWriter interface {
	JournalReader

	// Append adds one entry after all existing ones. Entries are never rewritten.
	Append(ctx context.Context, entry audit.Entry) error
}
