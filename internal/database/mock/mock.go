// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/presence-check/internal/audit"
	"github.com/kozaktomas/presence-check/internal/database"
)

// MockTemplateStore is a mock implementation of database.TemplateWriter
type MockTemplateStore struct {
	mu        sync.RWMutex
	templates map[string]database.StoredTemplate

	// Error injection
	GetError   error
	HasError   error
	CountError error
	ListError  error
	SaveError  error

	// SaveCalls counts successful SaveTemplate calls
	SaveCalls int
}

// NewMockTemplateStore creates a new mock template store
func NewMockTemplateStore() *MockTemplateStore {
	return &MockTemplateStore{
		templates: make(map[string]database.StoredTemplate),
	}
}

// AddTemplate adds a template to the mock store without counting it as a save
func (m *MockTemplateStore) AddTemplate(tmpl database.StoredTemplate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[tmpl.AgentID] = tmpl
}

// GetTemplate retrieves a template by agent ID
func (m *MockTemplateStore) GetTemplate(ctx context.Context, agentID string) (*database.StoredTemplate, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	tmpl, ok := m.templates[agentID]
	if !ok {
		return nil, nil
	}
	return &tmpl, nil
}

// HasTemplate checks if a template exists
func (m *MockTemplateStore) HasTemplate(ctx context.Context, agentID string) (bool, error) {
	if m.HasError != nil {
		return false, m.HasError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.templates[agentID]
	return ok, nil
}

// CountTemplates returns the number of templates
func (m *MockTemplateStore) CountTemplates(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.templates), nil
}

// ListTemplates returns all templates ordered by agent ID
func (m *MockTemplateStore) ListTemplates(ctx context.Context) ([]database.StoredTemplate, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.StoredTemplate, 0, len(m.templates))
	for _, tmpl := range m.templates {
		out = append(out, tmpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

// SaveTemplate stores a template, replacing any existing one
func (m *MockTemplateStore) SaveTemplate(ctx context.Context, tmpl database.StoredTemplate) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[tmpl.AgentID] = tmpl
	m.SaveCalls++
	return nil
}

// MockJournal is a mock implementation of database.JournalWriter
type MockJournal struct {
	mu      sync.RWMutex
	entries []audit.Entry

	// Error injection
	AppendError error
	QueryError  error
}

// NewMockJournal creates a new empty mock journal
func NewMockJournal() *MockJournal {
	return &MockJournal{}
}

// Append records an entry
func (m *MockJournal) Append(ctx context.Context, entry audit.Entry) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Query returns entries matching the filter in insertion order
func (m *MockJournal) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return audit.Apply(append([]audit.Entry(nil), m.entries...), filter), nil
}

// Entries returns a copy of all recorded entries
func (m *MockJournal) Entries() []audit.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]audit.Entry(nil), m.entries...)
}

// Compile-time interface checks
var (
	_ database.TemplateWriter = (*MockTemplateStore)(nil)
	_ database.JournalWriter  = (*MockJournal)(nil)
)
