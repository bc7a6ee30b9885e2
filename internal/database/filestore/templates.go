// Package filestore keeps registrations and the attendance journal on the
// local filesystem: one JSON file plus one reference image per agent, and an
// append-only CSV journal.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio"
	"github.com/kozaktomas/presence-check/internal/agent"
	"github.com/kozaktomas/presence-check/internal/database"
	"github.com/kozaktomas/presence-check/internal/geo"
)

const (
	templateExt = ".json"
	imageExt    = ".jpg"
)

// templateFile is the on-disk representation of a registration.
type templateFile struct {
	AgentID      string         `json:"agent_id"`
	Embedding    []float32      `json:"embedding"`
	Base         geo.Coordinate `json:"base"`
	Model        string         `json:"model,omitempty"`
	RegisteredAt time.Time      `json:"registered_at"`
}

// TemplateStore stores registrations as files named by agent identifier.
type TemplateStore struct {
	dir string
}

// NewTemplateStore creates the directory if needed.
func NewTemplateStore(dir string) (*TemplateStore, error) {
	if dir == "" {
		return nil, errors.New("templates directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating templates directory: %w", err)
	}
	return &TemplateStore{dir: dir}, nil
}

func (s *TemplateStore) paths(agentID string) (string, string, error) {
	// Identifiers are used as file names, so only well-formed ones are accepted.
	if !agent.IsValid(agentID) {
		return "", "", fmt.Errorf("%w: %q", agent.ErrInvalidID, agentID)
	}
	base := filepath.Join(s.dir, agentID)
	return base + templateExt, base + imageExt, nil
}

// SaveTemplate writes the reference image and then the template file. Each
// file is replaced atomically; a registration exists once its JSON is present.
func (s *TemplateStore) SaveTemplate(ctx context.Context, tmpl database.StoredTemplate) error {
	jsonPath, imagePath, err := s.paths(tmpl.AgentID)
	if err != nil {
		return err
	}

	if len(tmpl.Image) > 0 {
		if err := renameio.WriteFile(imagePath, tmpl.Image, 0o640); err != nil {
			return fmt.Errorf("writing reference image: %w", err)
		}
	} else if err := os.Remove(imagePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale reference image: %w", err)
	}

	data, err := json.Marshal(templateFile{
		AgentID:      tmpl.AgentID,
		Embedding:    tmpl.Embedding,
		Base:         tmpl.Base,
		Model:        tmpl.Model,
		RegisteredAt: tmpl.RegisteredAt,
	})
	if err != nil {
		return fmt.Errorf("encoding template: %w", err)
	}
	if err := renameio.WriteFile(jsonPath, data, 0o640); err != nil {
		return fmt.Errorf("writing template: %w", err)
	}
	return nil
}

// GetTemplate reads a registration, returns nil if the agent is not registered.
func (s *TemplateStore) GetTemplate(ctx context.Context, agentID string) (*database.StoredTemplate, error) {
	jsonPath, imagePath, err := s.paths(agentID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(jsonPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}

	var tf templateFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("decoding template %s: %w", agentID, err)
	}

	img, err := os.ReadFile(imagePath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading reference image: %w", err)
	}

	return &database.StoredTemplate{
		AgentID:      agentID,
		Embedding:    tf.Embedding,
		Base:         tf.Base,
		Image:        img,
		Model:        tf.Model,
		RegisteredAt: tf.RegisteredAt,
	}, nil
}

// HasTemplate checks if a registration file exists.
func (s *TemplateStore) HasTemplate(ctx context.Context, agentID string) (bool, error) {
	jsonPath, _, err := s.paths(agentID)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(jsonPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking template: %w", err)
	}
	return true, nil
}

func (s *TemplateStore) agentIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing templates directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, templateExt) {
			continue
		}
		id := strings.TrimSuffix(name, templateExt)
		if agent.IsValid(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CountTemplates returns the number of registration files.
func (s *TemplateStore) CountTemplates(ctx context.Context) (int, error) {
	ids, err := s.agentIDs()
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ListTemplates returns every registration ordered by agent ID.
func (s *TemplateStore) ListTemplates(ctx context.Context) ([]database.StoredTemplate, error) {
	ids, err := s.agentIDs()
	if err != nil {
		return nil, err
	}
	out := make([]database.StoredTemplate, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tmpl, err := s.GetTemplate(ctx, id)
		if err != nil {
			return nil, err
		}
		if tmpl != nil {
			out = append(out, *tmpl)
		}
	}
	return out, nil
}

var _ database.TemplateWriter = (*TemplateStore)(nil)
