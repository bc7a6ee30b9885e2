package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/presence-check/internal/database"
	"github.com/pgvector/pgvector-go"
)

const templateColumns = `agent_id, embedding, base_latitude, base_longitude, image, model, registered_at`

// TemplateRepository provides PostgreSQL-backed registration storage.
type TemplateRepository struct {
	pool *Pool
}

// NewTemplateRepository creates a new PostgreSQL template repository.
func NewTemplateRepository(pool *Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// SaveTemplate upserts a registration.
func (r *TemplateRepository) SaveTemplate(ctx context.Context, tmpl database.StoredTemplate) error {
	if len(tmpl.Embedding) == 0 {
		return errors.New("template has no embedding")
	}
	registeredAt := tmpl.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = time.Now()
	}

	query := `
		INSERT INTO agent_templates (` + templateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (agent_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			base_latitude = EXCLUDED.base_latitude,
			base_longitude = EXCLUDED.base_longitude,
			image = EXCLUDED.image,
			model = EXCLUDED.model,
			registered_at = EXCLUDED.registered_at
	`

	_, err := r.pool.Exec(ctx, query,
		tmpl.AgentID,
		pgvector.NewVector(tmpl.Embedding),
		tmpl.Base.Latitude,
		tmpl.Base.Longitude,
		tmpl.Image,
		tmpl.Model,
		registeredAt,
	)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

// GetTemplate retrieves a registration, returns nil if not found.
func (r *TemplateRepository) GetTemplate(ctx context.Context, agentID string) (*database.StoredTemplate, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM agent_templates WHERE agent_id = $1`, agentID)
	tmpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &tmpl, nil
}

// HasTemplate checks if an agent is registered.
func (r *TemplateRepository) HasTemplate(ctx context.Context, agentID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM agent_templates WHERE agent_id = $1)", agentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check template exists: %w", err)
	}
	return exists, nil
}

// CountTemplates returns the number of registrations.
func (r *TemplateRepository) CountTemplates(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM agent_templates").Scan(&count); err != nil {
		return 0, fmt.Errorf("count templates: %w", err)
	}
	return count, nil
}

// ListTemplates returns every registration ordered by agent ID.
func (r *TemplateRepository) ListTemplates(ctx context.Context) ([]database.StoredTemplate, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+templateColumns+` FROM agent_templates ORDER BY agent_id`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var templates []database.StoredTemplate
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (database.StoredTemplate, error) {
	var (
		tmpl database.StoredTemplate
		vec  pgvector.Vector
	)
	err := row.Scan(
		&tmpl.AgentID,
		&vec,
		&tmpl.Base.Latitude,
		&tmpl.Base.Longitude,
		&tmpl.Image,
		&tmpl.Model,
		&tmpl.RegisteredAt,
	)
	if err != nil {
		return database.StoredTemplate{}, err
	}
	tmpl.Embedding = vec.Slice()
	return tmpl, nil
}

var _ database.TemplateWriter = (*TemplateRepository)(nil)
