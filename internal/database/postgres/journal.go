package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kozaktomas/presence-check/internal/audit"
	"github.com/kozaktomas/presence-check/internal/database"
)

// journalLockKey serialises appends across every process sharing the database.
const journalLockKey int64 = 0x6a6f75726e616c

// JournalRepository provides the PostgreSQL-backed attendance journal.
type JournalRepository struct {
	pool *Pool
}

// NewJournalRepository creates a new PostgreSQL journal repository.
func NewJournalRepository(pool *Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// Append inserts one entry. Rows are ordered by seq, which is assigned
// under a transaction-scoped advisory lock so concurrent writers never interleave.
func (r *JournalRepository) Append(ctx context.Context, entry audit.Entry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", journalLockKey); err != nil {
		return fmt.Errorf("lock journal: %w", err)
	}

	query := `
		INSERT INTO attendance_journal (id, agent_id, recorded_at, latitude, longitude, distance_m, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = tx.ExecContext(ctx, query,
		uuid.New(),
		entry.AgentID,
		entry.Timestamp,
		entry.Latitude,
		entry.Longitude,
		entry.DistanceMeters,
		entry.Status.String(),
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal entry: %w", err)
	}
	return nil
}

// Query returns entries in insertion order, optionally restricted to one agent.
func (r *JournalRepository) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	query := `
		SELECT agent_id, recorded_at, latitude, longitude, distance_m, status
		FROM attendance_journal
		WHERE ($1 = '' OR agent_id = $1)
		ORDER BY seq
	`
	rows, err := r.pool.Query(ctx, query, filter.AgentID)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e      audit.Entry
			status string
		)
		if err := rows.Scan(&e.AgentID, &e.Timestamp, &e.Latitude, &e.Longitude, &e.DistanceMeters, &status); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if e.Status, err = audit.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("journal entry status: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

var _ database.JournalWriter = (*JournalRepository)(nil)
