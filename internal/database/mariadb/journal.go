package mariadb

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/presence-check/internal/audit"
	"github.com/kozaktomas/presence-check/internal/database"
)

const createJournalTable = `
	CREATE TABLE IF NOT EXISTS attendance_journal (
		seq         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		agent_id    CHAR(8) NOT NULL,
		recorded_at DATETIME NOT NULL,
		latitude    DOUBLE NOT NULL,
		longitude   DOUBLE NOT NULL,
		distance_m  INT UNSIGNED NOT NULL,
		status      VARCHAR(32) NOT NULL,
		INDEX attendance_journal_agent_idx (agent_id, seq)
	) CHARACTER SET utf8mb4
`

// JournalRepository stores journal rows in MariaDB. Timestamps are stored
// as DATETIME in the repository's location and read back as text, so the
// DSN must leave parseTime disabled.
type JournalRepository struct {
	pool *Pool
	loc  *time.Location
}

// NewJournalRepository creates a journal repository. A nil loc means time.Local.
func NewJournalRepository(pool *Pool, loc *time.Location) *JournalRepository {
	if loc == nil {
		loc = time.Local
	}
	return &JournalRepository{pool: pool, loc: loc}
}

// Migrate creates the journal table if it does not exist.
func (r *JournalRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.db.ExecContext(ctx, createJournalTable); err != nil {
		return fmt.Errorf("create journal table: %w", err)
	}
	return nil
}

// Append inserts one entry. The AUTO_INCREMENT key fixes insertion order.
func (r *JournalRepository) Append(ctx context.Context, entry audit.Entry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}

	_, err := r.pool.db.ExecContext(ctx,
		`INSERT INTO attendance_journal (agent_id, recorded_at, latitude, longitude, distance_m, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.AgentID,
		entry.Timestamp.In(r.loc).Format(audit.TimestampLayout),
		entry.Latitude,
		entry.Longitude,
		entry.DistanceMeters,
		entry.Status.String(),
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// Query returns entries in insertion order, optionally restricted to one agent.
func (r *JournalRepository) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT agent_id, recorded_at, latitude, longitude, distance_m, status
		 FROM attendance_journal
		 WHERE (? = '' OR agent_id = ?)
		 ORDER BY seq`,
		filter.AgentID, filter.AgentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			e        audit.Entry
			recorded string
			status   string
		)
		if err := rows.Scan(&e.AgentID, &recorded, &e.Latitude, &e.Longitude, &e.DistanceMeters, &status); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if e.Timestamp, err = time.ParseInLocation(audit.TimestampLayout, recorded, r.loc); err != nil {
			return nil, fmt.Errorf("journal entry timestamp: %w", err)
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
