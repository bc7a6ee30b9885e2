// Package audit defines the attendance journal: one immutable entry per
// verification attempt that reached a decision, plus the tabular text codec
// used for persistence and export.
package audit

import (
	"fmt"
	"time"

	"github.com/kozaktomas/presence-check/internal/agent"
	"github.com/kozaktomas/presence-check/internal/geo"
)

// TimestampLayout is the journal timestamp format (YYYY-MM-DD HH:MM:SS).
const TimestampLayout = "2006-01-02 15:04:05"

// Status is the outcome recorded for an audited attempt. Only decided
// attempts are journaled, so the set is closed over these three values.
type Status int

const (
	StatusValidated Status = iota + 1
	StatusRejectedTooFar
	StatusRejectedFaceMismatch
)

// String returns the language-neutral label.
func (s Status) String() string {
	switch s {
	case StatusValidated:
		return "Validated"
	case StatusRejectedTooFar:
		return "RejectedTooFar"
	case StatusRejectedFaceMismatch:
		return "RejectedFaceMismatch"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	return s >= StatusValidated && s <= StatusRejectedFaceMismatch
}

// MarshalText encodes the neutral label, so JSON output carries names instead of numbers.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText accepts any label known to ParseStatus.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Entry is one journal row.
type Entry struct {
	AgentID        string    `json:"agent_id"`
	Timestamp      time.Time `json:"timestamp"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	DistanceMeters int       `json:"distance_m"`
	Status         Status    `json:"status"`
}

// Validate checks the row invariants: a well-formed agent identifier, finite
// coordinates, a non-negative distance and one of the three statuses.
func (e Entry) Validate() error {
	if _, err := agent.ParseID(e.AgentID); err != nil {
		return err
	}
	if err := (geo.Coordinate{Latitude: e.Latitude, Longitude: e.Longitude}).Validate(); err != nil {
		return err
	}
	if e.DistanceMeters < 0 {
		return fmt.Errorf("negative distance %d", e.DistanceMeters)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("invalid status %d", int(e.Status))
	}
	return nil
}

// Equal compares entries field by field, using time.Time.Equal for the timestamp.
func (e Entry) Equal(o Entry) bool {
	return e.AgentID == o.AgentID &&
		e.Timestamp.Equal(o.Timestamp) &&
		e.Latitude == o.Latitude &&
		e.Longitude == o.Longitude &&
		e.DistanceMeters == o.DistanceMeters &&
		e.Status == o.Status
}

// Filter narrows a journal query. The zero value matches every entry.
type Filter struct {
	AgentID string
}

// Matches reports whether e passes the filter.
func (f Filter) Matches(e Entry) bool {
	return f.AgentID == "" || e.AgentID == f.AgentID
}

// Apply returns the entries matching f, preserving order.
func Apply(entries []Entry, f Filter) []Entry {
	if f.AgentID == "" {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// TruncateDistance converts a computed distance to the integer meters
// recorded in the journal.
func TruncateDistance(meters float64) int {
	if meters <= 0 {
		return 0
	}
	return int(meters)
}

// InLocation returns a copy of entries with timestamps converted to loc, the
// zone journal files are written in.
func InLocation(entries []Entry, loc *time.Location) []Entry {
	if loc == nil {
		loc = time.Local
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Timestamp = e.Timestamp.In(loc)
		out[i] = e
	}
	return out
}
