package filestore

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/presence-check/internal/audit"
)

func testEntry(agentID string, minute int, status audit.Status) audit.Entry {
	return audit.Entry{
		AgentID:        agentID,
		Timestamp:      time.Date(2025, 3, 14, 8, minute, 0, 0, time.UTC),
		Latitude:       6.1319,
		Longitude:      1.2228,
		DistanceMeters: minute,
		Status:         status,
	}
}

func TestJournalAppendAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal_presence.csv")
	j := NewJournal(path, audit.French, time.UTC)
	ctx := context.Background()

	entries := []audit.Entry{
		testEntry("12345678", 1, audit.StatusValidated),
		testEntry("87654321", 2, audit.StatusRejectedTooFar),
		testEntry("12345678", 3, audit.StatusRejectedFaceMismatch),
	}
	for _, e := range entries {
		if err := j.Append(ctx, e); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("journal has %d lines, want 4 (header + 3)", len(lines))
	}
	if lines[0] != "Telephone,DateHeure,Latitude,Longitude,Distance_m,Statut" {
		t.Errorf("header = %q", lines[0])
	}

	got, err := j.Query(ctx, audit.Filter{})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Query() returned %d entries, want 3", len(got))
	}
	for i := range entries {
		if !got[i].Equal(entries[i]) {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], entries[i])
		}
	}

	filtered, err := j.Query(ctx, audit.Filter{AgentID: "12345678"})
	if err != nil {
		t.Fatalf("Query(filter) error: %v", err)
	}
	if len(filtered) != 2 || filtered[0].DistanceMeters != 1 || filtered[1].DistanceMeters != 3 {
		t.Errorf("Query(filter) = %+v", filtered)
	}
}

func TestJournalQueryMissingFile(t *testing.T) {
	j := NewJournal(filepath.Join(t.TempDir(), "none.csv"), audit.Neutral, time.UTC)
	got, err := j.Query(context.Background(), audit.Filter{})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Query() = %v, want empty", got)
	}
}

func TestJournalRepairsPartialRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.csv")
	j := NewJournal(path, audit.Neutral, time.UTC)
	ctx := context.Background()

	if err := j.Append(ctx, testEntry("12345678", 1, audit.StatusValidated)); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	// Simulate a crash in the middle of a row.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("12345678,2025-03-14 08:0"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	// Readers ignore the incomplete row.
	got, err := j.Query(ctx, audit.Filter{})
	if err != nil {
		t.Fatalf("Query() with partial row error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Query() returned %d entries, want 1", len(got))
	}

	// The next append removes it.
	if err := j.Append(ctx, testEntry("12345678", 2, audit.StatusRejectedTooFar)); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	got, err = j.Query(ctx, audit.Filter{})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(got) != 2 || got[1].Status != audit.StatusRejectedTooFar {
		t.Errorf("Query() after repair = %+v", got)
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "08:0\n") || strings.Count(string(data), "\n") != 3 {
		t.Errorf("journal not repaired:\n%s", data)
	}
}

func TestJournalPartialHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.csv")
	if err := os.WriteFile(path, []byte("agent_id,times"), 0o600); err != nil {
		t.Fatal(err)
	}
	j := NewJournal(path, audit.Neutral, time.UTC)
	if err := j.Append(context.Background(), testEntry("12345678", 1, audit.StatusValidated)); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "agent_id,timestamp,latitude,longitude,distance_m,status\n") {
		t.Errorf("journal should restart with a full header:\n%s", data)
	}
}

func TestJournalConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.csv")
	ctx := context.Background()

	const writers = 8
	const perWriter = 20

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Separate Journal values open separate file descriptions, like separate processes.
			j := NewJournal(path, audit.Neutral, time.UTC)
			for i := range perWriter {
				e := testEntry(fmt.Sprintf("%08d", w), i%60, audit.StatusValidated)
				if err := j.Append(ctx, e); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Append() error: %v", err)
	}

	j := NewJournal(path, audit.Neutral, time.UTC)
	got, err := j.Query(ctx, audit.Filter{})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(got) != writers*perWriter {
		t.Errorf("Query() returned %d entries, want %d", len(got), writers*perWriter)
	}
	data, _ := os.ReadFile(path)
	if n := strings.Count(string(data), "agent_id,"); n != 1 {
		t.Errorf("header written %d times, want 1", n)
	}
}

func TestJournalAppendRejectsInvalidEntry(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *audit.Entry)
	}{
		{"agent id", func(e *audit.Entry) { e.AgentID = "abc" }},
		{"NaN latitude", func(e *audit.Entry) { e.Latitude = math.NaN() }},
		{"negative distance", func(e *audit.Entry) { e.DistanceMeters = -42 }},
		{"status", func(e *audit.Entry) { e.Status = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "journal_presence.csv")
			j := NewJournal(path, audit.French, time.UTC)

			e := testEntry("12345678", 5, audit.StatusValidated)
			tt.mutate(&e)
			if err := j.Append(context.Background(), e); err == nil {
				t.Fatal("Append() expected error")
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Errorf("journal file must not be created, stat error: %v", err)
			}
		})
	}
}
