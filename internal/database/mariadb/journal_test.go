package mariadb

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kozaktomas/presence-check/internal/audit"
)

func newMockRepo(t *testing.T) (*JournalRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewJournalRepository(NewPoolFromDB(db), time.UTC), mock
}

func TestMigrate(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS attendance_journal").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAppend(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO attendance_journal").
		WithArgs("12345678", "2024-03-01 08:30:00", 48.8566, 2.3522, 0, "RejectedFaceMismatch").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Append(context.Background(), audit.Entry{
		AgentID:   "12345678",
		Timestamp: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC),
		Latitude:  48.8566,
		Longitude: 2.3522,
		Status:    audit.StatusRejectedFaceMismatch,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestAppendInvalidEntry(t *testing.T) {
	tests := []struct {
		name  string
		entry audit.Entry
	}{
		{"status", audit.Entry{AgentID: "12345678", Status: 9}},
		{"agent id", audit.Entry{AgentID: "abc", Status: audit.StatusValidated}},
		{"NaN latitude", audit.Entry{AgentID: "12345678", Latitude: math.NaN(), Status: audit.StatusValidated}},
		{"negative distance", audit.Entry{AgentID: "12345678", DistanceMeters: -42, Status: audit.StatusValidated}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			if err := repo.Append(context.Background(), tt.entry); err == nil {
				t.Fatal("expected error")
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unexpected database calls: %v", err)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"agent_id", "recorded_at", "latitude", "longitude", "distance_m", "status"}).
		AddRow("12345678", "2024-03-01 08:30:00", 48.8566, 2.3522, 15, "Validated").
		AddRow("87654321", "2024-03-01 09:00:00", 48.8666, 2.3522, 1112, "RejectedTooFar")
	mock.ExpectQuery("SELECT agent_id, recorded_at").
		WithArgs("", "").
		WillReturnRows(rows)

	got, err := repo.Query(context.Background(), audit.Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []audit.Entry{
		{AgentID: "12345678", Timestamp: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), Latitude: 48.8566, Longitude: 2.3522, DistanceMeters: 15, Status: audit.StatusValidated},
		{AgentID: "87654321", Timestamp: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), Latitude: 48.8666, Longitude: 2.3522, DistanceMeters: 1112, Status: audit.StatusRejectedTooFar},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestQueryBadTimestamp(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"agent_id", "recorded_at", "latitude", "longitude", "distance_m", "status"}).
		AddRow("12345678", "01/03/2024", 0.0, 0.0, 0, "Validated")
	mock.ExpectQuery("SELECT agent_id, recorded_at").WillReturnRows(rows)

	if _, err := repo.Query(context.Background(), audit.Filter{AgentID: "12345678"}); err == nil {
		t.Fatal("expected error")
	}
}
