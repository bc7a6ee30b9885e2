package audit

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/presence-check/internal/agent"
)

func sampleEntries(loc *time.Location) []Entry {
	return []Entry{
		{
			AgentID:        "12345678",
			Timestamp:      time.Date(2025, 3, 14, 8, 2, 11, 0, loc),
			Latitude:       6.1319,
			Longitude:      1.2228,
			DistanceMeters: 0,
			Status:         StatusValidated,
		},
		{
			AgentID:        "12345678",
			Timestamp:      time.Date(2025, 3, 14, 8, 5, 40, 0, loc),
			Latitude:       6.14,
			Longitude:      1.23,
			DistanceMeters: 1198,
			Status:         StatusRejectedTooFar,
		},
		{
			AgentID:        "87654321",
			Timestamp:      time.Date(2025, 3, 15, 17, 59, 59, 0, loc),
			Latitude:       -0.000123456789,
			Longitude:      179.99999,
			DistanceMeters: 0,
			Status:         StatusRejectedFaceMismatch,
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	loc := time.FixedZone("WAT", 0)
	entries := sampleEntries(loc)

	for _, labels := range []Labels{French, Neutral} {
		t.Run(labels.Header[0], func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, entries, labels); err != nil {
				t.Fatalf("Encode() error: %v", err)
			}

			got, err := Decode(&buf, loc)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if len(got) != len(entries) {
				t.Fatalf("Decode() returned %d entries, want %d", len(got), len(entries))
			}
			for i := range entries {
				if !got[i].Equal(entries[i]) {
					t.Errorf("entry %d = %+v, want %+v", i, got[i], entries[i])
				}
			}
		})
	}
}

// 05:30 and 06:30 UTC on 2025-11-02 are both 01:30 wall time in a zone that
// falls back that night. Offset-free rows only stay distinct in UTC.
func TestEncodeDecodeUTCFallBackHour(t *testing.T) {
	base := sampleEntries(time.UTC)[0]
	first := base
	first.Timestamp = time.Date(2025, 11, 2, 5, 30, 0, 0, time.UTC)
	second := base
	second.Timestamp = first.Timestamp.Add(time.Hour)

	var buf bytes.Buffer
	if err := Encode(&buf, []Entry{first, second}, Neutral); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	got, err := Decode(&buf, time.UTC)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Decode() returned %d entries, want 2", len(got))
	}
	if !got[0].Timestamp.Equal(first.Timestamp) || !got[1].Timestamp.Equal(second.Timestamp) {
		t.Errorf("timestamps = %v, %v; want %v, %v", got[0].Timestamp, got[1].Timestamp, first.Timestamp, second.Timestamp)
	}
}

func TestEncodeFrenchFormat(t *testing.T) {
	loc := time.FixedZone("WAT", 0)
	var buf bytes.Buffer
	if err := Encode(&buf, sampleEntries(loc)[:2], French); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	expected := "Telephone,DateHeure,Latitude,Longitude,Distance_m,Statut\n" +
		"12345678,2025-03-14 08:02:11,6.1319,1.2228,0,Validée\n" +
		"12345678,2025-03-14 08:05:40,6.14,1.23,1198,Refusée - Trop éloigné\n"
	if buf.String() != expected {
		t.Errorf("Encode() =\n%s\nwant\n%s", buf.String(), expected)
	}
}

func TestDecodeHistoricalJournal(t *testing.T) {
	// Rows as produced by the original pandas based tool, including a BOM.
	input := "\ufeffTelephone,DateHeure,Latitude,Longitude,Distance_m,Statut\n" +
		"90112233,2024-11-02 07:45:00,6.1319,1.2228,12,Validée\n" +
		"90112233,2024-11-02 07:50:00,6.1319,1.2228,0,Refusée - Visage non reconnu\n" +
		"90112233,2024-11-03 07:41:00,6.2,1.3,10512,Refusee - Trop eloigne\n"

	got, err := Decode(strings.NewReader(input), time.UTC)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := []Status{StatusValidated, StatusRejectedFaceMismatch, StatusRejectedTooFar}
	if len(got) != len(want) {
		t.Fatalf("Decode() returned %d entries, want %d", len(got), len(want))
	}
	for i, s := range want {
		if got[i].Status != s {
			t.Errorf("entry %d status = %v, want %v", i, got[i].Status, s)
		}
	}
	if got[2].DistanceMeters != 10512 {
		t.Errorf("entry 2 distance = %d, want 10512", got[2].DistanceMeters)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong column count", "12345678,2025-01-01 00:00:00,1,2,3\n"},
		{"bad timestamp", "12345678,2025-01-01T00:00:00,1,2,3,Validated\n"},
		{"bad latitude", "12345678,2025-01-01 00:00:00,north,2,3,Validated\n"},
		{"bad distance", "12345678,2025-01-01 00:00:00,1,2,3.5,Validated\n"},
		{"unknown status", "12345678,2025-01-01 00:00:00,1,2,3,Maybe\n"},
		{"short agent id", "abc,2025-03-14 08:05:40,6.14,1.23,12,Validée\n"},
		{"NaN latitude", "12345678,2025-03-14 08:05:40,NaN,1.23,12,Validée\n"},
		{"infinite longitude", "12345678,2025-03-14 08:05:40,6.14,+Inf,12,Validée\n"},
		{"negative distance", "12345678,2025-03-14 08:05:40,6.14,1.23,-42,Validée\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.input), time.UTC); err == nil {
				t.Error("Decode() expected error")
			}
		})
	}
}

func TestMarshalRowRejectsInvalidStatus(t *testing.T) {
	if _, err := MarshalRow(Entry{AgentID: "12345678"}, Neutral); err == nil {
		t.Error("MarshalRow() expected error for zero status")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		label    string
		expected Status
	}{
		{"Validée", StatusValidated},
		{"validee", StatusValidated},
		{"Validated", StatusValidated},
		{"Refusée - Trop éloigné", StatusRejectedTooFar},
		{"REFUSEE-TROP ELOIGNE", StatusRejectedTooFar},
		{"RejectedTooFar", StatusRejectedTooFar},
		{"Refusée - Visage non reconnu", StatusRejectedFaceMismatch},
		{"RejectedFaceMismatch", StatusRejectedFaceMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := ParseStatus(tt.label)
			if err != nil {
				t.Fatalf("ParseStatus(%q) error: %v", tt.label, err)
			}
			if got != tt.expected {
				t.Errorf("ParseStatus(%q) = %v, want %v", tt.label, got, tt.expected)
			}
		})
	}
}

func TestApplyFilter(t *testing.T) {
	entries := sampleEntries(time.UTC)

	if got := Apply(entries, Filter{}); len(got) != 3 {
		t.Errorf("Apply(empty filter) returned %d entries, want 3", len(got))
	}

	got := Apply(entries, Filter{AgentID: "12345678"})
	if len(got) != 2 {
		t.Fatalf("Apply(12345678) returned %d entries, want 2", len(got))
	}
	if !got[0].Timestamp.Before(got[1].Timestamp) {
		t.Error("Apply() did not preserve chronological order")
	}

	if got := Apply(entries, Filter{AgentID: "00000000"}); len(got) != 0 {
		t.Errorf("Apply(unknown) returned %d entries, want 0", len(got))
	}
}

func TestTruncateDistance(t *testing.T) {
	tests := []struct {
		in  float64
		out int
	}{
		{0, 0},
		{99.99, 99},
		{100, 100},
		{1198.95, 1198},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := TruncateDistance(tt.in); got != tt.out {
			t.Errorf("TruncateDistance(%v) = %d, want %d", tt.in, got, tt.out)
		}
	}
}

func TestInLocation(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata not available: %v", err)
	}
	entries := sampleEntries(time.UTC)
	got := InLocation(entries, paris)

	if len(got) != len(entries) {
		t.Fatalf("InLocation returned %d entries", len(got))
	}
	for i := range got {
		if !got[i].Equal(entries[i]) {
			t.Errorf("entry %d changed instant: %v vs %v", i, got[i].Timestamp, entries[i].Timestamp)
		}
		if got[i].Timestamp.Location() != paris {
			t.Errorf("entry %d location = %v", i, got[i].Timestamp.Location())
		}
		if entries[i].Timestamp.Location() != time.UTC {
			t.Error("InLocation modified its input")
		}
	}
}

func TestEntryValidate(t *testing.T) {
	valid := sampleEntries(time.UTC)[0]

	tests := []struct {
		name    string
		mutate  func(e *Entry)
		wantErr bool
	}{
		{"valid", func(e *Entry) {}, false},
		{"zero distance", func(e *Entry) { e.DistanceMeters = 0 }, false},
		{"short id", func(e *Entry) { e.AgentID = "1234" }, true},
		{"non-digit id", func(e *Entry) { e.AgentID = "1234567a" }, true},
		{"NaN latitude", func(e *Entry) { e.Latitude = math.NaN() }, true},
		{"infinite longitude", func(e *Entry) { e.Longitude = math.Inf(-1) }, true},
		{"negative distance", func(e *Entry) { e.DistanceMeters = -1 }, true},
		{"zero status", func(e *Entry) { e.Status = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			err := e.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeRejectsInvalidEntry(t *testing.T) {
	e := sampleEntries(time.UTC)[0]
	e.AgentID = "abc"

	var buf bytes.Buffer
	err := Encode(&buf, []Entry{e}, French)
	if err == nil {
		t.Fatal("Encode() expected error")
	}
	if _, merr := MarshalRow(e, French); merr == nil {
		t.Error("MarshalRow() expected error")
	}
	if !errors.Is(err, agent.ErrInvalidID) {
		t.Errorf("Encode() error = %v, want agent.ErrInvalidID", err)
	}
}

