package audit

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const utf8BOM = "\ufeff"

// Record converts an entry to its six journal columns.
func Record(e Entry, labels Labels) []string {
	return []string{
		e.AgentID,
		e.Timestamp.Format(TimestampLayout),
		strconv.FormatFloat(e.Latitude, 'f', -1, 64),
		strconv.FormatFloat(e.Longitude, 'f', -1, 64),
		strconv.Itoa(e.DistanceMeters),
		labels.Label(e.Status),
	}
}

// MarshalRow encodes a single CSV line, terminated by a newline. The journal
// appends it with one write so a row is either fully present or absent.
func MarshalRow(e Entry, labels Labels) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("entry for %s: %w", e.AgentID, err)
	}
	return marshalRecords([][]string{Record(e, labels)})
}

// MarshalHeader encodes the header line.
func MarshalHeader(labels Labels) ([]byte, error) {
	return marshalRecords([][]string{labels.Header[:]})
}

func marshalRecords(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("encoding csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode writes a header row followed by every entry. This is the export
// format and the on-disk journal format.
func Encode(w io.Writer, entries []Entry, labels Labels) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(labels.Header[:]); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("entry for %s: %w", e.AgentID, err)
		}
		if err := cw.Write(Record(e, labels)); err != nil {
			return fmt.Errorf("writing entry: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// Decode parses a journal stream. The header row is optional and may use
// either known label set; timestamps are interpreted in loc (time.Local if nil).
func Decode(r io.Reader, loc *time.Location) ([]Entry, error) {
	if loc == nil {
		loc = time.Local
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6

	var entries []Entry
	line := 0
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("reading journal line %d: %w", line, err)
		}
		if line == 1 {
			row[0] = strings.TrimPrefix(row[0], utf8BOM)
			if isHeader(row) {
				continue
			}
		}
		e, err := ParseRecord(row, loc)
		if err != nil {
			return nil, fmt.Errorf("journal line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ParseRecord converts six journal columns back to an entry.
func ParseRecord(row []string, loc *time.Location) (Entry, error) {
	if len(row) != 6 {
		return Entry{}, fmt.Errorf("expected 6 columns, got %d", len(row))
	}
	if loc == nil {
		loc = time.Local
	}

	ts, err := time.ParseInLocation(TimestampLayout, row[1], loc)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", row[1], err)
	}
	lat, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing latitude %q: %w", row[2], err)
	}
	lon, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing longitude %q: %w", row[3], err)
	}
	dist, err := strconv.Atoi(row[4])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing distance %q: %w", row[4], err)
	}
	status, err := ParseStatus(row[5])
	if err != nil {
		return Entry{}, err
	}

	e := Entry{
		AgentID:        row[0],
		Timestamp:      ts,
		Latitude:       lat,
		Longitude:      lon,
		DistanceMeters: dist,
		Status:         status,
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}
