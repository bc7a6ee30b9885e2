package filestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kozaktomas/presence-check/internal/audit"
	"github.com/kozaktomas/presence-check/internal/database"
)

// Journal is an append-only CSV attendance journal. Appends take an
// exclusive advisory lock on the file so several processes can share it.
type Journal struct {
	path   string
	labels audit.Labels
	loc    *time.Location
}

// NewJournal creates a journal writing rows with the given labels. Timestamps
// are written and read back in loc (time.Local if nil).
func NewJournal(path string, labels audit.Labels, loc *time.Location) *Journal {
	if loc == nil {
		loc = time.Local
	}
	return &Journal{path: path, labels: labels, loc: loc}
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Append writes one row. A new file starts with the header row. A trailing
// incomplete row left by an interrupted writer is cut off first.
func (j *Journal) Append(ctx context.Context, entry audit.Entry) error {
	entry.Timestamp = entry.Timestamp.In(j.loc)
	row, err := audit.MarshalRow(entry, j.labels)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(j.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	if err := lockFile(f, true); err != nil {
		return fmt.Errorf("locking journal: %w", err)
	}
	defer unlockFile(f)

	size, err := repairTail(f)
	if err != nil {
		return fmt.Errorf("repairing journal: %w", err)
	}

	if size == 0 {
		header, err := audit.MarshalHeader(j.labels)
		if err != nil {
			return err
		}
		row = append(header, row...)
	}

	// Single write: the row is either fully appended or not at all.
	if _, err := f.Write(row); err != nil {
		return fmt.Errorf("appending journal row: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing journal: %w", err)
	}
	return nil
}

// Query reads the whole journal and returns matching entries in file order.
// A missing file is an empty journal.
func (j *Journal) Query(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	f, err := os.Open(j.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	defer f.Close()

	if err := lockFile(f, false); err != nil {
		return nil, fmt.Errorf("locking journal: %w", err)
	}
	defer unlockFile(f)

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading journal: %w", err)
	}
	data = completeLines(data)

	entries, err := audit.Decode(bytes.NewReader(data), j.loc)
	if err != nil {
		return nil, err
	}
	return audit.Apply(entries, filter), nil
}

// completeLines drops bytes after the last newline.
func completeLines(data []byte) []byte {
	return data[:bytes.LastIndexByte(data, '\n')+1]
}

// repairTail truncates f after its last newline and returns the resulting size.
func repairTail(f *os.File) (int64, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := st.Size()
	if size == 0 {
		return 0, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return 0, err
	}
	if last[0] == '\n' {
		return size, nil
	}

	// Scan backwards for the previous newline.
	const chunk = 4096
	end := size
	for end > 0 {
		start := max(end-chunk, 0)
		buf := make([]byte, end-start)
		if _, err := f.ReadAt(buf, start); err != nil && err != io.EOF {
			return 0, err
		}
		if i := bytes.LastIndexByte(buf, '\n'); i >= 0 {
			newSize := start + int64(i) + 1
			return newSize, f.Truncate(newSize)
		}
		end = start
	}
	return 0, f.Truncate(0)
}

var _ database.JournalWriter = (*Journal)(nil)
