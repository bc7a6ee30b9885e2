// Package capture provides frame sources for registration and verification.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ErrNoFrame is returned when a source produced no image data.
var ErrNoFrame = errors.New("no frame captured")

// maxSnapshotBytes bounds a single snapshot download.
const maxSnapshotBytes = 32 << 20

// Camera produces one still frame per call.
type Camera interface {
	CaptureFrame(ctx context.Context) ([]byte, error)
}

// Frame is an already captured image, e.g. an uploaded file.
type Frame []byte

// CaptureFrame returns the frame bytes.
func (f Frame) CaptureFrame(ctx context.Context) ([]byte, error) {
	if len(f) == 0 {
		return nil, ErrNoFrame
	}
	return f, nil
}

// FileCamera reads the frame from a file on every capture.
type FileCamera struct {
	Path string
}

// CaptureFrame reads the file.
func (c FileCamera) CaptureFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoFrame
	}
	return data, nil
}

// SnapshotCamera fetches a still image from an HTTP snapshot endpoint, as
// exposed by most IP cameras.
type SnapshotCamera struct {
	url    string
	client *http.Client
}

// NewSnapshotCamera creates a camera for the given snapshot URL.
func NewSnapshotCamera(url string) *SnapshotCamera {
	return &SnapshotCamera{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// CaptureFrame downloads one snapshot.
func (c *SnapshotCamera) CaptureFrame(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot error (status %d)", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoFrame
	}
	return data, nil
}
