// Package location provides sources for the operator's current position.
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kozaktomas/presence-check/internal/geo"
)

// ErrUnavailable is returned when no source could produce a position.
var ErrUnavailable = errors.New("location unavailable")

// Locator returns the current position.
type Locator interface {
	Locate(ctx context.Context) (geo.Coordinate, error)
}

// Static is a fixed position, typically entered by hand.
type Static geo.Coordinate

// Locate returns the position after checking it is finite.
func (s Static) Locate(ctx context.Context) (geo.Coordinate, error) {
	c := geo.Coordinate(s)
	if err := c.Validate(); err != nil {
		return geo.Coordinate{}, err
	}
	return c, nil
}

// Chain tries each locator in order and returns the first position obtained.
// Nil locators are skipped.
type Chain []Locator

// Locate walks the chain. When every source fails the error wraps ErrUnavailable.
func (c Chain) Locate(ctx context.Context) (geo.Coordinate, error) {
	var errs []error
	for _, l := range c {
		if l == nil {
			continue
		}
		pos, err := l.Locate(ctx)
		if err == nil {
			return pos, nil
		}
		if ctx.Err() != nil {
			return geo.Coordinate{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return geo.Coordinate{}, fmt.Errorf("%w: no source configured", ErrUnavailable)
	}
	return geo.Coordinate{}, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
}

// HTTPLocator reads the position from a JSON endpoint such as a GPS daemon
// bridge or a device management API. The response must carry "latitude" and
// "longitude" fields in degrees.
type HTTPLocator struct {
	url    string
	client *http.Client
}

// NewHTTPLocator creates a locator for the given URL.
func NewHTTPLocator(url string) *HTTPLocator {
	return &HTTPLocator{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type positionResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Locate queries the endpoint.
func (l *HTTPLocator) Locate(ctx context.Context) (geo.Coordinate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("location request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return geo.Coordinate{}, fmt.Errorf("location error (status %d): %s", resp.StatusCode, string(body))
	}

	var pos positionResponse
	if err := json.Unmarshal(body, &pos); err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if pos.Latitude == nil || pos.Longitude == nil {
		return geo.Coordinate{}, errors.New("response has no position")
	}

	c := geo.Coordinate{Latitude: *pos.Latitude, Longitude: *pos.Longitude}
	if err := c.Validate(); err != nil {
		return geo.Coordinate{}, err
	}
	return c, nil
}
