// Package clock supplies the current instant in the service's civil timezone.
// All window arithmetic is timezone-sensitive; components must take "now"
// from a Clock rather than calling time.Now directly.
package clock

import (
	"fmt"
	"time"
)

// Clock is the single source of "now".
type Clock interface {
	Now() time.Time
}

// Wall is a real clock pinned to a fixed civil timezone.
type Wall struct {
	loc *time.Location
}

// NewWall creates a wall clock for the given IANA timezone identifier.
func NewWall(tz string) (*Wall, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Wall{loc: loc}, nil
}

// Now returns the current instant in the configured timezone.
func (w *Wall) Now() time.Time {
	return time.Now().In(w.loc)
}

// Location returns the configured timezone.
func (w *Wall) Location() *time.Location {
	return w.loc
}

// Fixed is a clock frozen at a single instant, for tests and dry runs.
type Fixed struct {
	T time.Time
}

// Now returns the frozen instant.
func (f Fixed) Now() time.Time {
	return f.T
}
