package viewport

import (
	"errors"
	"time"
)

// ErrUnavailable means the host has no visibility-observation capability.
// Callers treat it as an absent feature, not a failure.
var ErrUnavailable = errors.New("visibility observation unavailable")

// ElementID is an opaque handle to a visual unit on the page.
type ElementID string

// Options configure how one element is observed.
type Options struct {
	// Threshold is the fraction (0..1) of the element's area that must be visible.
	Threshold float64
	// RootMargin is applied to the viewport before intersection testing.
	RootMargin Margin
}

// Entry is one visibility notification.
type Entry struct {
	Target  ElementID
	Visible bool
	Ratio   float64
	Time    time.Time
}

// Observer watches elements and reports visibility changes in batches.
type Observer interface {
	Observe(id ElementID, opts Options)
	Unobserve(id ElementID)
	Disconnect()
}

// Platform creates observers. Implementations deliver batches asynchronously
// on the host's event loop, never from inside Observe.
type Platform interface {
	NewObserver(callback func([]Entry)) (Observer, error)
}

// Unavailable is a Platform without observation support.
type Unavailable struct{}

func (Unavailable) NewObserver(func([]Entry)) (Observer, error) { return nil, ErrUnavailable }
