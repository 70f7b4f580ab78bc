// Package capture owns the camera side of the sensing pipeline: a dedicated
// capture goroutine that keeps exactly one fresh frame available and offers
// frames to the inference hand-off without ever blocking on it.
package capture

import "time"

// Frame is one camera image. Pixels is an opaque encoded payload; this
// package never inspects image contents.
type Frame struct {
	ID        uint64
	Width     int
	Height    int
	Pixels    []byte
	Timestamp time.Time
}

// Device is a minimal camera handle. Read blocks until the next frame is
// available or fails; failures are counted by the Source and retried.
type Device interface {
	Read() (*Frame, error)
	Close() error
}

// OpenFunc opens the camera identified by sourceID. It is the seam that
// lets tests and the dev binary substitute synthetic devices.
type OpenFunc func(sourceID int) (Device, error)
