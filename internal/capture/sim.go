package capture

import (
	"errors"
	"sync"
	"time"

	"github.com/kinetic-data/repcoach/internal/timeutil"
)

// ErrSimClosed is returned by SimDevice.Read after Close.
var ErrSimClosed = errors.New("sim device closed")

// SimDevice is a synthetic camera for tests and the -dev binary. It emits
// fixed-size frames at the configured interval and can be told to start
// failing after a number of reads, which exercises the re-acquisition path.
type SimDevice struct {
	Interval  time.Duration
	Width     int
	Height    int
	FailAfter int // fail every Read once this many succeeded; 0 = never
	Clock     timeutil.Clock

	mu     sync.Mutex
	reads  int
	closed bool
}

// NewSimDevice returns a 640x480 synthetic camera at roughly 30 fps.
func NewSimDevice(clock timeutil.Clock) *SimDevice {
	return &SimDevice{
		Interval: 33 * time.Millisecond,
		Width:    640,
		Height:   480,
		Clock:    clock,
	}
}

func (d *SimDevice) Read() (*Frame, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrSimClosed
	}
	d.reads++
	reads := d.reads
	d.mu.Unlock()

	if d.FailAfter > 0 && reads > d.FailAfter {
		return nil, errors.New("sim read failure")
	}

	clock := d.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if d.Interval > 0 {
		clock.Sleep(d.Interval)
	}
	return &Frame{
		Width:     d.Width,
		Height:    d.Height,
		Pixels:    make([]byte, 0),
		Timestamp: clock.Now(),
	}, nil
}

func (d *SimDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Reads returns how many Read calls have been made.
func (d *SimDevice) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}
