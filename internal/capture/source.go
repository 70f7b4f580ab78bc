package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/kinetic-data/repcoach/internal/monitoring"
	"github.com/kinetic-data/repcoach/internal/timeutil"
)

// SourceConfig tunes the capture actor's failure policy.
type SourceConfig struct {
	// FailureThreshold is the consecutive read-failure count that triggers
	// camera re-acquisition. Isolated failures below it are retried with no
	// delay beyond the natural frame interval.
	FailureThreshold int

	// ProbeOrder lists the device indices tried during re-acquisition.
	// The currently failing index is moved to the end of the list.
	ProbeOrder []int

	// WarnEvery throttles the consecutive-failure warning log.
	WarnEvery int
}

// DefaultSourceConfig returns the production failure policy.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		FailureThreshold: 150,
		ProbeOrder:       []int{0, 1, 2},
		WarnEvery:        30,
	}
}

// Source runs the capture actor. It maintains a single "latest frame" slot
// with overwrite semantics and offers each frame to the inference hand-off
// only when the hand-off is empty. Frames are dropped, never queued, so
// capture never backs up behind a slow estimator.
type Source struct {
	open  OpenFunc
	cfg   SourceConfig
	clock timeutil.Clock

	handoff chan *Frame

	mu        sync.Mutex
	latest    *Frame
	dev       Device
	sourceID  int
	running   bool
	available bool
	nextID    uint64
	fps       float64
	fpsCount  int
	fpsSince  time.Time

	stop chan struct{}
	done chan struct{}
}

// NewSource creates a stopped Source. Call Start to begin capturing.
func NewSource(open OpenFunc, cfg SourceConfig, clock timeutil.Clock) *Source {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 150
	}
	if len(cfg.ProbeOrder) == 0 {
		cfg.ProbeOrder = []int{0, 1, 2}
	}
	if cfg.WarnEvery <= 0 {
		cfg.WarnEvery = 30
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Source{
		open:      open,
		cfg:       cfg,
		clock:     clock,
		handoff:   make(chan *Frame, 1),
		available: true,
	}
}

// Handoff is the capacity-1 channel the inference worker receives from.
func (s *Source) Handoff() <-chan *Frame { return s.handoff }

// Start opens the device and launches the capture goroutine. Starting an
// already-running source with the same id is a no-op; a different id stops
// the current capture first.
func (s *Source) Start(sourceID int) error {
	s.mu.Lock()
	if s.running {
		if s.sourceID == sourceID {
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()
		s.Stop()
		s.mu.Lock()
	}

	dev, err := s.open(sourceID)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("open camera %d: %w", sourceID, err)
	}

	s.dev = dev
	s.sourceID = sourceID
	s.running = true
	s.available = true
	s.latest = nil
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	monitoring.Opsf("[capture] camera %d started", sourceID)
	go s.captureLoop(dev, sourceID, stop, done)
	return nil
}

// Stop halts capture. It joins the capture goroutine before releasing the
// device handle so the device is never closed under an in-flight Read.
func (s *Source) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done

	s.mu.Lock()
	dev := s.dev
	s.dev = nil
	s.mu.Unlock()
	if dev != nil {
		if err := dev.Close(); err != nil {
			monitoring.Opsf("[capture] close camera: %v", err)
		}
	}
	monitoring.Opsf("[capture] camera stopped")
}

// Latest returns the most recent frame, if any. Readers must treat the
// frame as read-only.
func (s *Source) Latest() (*Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil, false
	}
	return s.latest, true
}

// Running reports whether the capture actor is active.
func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Available reports whether a working camera is believed to exist. It goes
// false only after re-acquisition across all probe indices has failed.
func (s *Source) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// SourceID returns the device index currently (or last) in use.
func (s *Source) SourceID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceID
}

// FPS returns the measured capture rate.
func (s *Source) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

func (s *Source) captureLoop(dev Device, sourceID int, stop, done chan struct{}) {
	defer close(done)

	failures := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		frame, err := dev.Read()
		if err != nil || frame == nil {
			failures++
			if failures%s.cfg.WarnEvery == 0 {
				monitoring.Diagf("[capture] %d consecutive read failures on camera %d", failures, sourceID)
			}
			if failures >= s.cfg.FailureThreshold {
				next, nextID, ok := s.reacquire(dev, sourceID, stop)
				if !ok {
					monitoring.Opsf("[capture] no working camera found, marking source unavailable")
					s.mu.Lock()
					s.running = false
					s.available = false
					s.dev = nil
					s.mu.Unlock()
					return
				}
				dev, sourceID = next, nextID
				failures = 0
			}
			continue
		}

		failures = 0
		s.publish(frame)
	}
}

// publish stores the frame in the latest slot and offers it to the hand-off
// if the inference worker is idle. The critical section is kept narrow: no
// reader ever blocks the capture loop for more than a slot swap.
func (s *Source) publish(frame *Frame) {
	s.mu.Lock()
	s.nextID++
	frame.ID = s.nextID
	s.latest = frame

	s.fpsCount++
	now := s.clock.Now()
	if s.fpsSince.IsZero() {
		s.fpsSince = now
	} else if elapsed := now.Sub(s.fpsSince); elapsed >= time.Second {
		s.fps = float64(s.fpsCount) / elapsed.Seconds()
		s.fpsCount = 0
		s.fpsSince = now
	}
	s.mu.Unlock()

	select {
	case s.handoff <- frame:
	default:
		// Inference still busy: drop, never queue.
	}
}

// reacquire probes the configured device indices for a working camera,
// trying the failing index last. The old device is released first.
func (s *Source) reacquire(failed Device, failedID int, stop chan struct{}) (Device, int, bool) {
	monitoring.Opsf("[capture] too many failures on camera %d, probing for replacement", failedID)
	if err := failed.Close(); err != nil {
		monitoring.Diagf("[capture] close failing camera %d: %v", failedID, err)
	}

	order := make([]int, 0, len(s.cfg.ProbeOrder)+1)
	for _, id := range s.cfg.ProbeOrder {
		if id != failedID {
			order = append(order, id)
		}
	}
	order = append(order, failedID)

	for _, id := range order {
		select {
		case <-stop:
			return nil, 0, false
		default:
		}
		monitoring.Diagf("[capture] probing camera index %d", id)
		dev, err := s.open(id)
		if err != nil {
			continue
		}
		frame, err := dev.Read()
		if err != nil || frame == nil {
			dev.Close()
			continue
		}
		s.mu.Lock()
		s.dev = dev
		s.sourceID = id
		s.mu.Unlock()
		s.publish(frame)
		monitoring.Opsf("[capture] re-acquired camera on index %d", id)
		return dev, id, true
	}
	return nil, 0, false
}
