// Package infer runs pose estimation against the freshest captured frame
// and publishes results with monotonically increasing ids so downstream
// consumers can tell a new result from a re-read of the old one.
package infer

import (
	"context"
	"sync"

	"github.com/kinetic-data/repcoach/internal/capture"
	"github.com/kinetic-data/repcoach/internal/monitoring"
	"github.com/kinetic-data/repcoach/internal/pose"
	"github.com/kinetic-data/repcoach/internal/timeutil"
)

// Estimator turns one frame into keypoints. Implementations may be slow;
// the scheduler guarantees only one Estimate call is in flight at a time.
type Estimator interface {
	Estimate(frame *capture.Frame) (*pose.Result, error)
	Model() string
}

// Scheduler is the inference worker. It receives frames from the capture
// hand-off, runs the estimator, derives joint angles, and stores the latest
// result under a monotonically increasing ResultID.
type Scheduler struct {
	est   Estimator
	clock timeutil.Clock

	mu     sync.Mutex
	latest *pose.Result
	nextID uint64
}

// NewScheduler wraps an estimator. Run must be started for results to flow.
func NewScheduler(est Estimator, clock timeutil.Clock) *Scheduler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Scheduler{est: est, clock: clock}
}

// Run processes frames until the hand-off closes or ctx is cancelled.
// It is the single consumer of the capture hand-off: while an Estimate call
// is in flight the capacity-1 channel stays full and the capture side drops
// newer frames, which is exactly the freshest-frame policy we want.
func (s *Scheduler) Run(ctx context.Context, handoff <-chan *capture.Frame) {
	monitoring.Diagf("[infer] scheduler running, model=%s", s.est.Model())
	for {
		select {
		case <-ctx.Done():
			monitoring.Diagf("[infer] scheduler stopped: %v", ctx.Err())
			return
		case frame, ok := <-handoff:
			if !ok {
				monitoring.Diagf("[infer] hand-off closed, scheduler stopping")
				return
			}
			s.process(frame)
		}
	}
}

func (s *Scheduler) process(frame *capture.Frame) {
	result, err := s.est.Estimate(frame)
	if err != nil {
		monitoring.Tracef("[infer] estimate frame %d: %v", frame.ID, err)
		return
	}
	if result == nil {
		// No person in frame. Not an error, just nothing to publish.
		return
	}
	if result.Angles == nil {
		result.Angles = pose.CalculateAngles(result.Keypoints)
	}
	result.FrameID = frame.ID
	if result.Timestamp.IsZero() {
		result.Timestamp = s.clock.Now()
	}
	if result.Model == "" {
		result.Model = s.est.Model()
	}
	s.Publish(result)
}

// Publish stores a result and assigns its id. Exposed so tests and the
// calibration poller can inject results without a running capture loop.
func (s *Scheduler) Publish(result *pose.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	result.ResultID = s.nextID
	s.latest = result
}

// Latest returns the most recent result, if any. The result is shared and
// must be treated as read-only.
func (s *Scheduler) Latest() (*pose.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil {
		return nil, false
	}
	return s.latest, true
}
