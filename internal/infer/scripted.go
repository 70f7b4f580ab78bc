package infer

import (
	"math"
	"sync"

	"github.com/kinetic-data/repcoach/internal/capture"
	"github.com/kinetic-data/repcoach/internal/pose"
	"github.com/kinetic-data/repcoach/internal/timeutil"
)

// Scripted is a deterministic estimator for the -dev binary and tests. It
// synthesizes a skeleton performing an endless squat cycle, with every
// landmark fully visible, so the whole pipeline downstream of the camera
// can run without real hardware or a model runtime.
type Scripted struct {
	// Period is the duration of one full squat cycle.
	Period float64
	Clock  timeutil.Clock

	mu    sync.Mutex
	calls int
}

// NewScripted returns a scripted estimator with a 3 second squat cycle.
func NewScripted(clock timeutil.Clock) *Scripted {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Scripted{Period: 3.0, Clock: clock}
}

func (s *Scripted) Model() string { return "scripted" }

// Estimate ignores the frame pixels and emits the next pose in the cycle.
func (s *Scripted) Estimate(frame *capture.Frame) (*pose.Result, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	// Knee angle swings between 70 (bottom) and 170 (standing).
	phase := float64(n) / 30.0 * (2 * math.Pi / s.Period)
	knee := 120 + 50*math.Cos(phase)

	kps := standingSkeleton()
	bendKnees(kps, knee)

	return &pose.Result{
		Keypoints: kps,
		Timestamp: s.Clock.Now(),
		Model:     s.Model(),
	}, nil
}

// standingSkeleton lays out a front-facing upright figure in a 640x480
// frame, all landmarks visibility 1.0.
func standingSkeleton() map[string]pose.Keypoint {
	at := func(x, y float64) pose.Keypoint {
		return pose.Keypoint{X: x, Y: y, NormX: x / 640, NormY: y / 480, Visibility: 1.0}
	}
	return map[string]pose.Keypoint{
		pose.Nose:           at(320, 60),
		pose.LeftShoulder:   at(280, 120),
		pose.RightShoulder:  at(360, 120),
		pose.LeftElbow:      at(270, 180),
		pose.RightElbow:     at(370, 180),
		pose.LeftWrist:      at(265, 240),
		pose.RightWrist:     at(375, 240),
		pose.LeftHip:        at(295, 250),
		pose.RightHip:       at(345, 250),
		pose.LeftKnee:       at(293, 340),
		pose.RightKnee:      at(347, 340),
		pose.LeftAnkle:      at(291, 430),
		pose.RightAnkle:     at(349, 430),
		pose.LeftHeel:       at(289, 445),
		pose.RightHeel:      at(351, 445),
		pose.LeftFootIndex:  at(285, 450),
		pose.RightFootIndex: at(355, 450),
	}
}

// bendKnees moves hips and knees so the knee angle approximates deg while
// ankles stay planted. Good enough to drive the phase machine; not anatomy.
func bendKnees(kps map[string]pose.Keypoint, deg float64) {
	// Fraction of full crouch: 170 degrees is standing, 70 is the bottom.
	f := (170 - deg) / 100
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	drop := 90 * f
	shift := 55 * f

	lower := func(name string, dy, dx float64) {
		kp := kps[name]
		kp.Y += dy
		kp.X += dx
		kp.NormX = kp.X / 640
		kp.NormY = kp.Y / 480
		kps[name] = kp
	}
	for _, name := range []string{
		pose.Nose,
		pose.LeftShoulder, pose.RightShoulder,
		pose.LeftElbow, pose.RightElbow, pose.LeftWrist, pose.RightWrist,
	} {
		lower(name, drop, 0)
	}
	lower(pose.LeftHip, drop, 0)
	lower(pose.RightHip, drop, 0)
	lower(pose.LeftKnee, drop/2, -shift)
	lower(pose.RightKnee, drop/2, shift)
}
