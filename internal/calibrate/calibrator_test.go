package calibrate

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kinetic-data/repcoach/internal/engine"
	"github.com/kinetic-data/repcoach/internal/pose"
	"github.com/kinetic-data/repcoach/internal/timeutil"
)

// scriptPoller returns a new result on every call, built by the frame
// function from the call index.
type scriptPoller struct {
	frame func(n int) map[string]pose.Keypoint
	calls int
}

func (p *scriptPoller) Latest() (*pose.Result, bool) {
	p.calls++
	return &pose.Result{
		ResultID:  uint64(p.calls),
		Keypoints: p.frame(p.calls),
	}, true
}

// tposeKeypoints is a stationary, fully visible figure with long legs.
func tposeKeypoints(int) map[string]pose.Keypoint {
	at := func(x, y float64) pose.Keypoint {
		return pose.Keypoint{NormX: x, NormY: y, Visibility: 0.95}
	}
	return map[string]pose.Keypoint{
		pose.LeftShoulder: at(0.4, 0.2), pose.RightShoulder: at(0.6, 0.2),
		pose.LeftWrist: at(0.2, 0.2), pose.RightWrist: at(0.8, 0.2),
		pose.LeftHip: at(0.4, 0.5), pose.RightHip: at(0.6, 0.5),
		pose.LeftKnee: at(0.4, 0.7), pose.RightKnee: at(0.6, 0.7),
		pose.LeftAnkle: at(0.4, 0.95), pose.RightAnkle: at(0.6, 0.95),
	}
}

func testCalibrator() (*Calibrator, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	c := New(DefaultConfig(), clock, nil)
	return c, clock
}

func TestCalibrationSuccess(t *testing.T) {
	c, _ := testCalibrator()
	poller := &scriptPoller{frame: tposeKeypoints}

	var progress []Progress
	outcome := c.Run(context.Background(), poller, 0, func(p Progress) {
		progress = append(progress, p)
	})

	if !outcome.Success {
		t.Fatalf("calibration failed: %s", outcome.Message)
	}
	if outcome.SamplesCollected != 50 {
		t.Errorf("samples = %d, want 50", outcome.SamplesCollected)
	}
	if len(progress) != 50 {
		t.Errorf("progress callbacks = %d, want 50", len(progress))
	}
	if last := progress[len(progress)-1]; last.Progress != 1.0 {
		t.Errorf("final progress = %v, want 1.0", last.Progress)
	}

	// Legs 0.45 vs torso 0.3: long-legged, so the squat bottoms out higher.
	if outcome.Thresholds["squat_knee_angle"] != 85 {
		t.Errorf("squat_knee_angle = %v, want 85", outcome.Thresholds["squat_knee_angle"])
	}
	if outcome.BodyType != engine.BodyAthletic {
		t.Errorf("body type = %s, want athletic", outcome.BodyType)
	}
	if outcome.Ratios == nil {
		t.Fatal("no ratios in outcome")
	}
}

func TestCalibrationRequestedDuration(t *testing.T) {
	c, _ := testCalibrator()
	poller := &scriptPoller{frame: tposeKeypoints}

	// A client asking for a 2s hold gets 20 samples at 10 Hz, not the
	// configured 5s window.
	var progress []Progress
	outcome := c.Run(context.Background(), poller, 2*time.Second, func(p Progress) {
		progress = append(progress, p)
	})

	if !outcome.Success {
		t.Fatalf("calibration failed: %s", outcome.Message)
	}
	if outcome.SamplesCollected != 20 {
		t.Errorf("samples = %d, want 20", outcome.SamplesCollected)
	}
	if last := progress[len(progress)-1]; last.Total != 20 {
		t.Errorf("progress total = %d, want 20", last.Total)
	}
}

func TestCalibrationInsufficientSamples(t *testing.T) {
	c, _ := testCalibrator()
	// Knees never visible enough, so no sample is ever accepted.
	poller := &scriptPoller{frame: func(n int) map[string]pose.Keypoint {
		kps := tposeKeypoints(n)
		kps[pose.LeftKnee] = pose.Keypoint{NormX: 0.4, NormY: 0.7, Visibility: 0.3}
		return kps
	}}

	outcome := c.Run(context.Background(), poller, 0, nil)
	if outcome.Success {
		t.Fatal("calibration succeeded with no usable samples")
	}
	if !strings.HasPrefix(outcome.Message, "Not enough data") {
		t.Errorf("message = %q", outcome.Message)
	}
	if outcome.SamplesCollected != 0 {
		t.Errorf("samples = %d, want 0", outcome.SamplesCollected)
	}
}

func TestCalibrationTooMuchMovement(t *testing.T) {
	c, _ := testCalibrator()
	// The user sways side to side; torso landmarks jump every sample.
	poller := &scriptPoller{frame: func(n int) map[string]pose.Keypoint {
		kps := tposeKeypoints(n)
		shift := 0.0
		if n%2 == 0 {
			shift = 0.2
		}
		for _, name := range pose.TorsoLandmarks {
			kp := kps[name]
			kp.NormX += shift
			kps[name] = kp
		}
		return kps
	}}

	outcome := c.Run(context.Background(), poller, 0, nil)
	if outcome.Success {
		t.Fatal("calibration succeeded despite movement")
	}
	if !strings.Contains(outcome.Message, "Hold still") {
		t.Errorf("message = %q", outcome.Message)
	}
}

func TestCalibrationCancelled(t *testing.T) {
	c, _ := testCalibrator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := c.Run(ctx, &scriptPoller{frame: tposeKeypoints}, 0, nil)
	if outcome.Success {
		t.Fatal("cancelled calibration reported success")
	}
	if outcome.Message != "Calibration cancelled." {
		t.Errorf("message = %q", outcome.Message)
	}
}

func TestDeriveThresholds(t *testing.T) {
	tests := []struct {
		name   string
		ratios pose.BodyRatios
		key    string
		want   float64
	}{
		{"long legs squat lower bound", pose.BodyRatios{LegTorsoRatio: 1.3}, "squat_knee_angle", 85},
		{"short legs squat lower bound", pose.BodyRatios{LegTorsoRatio: 0.8}, "squat_knee_angle", 95},
		{"average build keeps base", pose.BodyRatios{LegTorsoRatio: 1.0}, "squat_knee_angle", 90},
		{"wide shoulders pushup depth", pose.BodyRatios{LegTorsoRatio: 1.0, ShoulderWidth: 0.4}, "pushup_elbow_angle", 85},
		{"long arms curl range", pose.BodyRatios{LegTorsoRatio: 1.0, ArmLength: 0.3}, "bicep_curl_angle", 50},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveThresholds(tc.ratios)
			if got[tc.key] != tc.want {
				t.Errorf("%s = %v, want %v", tc.key, got[tc.key], tc.want)
			}
		})
	}
}
