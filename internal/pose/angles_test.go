package pose

import (
	"math"
	"testing"
)

func kp(x, y float64) Keypoint {
	return Keypoint{X: x, Y: y, Visibility: 1}
}

func TestAngle(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c Keypoint
		want    float64
	}{
		{"right angle", kp(0, 1), kp(0, 0), kp(1, 0), 90},
		{"straight line", kp(-1, 0), kp(0, 0), kp(1, 0), 180},
		{"folded back", kp(1, 0), kp(0, 0), kp(1, 0.001), 0},
		{"45 degrees", kp(1, 1), kp(0, 0), kp(1, 0), 45},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Angle(tc.a, tc.b, tc.c)
			if math.Abs(got-tc.want) > 0.5 {
				t.Errorf("Angle = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTorsoAngle(t *testing.T) {
	upright := map[string]Keypoint{
		LeftShoulder: kp(90, 100), RightShoulder: kp(110, 100),
		LeftHip: kp(90, 200), RightHip: kp(110, 200),
	}
	got, ok := TorsoAngle(upright)
	if !ok {
		t.Fatal("TorsoAngle not computed")
	}
	if math.Abs(got) > 0.1 {
		t.Errorf("upright torso angle = %v, want 0", got)
	}

	horizontal := map[string]Keypoint{
		LeftShoulder: kp(100, 195), RightShoulder: kp(100, 205),
		LeftHip: kp(200, 195), RightHip: kp(200, 205),
	}
	got, ok = TorsoAngle(horizontal)
	if !ok {
		t.Fatal("TorsoAngle not computed")
	}
	if math.Abs(got-90) > 0.1 {
		t.Errorf("horizontal torso angle = %v, want 90", got)
	}

	if _, ok := TorsoAngle(map[string]Keypoint{LeftShoulder: kp(0, 0)}); ok {
		t.Error("TorsoAngle computed with missing landmarks")
	}
}

func TestCalculateAnglesOmitsMissingJoints(t *testing.T) {
	// Only the left arm is present: exactly one joint angle is derivable.
	kps := map[string]Keypoint{
		LeftShoulder: kp(0, 0),
		LeftElbow:    kp(0, 50),
		LeftWrist:    kp(50, 50),
	}
	angles := CalculateAngles(kps)
	if len(angles) != 1 {
		t.Fatalf("angles = %v, want just the left elbow", angles)
	}
	if math.Abs(angles[AngleLeftElbow]-90) > 0.1 {
		t.Errorf("left elbow = %v, want 90", angles[AngleLeftElbow])
	}
}

func TestAverageVisibility(t *testing.T) {
	r := &Result{Keypoints: map[string]Keypoint{
		"a": {Visibility: 1.0},
		"b": {Visibility: 0.5},
	}}
	if got := r.AverageVisibility(); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("average visibility = %v, want 0.75", got)
	}

	var empty *Result
	if got := empty.AverageVisibility(); got != 0 {
		t.Errorf("nil result visibility = %v, want 0", got)
	}
}
