package calibrate

import "github.com/kinetic-data/repcoach/internal/pose"

// DeriveThresholds turns averaged body ratios into personalized threshold
// overrides, keyed by the client-facing override names the engine accepts.
//
// Longer legs relative to the torso need more knee flexion to reach proper
// squat depth; shorter legs need less. Wider shoulders shift the pushup
// bottom position, and longer arms extend the curl range.
func DeriveThresholds(ratios pose.BodyRatios) map[string]float64 {
	thresholds := map[string]float64{
		"squat_knee_angle":   90,
		"squat_tolerance":    10,
		"pushup_elbow_angle": 90,
		"plank_hip_angle":    170,
		"bicep_curl_angle":   45,
	}

	switch {
	case ratios.LegTorsoRatio > 1.1:
		thresholds["squat_knee_angle"] = 85
		thresholds["squat_tolerance"] = 12
	case ratios.LegTorsoRatio < 0.9:
		thresholds["squat_knee_angle"] = 95
		thresholds["squat_tolerance"] = 8
	}

	if ratios.ShoulderWidth > 0.35 {
		thresholds["pushup_elbow_angle"] = 85
	}

	if ratios.ArmLength > 0.25 {
		thresholds["bicep_curl_angle"] = 50
	}

	return thresholds
}
