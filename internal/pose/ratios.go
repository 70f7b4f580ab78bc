package pose

import "math"

// BodyRatios are per-user body measurements computed during calibration.
// All lengths are in normalized frame units, so ratios are camera-distance
// independent as long as the user stays in frame.
type BodyRatios struct {
	ShoulderWidth float64 `json:"shoulder_width"`
	ArmLength     float64 `json:"arm_length"`
	LegLength     float64 `json:"leg_length"`
	TorsoHeight   float64 `json:"torso_height"`
	LegTorsoRatio float64 `json:"leg_torso_ratio"`
}

// CalculateBodyRatios measures one pose sample. Returns false when any of
// the required landmarks is missing.
func CalculateBodyRatios(kps map[string]Keypoint) (BodyRatios, bool) {
	required := []string{
		LeftShoulder, RightShoulder,
		LeftWrist, RightWrist,
		LeftHip, RightHip,
		LeftAnkle, RightAnkle,
	}
	for _, name := range required {
		if _, ok := kps[name]; !ok {
			return BodyRatios{}, false
		}
	}

	shoulderWidth := math.Abs(kps[LeftShoulder].NormX - kps[RightShoulder].NormX)

	armLength := (normDistance(kps[LeftShoulder], kps[LeftWrist]) +
		normDistance(kps[RightShoulder], kps[RightWrist])) / 2

	legLength := (normDistance(kps[LeftHip], kps[LeftAnkle]) +
		normDistance(kps[RightHip], kps[RightAnkle])) / 2

	torsoHeight := (normDistance(kps[LeftShoulder], kps[LeftHip]) +
		normDistance(kps[RightShoulder], kps[RightHip])) / 2

	return BodyRatios{
		ShoulderWidth: shoulderWidth,
		ArmLength:     armLength,
		LegLength:     legLength,
		TorsoHeight:   torsoHeight,
		LegTorsoRatio: legLength / (torsoHeight + 1e-6),
	}, true
}

func normDistance(a, b Keypoint) float64 {
	return math.Hypot(a.NormX-b.NormX, a.NormY-b.NormY)
}
