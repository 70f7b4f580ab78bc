package engine

import (
	"math"

	"github.com/kinetic-data/repcoach/internal/pose"
)

// CheckForm evaluates the current angles against per-exercise form rules
// and returns issue codes. Each issue costs 0.2 form quality.
func CheckForm(angles map[string]float64, exercise Exercise, t Thresholds) []string {
	var issues []string

	switch exercise {
	case Squat:
		leftKnee := angleOr(angles, pose.AngleLeftKnee, 180)
		rightKnee := angleOr(angles, pose.AngleRightKnee, 180)
		// Symmetry only matters once the knees are actually bending;
		// standing noise would trip it constantly.
		if (leftKnee < 140 || rightKnee < 140) && math.Abs(leftKnee-rightKnee) > 30 {
			issues = append(issues, "squat_knee_uneven")
		}
		if angleOr(angles, pose.AngleTorso, 0) > 45 {
			issues = append(issues, "squat_back_round")
		}

	case Pushup:
		hip := avgAngle(angles, pose.AngleLeftHip, pose.AngleRightHip)
		if hip < 160 {
			issues = append(issues, "pushup_hips_high")
		} else if hip > 190 {
			issues = append(issues, "pushup_hips_low")
		}

	case Plank:
		hip := avgAngle(angles, pose.AngleLeftHip, pose.AngleRightHip)
		if hip < 155 {
			issues = append(issues, "plank_hips_high")
		} else if hip > 185 {
			issues = append(issues, "plank_hips_low")
		}

	case BicepCurl:
		shoulder := (angleOr(angles, pose.AngleLeftShoulder, 90) +
			angleOr(angles, pose.AngleRightShoulder, 90)) / 2
		if shoulder > 60 {
			issues = append(issues, "curl_swing")
		}

	case Lunge:
		leftKnee := angleOr(angles, pose.AngleLeftKnee, 180)
		rightKnee := angleOr(angles, pose.AngleRightKnee, 180)
		if math.Min(leftKnee, rightKnee) > 130 {
			issues = append(issues, "lunge_depth")
		}
		if angleOr(angles, pose.AngleTorso, 0) > 20 {
			issues = append(issues, "lunge_torso_lean")
		}

	case TricepDip:
		leftElbow := angleOr(angles, pose.AngleLeftElbow, 180)
		rightElbow := angleOr(angles, pose.AngleRightElbow, 180)
		if math.Abs(leftElbow-rightElbow) > 20 {
			issues = append(issues, "dip_uneven")
		}

	case ShoulderPress:
		if angleOr(angles, pose.AngleTorso, 0) > 20 {
			issues = append(issues, "press_arch_back")
		}

	case Row:
		// A row is performed hinged over, so a near-vertical torso means
		// the hinge collapsed.
		if angleOr(angles, pose.AngleTorso, 0) < 30 {
			issues = append(issues, "row_back_round")
		}

	case Crunch:
		knee := avgAngle(angles, pose.AngleLeftKnee, pose.AngleRightKnee)
		if knee < 90 {
			issues = append(issues, "crunch_legs_moving")
		}

	case Deadlift:
		if angleOr(angles, pose.AngleTorso, 0) > 45 {
			issues = append(issues, "deadlift_back_round")
		}
	}

	return issues
}

// ClassifyByRules guesses the exercise from angles. Used only when the
// client has not selected an exercise; confidences are rough.
func ClassifyByRules(angles map[string]float64) (Exercise, float64) {
	knee := avgAngle(angles, pose.AngleLeftKnee, pose.AngleRightKnee)
	elbow := avgAngle(angles, pose.AngleLeftElbow, pose.AngleRightElbow)
	hip := avgAngle(angles, pose.AngleLeftHip, pose.AngleRightHip)
	torso := angleOr(angles, pose.AngleTorso, 0)

	switch {
	case torso > 60 && hip > 150 && elbow > 150:
		return Plank, 0.7
	case torso > 45 && elbow < 150:
		return Pushup, 0.7
	case torso < 30 && knee < 140:
		return Squat, 0.7
	case torso < 15 && elbow < 120 && knee > 150:
		return BicepCurl, 0.6
	}

	leftKnee := angleOr(angles, pose.AngleLeftKnee, 180)
	rightKnee := angleOr(angles, pose.AngleRightKnee, 180)
	if math.Abs(leftKnee-rightKnee) > 30 && math.Min(leftKnee, rightKnee) < 120 {
		return Lunge, 0.6
	}
	return Unknown, 0
}
