package engine

import "github.com/kinetic-data/repcoach/internal/pose"

// BodyType buckets a user's build for workout intensity scaling.
type BodyType string

const (
	BodyAthletic BodyType = "athletic"
	BodyNormal   BodyType = "normal"
	BodyWeak     BodyType = "weak"
	BodyFat      BodyType = "fat"
)

// IntensityAdjustment scales a workout plan to the user's body type.
type IntensityAdjustment struct {
	RepMultiplier  float64  `json:"rep_multiplier"`
	RestMultiplier float64  `json:"rest_multiplier"`
	Intensity      string   `json:"intensity"`
	Focus          []string `json:"focus"`
}

var intensityTable = map[BodyType]IntensityAdjustment{
	BodyFat: {
		RepMultiplier:  0.7,
		RestMultiplier: 1.5,
		Intensity:      "low",
		Focus:          []string{"cardio", "low_impact"},
	},
	BodyWeak: {
		RepMultiplier:  0.8,
		RestMultiplier: 1.3,
		Intensity:      "moderate",
		Focus:          []string{"strength", "form"},
	},
	BodyNormal: {
		RepMultiplier:  1.0,
		RestMultiplier: 1.0,
		Intensity:      "normal",
		Focus:          []string{"balanced"},
	},
	BodyAthletic: {
		RepMultiplier:  1.2,
		RestMultiplier: 0.8,
		Intensity:      "high",
		Focus:          []string{"endurance", "power"},
	},
}

// GetIntensityAdjustment returns the plan scaling for a body type, falling
// back to normal for anything unrecognized.
func GetIntensityAdjustment(bt BodyType) IntensityAdjustment {
	if adj, ok := intensityTable[bt]; ok {
		return adj
	}
	return intensityTable[BodyNormal]
}

// EstimateBodyType buckets a user by leg-to-torso proportion. The
// calibrator may refine this with richer measurements.
func EstimateBodyType(ratios pose.BodyRatios) BodyType {
	switch {
	case ratios.LegTorsoRatio > 1.15:
		return BodyAthletic
	case ratios.LegTorsoRatio < 0.85:
		return BodyFat
	}
	return BodyNormal
}
