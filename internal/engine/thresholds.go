package engine

import "github.com/kinetic-data/repcoach/internal/monitoring"

// Thresholds are the per-user angle and quality limits driving phase
// detection and rep acceptance. All angles are in degrees, durations in
// seconds. Calibration personalizes a subset via ApplyOverrides.
type Thresholds struct {
	SquatKneeDown  float64 `json:"squat_knee_down"`
	SquatKneeUp    float64 `json:"squat_knee_up"`
	SquatTolerance float64 `json:"squat_tolerance"`

	PushupElbowDown float64 `json:"pushup_elbow_down"`
	PushupElbowUp   float64 `json:"pushup_elbow_up"`
	PushupHipAngle  float64 `json:"pushup_hip_angle"`

	PlankHipMin   float64 `json:"plank_hip_min"`
	PlankHipMax   float64 `json:"plank_hip_max"`
	PlankHoldTime float64 `json:"plank_hold_time"`

	CurlElbowDown float64 `json:"curl_elbow_down"`
	CurlElbowUp   float64 `json:"curl_elbow_up"`

	LungeKneeDown float64 `json:"lunge_knee_down"`
	LungeKneeUp   float64 `json:"lunge_knee_up"`

	DipElbowDown float64 `json:"dip_elbow_down"`
	DipElbowUp   float64 `json:"dip_elbow_up"`

	PressElbowDown float64 `json:"press_elbow_down"`
	PressElbowUp   float64 `json:"press_elbow_up"`

	RowElbowPull   float64 `json:"row_elbow_pull"`
	RowElbowExtend float64 `json:"row_elbow_extend"`

	CrunchHipUp   float64 `json:"crunch_hip_up"`
	CrunchHipDown float64 `json:"crunch_hip_down"`

	DeadliftHipDown float64 `json:"deadlift_hip_down"`
	DeadliftHipUp   float64 `json:"deadlift_hip_up"`

	MinRepDuration float64 `json:"min_rep_duration"`
	MinVisibility  float64 `json:"min_visibility_threshold"`
	MinFormQuality float64 `json:"min_form_quality_threshold"`
}

// DefaultThresholds returns the factory tuning for an uncalibrated user.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SquatKneeDown:  80,
		SquatKneeUp:    165,
		SquatTolerance: 10,

		PushupElbowDown: 75,
		PushupElbowUp:   165,
		PushupHipAngle:  175,

		PlankHipMin:   170,
		PlankHipMax:   185,
		PlankHoldTime: 1.5,

		CurlElbowDown: 165,
		CurlElbowUp:   40,

		LungeKneeDown: 100,
		LungeKneeUp:   160,

		DipElbowDown: 90,
		DipElbowUp:   160,

		PressElbowDown: 60,
		PressElbowUp:   160,

		RowElbowPull:   80,
		RowElbowExtend: 160,

		CrunchHipUp:   100,
		CrunchHipDown: 150,

		DeadliftHipDown: 100,
		DeadliftHipUp:   160,

		MinRepDuration: 0.8,
		MinVisibility:  0.5,
		MinFormQuality: 0.6,
	}
}

// overrideKeys maps client-facing threshold names to struct fields. Names
// already matching a JSON field name apply directly.
var overrideKeys = map[string]string{
	"squat_knee_angle":   "squat_knee_down",
	"pushup_elbow_angle": "pushup_elbow_down",
	"plank_hip_angle":    "plank_hip_min",
	"bicep_curl_angle":   "curl_elbow_up",
}

// ApplyOverrides applies calibration or client overrides by name and
// returns the keys applied and the keys it did not recognize. Unrecognized
// keys are reported, not fatal.
func (t *Thresholds) ApplyOverrides(overrides map[string]float64) (applied, unknown []string) {
	if len(overrides) == 0 {
		return nil, nil
	}
	fields := t.fieldIndex()
	for key, value := range overrides {
		name := key
		if mapped, ok := overrideKeys[key]; ok {
			name = mapped
		}
		ptr, ok := fields[name]
		if !ok {
			unknown = append(unknown, key)
			monitoring.Diagf("[engine] threshold override %q not recognized", key)
			continue
		}
		*ptr = value
		applied = append(applied, name)
	}
	return applied, unknown
}

func (t *Thresholds) fieldIndex() map[string]*float64 {
	return map[string]*float64{
		"squat_knee_down":            &t.SquatKneeDown,
		"squat_knee_up":              &t.SquatKneeUp,
		"squat_tolerance":            &t.SquatTolerance,
		"pushup_elbow_down":          &t.PushupElbowDown,
		"pushup_elbow_up":            &t.PushupElbowUp,
		"pushup_hip_angle":           &t.PushupHipAngle,
		"plank_hip_min":              &t.PlankHipMin,
		"plank_hip_max":              &t.PlankHipMax,
		"plank_hold_time":            &t.PlankHoldTime,
		"curl_elbow_down":            &t.CurlElbowDown,
		"curl_elbow_up":              &t.CurlElbowUp,
		"lunge_knee_down":            &t.LungeKneeDown,
		"lunge_knee_up":              &t.LungeKneeUp,
		"dip_elbow_down":             &t.DipElbowDown,
		"dip_elbow_up":               &t.DipElbowUp,
		"press_elbow_down":           &t.PressElbowDown,
		"press_elbow_up":             &t.PressElbowUp,
		"row_elbow_pull":             &t.RowElbowPull,
		"row_elbow_extend":           &t.RowElbowExtend,
		"crunch_hip_up":              &t.CrunchHipUp,
		"crunch_hip_down":            &t.CrunchHipDown,
		"deadlift_hip_down":          &t.DeadliftHipDown,
		"deadlift_hip_up":            &t.DeadliftHipUp,
		"min_rep_duration":           &t.MinRepDuration,
		"min_visibility_threshold":   &t.MinVisibility,
		"min_form_quality_threshold": &t.MinFormQuality,
	}
}
