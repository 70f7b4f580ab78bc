package engine

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kinetic-data/repcoach/internal/monitoring"
	"github.com/kinetic-data/repcoach/internal/pose"
	"github.com/kinetic-data/repcoach/internal/timeutil"
)

// Event types emitted by Update.
const (
	EventRepComplete = "rep_complete"
	EventRepRejected = "rep_rejected"
	EventFormWarning = "form_warning"
)

// Rejection reasons, in gate order.
const (
	RejectTooFast       = "too_fast"
	RejectLowVisibility = "low_visibility"
	RejectPoorForm      = "poor_form"
)

// Event is a discrete occurrence during an update.
type Event struct {
	Type string `json:"type"`
	// rep_complete fields
	Count      int     `json:"count,omitempty"`
	TotalCount int     `json:"total_count,omitempty"`
	RepTime    float64 `json:"rep_time,omitempty"`
	Quality    float64 `json:"quality,omitempty"`
	// rep_rejected field
	Reason string `json:"reason,omitempty"`
	// form_warning field
	Issues []string `json:"issues,omitempty"`
}

// Snapshot is the engine state returned from each Update call.
type Snapshot struct {
	Exercise     Exercise `json:"exercise"`
	Phase        Phase    `json:"phase"`
	RepCount     int      `json:"rep_count"`
	SetCount     int      `json:"set_count"`
	TotalReps    int      `json:"total_reps"`
	Confidence   float64  `json:"confidence"`
	FormQuality  float64  `json:"form_quality"`
	Visibility   float64  `json:"visibility"`
	AvgRepTime   float64  `json:"avg_rep_time"`
	Events       []Event  `json:"events,omitempty"`
	MLLabel      string   `json:"ml_label,omitempty"`
	MLConfidence float64  `json:"ml_confidence,omitempty"`
}

// Engine tracks one user's exercise execution. Not safe for concurrent
// use; the session orchestrator is its single caller.
type Engine struct {
	thresholds Thresholds
	clock      timeutil.Clock
	classifier FormClassifier

	exercise   Exercise
	phase      Phase
	confidence float64

	repCount  int
	setCount  int
	totalReps int

	repTimes   []float64
	avgRepTime float64

	formQuality float64
	visibility  float64

	minQualityInRep    float64
	minVisibilityInRep float64

	inRep          bool
	repStart       time.Time
	phaseStart     time.Time
	feedbackCodes  []string
	mlLabel        string
	mlConfidence   float64
	featureWindow  *featureWindow
}

// New creates an engine with default thresholds. A nil classifier disables
// ML form labels; phase detection and counting work without one.
func New(clock timeutil.Clock, classifier FormClassifier) *Engine {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	e := &Engine{
		thresholds: DefaultThresholds(),
		clock:      clock,
		classifier: classifier,
	}
	e.resetState()
	return e
}

// Thresholds returns a copy of the active thresholds.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// ApplyOverrides personalizes thresholds, typically after calibration.
func (e *Engine) ApplyOverrides(overrides map[string]float64) (applied, unknown []string) {
	return e.thresholds.ApplyOverrides(overrides)
}

// SetThresholds replaces the whole threshold set.
func (e *Engine) SetThresholds(t Thresholds) { e.thresholds = t }

// Reset clears all state for a new session.
func (e *Engine) Reset() {
	e.resetState()
	monitoring.Diagf("[engine] state reset")
}

func (e *Engine) resetState() {
	e.exercise = Unknown
	e.phase = PhaseIdle
	e.confidence = 0
	e.repCount = 0
	e.setCount = 0
	e.totalReps = 0
	e.repTimes = nil
	e.avgRepTime = 0
	e.formQuality = 1
	e.visibility = 1
	e.minQualityInRep = 1
	e.minVisibilityInRep = 1
	e.inRep = false
	e.repStart = time.Time{}
	e.phaseStart = e.clock.Now()
	e.feedbackCodes = nil
	e.mlLabel = ""
	e.mlConfidence = 0
	e.featureWindow = newFeatureWindow()
}

// NewSet closes the current set: the per-set rep counter and fatigue
// history restart, total reps carry over.
func (e *Engine) NewSet() {
	e.setCount++
	e.repCount = 0
	e.repTimes = nil
	e.avgRepTime = 0
	monitoring.Diagf("[engine] starting set %d", e.setCount)
}

// RepCount returns reps completed in the current set.
func (e *Engine) RepCount() int { return e.repCount }

// TotalReps returns reps completed since the last Reset, across sets.
func (e *Engine) TotalReps() int { return e.totalReps }

// SetCount returns how many sets have been closed with NewSet.
func (e *Engine) SetCount() int { return e.setCount }

// FeedbackCodes returns accumulated de-duplicated feedback codes.
func (e *Engine) FeedbackCodes() []string { return e.feedbackCodes }

// ClearFeedback empties the feedback code accumulator, typically after the
// session layer has delivered the codes to the client.
func (e *Engine) ClearFeedback() { e.feedbackCodes = nil }

// Update advances the state machine with one pose sample. exercise is the
// client's selection; pass Unknown to let the rule classifier guess.
func (e *Engine) Update(angles map[string]float64, keypoints map[string]pose.Keypoint, exercise Exercise, visibility float64) Snapshot {
	now := e.clock.Now()
	var events []Event
	e.visibility = visibility

	if exercise == Unknown || exercise == "" {
		if detected, conf := ClassifyByRules(angles); detected != Unknown {
			e.exercise = detected
			e.confidence = conf
		}
	} else {
		// The client's selection wins. Feedback must match what the user
		// believes they are doing.
		e.exercise = exercise
		e.confidence = 1.0
	}

	newPhase := e.detectPhase(angles)

	if e.inRep {
		e.minQualityInRep = math.Min(e.minQualityInRep, e.formQuality)
		e.minVisibilityInRep = math.Min(e.minVisibilityInRep, e.visibility)
	} else {
		e.minQualityInRep = e.formQuality
		e.minVisibilityInRep = e.visibility
	}

	completed, reason := e.advanceRep(newPhase, now)
	if completed {
		e.repCount++
		e.totalReps++
		repTime := now.Sub(e.repStart).Seconds()
		if len(e.repTimes) >= 5 {
			e.repTimes = e.repTimes[1:]
		}
		e.repTimes = append(e.repTimes, repTime)
		e.avgRepTime = stat.Mean(e.repTimes, nil)

		events = append(events, Event{
			Type:       EventRepComplete,
			Count:      e.repCount,
			TotalCount: e.totalReps,
			RepTime:    round2(repTime),
			Quality:    round2(e.minQualityInRep),
		})
	} else if reason != "" {
		events = append(events, Event{Type: EventRepRejected, Reason: reason})
	}

	issues := CheckForm(angles, e.exercise, e.thresholds)
	e.formQuality = math.Max(0, 1-float64(len(issues))*0.2)
	if len(issues) > 0 {
		events = append(events, Event{Type: EventFormWarning, Issues: issues})
	}

	e.runClassifier(keypoints)

	if newPhase != e.phase {
		e.phaseStart = now
	}
	e.phase = newPhase

	return Snapshot{
		Exercise:     e.exercise,
		Phase:        e.phase,
		RepCount:     e.repCount,
		SetCount:     e.setCount,
		TotalReps:    e.totalReps,
		Confidence:   round2(e.confidence),
		FormQuality:  round2(e.formQuality),
		Visibility:   round2(e.visibility),
		AvgRepTime:   round2(e.avgRepTime),
		Events:       events,
		MLLabel:      e.mlLabel,
		MLConfidence: e.mlConfidence,
	}
}

// detectPhase maps the current angles to a movement phase. Paired joints
// use the more bent side so a half-committed movement never reads as
// complete; hip-driven exercises average the two hips.
func (e *Engine) detectPhase(angles map[string]float64) Phase {
	t := e.thresholds
	switch e.exercise {
	case Squat:
		knee := minAngle(angles, pose.AngleLeftKnee, pose.AngleRightKnee)
		switch {
		case knee < t.SquatKneeDown+t.SquatTolerance:
			return PhaseDown
		case knee > t.SquatKneeUp-t.SquatTolerance:
			return PhaseUp
		}
		return PhaseTransition

	case Pushup:
		elbow := minAngle(angles, pose.AngleLeftElbow, pose.AngleRightElbow)
		switch {
		case elbow < t.PushupElbowDown+t.SquatTolerance:
			return PhaseDown
		case elbow > t.PushupElbowUp-t.SquatTolerance:
			return PhaseUp
		}
		return PhaseTransition

	case Plank:
		hip := avgAngle(angles, pose.AngleLeftHip, pose.AngleRightHip)
		if hip > t.PlankHipMin && hip < t.PlankHipMax {
			return PhaseHold
		}
		return PhaseIdle

	case BicepCurl:
		elbow := minAngle(angles, pose.AngleLeftElbow, pose.AngleRightElbow)
		switch {
		case elbow < t.CurlElbowUp+20:
			return PhaseUp
		case elbow > t.CurlElbowDown-20:
			return PhaseDown
		}
		return PhaseTransition

	case Lunge:
		// The front leg bends, the rear leg trails. Track the bent one.
		knee := minAngle(angles, pose.AngleLeftKnee, pose.AngleRightKnee)
		switch {
		case knee < t.LungeKneeDown+10:
			return PhaseDown
		case knee > t.LungeKneeUp-10:
			return PhaseUp
		}
		return PhaseTransition

	case TricepDip:
		elbow := minAngle(angles, pose.AngleLeftElbow, pose.AngleRightElbow)
		switch {
		case elbow < t.DipElbowDown+10:
			return PhaseDown
		case elbow > t.DipElbowUp-10:
			return PhaseUp
		}
		return PhaseTransition

	case ShoulderPress:
		elbow := minAngle(angles, pose.AngleLeftElbow, pose.AngleRightElbow)
		switch {
		case elbow < t.PressElbowDown+10:
			return PhaseDown
		case elbow > t.PressElbowUp-10:
			return PhaseUp
		}
		return PhaseTransition

	case Row:
		elbow := minAngle(angles, pose.AngleLeftElbow, pose.AngleRightElbow)
		switch {
		case elbow < t.RowElbowPull+10:
			return PhaseUp // pulled back
		case elbow > t.RowElbowExtend-10:
			return PhaseDown // extended
		}
		return PhaseTransition

	case Crunch:
		hip := avgAngle(angles, pose.AngleLeftHip, pose.AngleRightHip)
		switch {
		case hip < t.CrunchHipUp:
			return PhaseUp
		case hip > t.CrunchHipDown:
			return PhaseDown
		}
		return PhaseTransition

	case Deadlift:
		hip := avgAngle(angles, pose.AngleLeftHip, pose.AngleRightHip)
		switch {
		case hip < t.DeadliftHipDown+10:
			return PhaseDown
		case hip > t.DeadliftHipUp-10:
			return PhaseUp
		}
		return PhaseTransition
	}
	return PhaseIdle
}

// advanceRep runs the latch state machine. A completed cycle passes the
// acceptance gates in fixed order: duration, visibility, form quality.
// Rejections reset the latch so the user starts a fresh attempt.
func (e *Engine) advanceRep(newPhase Phase, now time.Time) (bool, string) {
	finished := false

	switch {
	case latchDownExercises[e.exercise]:
		if newPhase == PhaseDown {
			if !e.inRep {
				e.repStart = now
			}
			e.inRep = true
		} else if newPhase == PhaseUp && e.inRep {
			finished = true
		}

	case latchUpExercises[e.exercise]:
		if newPhase == PhaseUp {
			if !e.inRep {
				e.repStart = now
			}
			e.inRep = true
		} else if newPhase == PhaseDown && e.inRep {
			finished = true
		}

	case e.exercise == Plank:
		if newPhase == PhaseHold {
			if !e.inRep {
				e.repStart = now
			}
			e.inRep = true
		} else if e.inRep {
			held := now.Sub(e.repStart).Seconds()
			if held > e.thresholds.PlankHoldTime {
				finished = true
			} else {
				// Too-short hold: drop the attempt without an event.
				e.inRep = false
			}
		}
	}

	if !finished {
		return false, ""
	}
	e.inRep = false

	duration := now.Sub(e.repStart).Seconds()
	if duration < e.thresholds.MinRepDuration {
		return false, RejectTooFast
	}
	if e.minVisibilityInRep < e.thresholds.MinVisibility {
		return false, RejectLowVisibility
	}
	if e.minQualityInRep < e.thresholds.MinFormQuality {
		return false, RejectPoorForm
	}
	return true, ""
}

func (e *Engine) runClassifier(keypoints map[string]pose.Keypoint) {
	if e.classifier == nil || len(keypoints) == 0 {
		return
	}
	label, conf := classifyForm(e.classifier, e.featureWindow, e.exercise, keypoints)
	if label == "" {
		return
	}
	e.mlLabel = label
	e.mlConfidence = conf
	if code, bad := negativeLabelCode(label); bad {
		e.addFeedback(code)
	}
}

func (e *Engine) addFeedback(code string) {
	for _, existing := range e.feedbackCodes {
		if existing == code {
			return
		}
	}
	e.feedbackCodes = append(e.feedbackCodes, code)
}

func minAngle(angles map[string]float64, a, b string) float64 {
	return math.Min(angleOr(angles, a, 180), angleOr(angles, b, 180))
}

func avgAngle(angles map[string]float64, a, b string) float64 {
	return (angleOr(angles, a, 180) + angleOr(angles, b, 180)) / 2
}

func angleOr(angles map[string]float64, name string, def float64) float64 {
	if v, ok := angles[name]; ok {
		return v
	}
	return def
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
