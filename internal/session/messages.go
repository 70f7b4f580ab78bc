// Package session orchestrates a coaching session: it polls the inference
// stream, drives the exercise engine, applies set and rest logic, shapes
// feedback, and publishes typed events to connected clients.
package session

import "encoding/json"

// Command is a client-to-server message.
type Command struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client command types.
const (
	CmdStartCamera      = "start_camera"
	CmdStopCamera       = "stop_camera"
	CmdStartSession     = "start_session"
	CmdStopSession      = "stop_session"
	CmdSelectExercise   = "select_exercise"
	CmdPause            = "pause"
	CmdResume           = "resume"
	CmdStartCalibration = "start_calibration"
)

// Event is a server-to-client message.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Server event types.
const (
	EvtCameraStarted       = "camera_started"
	EvtCameraStopped       = "camera_stopped"
	EvtSessionStarted      = "session_started"
	EvtSessionStopped      = "session_stopped"
	EvtExerciseChange      = "exercise_change"
	EvtSetComplete         = "set_complete"
	EvtPaused              = "paused"
	EvtResumed             = "resumed"
	EvtKeypoints           = "keypoints"
	EvtExerciseUpdate      = "exercise_update"
	EvtRepCount            = "rep_count"
	EvtFeedback            = "feedback"
	EvtFatigueWarning      = "fatigue_warning"
	EvtNoDetection         = "no_detection"
	EvtCalibrationProgress = "calibration_progress"
	EvtCalibrationComplete = "calibration_complete"
	EvtError               = "error"
)

// StartCameraData carries the camera index for start_camera.
type StartCameraData struct {
	CameraID int `json:"camera_id"`
}

// ExerciseConfig sets per-exercise targets inside start_session.
type ExerciseConfig struct {
	Reps int `json:"reps"`
	Sets int `json:"sets"`
}

// StartSessionData configures a new session.
type StartSessionData struct {
	UserID          string           `json:"user_id"`
	Exercises       []string         `json:"exercises"`
	ExerciseConfigs []ExerciseConfig `json:"exercise_configs,omitempty"`
	TargetReps      int              `json:"target_reps,omitempty"`
	TargetSets      int              `json:"target_sets,omitempty"`
}

// SelectExerciseData switches the active exercise by playlist index.
type SelectExerciseData struct {
	Index int `json:"index"`
}

// StartCalibrationData begins a calibration run.
type StartCalibrationData struct {
	UserID   string  `json:"user_id"`
	Duration float64 `json:"duration,omitempty"`
}

// FeedbackData is the payload of a feedback event.
type FeedbackData struct {
	Status       string   `json:"status"` // "perfect" or "warning"
	Message      string   `json:"message"`
	Issues       []string `json:"issues,omitempty"`
	MLClass      string   `json:"ml_class,omitempty"`
	MLConfidence float64  `json:"ml_confidence,omitempty"`
}

// KeypointData is one landmark in a keypoints event, normalized coords.
type KeypointData struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}
