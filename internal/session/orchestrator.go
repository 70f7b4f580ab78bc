package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/kinetic-data/repcoach/internal/calibrate"
	"github.com/kinetic-data/repcoach/internal/engine"
	"github.com/kinetic-data/repcoach/internal/infer"
	"github.com/kinetic-data/repcoach/internal/monitoring"
	"github.com/kinetic-data/repcoach/internal/pose"
	"github.com/kinetic-data/repcoach/internal/timeutil"
)

// RestMode controls what happens between sets.
type RestMode string

const (
	// RestModeTrack keeps streaming keypoints during rest but suspends
	// rep counting. Default.
	RestModeTrack RestMode = "track"
	// RestModeSuspend stops all per-frame output during rest.
	RestModeSuspend RestMode = "suspend"
)

// CameraControl is the capture surface the orchestrator drives.
type CameraControl interface {
	Start(sourceID int) error
	Stop()
	Running() bool
	FPS() float64
}

// Poller exposes the freshest pose result, satisfied by the inference
// scheduler.
type Poller interface {
	Latest() (*pose.Result, bool)
}

// Config tunes the orchestrator.
type Config struct {
	PollInterval     time.Duration
	FeedbackInterval time.Duration // repeat throttle for identical feedback
	FatigueInterval  time.Duration // minimum gap between fatigue warnings
	RestMode         RestMode
	DefaultReps      int
	DefaultSets      int
	BodyWeightKg     float64 // for calorie estimation; 0 means the 70kg default
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		PollInterval:     10 * time.Millisecond,
		FeedbackInterval: 3 * time.Second,
		FatigueInterval:  5 * time.Second,
		RestMode:         RestModeTrack,
		DefaultReps:      15,
		DefaultSets:      3,
	}
}

// Orchestrator runs one coaching loop. All state is owned by the Run
// goroutine; clients interact through Commands and the Hub.
type Orchestrator struct {
	cfg        Config
	clock      timeutil.Clock
	eng        *engine.Engine
	poller     Poller
	camera     CameraControl
	calibrator *calibrate.Calibrator
	store      Store
	hub        *Hub
	calories   *CalorieTracker
	commands   chan Command

	cursor infer.Cursor

	// session state, Run-goroutine only
	active    bool
	paused    bool
	resting   bool
	userID    string
	exercises []string
	configs   []ExerciseConfig
	idx       int

	defaultReps int
	defaultSets int
	targetReps  int
	targetSets  int
	currentSet  int

	totalSessionReps int
	sessionStart     time.Time
	exerciseStart    time.Time
	workoutID        string
	caloriesAtStart  float64

	lastFeedbackMsg  string
	lastFeedbackTime time.Time
	lastFatigueWarn  time.Time
	stalePolls       int
}

// New wires an orchestrator. store may be nil to disable persistence;
// calibrator may be nil to disable the calibration command.
func New(cfg Config, clock timeutil.Clock, eng *engine.Engine, poller Poller, camera CameraControl, calibrator *calibrate.Calibrator, store Store, hub *Hub) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}
	if cfg.FeedbackInterval <= 0 {
		cfg.FeedbackInterval = 3 * time.Second
	}
	if cfg.FatigueInterval <= 0 {
		cfg.FatigueInterval = 5 * time.Second
	}
	if cfg.RestMode == "" {
		cfg.RestMode = RestModeTrack
	}
	if cfg.DefaultReps <= 0 {
		cfg.DefaultReps = 15
	}
	if cfg.DefaultSets <= 0 {
		cfg.DefaultSets = 3
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Orchestrator{
		cfg:        cfg,
		clock:      clock,
		eng:        eng,
		poller:     poller,
		camera:     camera,
		calibrator: calibrator,
		store:      store,
		hub:        hub,
		calories:   NewCalorieTracker(clock, cfg.BodyWeightKg),
		commands:   make(chan Command, 16),
	}
}

// Commands is where transports deliver client messages.
func (o *Orchestrator) Commands() chan<- Command { return o.commands }

// Hub exposes the event fan-out for transports.
func (o *Orchestrator) Hub() *Hub { return o.hub }

// Run drives the loop until ctx is cancelled. On exit an active session
// is saved so a dropped connection never loses a workout.
func (o *Orchestrator) Run(ctx context.Context) {
	monitoring.Opsf("[session] orchestrator running")
	for {
		select {
		case <-ctx.Done():
			if o.active {
				o.saveWorkout(context.Background())
				o.calories.Stop()
			}
			monitoring.Opsf("[session] orchestrator stopped")
			return
		case cmd := <-o.commands:
			o.handleCommand(ctx, cmd)
		default:
			o.clock.Sleep(o.cfg.PollInterval)
			o.tick(ctx)
		}
	}
}

func (o *Orchestrator) tick(ctx context.Context) {
	if !o.camera.Running() {
		return
	}

	result, ok := o.poller.Latest()
	if !ok || !o.cursor.Fresh(result) {
		o.stalePolls++
		// Keep the client informed without flooding it.
		if o.stalePolls%100 == 0 {
			o.hub.Publish(Event{Type: EvtNoDetection, Data: map[string]string{"message": "No person detected"}})
		}
		return
	}
	o.stalePolls = 0

	suspendOutput := o.resting && o.cfg.RestMode == RestModeSuspend
	if !suspendOutput {
		o.publishKeypoints(result)
	}

	if !o.active || o.paused || o.resting {
		return
	}

	exerciseName := ""
	if o.idx < len(o.exercises) {
		exerciseName = o.exercises[o.idx]
	}
	ex := engine.NormalizeExercise(exerciseName)

	snap := o.eng.Update(result.Angles, result.Keypoints, ex, result.AverageVisibility())
	o.hub.Publish(Event{Type: EvtExerciseUpdate, Data: snap})

	for _, evt := range snap.Events {
		if evt.Type == engine.EventRepComplete {
			o.onRepComplete(ctx, evt)
			if !o.active {
				return
			}
		}
	}

	o.publishFeedback(snap, result.AverageVisibility())

	if fatigued, slowdown := o.eng.DetectFatigue(); fatigued {
		now := o.clock.Now()
		if now.Sub(o.lastFatigueWarn) >= o.cfg.FatigueInterval {
			o.lastFatigueWarn = now
			o.hub.Publish(Event{Type: EvtFatigueWarning, Data: map[string]float64{"slowdown_percent": slowdown}})
		}
	}

	o.calories.SetIntensity(0.5 + float64(snap.RepCount%5)*0.1)
	o.calories.Update()
}

func (o *Orchestrator) publishKeypoints(result *pose.Result) {
	kps := make(map[string]KeypointData, len(result.Keypoints))
	for name, kp := range result.Keypoints {
		kps[name] = KeypointData{X: kp.NormX, Y: kp.NormY, Visibility: kp.Visibility}
	}
	o.hub.Publish(Event{Type: EvtKeypoints, Data: map[string]interface{}{
		"keypoints": kps,
		"angles":    result.Angles,
		"fps":       o.camera.FPS(),
	}})
}

func (o *Orchestrator) onRepComplete(ctx context.Context, evt engine.Event) {
	o.saveWorkout(ctx)
	o.hub.Publish(Event{Type: EvtRepCount, Data: map[string]int{
		"count":  evt.Count,
		"target": o.targetReps,
		"set":    o.currentSet,
	}})
	if evt.Count < o.targetReps {
		return
	}

	o.resting = true
	o.resetFeedback()

	switch {
	case o.currentSet < o.targetSets:
		o.currentSet++
		o.eng.NewSet()
		o.hub.Publish(Event{Type: EvtSetComplete, Data: map[string]int{
			"set": o.currentSet - 1, "next_set": o.currentSet,
		}})

	case o.idx < len(o.exercises)-1:
		o.rollUpReps()
		o.idx++
		o.startExerciseSegment(ctx)
		o.hub.Publish(Event{Type: EvtExerciseChange, Data: map[string]interface{}{
			"index":       o.idx,
			"name":        o.exercises[o.idx],
			"target_reps": o.targetReps,
			"target_sets": o.targetSets,
		}})

	default:
		o.rollUpReps()
		o.saveWorkout(ctx)
		o.finishSession()
	}
}

// rollUpReps folds the finished segment's reps into the session total.
func (o *Orchestrator) rollUpReps() {
	o.totalSessionReps += o.eng.TotalReps()
}

func (o *Orchestrator) startExerciseSegment(ctx context.Context) {
	o.currentSet = 1
	o.resting = false
	o.eng.Reset()
	o.applyUserThresholds(ctx)
	o.exerciseStart = o.clock.Now()
	o.workoutID = ""
	o.caloriesAtStart = o.calories.Burned()
	o.targetReps, o.targetSets = o.targetsFor(o.idx)
	o.resetFeedback()
}

func (o *Orchestrator) targetsFor(idx int) (int, int) {
	reps, sets := o.defaultReps, o.defaultSets
	if idx < len(o.configs) {
		if o.configs[idx].Reps > 0 {
			reps = o.configs[idx].Reps
		}
		if o.configs[idx].Sets > 0 {
			sets = o.configs[idx].Sets
		}
	}
	return reps, sets
}

func (o *Orchestrator) finishSession() {
	o.active = false
	o.calories.Stop()
	o.hub.Publish(Event{Type: EvtSessionStopped, Data: map[string]interface{}{
		"total_reps": o.totalSessionReps,
		"total_sets": o.currentSet,
		"calories":   int(o.calories.Burned()),
	}})
	monitoring.Opsf("[session] finished: %d reps, %.0f kcal", o.totalSessionReps, o.calories.Burned())
}

func (o *Orchestrator) resetFeedback() {
	o.lastFeedbackMsg = ""
	o.lastFeedbackTime = time.Time{}
}

// publishFeedback picks the highest-priority feedback and throttles
// repeats: a changed message goes out immediately, the same message only
// every FeedbackInterval.
func (o *Orchestrator) publishFeedback(snap engine.Snapshot, visibility float64) {
	var fb *FeedbackData

	var issues []string
	for _, evt := range snap.Events {
		if evt.Type == engine.EventFormWarning {
			issues = evt.Issues
			break
		}
	}

	switch {
	case snap.MLLabel != "" && snap.MLConfidence > 0.8:
		if strings.Contains(snap.MLLabel, "Correct") {
			fb = &FeedbackData{Status: "perfect", Message: snap.MLLabel, MLClass: snap.MLLabel, MLConfidence: snap.MLConfidence}
		} else {
			code := strings.ReplaceAll(strings.ToLower(snap.MLLabel), " ", "_")
			fb = &FeedbackData{Status: "warning", Message: snap.MLLabel, MLClass: snap.MLLabel, MLConfidence: snap.MLConfidence, Issues: []string{code}}
		}
	case len(issues) > 0:
		fb = &FeedbackData{Status: "warning", Message: postureMessage(issues[0]), Issues: issues}
	case visibility < 0.6:
		fb = &FeedbackData{Status: "warning", Message: postureMessage("body_not_visible")}
	case snap.FormQuality > 0.9:
		fb = &FeedbackData{Status: "perfect", Message: "Perfect posture"}
	case o.lastFeedbackMsg != "Posture OK":
		fb = &FeedbackData{Status: "perfect", Message: "Posture OK"}
	}

	if fb == nil {
		return
	}
	now := o.clock.Now()
	if fb.Message != o.lastFeedbackMsg || now.Sub(o.lastFeedbackTime) > o.cfg.FeedbackInterval {
		o.hub.Publish(Event{Type: EvtFeedback, Data: *fb})
		o.lastFeedbackMsg = fb.Message
		o.lastFeedbackTime = now
	}
}

func (o *Orchestrator) handleCommand(ctx context.Context, cmd Command) {
	switch cmd.Type {
	case CmdStartCamera:
		var data StartCameraData
		decode(cmd.Data, &data)
		if err := o.camera.Start(data.CameraID); err != nil {
			monitoring.Opsf("[session] camera start failed: %v", err)
			o.hub.Publish(Event{Type: EvtError, Data: map[string]string{"message": "camera unavailable"}})
			return
		}
		o.hub.Publish(Event{Type: EvtCameraStarted, Data: StartCameraData{CameraID: data.CameraID}})

	case CmdStopCamera:
		o.camera.Stop()
		o.hub.Publish(Event{Type: EvtCameraStopped})

	case CmdStartSession:
		o.startSession(ctx, cmd.Data)

	case CmdStopSession:
		if !o.active {
			return
		}
		o.rollUpReps()
		o.saveWorkout(ctx)
		o.finishSession()

	case CmdSelectExercise:
		var data SelectExerciseData
		decode(cmd.Data, &data)
		o.selectExercise(ctx, data.Index)

	case CmdPause:
		o.paused = true
		o.hub.Publish(Event{Type: EvtPaused})

	case CmdResume:
		o.paused = false
		o.resting = false
		o.hub.Publish(Event{Type: EvtResumed})

	case CmdStartCalibration:
		var data StartCalibrationData
		decode(cmd.Data, &data)
		o.runCalibration(ctx, data)

	default:
		monitoring.Diagf("[session] unknown command %q", cmd.Type)
	}
}

func (o *Orchestrator) startSession(ctx context.Context, raw json.RawMessage) {
	var data StartSessionData
	decode(raw, &data)
	if len(data.Exercises) == 0 {
		data.Exercises = []string{"squat"}
	}

	o.userID = data.UserID
	o.exercises = data.Exercises
	o.configs = data.ExerciseConfigs
	o.idx = 0
	o.defaultReps = o.cfg.DefaultReps
	o.defaultSets = o.cfg.DefaultSets
	if data.TargetReps > 0 {
		o.defaultReps = data.TargetReps
	}
	if data.TargetSets > 0 {
		o.defaultSets = data.TargetSets
	}

	o.active = true
	o.paused = false
	o.totalSessionReps = 0
	o.sessionStart = o.clock.Now()
	o.cursor.Reset()
	o.calories.Start()
	o.startExerciseSegment(ctx)

	monitoring.Opsf("[session] started for user %q, %d exercises, targets %dx%d",
		o.userID, len(o.exercises), o.targetReps, o.targetSets)

	o.hub.Publish(Event{Type: EvtSessionStarted, Data: map[string]interface{}{
		"user_id":          o.userID,
		"exercises":        o.exercises,
		"current_exercise": o.exercises[0],
		"target_reps":      o.targetReps,
		"target_sets":      o.targetSets,
	}})
}

func (o *Orchestrator) selectExercise(ctx context.Context, idx int) {
	if idx < 0 || idx >= len(o.exercises) {
		return
	}
	o.rollUpReps()
	o.saveWorkout(ctx)
	o.idx = idx
	o.startExerciseSegment(ctx)

	monitoring.Diagf("[session] switched to %s (index %d)", o.exercises[idx], idx)
	o.hub.Publish(Event{Type: EvtExerciseChange, Data: map[string]interface{}{
		"index":       idx,
		"name":        o.exercises[idx],
		"immediate":   true,
		"target_reps": o.targetReps,
		"target_sets": o.targetSets,
	}})
}

func (o *Orchestrator) applyUserThresholds(ctx context.Context) {
	if o.store == nil || o.userID == "" {
		return
	}
	thresholds, err := o.store.UserThresholds(ctx, o.userID)
	if err != nil {
		monitoring.Diagf("[session] load thresholds for %q: %v", o.userID, err)
		return
	}
	if len(thresholds) == 0 {
		return
	}
	applied, _ := o.eng.ApplyOverrides(thresholds)
	monitoring.Diagf("[session] applied %d personalized thresholds for %q", len(applied), o.userID)
}

// runCalibration blocks the loop for the calibration window. Session
// counting is implicitly suspended, which is what the flow wants: the
// user is standing in a T-pose, not exercising.
func (o *Orchestrator) runCalibration(ctx context.Context, data StartCalibrationData) {
	if o.calibrator == nil {
		o.hub.Publish(Event{Type: EvtError, Data: map[string]string{"message": "calibration unavailable"}})
		return
	}

	duration := time.Duration(data.Duration * float64(time.Second))
	outcome := o.calibrator.Run(ctx, o.poller, duration, func(p calibrate.Progress) {
		o.hub.Publish(Event{Type: EvtCalibrationProgress, Data: p})
	})

	if outcome.Success {
		o.eng.ApplyOverrides(outcome.Thresholds)
		if o.store != nil && data.UserID != "" && outcome.Ratios != nil {
			err := o.store.SaveCalibration(ctx, data.UserID, *outcome.Ratios, outcome.Thresholds, string(outcome.BodyType))
			if err != nil {
				monitoring.Opsf("[session] save calibration for %q: %v", data.UserID, err)
			}
		}
	}
	o.hub.Publish(Event{Type: EvtCalibrationComplete, Data: outcome})
}

// saveWorkout upserts the active exercise segment. Short empty segments
// are skipped so abandoned selections don't clutter history.
func (o *Orchestrator) saveWorkout(ctx context.Context) {
	if o.store == nil || !o.active || o.userID == "" {
		return
	}

	start := o.exerciseStart
	if start.IsZero() {
		start = o.sessionStart
	}
	duration := int(o.clock.Now().Sub(start).Seconds())
	segmentCalories := o.calories.Burned() - o.caloriesAtStart
	if segmentCalories < 0 {
		segmentCalories = 0
	}
	_, fatigue := o.eng.DetectFatigue()

	exerciseName := "unknown"
	if o.idx < len(o.exercises) {
		exerciseName = o.exercises[o.idx]
	}
	rec := WorkoutRecord{
		SessionID: o.workoutID,
		UserID:    o.userID,
		Exercise:  string(engine.NormalizeExercise(exerciseName)),
		Reps:      o.eng.TotalReps(),
		Sets:      o.currentSet,
		Calories:  segmentCalories,
		Fatigue:   fatigue,
		Duration:  duration,
	}

	switch {
	case o.workoutID != "":
		if err := o.store.UpdateWorkout(ctx, rec); err != nil {
			monitoring.Opsf("[session] update workout: %v", err)
		}
	case rec.Reps > 0 || duration > 30:
		id, err := o.store.CreateWorkout(ctx, rec)
		if err != nil {
			monitoring.Opsf("[session] create workout: %v", err)
			return
		}
		o.workoutID = id
	}
}

func decode(raw json.RawMessage, v interface{}) {
	if len(raw) == 0 {
		return
	}
	if err := json.Unmarshal(raw, v); err != nil {
		monitoring.Diagf("[session] bad command payload: %v", err)
	}
}
