package session

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/kinetic-data/repcoach/internal/calibrate"
	"github.com/kinetic-data/repcoach/internal/engine"
	"github.com/kinetic-data/repcoach/internal/pose"
	"github.com/kinetic-data/repcoach/internal/timeutil"
)

type fakeCamera struct {
	running  bool
	startErr error
	started  []int
}

func (c *fakeCamera) Start(sourceID int) error {
	if c.startErr != nil {
		return c.startErr
	}
	c.running = true
	c.started = append(c.started, sourceID)
	return nil
}
func (c *fakeCamera) Stop()         { c.running = false }
func (c *fakeCamera) Running() bool { return c.running }
func (c *fakeCamera) FPS() float64  { return 30 }

type fakePoller struct {
	result *pose.Result
	nextID uint64
}

// push makes a new fresh result available with the given angles.
func (p *fakePoller) push(angles map[string]float64) {
	p.nextID++
	p.result = &pose.Result{
		ResultID: p.nextID,
		Angles:   angles,
		Keypoints: map[string]pose.Keypoint{
			pose.Nose: {NormX: 0.5, NormY: 0.1, Visibility: 1},
		},
	}
}

func (p *fakePoller) Latest() (*pose.Result, bool) {
	if p.result == nil {
		return nil, false
	}
	return p.result, true
}

type fakeStore struct {
	thresholds map[string]float64
	created    []WorkoutRecord
	updated    []WorkoutRecord
}

func (s *fakeStore) UserThresholds(ctx context.Context, userID string) (map[string]float64, error) {
	if s.thresholds == nil {
		return map[string]float64{}, nil
	}
	return s.thresholds, nil
}

func (s *fakeStore) CreateWorkout(ctx context.Context, rec WorkoutRecord) (string, error) {
	s.created = append(s.created, rec)
	return "workout-1", nil
}

func (s *fakeStore) UpdateWorkout(ctx context.Context, rec WorkoutRecord) error {
	s.updated = append(s.updated, rec)
	return nil
}

func (s *fakeStore) SaveCalibration(ctx context.Context, userID string, ratios pose.BodyRatios, thresholds map[string]float64, bodyType string) error {
	return nil
}

func squatDown() map[string]float64 {
	return map[string]float64{
		pose.AngleLeftKnee: 85, pose.AngleRightKnee: 85,
		pose.AngleLeftHip: 170, pose.AngleRightHip: 170,
		pose.AngleTorso: 10,
	}
}

func squatUp() map[string]float64 {
	angles := squatDown()
	angles[pose.AngleLeftKnee] = 170
	angles[pose.AngleRightKnee] = 170
	return angles
}

type fixture struct {
	orch   *Orchestrator
	clock  *timeutil.MockClock
	camera *fakeCamera
	poller *fakePoller
	store  *fakeStore
	events chan Event
	ctx    context.Context
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	camera := &fakeCamera{running: true}
	poller := &fakePoller{}
	store := &fakeStore{}
	eng := engine.New(clock, nil)
	hub := NewHub()
	orch := New(cfg, clock, eng, poller, camera, nil, store, hub)
	_, events := hub.Subscribe()
	return &fixture{
		orch: orch, clock: clock, camera: camera,
		poller: poller, store: store, events: events,
		ctx: context.Background(),
	}
}

func (f *fixture) drain() []Event {
	var out []Event
	for {
		select {
		case evt := <-f.events:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func (f *fixture) command(typ string, payload string) {
	f.orch.handleCommand(f.ctx, Command{Type: typ, Data: json.RawMessage(payload)})
}

func eventTypes(events []Event) []string {
	out := make([]string, len(events))
	for i, evt := range events {
		out[i] = evt.Type
	}
	return out
}

func hasEvent(events []Event, typ string) bool {
	for _, evt := range events {
		if evt.Type == typ {
			return true
		}
	}
	return false
}

func TestCameraCommands(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.camera.running = false

	f.command(CmdStartCamera, `{"camera_id": 1}`)
	events := f.drain()
	if !hasEvent(events, EvtCameraStarted) {
		t.Fatalf("no camera_started, got %v", eventTypes(events))
	}
	if len(f.camera.started) != 1 || f.camera.started[0] != 1 {
		t.Errorf("camera started with %v, want [1]", f.camera.started)
	}

	f.command(CmdStopCamera, ``)
	if !hasEvent(f.drain(), EvtCameraStopped) {
		t.Fatal("no camera_stopped event")
	}
	if f.camera.Running() {
		t.Error("camera still running")
	}
}

func TestSingleRepSessionCompletes(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	f.command(CmdStartSession, `{"user_id":"u1","exercises":["squat"],"target_reps":1,"target_sets":1}`)
	if !hasEvent(f.drain(), EvtSessionStarted) {
		t.Fatal("no session_started event")
	}

	f.poller.push(squatDown())
	f.orch.tick(f.ctx)
	events := f.drain()
	if !hasEvent(events, EvtKeypoints) || !hasEvent(events, EvtExerciseUpdate) {
		t.Fatalf("first tick events = %v", eventTypes(events))
	}

	f.clock.Advance(time.Second)
	f.poller.push(squatUp())
	f.orch.tick(f.ctx)
	events = f.drain()

	if !hasEvent(events, EvtRepCount) {
		t.Fatalf("no rep_count, got %v", eventTypes(events))
	}
	if !hasEvent(events, EvtSessionStopped) {
		t.Fatalf("no session_stopped, got %v", eventTypes(events))
	}

	// The workout was created on the rep and updated at session end.
	if len(f.store.created) != 1 {
		t.Fatalf("created %d workouts, want 1", len(f.store.created))
	}
	if len(f.store.updated) == 0 {
		t.Fatal("workout never updated")
	}
	final := f.store.updated[len(f.store.updated)-1]
	if final.Reps != 1 || final.Exercise != "squat" || final.UserID != "u1" {
		t.Errorf("final record = %+v", final)
	}
}

func TestSetCompletionAndResume(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.command(CmdStartSession, `{"user_id":"u1","exercises":["squat"],"target_reps":1,"target_sets":2}`)
	f.drain()

	f.poller.push(squatDown())
	f.orch.tick(f.ctx)
	f.clock.Advance(time.Second)
	f.poller.push(squatUp())
	f.orch.tick(f.ctx)

	events := f.drain()
	if !hasEvent(events, EvtSetComplete) {
		t.Fatalf("no set_complete, got %v", eventTypes(events))
	}
	if !f.orch.resting {
		t.Fatal("not resting after set completion")
	}

	// While resting in track mode, keypoints still flow but no counting.
	f.poller.push(squatDown())
	f.orch.tick(f.ctx)
	events = f.drain()
	if !hasEvent(events, EvtKeypoints) {
		t.Fatal("keypoints suppressed during rest in track mode")
	}
	if hasEvent(events, EvtExerciseUpdate) {
		t.Fatal("engine updated during rest")
	}

	f.command(CmdResume, ``)
	if f.orch.resting {
		t.Fatal("still resting after resume")
	}
}

func TestSuspendRestModeSilences(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RestMode = RestModeSuspend
	f := newFixture(t, cfg)
	f.command(CmdStartSession, `{"user_id":"u1","exercises":["squat"],"target_reps":1,"target_sets":2}`)
	f.drain()

	f.poller.push(squatDown())
	f.orch.tick(f.ctx)
	f.clock.Advance(time.Second)
	f.poller.push(squatUp())
	f.orch.tick(f.ctx)
	f.drain()

	f.poller.push(squatDown())
	f.orch.tick(f.ctx)
	if events := f.drain(); len(events) != 0 {
		t.Fatalf("events during suspended rest: %v", eventTypes(events))
	}
}

func TestFeedbackThrottled(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.command(CmdStartSession, `{"user_id":"u1","exercises":["squat"],"target_reps":5,"target_sets":1}`)
	f.drain()

	countFeedback := func(events []Event) int {
		n := 0
		for _, evt := range events {
			if evt.Type == EvtFeedback {
				n++
			}
		}
		return n
	}

	f.poller.push(squatUp())
	f.orch.tick(f.ctx)
	if got := countFeedback(f.drain()); got != 1 {
		t.Fatalf("first tick feedback = %d, want 1", got)
	}

	// Identical feedback within the throttle window stays quiet.
	f.clock.Advance(100 * time.Millisecond)
	f.poller.push(squatUp())
	f.orch.tick(f.ctx)
	if got := countFeedback(f.drain()); got != 0 {
		t.Fatalf("throttled feedback = %d, want 0", got)
	}

	// After the window it repeats.
	f.clock.Advance(4 * time.Second)
	f.poller.push(squatUp())
	f.orch.tick(f.ctx)
	if got := countFeedback(f.drain()); got != 1 {
		t.Fatalf("post-window feedback = %d, want 1", got)
	}
}

func TestNoDetectionHeartbeat(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	// One stale result polled over and over.
	f.poller.push(squatUp())
	f.orch.tick(f.ctx)
	f.drain()

	for i := 0; i < 100; i++ {
		f.orch.tick(f.ctx)
	}
	events := f.drain()
	n := 0
	for _, evt := range events {
		if evt.Type == EvtNoDetection {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("no_detection events = %d, want 1", n)
	}
}

func TestUserThresholdsAppliedOnStart(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.store.thresholds = map[string]float64{"squat_knee_angle": 95}

	f.command(CmdStartSession, `{"user_id":"u1","exercises":["squat"]}`)
	f.drain()

	if got := f.orch.eng.Thresholds().SquatKneeDown; got != 95 {
		t.Errorf("SquatKneeDown = %v, want 95 from stored calibration", got)
	}
}

func TestCalibrationUnavailableWithoutCalibrator(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.command(CmdStartCalibration, `{"user_id":"u1"}`)
	events := f.drain()
	if !hasEvent(events, EvtError) {
		t.Fatalf("no error event, got %v", eventTypes(events))
	}
}

func TestCalibrationUsesRequestedDuration(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1000, 0))
	hub := NewHub()
	cal := calibrate.New(calibrate.DefaultConfig(), clock, nil)
	orch := New(DefaultConfig(), clock, engine.New(clock, nil), &fakePoller{},
		&fakeCamera{running: true}, cal, &fakeStore{}, hub)
	_, events := hub.Subscribe()

	// No poses arrive, so the run times out against the requested 2s
	// window: 20 target samples, not the configured 5s / 50.
	orch.handleCommand(context.Background(), Command{
		Type: CmdStartCalibration,
		Data: json.RawMessage(`{"user_id":"u1","duration":2}`),
	})

	var outcome calibrate.Outcome
	found := false
	for len(events) > 0 {
		evt := <-events
		if evt.Type == EvtCalibrationComplete {
			outcome = evt.Data.(calibrate.Outcome)
			found = true
		}
	}
	if !found {
		t.Fatal("no calibration_complete event")
	}
	if outcome.Success {
		t.Fatal("calibration succeeded with no poses")
	}
	if !strings.Contains(outcome.Message, "(0/20 samples)") {
		t.Errorf("message = %q, want the 2s window's 20-sample target", outcome.Message)
	}
}

func TestBodyWeightReachesCalorieTracker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BodyWeightKg = 100
	f := newFixture(t, cfg)
	if f.orch.calories.weightKg != 100 {
		t.Errorf("tracker weight = %v, want 100", f.orch.calories.weightKg)
	}
}

func TestDuplicateStopSessionIgnored(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.command(CmdStartSession, `{"user_id":"u1","exercises":["squat"]}`)
	f.drain()

	countStopped := func(events []Event) int {
		n := 0
		for _, evt := range events {
			if evt.Type == EvtSessionStopped {
				n++
			}
		}
		return n
	}

	f.command(CmdStopSession, ``)
	if got := countStopped(f.drain()); got != 1 {
		t.Fatalf("session_stopped events = %d, want 1", got)
	}

	f.command(CmdStopSession, ``)
	if events := f.drain(); len(events) != 0 {
		t.Fatalf("events after duplicate stop: %v", eventTypes(events))
	}
}

func TestPauseSuspendsCounting(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.command(CmdStartSession, `{"user_id":"u1","exercises":["squat"]}`)
	f.drain()

	f.command(CmdPause, ``)
	if !hasEvent(f.drain(), EvtPaused) {
		t.Fatal("no paused event")
	}

	f.poller.push(squatDown())
	f.orch.tick(f.ctx)
	if events := f.drain(); hasEvent(events, EvtExerciseUpdate) {
		t.Fatal("engine updated while paused")
	}

	f.command(CmdResume, ``)
	if !hasEvent(f.drain(), EvtResumed) {
		t.Fatal("no resumed event")
	}
}
