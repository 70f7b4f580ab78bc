package session

import (
	"time"

	"github.com/kinetic-data/repcoach/internal/timeutil"
)

// CalorieTracker estimates energy burned across a session using a MET
// model scaled by exercise intensity. Intensity rises with rep cadence and
// resets between sets.
type CalorieTracker struct {
	clock      timeutil.Clock
	weightKg   float64
	intensity  float64
	burned     float64
	lastUpdate time.Time
	active     bool
}

// NewCalorieTracker uses the given body weight; zero defaults to 70kg.
func NewCalorieTracker(clock timeutil.Clock, weightKg float64) *CalorieTracker {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if weightKg <= 0 {
		weightKg = 70
	}
	return &CalorieTracker{clock: clock, weightKg: weightKg, intensity: 0.5}
}

// Start resets the counter for a new session.
func (t *CalorieTracker) Start() {
	t.burned = 0
	t.intensity = 0.5
	t.lastUpdate = t.clock.Now()
	t.active = true
}

// Stop freezes the counter.
func (t *CalorieTracker) Stop() {
	t.Update()
	t.active = false
}

// SetIntensity clamps intensity into [0,1].
func (t *CalorieTracker) SetIntensity(intensity float64) {
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}
	t.intensity = intensity
}

// Update accrues calories for the time elapsed since the last call.
// MET spans 1 (rest) to 8 (vigorous); calories/min = MET * 3.5 * kg / 200.
func (t *CalorieTracker) Update() {
	if !t.active {
		return
	}
	now := t.clock.Now()
	dt := now.Sub(t.lastUpdate)
	t.lastUpdate = now
	if dt <= 0 {
		return
	}

	met := 1 + t.intensity*7
	perMin := met * 3.5 * t.weightKg / 200
	t.burned += perMin * dt.Minutes()
}

// Burned returns the session total so far.
func (t *CalorieTracker) Burned() float64 {
	t.Update()
	return t.burned
}
