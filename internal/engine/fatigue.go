package engine

import "gonum.org/v1/gonum/stat"

// DetectFatigue compares the two most recent rep durations against the two
// oldest in the rolling window. Slowing down more than 20% reads as
// fatigue. Returns the slowdown percentage, clamped at zero.
func (e *Engine) DetectFatigue() (bool, float64) {
	if len(e.repTimes) < 3 {
		return false, 0
	}

	initial := stat.Mean(e.repTimes[:2], nil)
	recent := stat.Mean(e.repTimes[len(e.repTimes)-2:], nil)
	if initial <= 0 {
		return false, 0
	}

	slowdown := (recent - initial) / initial * 100
	if slowdown < 0 {
		slowdown = 0
	}
	return slowdown > 20, slowdown
}

// RepTimes returns the rolling rep-duration window (seconds).
func (e *Engine) RepTimes() []float64 {
	out := make([]float64, len(e.repTimes))
	copy(out, e.repTimes)
	return out
}
