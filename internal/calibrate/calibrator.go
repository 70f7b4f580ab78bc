// Package calibrate runs the T-pose calibration flow: it samples the pose
// stream for a few seconds, checks the user held still, averages body
// measurements, and derives personalized exercise thresholds.
package calibrate

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kinetic-data/repcoach/internal/engine"
	"github.com/kinetic-data/repcoach/internal/monitoring"
	"github.com/kinetic-data/repcoach/internal/pose"
	"github.com/kinetic-data/repcoach/internal/timeutil"
)

// Config tunes the calibration run.
type Config struct {
	Duration           time.Duration // sampling window
	SampleRate         float64       // target samples per second
	StabilityThreshold float64       // max mean positional stddev
	MinVisibility      float64       // per-landmark floor for a usable sample
}

// DefaultConfig matches the production tuning: 5 seconds at 10 Hz.
func DefaultConfig() Config {
	return Config{
		Duration:           5 * time.Second,
		SampleRate:         10,
		StabilityThreshold: 0.02,
		MinVisibility:      0.7,
	}
}

// ResultPoller exposes the freshest pose result. Satisfied by the
// inference scheduler.
type ResultPoller interface {
	Latest() (*pose.Result, bool)
}

// BodyTypeClassifier buckets the user's build from a representative pose
// sample. Optional; without one the ratio-based estimate is used.
type BodyTypeClassifier interface {
	ClassifyBodyType(sample *pose.Result) engine.BodyType
}

// Progress is delivered to the progress callback after each accepted
// sample.
type Progress struct {
	Progress  float64 `json:"progress"`
	Status    string  `json:"status"`
	Collected int     `json:"collected"`
	Total     int     `json:"total"`
}

// Outcome is the terminal calibration result.
type Outcome struct {
	Success          bool               `json:"success"`
	Message          string             `json:"message"`
	Ratios           *pose.BodyRatios   `json:"ratios,omitempty"`
	Thresholds       map[string]float64 `json:"thresholds,omitempty"`
	BodyType         engine.BodyType    `json:"body_type,omitempty"`
	SamplesCollected int                `json:"samples_collected"`
	StabilityScore   float64            `json:"stability_score,omitempty"`
}

// Calibrator runs one calibration at a time.
type Calibrator struct {
	cfg        Config
	clock      timeutil.Clock
	classifier BodyTypeClassifier
}

// New builds a calibrator. classifier may be nil.
func New(cfg Config, clock timeutil.Clock, classifier BodyTypeClassifier) *Calibrator {
	if cfg.Duration <= 0 {
		cfg.Duration = 5 * time.Second
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 10
	}
	if cfg.StabilityThreshold <= 0 {
		cfg.StabilityThreshold = 0.02
	}
	if cfg.MinVisibility <= 0 {
		cfg.MinVisibility = 0.7
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Calibrator{cfg: cfg, clock: clock, classifier: classifier}
}

// requiredLandmarks must all clear the visibility floor for a sample to
// count. Wrists and ankles are excluded: they sit at the frame edge in a
// T-pose and flicker without meaning the pose is bad.
var requiredLandmarks = []string{
	pose.LeftShoulder, pose.RightShoulder,
	pose.LeftHip, pose.RightHip,
	pose.LeftKnee, pose.RightKnee,
}

// Run executes the calibration flow. duration overrides the configured
// sampling window when positive; clients may request a longer hold.
// progressFn, if non-nil, is invoked after every accepted sample.
// Cancelling ctx aborts sampling; a cancelled run never reports success.
func (c *Calibrator) Run(ctx context.Context, poller ResultPoller, duration time.Duration, progressFn func(Progress)) Outcome {
	if duration <= 0 {
		duration = c.cfg.Duration
	}
	totalSamples := int(duration.Seconds() * c.cfg.SampleRate)
	interval := time.Duration(float64(time.Second) / c.cfg.SampleRate)
	deadline := c.clock.Now().Add(duration + duration/2)

	monitoring.Opsf("[calibrate] starting, %d samples over %s", totalSamples, duration)

	var samples []*pose.Result
	var lastID uint64

	for len(samples) < totalSamples {
		select {
		case <-ctx.Done():
			monitoring.Opsf("[calibrate] cancelled after %d samples", len(samples))
			return Outcome{
				Success:          false,
				Message:          "Calibration cancelled.",
				SamplesCollected: len(samples),
			}
		default:
		}
		// Sampling runs half the window past the nominal duration, then
		// gives up with whatever was collected.
		if c.clock.Now().After(deadline) {
			break
		}

		c.clock.Sleep(interval)

		result, ok := poller.Latest()
		if !ok || result.ResultID <= lastID {
			continue
		}
		lastID = result.ResultID

		if !c.visibleEnough(result.Keypoints) {
			continue
		}

		samples = append(samples, result)
		if progressFn != nil {
			progressFn(Progress{
				Progress:  float64(len(samples)) / float64(totalSamples),
				Status:    "collecting",
				Collected: len(samples),
				Total:     totalSamples,
			})
		}
	}

	monitoring.Diagf("[calibrate] collected %d/%d samples", len(samples), totalSamples)

	if len(samples) < totalSamples/2 {
		return Outcome{
			Success:          false,
			Message:          fmt.Sprintf("Not enough data (%d/%d samples). Step back so your whole body is visible.", len(samples), totalSamples),
			SamplesCollected: len(samples),
		}
	}

	stability := torsoStability(samples)
	// 2.5x relaxation over the nominal threshold; home cameras shake.
	if stability > c.cfg.StabilityThreshold*2.5 {
		return Outcome{
			Success:          false,
			Message:          "Hold still! Too much movement detected.",
			SamplesCollected: len(samples),
		}
	}

	ratios, ok := averageRatios(samples)
	if !ok {
		return Outcome{
			Success:          false,
			Message:          "Could not measure body proportions.",
			SamplesCollected: len(samples),
		}
	}

	thresholds := DeriveThresholds(ratios)

	bodyType := engine.EstimateBodyType(ratios)
	if c.classifier != nil {
		bodyType = c.classifier.ClassifyBodyType(samples[len(samples)-1])
	}

	score := 1 - stability/0.1
	if score < 0 {
		score = 0
	}
	monitoring.Opsf("[calibrate] complete, body type %s, stability %.3f", bodyType, stability)

	return Outcome{
		Success:          true,
		Message:          "Calibration complete. Your thresholds have been applied.",
		Ratios:           &ratios,
		Thresholds:       thresholds,
		BodyType:         bodyType,
		SamplesCollected: len(samples),
		StabilityScore:   round2(score),
	}
}

func (c *Calibrator) visibleEnough(kps map[string]pose.Keypoint) bool {
	for _, name := range requiredLandmarks {
		kp, ok := kps[name]
		if !ok || kp.Visibility < c.cfg.MinVisibility {
			return false
		}
	}
	return true
}

// torsoStability measures how much the user moved: for each torso landmark
// the stddev of its normalized position over the run, averaged across
// landmarks. Lower is stiller.
func torsoStability(samples []*pose.Result) float64 {
	if len(samples) < 2 {
		return 1
	}

	var movements []float64
	for _, name := range pose.TorsoLandmarks {
		var xs, ys []float64
		for _, s := range samples {
			kp, ok := s.Keypoints[name]
			if !ok {
				continue
			}
			xs = append(xs, kp.NormX)
			ys = append(ys, kp.NormY)
		}
		if len(xs) > 1 {
			movements = append(movements, stat.StdDev(xs, nil)+stat.StdDev(ys, nil))
		}
	}
	if len(movements) == 0 {
		return 1
	}
	return stat.Mean(movements, nil)
}

func averageRatios(samples []*pose.Result) (pose.BodyRatios, bool) {
	var sum pose.BodyRatios
	n := 0
	for _, s := range samples {
		r, ok := pose.CalculateBodyRatios(s.Keypoints)
		if !ok {
			continue
		}
		sum.ShoulderWidth += r.ShoulderWidth
		sum.ArmLength += r.ArmLength
		sum.LegLength += r.LegLength
		sum.TorsoHeight += r.TorsoHeight
		sum.LegTorsoRatio += r.LegTorsoRatio
		n++
	}
	if n == 0 {
		return pose.BodyRatios{}, false
	}
	f := float64(n)
	return pose.BodyRatios{
		ShoulderWidth: sum.ShoulderWidth / f,
		ArmLength:     sum.ArmLength / f,
		LegLength:     sum.LegLength / f,
		TorsoHeight:   sum.TorsoHeight / f,
		LegTorsoRatio: sum.LegTorsoRatio / f,
	}, true
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
