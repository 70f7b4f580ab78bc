package engine

import (
	"math"
	"strings"

	"github.com/kinetic-data/repcoach/internal/pose"
)

// windowSize is the number of consecutive samples the form classifier
// needs before producing a label.
const windowSize = 20

// featureCount is the length of the per-sample feature vector.
const featureCount = 15

// FormClassifier scores a rolling window of feature vectors and returns a
// form label with a confidence. Implementations wrap a model runtime; the
// engine only consumes the label.
type FormClassifier interface {
	Classify(window [][]float64) (label string, confidence float64)
}

// negativeMarkers appear in labels that indicate bad form. The label
// vocabulary is Pushup Correct/Incorrect plus Squat Correct/Shallow/
// Forward Lean/Knee Caving/Heels Off/Asymmetric.
var negativeMarkers = []string{"incorrect", "shallow", "lean", "caving", "off", "asymmetric"}

// negativeLabelCode converts a bad-form label to a feedback code, or
// reports that the label is positive.
func negativeLabelCode(label string) (string, bool) {
	lower := strings.ToLower(label)
	for _, marker := range negativeMarkers {
		if strings.Contains(lower, marker) {
			return strings.ReplaceAll(lower, " ", "_"), true
		}
	}
	return "", false
}

// featureWindow accumulates per-sample feature vectors, keyed to one
// exercise at a time. Switching exercises clears it so a label never mixes
// movements.
type featureWindow struct {
	exercise Exercise
	samples  [][]float64
}

func newFeatureWindow() *featureWindow {
	return &featureWindow{}
}

func (w *featureWindow) push(exercise Exercise, features []float64) {
	if exercise != w.exercise {
		w.samples = w.samples[:0]
		w.exercise = exercise
	}
	w.samples = append(w.samples, features)
	if len(w.samples) > windowSize {
		w.samples = w.samples[len(w.samples)-windowSize:]
	}
}

func (w *featureWindow) full() bool { return len(w.samples) == windowSize }

// classifyForm feeds one sample into the window and, when the window is
// full, asks the classifier for a label. Labels are accepted only above
// the confidence floor and only when they match the active exercise, so a
// pushup label can never surface mid-squat.
func classifyForm(c FormClassifier, w *featureWindow, exercise Exercise, keypoints map[string]pose.Keypoint) (string, float64) {
	if exercise != Squat && exercise != Pushup {
		return "", 0
	}
	w.push(exercise, FeatureVector(keypoints))
	if !w.full() {
		return "", 0
	}

	label, conf := c.Classify(w.samples)
	if label == "" || conf < 0.80 {
		return "", 0
	}
	if exercise == Squat && !strings.Contains(label, "Squat") {
		return "", 0
	}
	if exercise == Pushup && !strings.Contains(label, "Pushup") {
		return "", 0
	}
	return label, conf
}

// FeatureVector extracts the 15 features the form model was trained on:
// ten joint angles, the back angle, knee spacing, two heel lifts, and a
// left/right asymmetry score. Missing landmarks contribute as the origin,
// matching the training pipeline's zero-fill.
func FeatureVector(kps map[string]pose.Keypoint) []float64 {
	p := func(name string) [3]float64 {
		kp, ok := kps[name]
		if !ok {
			return [3]float64{}
		}
		return [3]float64{kp.X, kp.Y, kp.Z}
	}

	leftElbow := angle3(p(pose.LeftShoulder), p(pose.LeftElbow), p(pose.LeftWrist))
	rightElbow := angle3(p(pose.RightShoulder), p(pose.RightElbow), p(pose.RightWrist))
	leftShoulder := angle3(p(pose.LeftElbow), p(pose.LeftShoulder), p(pose.LeftHip))
	rightShoulder := angle3(p(pose.RightElbow), p(pose.RightShoulder), p(pose.RightHip))
	leftHip := angle3(p(pose.LeftShoulder), p(pose.LeftHip), p(pose.LeftKnee))
	rightHip := angle3(p(pose.RightShoulder), p(pose.RightHip), p(pose.RightKnee))
	leftKnee := angle3(p(pose.LeftHip), p(pose.LeftKnee), p(pose.LeftAnkle))
	rightKnee := angle3(p(pose.RightHip), p(pose.RightKnee), p(pose.RightAnkle))
	leftAnkle := angle3(p(pose.LeftKnee), p(pose.LeftAnkle), p(pose.LeftFootIndex))
	rightAnkle := angle3(p(pose.RightKnee), p(pose.RightAnkle), p(pose.RightFootIndex))

	ls, rs := p(pose.LeftShoulder), p(pose.RightShoulder)
	midShoulder := [3]float64{(ls[0] + rs[0]) / 2, (ls[1] + rs[1]) / 2, (ls[2] + rs[2]) / 2}
	back := angle3(ls, midShoulder, p(pose.LeftHip))

	kneeDist := dist3(p(pose.LeftKnee), p(pose.RightKnee))
	leftHeel := math.Abs(p(pose.LeftAnkle)[2] - p(pose.LeftFootIndex)[2])
	rightHeel := math.Abs(p(pose.RightAnkle)[2] - p(pose.RightFootIndex)[2])
	asymmetry := math.Abs(leftKnee-rightKnee) + math.Abs(leftHip-rightHip)

	return []float64{
		leftElbow, rightElbow, leftShoulder, rightShoulder,
		leftHip, rightHip, leftKnee, rightKnee,
		leftAnkle, rightAnkle, back, kneeDist,
		leftHeel, rightHeel, asymmetry,
	}
}

func angle3(a, b, c [3]float64) float64 {
	ba := [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
	bc := [3]float64{c[0] - b[0], c[1] - b[1], c[2] - b[2]}
	dot := ba[0]*bc[0] + ba[1]*bc[1] + ba[2]*bc[2]
	na := math.Sqrt(ba[0]*ba[0] + ba[1]*ba[1] + ba[2]*ba[2])
	nc := math.Sqrt(bc[0]*bc[0] + bc[1]*bc[1] + bc[2]*bc[2])
	denom := na*nc + 1e-9
	cos := math.Max(-1, math.Min(1, dot/denom))
	return math.Acos(cos) * 180 / math.Pi
}

func dist3(a, b [3]float64) float64 {
	dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
