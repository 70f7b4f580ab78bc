package engine

import "gonum.org/v1/gonum/stat"

// Feature vector indices, matching FeatureVector's layout.
const (
	featLeftKnee  = 6
	featRightKnee = 7
	featBack      = 10
	featLeftHeel  = 12
	featRightHeel = 13
	featAsymmetry = 14
)

// HeuristicClassifier is a model-free FormClassifier. It scores the same
// feature window the trained model would see, using depth, lean, heel and
// symmetry statistics, and emits labels from the model's vocabulary. Used
// when no model runtime is wired in, and by the dev binary.
type HeuristicClassifier struct{}

func (HeuristicClassifier) Classify(window [][]float64) (string, float64) {
	if len(window) < windowSize {
		return "", 0
	}

	col := func(idx int) []float64 {
		vals := make([]float64, len(window))
		for i, sample := range window {
			vals[i] = sample[idx]
		}
		return vals
	}

	minKnee := minOf(col(featLeftKnee))
	if rk := minOf(col(featRightKnee)); rk < minKnee {
		minKnee = rk
	}
	meanBack := stat.Mean(col(featBack), nil)
	meanAsym := stat.Mean(col(featAsymmetry), nil)
	maxHeel := maxOf(col(featLeftHeel))
	if rh := maxOf(col(featRightHeel)); rh > maxHeel {
		maxHeel = rh
	}

	// Checks are ordered most to least specific. Thresholds are coarse:
	// this classifier backs up the trained model, it does not replace it.
	switch {
	case meanAsym > 45:
		return "Squat Asymmetric", 0.82
	case maxHeel > 0.12:
		return "Squat Heels Off", 0.82
	case meanBack > 140:
		return "Squat Forward Lean", 0.84
	case minKnee > 110:
		return "Squat Shallow", 0.85
	case minKnee < 100:
		return "Squat Correct", 0.88
	}
	return "", 0
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
