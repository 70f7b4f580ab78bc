// Package pose holds the data model at the estimator boundary, named body
// keypoints with confidences, and the pure geometry that turns keypoints
// into joint angles and body measurements.
package pose

import "time"

// Keypoint is a single named anatomical landmark for one frame.
// X/Y are pixel coordinates in the source frame, Z is the estimator's
// relative depth, and NormX/NormY are positions normalized to [0,1] of the
// frame dimensions. Keypoints are immutable once created.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	NormX      float64 `json:"norm_x"`
	NormY      float64 `json:"norm_y"`
	Visibility float64 `json:"visibility"`
}

// Result is one pose estimation outcome. The inference scheduler assigns
// ResultID monotonically; consumers treat a Result as read-only and use the
// id for freshness detection.
type Result struct {
	Keypoints map[string]Keypoint `json:"keypoints"`
	Angles    map[string]float64  `json:"angles"`
	FrameID   uint64              `json:"frame_id"`
	ResultID  uint64              `json:"result_id"`
	Timestamp time.Time           `json:"timestamp"`
	Model     string              `json:"model,omitempty"`
}

// AverageVisibility returns the mean visibility across all keypoints,
// or 0 when the result has none.
func (r *Result) AverageVisibility() float64 {
	if r == nil || len(r.Keypoints) == 0 {
		return 0
	}
	var sum float64
	for _, kp := range r.Keypoints {
		sum += kp.Visibility
	}
	return sum / float64(len(r.Keypoints))
}
