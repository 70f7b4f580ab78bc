package infer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kinetic-data/repcoach/internal/capture"
	"github.com/kinetic-data/repcoach/internal/pose"
)

// RemoteEstimator sends frames to a pose inference service and decodes
// its keypoint response. The model runtime lives out of process; this
// service only does the protocol and geometry.
type RemoteEstimator struct {
	url    string
	client *http.Client
}

// NewRemoteEstimator points at the inference service's estimate endpoint.
func NewRemoteEstimator(url string) *RemoteEstimator {
	return &RemoteEstimator{
		url: url,
		client: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

func (e *RemoteEstimator) Model() string { return "remote" }

// remoteKeypoint mirrors the inference service's response schema.
type remoteKeypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

type remoteResponse struct {
	Detected  bool                      `json:"detected"`
	Keypoints map[string]remoteKeypoint `json:"keypoints"`
	Width     int                       `json:"width"`
	Height    int                       `json:"height"`
	Model     string                    `json:"model"`
}

// Estimate posts the JPEG frame and converts the response to keypoints.
// A response with no detection returns (nil, nil).
func (e *RemoteEstimator) Estimate(frame *capture.Frame) (*pose.Result, error) {
	resp, err := e.client.Post(e.url, "image/jpeg", bytes.NewReader(frame.Pixels))
	if err != nil {
		return nil, fmt.Errorf("pose service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pose service: status %d", resp.StatusCode)
	}

	var body remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("pose service response: %w", err)
	}
	if !body.Detected || len(body.Keypoints) == 0 {
		return nil, nil
	}

	width, height := float64(body.Width), float64(body.Height)
	if width <= 0 {
		width = float64(frame.Width)
	}
	if height <= 0 {
		height = float64(frame.Height)
	}

	kps := make(map[string]pose.Keypoint, len(body.Keypoints))
	for name, kp := range body.Keypoints {
		norm := pose.Keypoint{
			X: kp.X, Y: kp.Y, Z: kp.Z,
			Visibility: kp.Visibility,
		}
		if width > 0 && height > 0 {
			norm.NormX = kp.X / width
			norm.NormY = kp.Y / height
		}
		kps[name] = norm
	}

	result := &pose.Result{
		Keypoints: kps,
		Timestamp: frame.Timestamp,
	}
	if body.Model != "" {
		result.Model = body.Model
	}
	return result, nil
}
