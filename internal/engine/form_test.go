package engine

import (
	"testing"

	"github.com/kinetic-data/repcoach/internal/pose"
)

func TestCheckForm(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name     string
		exercise Exercise
		angles   map[string]float64
		want     []string
	}{
		{
			name:     "clean squat",
			exercise: Squat,
			angles:   squatAngles(90),
			want:     nil,
		},
		{
			name:     "uneven knees while bent",
			exercise: Squat,
			angles: map[string]float64{
				pose.AngleLeftKnee: 70, pose.AngleRightKnee: 120,
				pose.AngleTorso: 10,
			},
			want: []string{"squat_knee_uneven"},
		},
		{
			name:     "uneven knees ignored while standing",
			exercise: Squat,
			angles: map[string]float64{
				pose.AngleLeftKnee: 145, pose.AngleRightKnee: 178,
				pose.AngleTorso: 10,
			},
			want: nil,
		},
		{
			name:     "rounded squat back",
			exercise: Squat,
			angles: map[string]float64{
				pose.AngleLeftKnee: 90, pose.AngleRightKnee: 90,
				pose.AngleTorso: 50,
			},
			want: []string{"squat_back_round"},
		},
		{
			name:     "pushup hips piked",
			exercise: Pushup,
			angles:   map[string]float64{pose.AngleLeftHip: 140, pose.AngleRightHip: 150},
			want:     []string{"pushup_hips_high"},
		},
		{
			name:     "pushup hips sagging",
			exercise: Pushup,
			angles:   map[string]float64{pose.AngleLeftHip: 195, pose.AngleRightHip: 195},
			want:     []string{"pushup_hips_low"},
		},
		{
			name:     "plank straight",
			exercise: Plank,
			angles:   plankAngles(175),
			want:     nil,
		},
		{
			name:     "curl swinging shoulders",
			exercise: BicepCurl,
			angles: map[string]float64{
				pose.AngleLeftShoulder: 70, pose.AngleRightShoulder: 70,
			},
			want: []string{"curl_swing"},
		},
		{
			name:     "dip asymmetric elbows",
			exercise: TricepDip,
			angles:   map[string]float64{pose.AngleLeftElbow: 90, pose.AngleRightElbow: 130},
			want:     []string{"dip_uneven"},
		},
		{
			name:     "row hinge collapsed",
			exercise: Row,
			angles:   map[string]float64{pose.AngleTorso: 10},
			want:     []string{"row_back_round"},
		},
		{
			name:     "deadlift rounded back",
			exercise: Deadlift,
			angles:   map[string]float64{pose.AngleTorso: 60},
			want:     []string{"deadlift_back_round"},
		},
		{
			name:     "lunge too shallow and leaning",
			exercise: Lunge,
			angles: map[string]float64{
				pose.AngleLeftKnee: 150, pose.AngleRightKnee: 160,
				pose.AngleTorso: 30,
			},
			want: []string{"lunge_depth", "lunge_torso_lean"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CheckForm(tc.angles, tc.exercise, th)
			if len(got) != len(tc.want) {
				t.Fatalf("issues = %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("issue[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestClassifyByRules(t *testing.T) {
	tests := []struct {
		name   string
		angles map[string]float64
		want   Exercise
	}{
		{
			name: "horizontal straight body is a plank",
			angles: map[string]float64{
				pose.AngleTorso:     70,
				pose.AngleLeftHip:   175, pose.AngleRightHip: 175,
				pose.AngleLeftElbow: 170, pose.AngleRightElbow: 170,
			},
			want: Plank,
		},
		{
			name: "horizontal bent arms is a pushup",
			angles: map[string]float64{
				pose.AngleTorso:     70,
				pose.AngleLeftHip:   140, pose.AngleRightHip: 140,
				pose.AngleLeftElbow: 100, pose.AngleRightElbow: 100,
			},
			want: Pushup,
		},
		{
			name:   "upright bent knees is a squat",
			angles: squatAngles(110),
			want:   Squat,
		},
		{
			name: "upright bent arms is a curl",
			angles: map[string]float64{
				pose.AngleTorso:     5,
				pose.AngleLeftElbow: 80, pose.AngleRightElbow: 80,
				pose.AngleLeftKnee:  175, pose.AngleRightKnee: 175,
			},
			want: BicepCurl,
		},
		{
			name:   "nothing recognizable",
			angles: map[string]float64{},
			want:   Unknown,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, conf := ClassifyByRules(tc.angles)
			if got != tc.want {
				t.Fatalf("exercise = %s, want %s", got, tc.want)
			}
			if tc.want != Unknown && conf <= 0 {
				t.Errorf("confidence = %v, want > 0", conf)
			}
		})
	}
}
