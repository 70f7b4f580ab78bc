package pose

import "math"

// Joint angle names derived from the skeleton. Left/right pairs are computed
// independently so the exercise engine can gate on the worse side.
const (
	AngleLeftElbow     = "left_elbow"
	AngleRightElbow    = "right_elbow"
	AngleLeftShoulder  = "left_shoulder"
	AngleRightShoulder = "right_shoulder"
	AngleLeftHip       = "left_hip"
	AngleRightHip      = "right_hip"
	AngleLeftKnee      = "left_knee"
	AngleRightKnee     = "right_knee"
	AngleTorso         = "torso_angle"
)

// angle joints: each entry is (first, vertex, last).
var angleJoints = []struct {
	name         string
	a, vertex, c string
}{
	{AngleLeftElbow, LeftShoulder, LeftElbow, LeftWrist},
	{AngleRightElbow, RightShoulder, RightElbow, RightWrist},
	{AngleLeftKnee, LeftHip, LeftKnee, LeftAnkle},
	{AngleRightKnee, RightHip, RightKnee, RightAnkle},
	{AngleLeftHip, LeftShoulder, LeftHip, LeftKnee},
	{AngleRightHip, RightShoulder, RightHip, RightKnee},
	{AngleLeftShoulder, LeftElbow, LeftShoulder, LeftHip},
	{AngleRightShoulder, RightElbow, RightShoulder, RightHip},
}

// CalculateAngles derives the named joint angles (degrees) from a keypoint
// set. Joints with missing landmarks are omitted from the map rather than
// reported as zero, so consumers can fall back per-joint.
func CalculateAngles(kps map[string]Keypoint) map[string]float64 {
	angles := make(map[string]float64, len(angleJoints)+1)
	for _, j := range angleJoints {
		a, okA := kps[j.a]
		b, okB := kps[j.vertex]
		c, okC := kps[j.c]
		if !okA || !okB || !okC {
			continue
		}
		angles[j.name] = Angle(a, b, c)
	}
	if torso, ok := TorsoAngle(kps); ok {
		angles[AngleTorso] = torso
	}
	return angles
}

// Angle returns the angle at vertex b formed by points a and c, in degrees.
func Angle(a, b, c Keypoint) float64 {
	bax := a.X - b.X
	bay := a.Y - b.Y
	bcx := c.X - b.X
	bcy := c.Y - b.Y
	// 1e-6 guard keeps coincident points from dividing by zero.
	denom := math.Hypot(bax, bay)*math.Hypot(bcx, bcy) + 1e-6
	cos := (bax*bcx + bay*bcy) / denom
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// TorsoAngle returns the lean of the shoulder-hip axis from vertical, in
// degrees. 0 is upright, 90 is horizontal.
func TorsoAngle(kps map[string]Keypoint) (float64, bool) {
	ls, ok1 := kps[LeftShoulder]
	rs, ok2 := kps[RightShoulder]
	lh, ok3 := kps[LeftHip]
	rh, ok4 := kps[RightHip]
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return 0, false
	}
	midShoulderX := (ls.X + rs.X) / 2
	midShoulderY := (ls.Y + rs.Y) / 2
	midHipX := (lh.X + rh.X) / 2
	midHipY := (lh.Y + rh.Y) / 2

	dx := midShoulderX - midHipX
	dy := midShoulderY - midHipY
	return math.Atan2(math.Abs(dx), math.Abs(dy)) * 180 / math.Pi, true
}
