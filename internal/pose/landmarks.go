package pose

// Landmark names for the 17-point skeleton produced by the pose estimator.
// The vocabulary is fixed: estimators that emit richer skeletons map down to
// these names at the boundary.
const (
	Nose           = "nose"
	LeftShoulder   = "left_shoulder"
	RightShoulder  = "right_shoulder"
	LeftElbow      = "left_elbow"
	RightElbow     = "right_elbow"
	LeftWrist      = "left_wrist"
	RightWrist     = "right_wrist"
	LeftHip        = "left_hip"
	RightHip       = "right_hip"
	LeftKnee       = "left_knee"
	RightKnee      = "right_knee"
	LeftAnkle      = "left_ankle"
	RightAnkle     = "right_ankle"
	LeftHeel       = "left_heel"
	RightHeel      = "right_heel"
	LeftFootIndex  = "left_foot_index"
	RightFootIndex = "right_foot_index"
)

// LandmarkNames lists the full skeleton vocabulary in canonical order.
var LandmarkNames = []string{
	Nose,
	LeftShoulder, RightShoulder,
	LeftElbow, RightElbow,
	LeftWrist, RightWrist,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
	LeftHeel, RightHeel,
	LeftFootIndex, RightFootIndex,
}

// TorsoLandmarks are the four landmarks used for stability scoring and
// auto-framing decisions.
var TorsoLandmarks = []string{LeftShoulder, RightShoulder, LeftHip, RightHip}
