package session

// postureMessages maps form issue codes to coaching text shown (and
// optionally spoken) to the user.
var postureMessages = map[string]string{
	// Squat
	"squat_knee_wide":   "Keep your knees tracking over your feet!",
	"squat_knee_uneven": "Keep your knees symmetric!",
	"squat_back_round":  "Straighten your back! Look ahead.",
	"squat_depth":       "Go lower, thighs parallel to the floor.",

	// Push-up
	"pushup_hips_high":   "Lower your hips! Keep your body in line.",
	"pushup_hips_low":    "Lift your hips! You are sagging.",
	"pushup_elbows_wide": "Keep your elbows close to your body.",
	"pushup_depth":       "Go lower, chest toward the floor.",

	// Plank
	"plank_hips_high": "Lower your hips! Keep a straight line.",
	"plank_hips_low":  "Engage your core! Don't let your back arch.",
	"plank_head_down": "Look at the floor, keep your head aligned.",

	// Bicep curl
	"curl_elbow_move": "Keep your elbow fixed! Only the forearm moves.",
	"curl_swing":      "No swinging! Control the movement.",

	// Lunge
	"lunge_depth":      "Go deeper on your lunges!",
	"lunge_torso_lean": "Keep your torso upright!",

	// Tricep dip
	"dip_uneven": "Keep your elbows symmetric!",

	// Row
	"row_back_round": "Flat back! Pull your elbows behind you.",

	// Crunch
	"crunch_neck_strain": "Don't pull on your neck!",
	"crunch_legs_moving": "Keep your legs still!",

	// Shoulder press / deadlift
	"press_arch_back":     "Engage your core, don't arch your back!",
	"deadlift_back_round": "Flat back! Chest up, hips back.",

	// General
	"body_not_visible": "Step back so your whole body is visible!",
}

// postureMessage resolves an issue code with a generic fallback.
func postureMessage(code string) string {
	if msg, ok := postureMessages[code]; ok {
		return msg
	}
	return "Check your posture!"
}
