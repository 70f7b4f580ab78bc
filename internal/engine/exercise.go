// Package engine tracks exercise execution from joint angles: movement
// phase, repetition counting with acceptance gates, form issues, fatigue,
// and optional ML form labels.
package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kinetic-data/repcoach/internal/monitoring"
)

// Exercise identifies a supported exercise.
type Exercise string

const (
	Squat         Exercise = "squat"
	Pushup        Exercise = "pushup"
	Plank         Exercise = "plank"
	BicepCurl     Exercise = "bicep_curl"
	Lunge         Exercise = "lunge"
	TricepDip     Exercise = "tricep_dip"
	ShoulderPress Exercise = "shoulder_press"
	Row           Exercise = "row"
	Crunch        Exercise = "crunch"
	Deadlift      Exercise = "deadlift"
	Unknown       Exercise = "unknown"
)

// Phase is the movement phase within an exercise.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseDown       Phase = "down"
	PhaseUp         Phase = "up"
	PhaseHold       Phase = "hold"
	PhaseTransition Phase = "transition"
)

// Rep cycle grouping. Group A latches at the bottom of the movement and
// completes at the top, group B is the mirror, group C is a timed hold.
var (
	latchDownExercises = map[Exercise]bool{
		Squat: true, Pushup: true, Lunge: true, TricepDip: true, ShoulderPress: true,
	}
	latchUpExercises = map[Exercise]bool{
		BicepCurl: true, Row: true, Crunch: true, Deadlift: true,
	}
)

var canonical = map[string]Exercise{
	"squat": Squat, "pushup": Pushup, "plank": Plank,
	"bicep_curl": BicepCurl, "lunge": Lunge, "tricep_dip": TricepDip,
	"shoulder_press": ShoulderPress, "row": Row, "crunch": Crunch,
	"deadlift": Deadlift,
}

// Built-in aliases, mostly frontend IDs and French names carried over from
// the original coaching UI. Extendable at startup via LoadAliases.
var aliases = map[string]Exercise{
	"pompe":          Pushup,
	"planche":        Plank,
	"bicep":          BicepCurl,
	"curl":           BicepCurl,
	"fente":          Lunge,
	"tricep_dips":    TricepDip,
	"dips":           TricepDip,
	"press":          ShoulderPress,
	"militaire":      ShoulderPress,
	"rows":           Row,
	"rowing":         Row,
	"crunches":       Crunch,
	"abs":            Crunch,
	"abdominaux":     Crunch,
	"abdos":          Crunch,
	"situp":          Crunch,
	"souleve":        Deadlift,
	"soulevé":        Deadlift,
}

// NormalizeExercise maps a client-supplied name to a canonical Exercise.
// Matching is case-insensitive and treats '-' and '_' as equivalent.
func NormalizeExercise(name string) Exercise {
	clean := strings.ReplaceAll(strings.TrimSpace(strings.ToLower(name)), "-", "_")
	if clean == "" {
		return Unknown
	}
	if ex, ok := canonical[clean]; ok {
		return ex
	}
	if ex, ok := aliases[clean]; ok {
		return ex
	}
	return Unknown
}

// LoadAliases merges an alias table from a JSON file mapping alias name to
// canonical exercise name. Unknown canonical names are rejected.
func LoadAliases(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read alias table: %w", err)
	}
	var table map[string]string
	if err := json.Unmarshal(raw, &table); err != nil {
		return fmt.Errorf("parse alias table: %w", err)
	}
	for alias, target := range table {
		ex, ok := canonical[strings.ToLower(target)]
		if !ok {
			return fmt.Errorf("alias %q targets unknown exercise %q", alias, target)
		}
		clean := strings.ReplaceAll(strings.ToLower(alias), "-", "_")
		aliases[clean] = ex
	}
	monitoring.Diagf("[engine] loaded %d exercise aliases from %s", len(table), path)
	return nil
}
