package escalation

import "github.com/yungbote/oni-coach-backend/internal/domain/coach"

var noIntensities = [...]int{35, 55, 75, 100}

// IgnorePunishment maps a silence trigger index to a stimulus: a vibe nudge
// first, then zaps growing by 10 from 35 up to the maximum.
func IgnorePunishment(index int) coach.Stimulus {
	if index <= 1 {
		return coach.Stimulus{Type: coach.StimulusVibe, Intensity: coach.MaxIntensity}
	}
	intensity := 35 + 10*(index-2)
	if intensity > coach.MaxIntensity {
		intensity = coach.MaxIntensity
	}
	return coach.Stimulus{Type: coach.StimulusZap, Intensity: intensity}
}

// NoPunishment maps a refusal trigger index to a zap from a fixed ladder,
// clamped at both ends.
func NoPunishment(index int) coach.Stimulus {
	i := index - 1
	if i < 0 {
		i = 0
	}
	if i > len(noIntensities)-1 {
		i = len(noIntensities) - 1
	}
	return coach.Stimulus{Type: coach.StimulusZap, Intensity: noIntensities[i]}
}
