package bridge

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-g1/internal/config"
)

// clipEpsilon is the numeric delta above which a parameter counts as
// clipped (plain float comparison is too twitchy for LLM-produced values).
const clipEpsilon = 1e-3

// MoveParams are post-clamp movement parameters, the values actually
// handed to the task queue.
type MoveParams struct {
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
	VYaw     float64 `json:"vyaw"`
	Duration float64 `json:"duration"` // seconds
}

// ValidateMovement clamps the proposed movement to the safety envelope.
// duration is optional; nil selects the default duration. ok is true iff
// nothing was clipped; warning enumerates each clipped field.
func ValidateMovement(env config.Safety, vx, vy, vyaw float64, duration *float64) (bool, string, MoveParams) {
	var warnings []string

	vxSafe := clamp(vx, -env.MaxSafeSpeedVX, env.MaxSafeSpeedVX)
	vySafe := clamp(vy, -env.MaxSafeSpeedVY, env.MaxSafeSpeedVY)
	vyawSafe := clamp(vyaw, -env.MaxSafeOmega, env.MaxSafeOmega)

	if clipped(vx, vxSafe) {
		warnings = append(warnings, fmt.Sprintf("vx=%.2f out of range, clipped to %.2f", vx, vxSafe))
	}
	if clipped(vy, vySafe) {
		warnings = append(warnings, fmt.Sprintf("vy=%.2f out of range, clipped to %.2f", vy, vySafe))
	}
	if clipped(vyaw, vyawSafe) {
		warnings = append(warnings, fmt.Sprintf("vyaw=%.2f out of range, clipped to %.2f", vyaw, vyawSafe))
	}

	var durationSafe float64
	if duration != nil {
		durationSafe = clamp(*duration, env.MinDuration, env.MaxDuration)
		if clipped(*duration, durationSafe) {
			warnings = append(warnings, fmt.Sprintf("duration=%.2f out of range, clipped to %.2f", *duration, durationSafe))
		}
	} else {
		durationSafe = env.DefaultDuration
	}

	warning := strings.Join(warnings, "; ")
	if warning != "" {
		logger.Warn("movement parameters clipped", "warning", warning)
	}

	return warning == "", warning, MoveParams{
		VX:       vxSafe,
		VY:       vySafe,
		VYaw:     vyawSafe,
		Duration: durationSafe,
	}
}

// ValidateRotation clamps a rotation request to the allowed angle range.
func ValidateRotation(env config.Safety, degrees float64) (bool, string, float64) {
	degreesSafe := clamp(degrees, env.MinRotationDegrees, env.MaxRotationDegrees)

	warning := ""
	if clipped(degrees, degreesSafe) {
		warning = fmt.Sprintf("degrees=%.1f out of range, clipped to %.1f", degrees, degreesSafe)
		logger.Warn("rotation angle clipped", "warning", warning)
	}

	return warning == "", warning, degreesSafe
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clipped(orig, safe float64) bool {
	d := orig - safe
	if d < 0 {
		d = -d
	}
	return d > clipEpsilon
}
