package bridge

import "fmt"

// Tool describes a function the LLM can invoke during conversation.
// The schema follows the OpenAI function-calling format; the voice
// frontend registers these with its realtime session.
type Tool struct {
	// Name is the unique identifier for the tool (e.g., "move_robot").
	Name string `json:"name"`

	// Description explains what the tool does, helping the AI decide
	// when to use it.
	Description string `json:"description"`

	// Parameters defines the JSON schema for the tool's arguments.
	Parameters map[string]any `json:"parameters"`
}

// Tools returns the robot-control tool schemas with parameter ranges
// rendered from the live safety envelope, so the model is told the same
// limits the validator will enforce.
func (b *Bridge) Tools() []Tool {
	env := b.env
	return []Tool{
		{
			Name:        "move_robot",
			Description: "Move the robot. Sets forward/backward, lateral and rotational velocity for a bounded duration.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"vx": map[string]any{
						"type":        "number",
						"description": fmt.Sprintf("Forward velocity (m/s), positive forward, negative backward. Range: [%.1f, %.1f]", -env.MaxSafeSpeedVX, env.MaxSafeSpeedVX),
					},
					"vy": map[string]any{
						"type":        "number",
						"description": fmt.Sprintf("Lateral velocity (m/s), positive left, negative right. Range: [%.1f, %.1f]", -env.MaxSafeSpeedVY, env.MaxSafeSpeedVY),
					},
					"vyaw": map[string]any{
						"type":        "number",
						"description": fmt.Sprintf("Rotational velocity (rad/s), positive counter-clockwise. Range: [%.1f, %.1f]", -env.MaxSafeOmega, env.MaxSafeOmega),
					},
					"duration": map[string]any{
						"type":        "number",
						"description": fmt.Sprintf("Duration (seconds). Range: [%.1f, %.1f], default: %.1f", env.MinDuration, env.MaxDuration, env.DefaultDuration),
						"default":     env.DefaultDuration,
					},
				},
				"required": []string{"vx", "vy", "vyaw"},
			},
		},
		{
			Name:        "stop_robot",
			Description: "Immediately stop all robot motion. Sets all velocities to zero.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "rotate_angle",
			Description: "Rotate the robot by a specific angle. Positive is counter-clockwise (left), negative clockwise (right).",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"degrees": map[string]any{
						"type":        "number",
						"description": fmt.Sprintf("Rotation angle (degrees). Range: [%.0f, %.0f]", env.MinRotationDegrees, env.MaxRotationDegrees),
					},
				},
				"required": []string{"degrees"},
			},
		},
		{
			Name:        "emergency_stop",
			Description: "Emergency stop. Immediately switches to damping mode and halts all motion. For dangerous situations.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "wave_hand",
			Description: "Make the robot wave hello. For friendly interactions.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}
