// Package config provides configuration for go-g1 commands and the
// motion-control safety envelope.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default robot configuration.
const (
	DefaultRobotPort = "9080"
	DefaultWebPort   = "8090"
	DefaultMetrics   = ":9100"
)

// Safety is the immutable safety envelope for motion commands.
// It is loaded once at startup and never mutated afterwards.
type Safety struct {
	MaxSafeSpeedVX float64 `yaml:"max_safe_speed_vx"` // m/s, symmetric
	MaxSafeSpeedVY float64 `yaml:"max_safe_speed_vy"` // m/s, symmetric
	MaxSafeOmega   float64 `yaml:"max_safe_omega"`    // rad/s, symmetric

	MinDuration     float64 `yaml:"min_duration"`     // seconds
	MaxDuration     float64 `yaml:"max_duration"`     // seconds
	DefaultDuration float64 `yaml:"default_duration"` // seconds

	MinRotationDegrees float64 `yaml:"min_rotation_degrees"`
	MaxRotationDegrees float64 `yaml:"max_rotation_degrees"`
}

// DefaultSafety returns the stock safety envelope for the G1.
func DefaultSafety() Safety {
	return Safety{
		MaxSafeSpeedVX:     1.0,
		MaxSafeSpeedVY:     1.0,
		MaxSafeOmega:       2.0,
		MinDuration:        0.1,
		MaxDuration:        10.0,
		DefaultDuration:    1.0,
		MinRotationDegrees: -180,
		MaxRotationDegrees: 180,
	}
}

// LoadSafety reads a safety envelope from a YAML file, filling any
// omitted fields with defaults. An empty path returns the defaults.
func LoadSafety(path string) (Safety, error) {
	s := DefaultSafety()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read safety config: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse safety config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate checks the envelope for values that would make the
// validator misbehave. Configuration errors are fatal at startup.
func (s Safety) Validate() error {
	if s.MaxSafeSpeedVX <= 0 || s.MaxSafeSpeedVY <= 0 || s.MaxSafeOmega <= 0 {
		return fmt.Errorf("safety: speed limits must be positive")
	}
	if s.MinDuration <= 0 || s.MaxDuration < s.MinDuration {
		return fmt.Errorf("safety: duration range [%.2f, %.2f] is invalid", s.MinDuration, s.MaxDuration)
	}
	if s.DefaultDuration < s.MinDuration || s.DefaultDuration > s.MaxDuration {
		return fmt.Errorf("safety: default duration %.2f outside [%.2f, %.2f]", s.DefaultDuration, s.MinDuration, s.MaxDuration)
	}
	if s.MinRotationDegrees >= s.MaxRotationDegrees {
		return fmt.Errorf("safety: rotation range [%.1f, %.1f] is invalid", s.MinRotationDegrees, s.MaxRotationDegrees)
	}
	return nil
}

// RobotIP returns the robot IP from ROBOT_IP env var.
// Falls back to the provided default if not set.
func RobotIP(defaultIP string) string {
	if ip := os.Getenv("ROBOT_IP"); ip != "" {
		return ip
	}
	return defaultIP
}

// RobotAPIURL returns the robot bridge daemon HTTP API URL.
func RobotAPIURL(robotIP string) string {
	return fmt.Sprintf("http://%s:%s", robotIP, DefaultRobotPort)
}
