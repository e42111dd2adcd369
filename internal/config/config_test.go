package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultSafety(t *testing.T) {
	s := DefaultSafety()

	if s.MaxSafeSpeedVX != 1.0 {
		t.Errorf("expected max vx 1.0, got %f", s.MaxSafeSpeedVX)
	}
	if s.MaxSafeOmega != 2.0 {
		t.Errorf("expected max omega 2.0, got %f", s.MaxSafeOmega)
	}
	if s.MaxDuration != 10.0 {
		t.Errorf("expected max duration 10.0, got %f", s.MaxDuration)
	}
	if s.MinRotationDegrees != -180 || s.MaxRotationDegrees != 180 {
		t.Errorf("expected rotation range [-180, 180], got [%f, %f]",
			s.MinRotationDegrees, s.MaxRotationDegrees)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("default envelope should validate: %v", err)
	}
}

func TestLoadSafety_EmptyPath(t *testing.T) {
	s, err := LoadSafety("")
	if err != nil {
		t.Fatalf("LoadSafety(\"\") error: %v", err)
	}
	if s != DefaultSafety() {
		t.Errorf("empty path should return defaults, got %+v", s)
	}
}

func TestLoadSafety_PartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safety.yaml")
	content := "max_safe_speed_vx: 0.6\nmax_duration: 5.0\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSafety(path)
	if err != nil {
		t.Fatalf("LoadSafety error: %v", err)
	}
	if s.MaxSafeSpeedVX != 0.6 {
		t.Errorf("expected overridden vx 0.6, got %f", s.MaxSafeSpeedVX)
	}
	if s.MaxDuration != 5.0 {
		t.Errorf("expected overridden max duration 5.0, got %f", s.MaxDuration)
	}
	// Untouched fields keep defaults
	if s.MaxSafeOmega != 2.0 {
		t.Errorf("expected default omega 2.0, got %f", s.MaxSafeOmega)
	}
}

func TestSafetyValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Safety)
		wantErr bool
	}{
		{"defaults", func(s *Safety) {}, false},
		{"zero vx limit", func(s *Safety) { s.MaxSafeSpeedVX = 0 }, true},
		{"negative omega", func(s *Safety) { s.MaxSafeOmega = -1 }, true},
		{"inverted durations", func(s *Safety) { s.MaxDuration = 0.05 }, true},
		{"default outside range", func(s *Safety) { s.DefaultDuration = 20 }, true},
		{"inverted rotation", func(s *Safety) { s.MinRotationDegrees = 200 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSafety()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRobotIP(t *testing.T) {
	t.Setenv("ROBOT_IP", "")
	if ip := RobotIP("192.168.1.10"); ip != "192.168.1.10" {
		t.Errorf("expected fallback IP, got %s", ip)
	}

	t.Setenv("ROBOT_IP", "10.0.0.5")
	if ip := RobotIP("192.168.1.10"); ip != "10.0.0.5" {
		t.Errorf("expected env IP, got %s", ip)
	}
}
