package bridge

import (
	"math"
	"strings"
	"testing"

	"github.com/teslashibe/go-g1/internal/config"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func TestValidateMovement_InRange(t *testing.T) {
	env := config.DefaultSafety()

	d := 2.0
	ok, warning, params := ValidateMovement(env, 0.5, -0.3, 1.0, &d)

	if !ok {
		t.Errorf("expected ok for in-range params, warning: %q", warning)
	}
	if warning != "" {
		t.Errorf("unexpected warning: %q", warning)
	}
	want := MoveParams{VX: 0.5, VY: -0.3, VYaw: 1.0, Duration: 2.0}
	if params != want {
		t.Errorf("params: got %+v, want %+v", params, want)
	}
}

func TestValidateMovement_ClampsEverything(t *testing.T) {
	env := config.DefaultSafety()

	d := 15.0
	ok, warning, params := ValidateMovement(env, 3.0, -2.0, 5.0, &d)

	if ok {
		t.Error("expected ok=false when clipping occurred")
	}
	want := MoveParams{VX: 1.0, VY: -1.0, VYaw: 2.0, Duration: 10.0}
	if params != want {
		t.Errorf("params: got %+v, want %+v", params, want)
	}
	for _, fragment := range []string{
		"vx=3.00 out of range, clipped to 1.00",
		"vy=-2.00 out of range, clipped to -1.00",
		"vyaw=5.00 out of range, clipped to 2.00",
		"duration=15.00 out of range, clipped to 10.00",
	} {
		if !strings.Contains(warning, fragment) {
			t.Errorf("warning missing %q; got %q", fragment, warning)
		}
	}
}

func TestValidateMovement_DefaultDuration(t *testing.T) {
	env := config.DefaultSafety()

	ok, _, params := ValidateMovement(env, 0.2, 0, 0, nil)

	if !ok {
		t.Error("expected ok for in-range params")
	}
	if !floatEquals(params.Duration, env.DefaultDuration) {
		t.Errorf("duration: got %v, want default %v", params.Duration, env.DefaultDuration)
	}
}

func TestValidateMovement_ShortDurationClamped(t *testing.T) {
	env := config.DefaultSafety()

	d := 0.01
	ok, warning, params := ValidateMovement(env, 0, 0, 0, &d)

	if ok {
		t.Error("expected ok=false for sub-minimum duration")
	}
	if !floatEquals(params.Duration, env.MinDuration) {
		t.Errorf("duration: got %v, want %v", params.Duration, env.MinDuration)
	}
	if !strings.Contains(warning, "duration=0.01") {
		t.Errorf("warning: %q", warning)
	}
}

func TestValidateMovement_EpsilonNotClipped(t *testing.T) {
	env := config.DefaultSafety()

	// A delta below 1e-3 must not count as a clip.
	ok, warning, _ := ValidateMovement(env, 1.0005, 0, 0, nil)
	if !ok || warning != "" {
		t.Errorf("sub-epsilon delta flagged as clip: ok=%v warning=%q", ok, warning)
	}
}

func TestValidateRotation(t *testing.T) {
	env := config.DefaultSafety()

	tests := []struct {
		name     string
		degrees  float64
		wantOK   bool
		wantSafe float64
	}{
		{"in range", 90, true, 90},
		{"negative in range", -45, true, -45},
		{"over max", 270, false, 180},
		{"under min", -300, false, -180},
		{"at boundary", 180, true, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, warning, safe := ValidateRotation(env, tt.degrees)
			if ok != tt.wantOK {
				t.Errorf("ok: got %v, want %v (warning %q)", ok, tt.wantOK, warning)
			}
			if !floatEquals(safe, tt.wantSafe) {
				t.Errorf("safe degrees: got %v, want %v", safe, tt.wantSafe)
			}
			if !tt.wantOK && warning == "" {
				t.Error("expected warning when clipped")
			}
		})
	}
}
