package web

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/teslashibe/go-g1/internal/config"
	"github.com/teslashibe/go-g1/pkg/action"
	"github.com/teslashibe/go-g1/pkg/bridge"
	"github.com/teslashibe/go-g1/pkg/g1"
	"github.com/teslashibe/go-g1/pkg/protocol"
)

func newTestServer(t *testing.T) (*Server, *action.Manager, *g1.MockLoco) {
	t.Helper()
	mock := g1.NewMockLoco()
	mgr := action.New(mock)
	b := bridge.New(mgr, g1.NewMockArm(), config.DefaultSafety())
	s := NewServer("0", mgr, b)
	return s, mgr, mock
}

func TestHandleState(t *testing.T) {
	s, mgr, _ := newTestServer(t)

	mgr.UpdateTargetVelocity(0.4, 0, 0.2, 0)

	req := httptest.NewRequest("GET", "/api/state", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status: %d", resp.StatusCode)
	}

	var state protocol.StateData
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if state.VX != 0.4 || state.VYaw != 0.2 {
		t.Errorf("state: %+v", state)
	}
	if state.Action != "MOVE" {
		t.Errorf("action: %s", state.Action)
	}
}

func TestHandleTaskStatus(t *testing.T) {
	s, mgr, _ := newTestServer(t)

	id := mgr.AddTask(action.TaskMove, map[string]float64{"vx": 0.5}, 0)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/tasks/"+id, nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("status: %d", resp.StatusCode)
	}

	resp2, err := s.app.Test(httptest.NewRequest("GET", "/api/tasks/task_999", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != 404 {
		t.Errorf("unknown task status: %d, want 404", resp2.StatusCode)
	}
}

func TestHandleTriggerTool(t *testing.T) {
	s, mgr, _ := newTestServer(t)
	mgr.Start()
	defer mgr.Stop()

	body := strings.NewReader(`{"vx": 0.5, "vy": 0, "vyaw": 0, "duration": 1.0}`)
	req := httptest.NewRequest("POST", "/api/tools/move_robot", body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status: %d, body: %s", resp.StatusCode, raw)
	}

	var result bridge.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Status != bridge.StatusSuccess {
		t.Errorf("result: %+v", result)
	}
	if result.TaskID == "" {
		t.Error("no task id in result")
	}
}

func TestHandleTriggerTool_UnknownTool(t *testing.T) {
	s, mgr, _ := newTestServer(t)
	mgr.Start()
	defer mgr.Stop()

	req := httptest.NewRequest("POST", "/api/tools/fly", nil)
	resp, err := s.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 422 {
		t.Errorf("status: %d, want 422", resp.StatusCode)
	}
}

func TestHandleEmergencyAndRecover(t *testing.T) {
	s, mgr, mock := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("POST", "/api/emergency", nil))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("emergency status: %d", resp.StatusCode)
	}
	if mgr.State().Action != "EMERGENCY" {
		t.Errorf("action: %s", mgr.State().Action)
	}
	if mock.DampCount() < 1 {
		t.Error("damp not issued")
	}

	resp2, err := s.app.Test(httptest.NewRequest("POST", "/api/recover", nil))
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != 200 {
		t.Fatalf("recover status: %d", resp2.StatusCode)
	}
	if mgr.State().Action != "IDLE" {
		t.Errorf("action after recover: %s", mgr.State().Action)
	}

	// Recovering again outside emergency conflicts.
	resp3, err := s.app.Test(httptest.NewRequest("POST", "/api/recover", nil))
	if err != nil {
		t.Fatal(err)
	}
	resp3.Body.Close()
	if resp3.StatusCode != 409 {
		t.Errorf("second recover status: %d, want 409", resp3.StatusCode)
	}
}

func TestHandleListTools(t *testing.T) {
	s, _, _ := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/tools", nil))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var tools []bridge.Tool
	if err := json.NewDecoder(resp.Body).Decode(&tools); err != nil {
		t.Fatal(err)
	}
	if len(tools) != 5 {
		t.Errorf("tools: got %d, want 5", len(tools))
	}
}

func TestAddLog_RingBounded(t *testing.T) {
	s, _, _ := newTestServer(t)

	for i := 0; i < maxLogEntries+50; i++ {
		s.AddLog("info", "line")
	}

	s.logsMu.RLock()
	n := len(s.logs)
	s.logsMu.RUnlock()
	if n != maxLogEntries {
		t.Errorf("log buffer: got %d entries, want %d", n, maxLogEntries)
	}
}
