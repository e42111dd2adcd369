package g1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-g1/internal/httpc"
)

// locoClient is a short-timeout HTTP client shared by the loco and arm
// clients. The heartbeat runs at 100Hz; a wedged bridge daemon must not
// hold a tick hostage for the default 30 seconds.
var locoClient = httpc.NewClient(1 * time.Second)

// HTTPLocoClient drives the G1 locomotion service through the on-robot
// bridge daemon's HTTP API. This is the primary command sink in production.
type HTTPLocoClient struct {
	BaseURL string
}

// NewHTTPLocoClient creates a loco client for the bridge daemon at robotIP.
func NewHTTPLocoClient(robotIP string) *HTTPLocoClient {
	return &HTTPLocoClient{
		BaseURL: fmt.Sprintf("http://%s:9080", robotIP),
	}
}

// Move sends one velocity command. Called from the heartbeat loop.
func (c *HTTPLocoClient) Move(vx, vy, vyaw float64) error {
	payload := map[string]float64{
		"vx":   vx,
		"vy":   vy,
		"vyaw": vyaw,
	}
	return c.post("/api/loco/move", payload)
}

// Damp switches the FSM to damping mode.
func (c *HTTPLocoClient) Damp() error {
	return c.setFSM(FSMIDDamp)
}

// SquatToStand recovers the robot to a standing pose.
func (c *HTTPLocoClient) SquatToStand() error {
	return c.setFSM(FSMIDSquatToStand)
}

// FSMID returns the current whole-body FSM id.
func (c *HTTPLocoClient) FSMID() (int, error) {
	resp, err := locoClient.Get(c.BaseURL + "/api/loco/fsm")
	if err != nil {
		return -1, fmt.Errorf("fsm query failed: %w", err)
	}
	defer resp.Body.Close()

	var state struct {
		ID int `json:"fsm_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return -1, fmt.Errorf("failed to decode fsm state: %w", err)
	}
	return state.ID, nil
}

// setFSM requests a whole-body mode switch.
func (c *HTTPLocoClient) setFSM(id int) error {
	return c.post("/api/loco/fsm", map[string]int{"fsm_id": id})
}

// post sends a JSON command to the bridge daemon.
func (c *HTTPLocoClient) post(path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := locoClient.Post(c.BaseURL+path, "application/json", strings.NewReader(string(data)))
	if err != nil {
		return fmt.Errorf("loco request failed: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("loco request %s returned %d", path, resp.StatusCode)
	}
	return nil
}

// HTTPArmClient triggers predefined arm gestures through the bridge daemon.
type HTTPArmClient struct {
	BaseURL string
}

// NewHTTPArmClient creates an arm client for the bridge daemon at robotIP.
func NewHTTPArmClient(robotIP string) *HTTPArmClient {
	return &HTTPArmClient{
		BaseURL: fmt.Sprintf("http://%s:9080", robotIP),
	}
}

// ExecuteAction runs a predefined arm gesture by id (e.g. ActionFaceWave).
func (c *HTTPArmClient) ExecuteAction(id int) error {
	data, err := json.Marshal(map[string]int{"action_id": id})
	if err != nil {
		return fmt.Errorf("failed to marshal arm action: %w", err)
	}

	resp, err := locoClient.Post(c.BaseURL+"/api/arm/action", "application/json", strings.NewReader(string(data)))
	if err != nil {
		return fmt.Errorf("arm action request failed: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("arm action %d returned %d", id, resp.StatusCode)
	}
	return nil
}
