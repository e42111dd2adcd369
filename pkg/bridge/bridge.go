// Package bridge translates high-level semantic commands, from keyword
// matching or LLM tool calls, into safe, parameter-bounded motion tasks.
package bridge

import (
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-g1/internal/config"
	"github.com/teslashibe/go-g1/internal/log"
	"github.com/teslashibe/go-g1/pkg/action"
	"github.com/teslashibe/go-g1/pkg/g1"
)

var logger = log.Component("bridge")

// Result statuses.
const (
	StatusSuccess            = "success"
	StatusSuccessWithWarning = "success_with_warning"
	StatusError              = "error"
)

// fixedRotationOmega is the planning angular velocity for rotate_angle:
// the duration is derived from the angle at this fixed rate.
const fixedRotationOmega = 1.0 // rad/s

// Result is the structured outcome of a tool call. Handlers never
// panic outward and never raise; callers branch on Status.
type Result struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	Warning string             `json:"warning,omitempty"`
	TaskID  string             `json:"task_id,omitempty"`
	Applied map[string]float64 `json:"applied_params,omitempty"`
}

// Call is one tool invocation, typically parsed from an LLM response.
type Call struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// NewCall builds a Call with a generated id.
func NewCall(name string, args map[string]any) Call {
	return Call{ID: uuid.NewString(), Name: name, Arguments: args}
}

// Bridge validates and dispatches tool calls against an ActionManager.
// It holds non-owning handles; the manager and arm client outlive it.
type Bridge struct {
	actions  *action.Manager
	arm      g1.ArmController
	env      config.Safety
	handlers map[string]func(map[string]any) Result
}

// New creates a Bridge for the given manager and safety envelope.
// arm may be nil; wave_hand then reports an error result.
func New(actions *action.Manager, arm g1.ArmController, env config.Safety) *Bridge {
	b := &Bridge{
		actions: actions,
		arm:     arm,
		env:     env,
	}
	b.handlers = map[string]func(map[string]any) Result{
		"move_robot":     b.moveRobot,
		"stop_robot":     b.stopRobot,
		"rotate_angle":   b.rotateAngle,
		"emergency_stop": b.emergencyStop,
		"wave_hand":      b.waveHand,
	}
	return b
}

// Execute runs a single tool call by name. Precondition failures and
// handler panics become error results, never panics.
func (b *Bridge) Execute(name string, args map[string]any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("tool handler panicked",
				"tool", name, "panic", r, "stack", string(debug.Stack()))
			result = errorResult(fmt.Sprintf("tool %s failed: %v", name, r))
		}
	}()

	if !b.actions.Running() {
		logger.Error("tool call rejected, action manager not running", "tool", name)
		return errorResult("action manager not running")
	}

	handler, ok := b.handlers[name]
	if !ok {
		logger.Error("unknown tool", "tool", name)
		return errorResult(fmt.Sprintf("unknown tool: %s", name))
	}

	logger.Info("executing tool", "tool", name, "args", args)
	return handler(args)
}

// ExecuteSequential runs tool calls in order, continuing past failures
// so one bad call does not strand the rest of the plan.
func (b *Bridge) ExecuteSequential(calls []Call) []Result {
	if len(calls) == 0 {
		logger.Warn("empty tool call list")
		return nil
	}

	results := make([]Result, 0, len(calls))
	for i, call := range calls {
		logger.Info("executing tool call", "index", i+1, "total", len(calls), "tool", call.Name)
		result := b.Execute(call.Name, call.Arguments)
		if result.Status == StatusError {
			logger.Error("tool call failed", "tool", call.Name, "message", result.Message)
		}
		results = append(results, result)
	}
	return results
}

func (b *Bridge) moveRobot(args map[string]any) Result {
	vx := floatArg(args, "vx", 0)
	vy := floatArg(args, "vy", 0)
	vyaw := floatArg(args, "vyaw", 0)
	duration := optionalFloatArg(args, "duration")

	ok, warning, params := ValidateMovement(b.env, vx, vy, vyaw, duration)

	taskID := b.actions.AddTask(action.TaskMove, map[string]float64{
		"vx":   params.VX,
		"vy":   params.VY,
		"vyaw": params.VYaw,
	}, secondsToDuration(params.Duration))

	msg := fmt.Sprintf("move task queued: vx=%.2f, vy=%.2f, vyaw=%.2f, duration=%.2fs (task_id: %s)",
		params.VX, params.VY, params.VYaw, params.Duration, taskID)

	return queuedResult(ok, msg, warning, taskID, map[string]float64{
		"vx":       params.VX,
		"vy":       params.VY,
		"vyaw":     params.VYaw,
		"duration": params.Duration,
	})
}

// stopRobot goes straight to the facade: stop is a state, not a task,
// so it must not wait behind the queue.
func (b *Bridge) stopRobot(map[string]any) Result {
	b.actions.SetIdle()
	return Result{
		Status:  StatusSuccess,
		Message: "robot stopped",
		Applied: map[string]float64{"vx": 0, "vy": 0, "vyaw": 0},
	}
}

func (b *Bridge) rotateAngle(args map[string]any) Result {
	degrees := floatArg(args, "degrees", 0)

	ok, warning, degreesSafe := ValidateRotation(b.env, degrees)

	// Plan the rotation at a fixed angular velocity: the angle decides
	// the duration, the sign decides the direction.
	radians := degreesSafe * math.Pi / 180
	duration := clamp(math.Abs(radians)/fixedRotationOmega, b.env.MinDuration, b.env.MaxDuration)
	vyaw := fixedRotationOmega
	if radians < 0 {
		vyaw = -fixedRotationOmega
	}

	taskID := b.actions.AddTask(action.TaskRotate, map[string]float64{
		"vyaw":    vyaw,
		"degrees": degreesSafe,
	}, secondsToDuration(duration))

	msg := fmt.Sprintf("rotate task queued: %.1f deg (vyaw=%.2f rad/s, duration=%.2fs, task_id: %s)",
		degreesSafe, vyaw, duration, taskID)

	return queuedResult(ok, msg, warning, taskID, map[string]float64{
		"degrees":  degreesSafe,
		"vyaw":     vyaw,
		"duration": duration,
	})
}

func (b *Bridge) emergencyStop(map[string]any) Result {
	b.actions.EmergencyStop()
	return Result{
		Status:  StatusSuccess,
		Message: "emergency stop engaged, robot in damping mode",
	}
}

func (b *Bridge) waveHand(map[string]any) Result {
	if b.arm == nil {
		return errorResult("arm client not available")
	}
	if err := b.arm.ExecuteAction(g1.ActionFaceWave); err != nil {
		logger.Error("wave action failed", "error", err)
		return errorResult(fmt.Sprintf("wave action failed: %v", err))
	}
	return Result{
		Status:  StatusSuccess,
		Message: "wave executed",
	}
}

func queuedResult(ok bool, msg, warning, taskID string, applied map[string]float64) Result {
	status := StatusSuccess
	if !ok {
		status = StatusSuccessWithWarning
		msg = fmt.Sprintf("%s (clipped: %s)", msg, warning)
	}
	return Result{
		Status:  status,
		Message: msg,
		Warning: warning,
		TaskID:  taskID,
		Applied: applied,
	}
}

func errorResult(msg string) Result {
	return Result{Status: StatusError, Message: msg}
}

// floatArg reads a numeric argument, tolerating the types JSON decoding
// produces.
func floatArg(args map[string]any, key string, def float64) float64 {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

func optionalFloatArg(args map[string]any, key string) *float64 {
	if _, ok := args[key]; !ok {
		return nil
	}
	v := floatArg(args, key, 0)
	return &v
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
