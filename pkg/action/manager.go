package action

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-g1/internal/log"
	"github.com/teslashibe/go-g1/internal/metrics"
	"github.com/teslashibe/go-g1/pkg/g1"
)

// Component loggers: the facade, queue and executor log as "action";
// the 100Hz loop logs as "heartbeat" so its lines can be filtered when
// chasing timing issues.
var (
	logger = log.Component("action")
	hblog  = log.Component("heartbeat")
)

// SDK-facing hard limits. These are stricter than the configurable safety
// envelope and act as the final guard before a command reaches the robot.
const (
	HardLimitVX   = 1.0 // m/s
	HardLimitVY   = 1.0 // m/s
	HardLimitVYaw = 1.5 // rad/s
)

const (
	heartbeatInterval = 10 * time.Millisecond // 100Hz
	heartbeatMaxLag   = 100 * time.Millisecond
	reportEvery       = 1000 // ticks between status lines

	executorIdlePoll = 50 * time.Millisecond
	joinTimeout      = 2 * time.Second

	// DefaultHistorySize bounds the completed-task ring.
	DefaultHistorySize = 100
)

// Manager supervises the motion-control core. All exported methods are
// safe to call from any goroutine.
//
// Two mutexes, never held together: mu guards the velocity state machine
// and is held for microseconds only; taskMu guards the queue, the current
// task, the completed ring and the id counter.
type Manager struct {
	sdk         g1.LocoController
	mc          *metrics.Collector
	onTaskEvent func(Task)
	historySize int

	// Velocity state machine, guarded by mu.
	mu           sync.Mutex
	vx, vy, vyaw float64
	action       Type
	emergency    bool
	moveStart    time.Time
	moveDuration time.Duration // 0 means indefinite move

	// Task pipeline, guarded by taskMu.
	taskMu  sync.Mutex
	queue   []*Task
	current *Task
	nextID  int
	done    map[string]*Task

	running     atomic.Bool
	execRunning atomic.Bool
	hbDone      chan struct{}
	execDone    chan struct{}

	// Heartbeat diagnostics, owned by the heartbeat goroutine.
	loopCount  uint64
	lastReport time.Time
	errorCount uint64
	errLimit   *log.Limiter

	freqBits atomic.Uint64 // measured frequency, math.Float64bits
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics attaches a Prometheus collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(m *Manager) { m.mc = c }
}

// WithHistorySize overrides the completed-task ring bound.
func WithHistorySize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.historySize = n
		}
	}
}

// WithTaskListener registers a callback invoked on every task state
// change, with a snapshot of the task. The callback must not block; it
// receives a non-owning view and must not call back into the Manager's
// task APIs.
func WithTaskListener(fn func(Task)) Option {
	return func(m *Manager) { m.onTaskEvent = fn }
}

// New creates a Manager driving the given command sink.
// The sink must not be nil.
func New(sdk g1.LocoController, opts ...Option) *Manager {
	if sdk == nil {
		panic("action: sdk command sink is nil")
	}
	m := &Manager{
		sdk:         sdk,
		historySize: DefaultHistorySize,
		done:        make(map[string]*Task),
		errLimit:    log.NewLimiter(5 * time.Second),
	}
	for _, opt := range opts {
		opt(m)
	}
	logger.Info("action manager initialized", "history_size", m.historySize)
	return m
}

// Start spawns the heartbeat and executor goroutines. Idempotent.
func (m *Manager) Start() {
	if m.running.Swap(true) {
		logger.Warn("action manager already running, start ignored")
		return
	}

	m.hbDone = make(chan struct{})
	m.execDone = make(chan struct{})
	m.execRunning.Store(true)

	go m.heartbeatLoop()
	go m.executorLoop()

	logger.Info("action manager started", "heartbeat_hz", float64(time.Second/heartbeatInterval))
}

// Stop shuts down both goroutines, joining each with a 2-second timeout,
// then emits a final zero-velocity command.
func (m *Manager) Stop() {
	if !m.running.Load() {
		logger.Warn("action manager not running, stop ignored")
		return
	}

	m.execRunning.Store(false)
	select {
	case <-m.execDone:
	case <-time.After(joinTimeout):
		logger.Error("task executor did not exit within timeout", "timeout", joinTimeout)
	}

	m.running.Store(false)
	select {
	case <-m.hbDone:
	case <-time.After(joinTimeout):
		logger.Error("heartbeat loop did not exit within timeout", "timeout", joinTimeout)
	}

	if err := m.sdk.Move(0, 0, 0); err != nil {
		logger.Error("failed to send final stop command", "error", err)
	} else {
		logger.Info("final stop command sent")
	}
}

// Running reports whether the control loops are active.
func (m *Manager) Running() bool {
	return m.running.Load()
}

// UpdateTargetVelocity sets the target velocity the heartbeat will stream.
// Values are clamped to the SDK hard limits. A positive duration arms the
// auto-stop; zero or negative means move until the next command.
func (m *Manager) UpdateTargetVelocity(vx, vy, vyaw float64, duration time.Duration) {
	vx = clampWarn("vx", vx, HardLimitVX)
	vy = clampWarn("vy", vy, HardLimitVY)
	vyaw = clampWarn("vyaw", vyaw, HardLimitVYaw)

	m.mu.Lock()
	m.vx, m.vy, m.vyaw = vx, vy, vyaw
	m.action = ActionMove
	m.emergency = false
	m.moveDuration = duration
	if duration > 0 {
		m.moveStart = time.Now()
	}
	m.mu.Unlock()

	logger.Info("target velocity updated",
		"vx", vx, "vy", vy, "vyaw", vyaw, "duration", duration)
}

// SetIdle zeroes the target velocity and returns to IDLE. Idempotent.
func (m *Manager) SetIdle() {
	m.mu.Lock()
	m.vx, m.vy, m.vyaw = 0, 0, 0
	m.action = ActionIdle
	m.emergency = false
	m.moveDuration = 0
	m.mu.Unlock()

	logger.Info("switched to idle")
}

// EmergencyStop preempts everything: cancels all queued and running
// tasks, switches to EMERGENCY, and synchronously engages damping
// without waiting for the next heartbeat tick. Idempotent; repeated
// calls re-issue the damp command.
func (m *Manager) EmergencyStop() {
	cancelled := m.ClearTaskQueue()

	m.mu.Lock()
	m.vx, m.vy, m.vyaw = 0, 0, 0
	m.action = ActionEmergency
	m.emergency = true
	m.mu.Unlock()

	if err := m.sdk.Damp(); err != nil {
		m.mc.RecordSDKError()
		logger.Error("emergency damp command failed", "error", err)
	} else {
		logger.Warn("emergency stop engaged, robot in damping mode", "cancelled_tasks", cancelled)
	}
	m.mc.RecordEmergencyStop()
}

// RecoverFromEmergency leaves EMERGENCY and commands the robot back to
// standing. Returns false if the manager is not in emergency or the
// recovery command fails.
func (m *Manager) RecoverFromEmergency() bool {
	m.mu.Lock()
	if m.action != ActionEmergency {
		m.mu.Unlock()
		logger.Warn("not in emergency, recovery ignored")
		return false
	}
	m.action = ActionIdle
	m.emergency = false
	m.mu.Unlock()

	if err := m.sdk.SquatToStand(); err != nil {
		logger.Error("recovery command failed", "error", err)
		return false
	}
	logger.Info("recovered from emergency (squat to stand)")
	return true
}

// State returns a consistent snapshot of the velocity state machine.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		VX:        m.vx,
		VY:        m.vy,
		VYaw:      m.vyaw,
		Action:    m.action.String(),
		Emergency: m.emergency,
	}
}

// Frequency returns the heartbeat frequency measured over the last
// report window, in Hz. Zero until the first window completes.
func (m *Manager) Frequency() float64 {
	return math.Float64frombits(m.freqBits.Load())
}

// notifyTask invokes the task listener, if any.
func (m *Manager) notifyTask(snap Task) {
	if m.onTaskEvent != nil {
		m.onTaskEvent(snap)
	}
}

// clampWarn clamps v to the symmetric range [-limit, limit], logging
// when a value had to be cut.
func clampWarn(name string, v, limit float64) float64 {
	if v > limit {
		logger.Warn("velocity outside hard limit, clamped", "axis", name, "value", v, "limit", limit)
		return limit
	}
	if v < -limit {
		logger.Warn("velocity outside hard limit, clamped", "axis", name, "value", v, "limit", -limit)
		return -limit
	}
	return v
}
