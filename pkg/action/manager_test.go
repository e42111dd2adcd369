package action

import (
	"testing"
	"time"

	"github.com/teslashibe/go-g1/pkg/g1"
)

func newTestManager(t *testing.T, opts ...Option) (*Manager, *g1.MockLoco) {
	t.Helper()
	mock := g1.NewMockLoco()
	m := New(mock, opts...)
	return m, mock
}

func TestNew_NilSDKPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil sdk")
		}
	}()
	New(nil)
}

func TestUpdateTargetVelocity_HardClamp(t *testing.T) {
	m, _ := newTestManager(t)

	m.UpdateTargetVelocity(5.0, -3.0, 9.0, 0)

	st := m.State()
	if st.VX != 1.0 {
		t.Errorf("vx: got %v, want 1.0", st.VX)
	}
	if st.VY != -1.0 {
		t.Errorf("vy: got %v, want -1.0", st.VY)
	}
	if st.VYaw != 1.5 {
		t.Errorf("vyaw: got %v, want 1.5", st.VYaw)
	}
	if st.Action != "MOVE" {
		t.Errorf("action: got %s, want MOVE", st.Action)
	}
	if st.Emergency {
		t.Error("emergency flag should be clear after velocity update")
	}
}

func TestSetIdle_Idempotent(t *testing.T) {
	m, _ := newTestManager(t)

	m.UpdateTargetVelocity(0.5, 0, 0, 0)
	m.SetIdle()
	first := m.State()
	m.SetIdle()
	second := m.State()

	if first != second {
		t.Errorf("SetIdle not idempotent: %+v vs %+v", first, second)
	}
	if first.Action != "IDLE" || first.VX != 0 {
		t.Errorf("unexpected idle state: %+v", first)
	}
}

func TestEmergencyStop_StateAndDamp(t *testing.T) {
	m, mock := newTestManager(t)

	m.UpdateTargetVelocity(0.5, 0.2, 0.1, 0)
	m.EmergencyStop()

	st := m.State()
	if st.Action != "EMERGENCY" {
		t.Errorf("action: got %s, want EMERGENCY", st.Action)
	}
	if !st.Emergency {
		t.Error("emergency flag not set")
	}
	if st.VX != 0 || st.VY != 0 || st.VYaw != 0 {
		t.Errorf("velocities not zeroed: %+v", st)
	}
	if mock.DampCount() != 1 {
		t.Errorf("expected 1 damp call, got %d", mock.DampCount())
	}

	// Idempotent: a second call re-issues damp, state unchanged
	m.EmergencyStop()
	if m.State() != st {
		t.Error("state changed on repeated emergency stop")
	}
	if mock.DampCount() != 2 {
		t.Errorf("expected damp re-issued, got %d calls", mock.DampCount())
	}
}

func TestRecoverFromEmergency(t *testing.T) {
	m, mock := newTestManager(t)

	// Not in emergency: no-op
	if m.RecoverFromEmergency() {
		t.Error("recovery should fail outside emergency")
	}
	if mock.SquatCount() != 0 {
		t.Error("squat command sent outside emergency")
	}

	m.EmergencyStop()
	if !m.RecoverFromEmergency() {
		t.Error("recovery should succeed from emergency")
	}
	if mock.SquatCount() != 1 {
		t.Errorf("expected 1 squat call, got %d", mock.SquatCount())
	}

	st := m.State()
	if st.Action != "IDLE" || st.Emergency {
		t.Errorf("unexpected state after recovery: %+v", st)
	}
}

func TestStart_Idempotent(t *testing.T) {
	m, mock := newTestManager(t)

	m.Start()
	m.Start() // second call must be a no-op
	defer m.Stop()

	time.Sleep(100 * time.Millisecond)

	// A doubled heartbeat would produce roughly 2x the ticks.
	count := mock.MoveCount()
	if count < 5 || count > 16 {
		t.Errorf("expected ~10 moves in 100ms, got %d", count)
	}
}

func TestStop_SendsFinalZero(t *testing.T) {
	m, mock := newTestManager(t)

	m.Start()
	m.UpdateTargetVelocity(0.5, 0, 0, 0)
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	last := mock.LastMove()
	if last.VX != 0 || last.VY != 0 || last.VYaw != 0 {
		t.Errorf("final command not zero: %+v", last)
	}
	if m.Running() {
		t.Error("manager still reports running after stop")
	}
}

func TestHeartbeat_AllMovesWithinHardLimits(t *testing.T) {
	m, mock := newTestManager(t)

	m.Start()
	defer m.Stop()

	m.UpdateTargetVelocity(3.0, -3.0, 5.0, 0)
	time.Sleep(100 * time.Millisecond)

	for _, call := range mock.Moves() {
		if call.VX < -1.0 || call.VX > 1.0 ||
			call.VY < -1.0 || call.VY > 1.0 ||
			call.VYaw < -1.5 || call.VYaw > 1.5 {
			t.Fatalf("emitted move outside hard limits: %+v", call)
		}
	}
}

func TestHeartbeat_AutoStopBoundary(t *testing.T) {
	m, mock := newTestManager(t)

	m.Start()
	defer m.Stop()

	m.UpdateTargetVelocity(0.5, 0, 0, 200*time.Millisecond)

	// At t=250ms the move window has elapsed and the next tick has
	// switched the state machine to IDLE.
	time.Sleep(250 * time.Millisecond)
	if st := m.State(); st.Action != "IDLE" {
		t.Errorf("action at t=250ms: got %s, want IDLE", st.Action)
	}

	time.Sleep(150 * time.Millisecond)

	calls := mock.Moves()
	start := -1
	for i, call := range calls {
		if call.VX == 0.5 {
			start = i
			break
		}
	}
	if start < 0 {
		t.Fatal("no moving ticks observed")
	}

	var moving, stopped int
	for _, call := range calls[start:] {
		switch {
		case call.VX == 0.5 && stopped == 0:
			moving++
		case call.VX == 0:
			stopped++
		default:
			t.Fatalf("non-zero move emitted after auto-stop: %+v", call)
		}
	}
	if moving < 10 {
		t.Errorf("expected >= 10 moving ticks, got %d", moving)
	}
	if stopped < 10 {
		t.Errorf("expected >= 10 stopped ticks, got %d", stopped)
	}
}

func TestHeartbeat_EmergencyEmitsDampOnly(t *testing.T) {
	m, mock := newTestManager(t)

	m.Start()
	defer m.Stop()

	m.UpdateTargetVelocity(0.5, 0, 0, 0)
	time.Sleep(50 * time.Millisecond)

	m.EmergencyStop()
	countAtStop := mock.MoveCount()
	time.Sleep(100 * time.Millisecond)

	if mock.DampCount() < 2 {
		t.Errorf("expected heartbeat to keep issuing damp, got %d calls", mock.DampCount())
	}
	// No move commands while in EMERGENCY. One tick may have been past
	// the emergency re-check when the stop fired; anything more means
	// the heartbeat kept moving.
	if extra := mock.MoveCount() - countAtStop; extra > 1 {
		t.Errorf("move commands continued in emergency: %d extra", extra)
	}
}

func TestEmergencyPreemption_CancelsRunningTask(t *testing.T) {
	m, mock := newTestManager(t)

	m.Start()
	defer m.Stop()

	id := m.AddTask(TaskMove, map[string]float64{"vx": 0.5, "vy": 0, "vyaw": 0}, 5*time.Second)

	time.Sleep(100 * time.Millisecond)
	m.EmergencyStop()

	if n := m.QueueLength(); n != 0 {
		t.Errorf("queue not empty after emergency: %d", n)
	}
	task, ok := m.TaskStatus(id)
	if !ok {
		t.Fatal("task record lost after emergency")
	}
	if task.Status != StatusCancelled {
		t.Errorf("task status: got %s, want %s", task.Status, StatusCancelled)
	}
	if m.State().Action != "EMERGENCY" {
		t.Errorf("action: got %s, want EMERGENCY", m.State().Action)
	}
	if mock.DampCount() < 1 {
		t.Error("damp never reached the SDK")
	}
}

func TestSDKErrors_DoNotKillHeartbeat(t *testing.T) {
	mock := g1.NewMockLoco()
	mock.MoveErr = errFake
	m := New(mock)

	m.Start()
	time.Sleep(60 * time.Millisecond)
	mock.MoveErr = nil // link recovers
	time.Sleep(60 * time.Millisecond)
	m.Stop()

	if mock.MoveCount() < 8 {
		t.Errorf("heartbeat appears to have stalled on errors: %d moves", mock.MoveCount())
	}
}

var errFake = &fakeErr{}

type fakeErr struct{}

func (*fakeErr) Error() string { return "link down" }
