package action

import (
	"math"
	"runtime/debug"
	"time"
)

// heartbeatLoop is the 100Hz control loop. It must emit one SDK command
// per tick, no exceptions: the loco daemon's watchdog cuts motion when
// the stream stops, so even the tick that performs an auto-stop still
// sends a zero-velocity move.
//
// Scheduling is anchored to absolute time so per-tick jitter does not
// accumulate. A lag under 100ms is caught up naturally on subsequent
// iterations; beyond that the anchor is reset.
func (m *Manager) heartbeatLoop() {
	defer close(m.hbDone)
	hblog.Info("heartbeat loop started")

	next := time.Now()
	m.lastReport = time.Now()

	for m.running.Load() {
		next = next.Add(heartbeatInterval)
		m.tick()

		now := time.Now()
		if sleep := next.Sub(now); sleep > 0 {
			time.Sleep(sleep)
		} else if lag := -sleep; lag > heartbeatMaxLag {
			hblog.Warn("heartbeat lagging badly, resetting time anchor",
				"lag_ms", float64(lag.Microseconds())/1000.0)
			m.mc.RecordLagReset()
			next = now
		}
	}

	hblog.Info("heartbeat loop exited")
}

// tick executes one control cycle. It never lets a failure escape: SDK
// errors are logged and retried next tick, and a panic is contained so
// the loop survives.
func (m *Manager) tick() {
	defer func() {
		if r := recover(); r != nil {
			hblog.Error("heartbeat tick panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	m.mu.Lock()
	vx, vy, vyaw := m.vx, m.vy, m.vyaw
	act := m.action
	m.mu.Unlock()

	if act == ActionEmergency {
		m.sendDamp()
	} else {
		// Re-check under the lock: EmergencyStop may have fired between
		// the read above and now, and damp must win over a stale move.
		m.mu.Lock()
		if m.action == ActionEmergency {
			m.mu.Unlock()
			hblog.Warn("emergency raised before command send, move suppressed")
			m.sendDamp()
		} else {
			if act == ActionMove && m.moveDuration > 0 && time.Since(m.moveStart) > m.moveDuration {
				dur := m.moveDuration
				m.vx, m.vy, m.vyaw = 0, 0, 0
				m.action = ActionIdle
				m.moveDuration = 0
				vx, vy, vyaw = 0, 0, 0
				m.mu.Unlock()
				hblog.Info("move duration elapsed, auto-stopped", "duration", dur)
			} else {
				m.mu.Unlock()
			}
			m.sendMove(vx, vy, vyaw)
		}
	}

	m.loopCount++
	m.mc.RecordTick()

	if m.loopCount%reportEvery == 0 {
		now := time.Now()
		elapsed := now.Sub(m.lastReport).Seconds()
		freq := 0.0
		if elapsed > 0 {
			freq = reportEvery / elapsed
		}
		m.lastReport = now
		m.freqBits.Store(math.Float64bits(freq))
		m.mc.SetFrequency(freq)

		hblog.Info("heartbeat",
			"ticks", m.loopCount,
			"freq_hz", freq,
			"action", act.String(),
			"vx", vx, "vy", vy, "vyaw", vyaw)
	}
}

// sendMove issues one velocity command, absorbing transient failures.
func (m *Manager) sendMove(vx, vy, vyaw float64) {
	if err := m.sdk.Move(vx, vy, vyaw); err != nil {
		m.recordSendError("move", err)
	}
}

// sendDamp keeps the robot in damping mode during EMERGENCY.
func (m *Manager) sendDamp() {
	if err := m.sdk.Damp(); err != nil {
		m.recordSendError("damp", err)
	}
}

// recordSendError counts an SDK failure and logs it through the error
// limiter, so a dead link cannot flood the log at 100Hz.
func (m *Manager) recordSendError(cmd string, err error) {
	m.errorCount++
	m.mc.RecordSDKError()
	if suppressed, ok := m.errLimit.Allow(); ok {
		hblog.Error("sdk command failed",
			"cmd", cmd, "error", err, "total_errors", m.errorCount, "suppressed", suppressed)
	}
}
