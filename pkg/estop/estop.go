// Package estop provides a terminal keyboard emergency stop for SSH and
// headless operation: the space key drops the robot into damping mode
// without touching the voice stack.
package estop

import (
	"sync"

	"github.com/teslashibe/go-g1/internal/log"
	"github.com/teslashibe/go-g1/pkg/g1"
)

var logger = log.Component("estop")

// Trigger is the slice of the motion facade the listener fires.
type Trigger interface {
	EmergencyStop()
}

// Listener watches stdin for the space key. The terminal must be the
// foreground window for keys to arrive; that is inherent to TTY input.
type Listener struct {
	motion Trigger
	sdk    g1.SafetyController // may be nil; used for the direct damp

	stop     chan struct{}
	done     chan struct{}
	startErr error
	once     sync.Once
}

// NewListener creates a keyboard listener. sdk may be nil; when set,
// a trigger also calls Damp directly as a second layer under the
// facade's own damp.
func NewListener(motion Trigger, sdk g1.SafetyController) *Listener {
	return &Listener{
		motion: motion,
		sdk:    sdk,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start puts the terminal into character mode and begins polling.
// Returns an error if stdin cannot be prepared (e.g. no TTY).
func (l *Listener) Start() error {
	restore, err := rawInput()
	if err != nil {
		return err
	}

	go func() {
		defer close(l.done)
		defer restore()
		logger.Info("keyboard emergency stop armed (press Space)")
		l.monitor()
	}()
	return nil
}

// Stop ends the listener and restores the terminal.
func (l *Listener) Stop() {
	l.once.Do(func() { close(l.stop) })
	<-l.done
}

// trigger fires the emergency stop. The direct SDK damp is issued as
// well; if the facade call failed half-way, the robot still goes limp.
func (l *Listener) trigger() {
	logger.Warn("space key pressed, emergency stop")

	if l.motion != nil {
		l.motion.EmergencyStop()
	}
	if l.sdk != nil {
		if err := l.sdk.Damp(); err != nil {
			logger.Error("direct damp failed", "error", err)
		}
	}
	logger.Warn("emergency stop complete, robot is in a safe state")
}
