// Package g1 provides interfaces and implementations for Unitree G1 robot control.
//
// This package follows the Interface Segregation Principle (ISP) by defining
// small, focused interfaces that can be composed as needed. Consumers should
// depend only on the interfaces they actually use.
package g1

// FSM ids of the G1 whole-body state machine. The loco daemon switches
// modes by id; motion commands are rejected outside the standing modes.
const (
	FSMIDIdle         = 0 // zero torque
	FSMIDDamp         = 1 // joint damping
	FSMIDSit          = 3
	FSMIDStart        = 200 // stand up / balance
	FSMIDRecovery     = 702 // recover from lying down
	FSMIDSquatToStand = 706
)

// Arm action ids accepted by ExecuteAction.
const (
	ActionFaceWave = 25
	ActionHighWave = 26
)

// VelocityController streams velocity commands to the robot.
// Move may be called up to 100 times per second; the loco daemon's
// watchdog cuts motion if the stream stops.
type VelocityController interface {
	Move(vx, vy, vyaw float64) error
}

// SafetyController switches the robot into and out of safe modes.
type SafetyController interface {
	// Damp engages joint damping (FSM id 1), bringing the robot to a
	// safe static state.
	Damp() error

	// SquatToStand recovers to a standing pose (FSM id 706).
	SquatToStand() error
}

// LocoController is the composite command sink for locomotion.
// This is what the motion core talks to.
type LocoController interface {
	VelocityController
	SafetyController
}

// ArmController triggers predefined arm gestures.
type ArmController interface {
	ExecuteAction(id int) error
}

// Ensure the HTTP clients implement the interfaces.
var (
	_ LocoController = (*HTTPLocoClient)(nil)
	_ ArmController  = (*HTTPArmClient)(nil)
)
