// Package logic contains the pure control logic for the drive robot.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"errors"
	"time"
)

// State represents the state of the drive controller.
type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
)

// ButtonState represents the state of the debounce state machine.
type ButtonState string

const (
	ButtonReleased        ButtonState = "RELEASED"
	ButtonDebouncing      ButtonState = "DEBOUNCING"
	ButtonAwaitingRelease ButtonState = "AWAITING_RELEASE"
	ButtonSuppressed      ButtonState = "SUPPRESSED"
)

// EventType represents a drive transition.
type EventType string

const (
	EventStart EventType = "START"
	EventStop  EventType = "STOP"
)

// Reason explains what triggered a transition.
type Reason string

const (
	ReasonButton      Reason = "BUTTON"
	ReasonProximity   Reason = "PROXIMITY"
	ReasonSensorFault Reason = "SENSOR_FAULT"
	ReasonShutdown    Reason = "SHUTDOWN"
)

// Event represents a drive transition. START means both motors must be
// commanded forward, STOP means both must be stopped.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	Reason     Reason
	State      State // controller state after the transition
	DistanceCm int   // last proximity reading when the event fired
}

// Input represents one tick's worth of sensor samples.
type Input struct {
	Pressed    bool // raw touch sensor state, may bounce
	DistanceCm int
	DistanceOK bool // false if the range sensor could not be read this tick
	Time       time.Time
}

// Config holds the fixed controller parameters.
type Config struct {
	// MinimumRangeCm stops the drive when an obstacle is strictly closer.
	MinimumRangeCm int
	// DebounceWindow is how long a raw press must persist to be trusted.
	DebounceWindow time.Duration
}

// Validate checks the configuration for values the controller cannot use.
func (c Config) Validate() error {
	if c.MinimumRangeCm <= 0 {
		return errors.New("minimum range must be positive")
	}
	if c.DebounceWindow < 0 {
		return errors.New("debounce window must not be negative")
	}
	return nil
}

// EventCounts tracks the number of each transition since startup.
type EventCounts struct {
	Starts         int
	ButtonStops    int
	ProximityStops int
	FaultStops     int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
