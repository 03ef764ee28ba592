// Package gpio provides the hardware boundary of the robot: the touch sensor,
// the ultrasonic range sensor and the two drive motors.
// The cdev implementation uses the Linux GPIO character device, the periph
// implementation uses periph.io host drivers.
// The fake implementations allow testing without hardware.
package gpio

import "errors"

// Button reads the raw state of the touch sensor.
type Button interface {
	// Pressed returns the instantaneous, possibly bouncing, sensor state.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// RangeSensor reports the distance to the nearest obstacle.
// Implementations sample continuously in the background once created;
// Distance returns the most recent sample.
type RangeSensor interface {
	// Distance returns the latest reading in centimeters.
	Distance() (int, error)

	// Close stops sampling and releases GPIO resources.
	Close() error
}

// Motor drives one wheel.
type Motor interface {
	Forward() error
	Stop() error

	// Close stops the motor and releases GPIO resources.
	Close() error
}

// Range sensor errors.
var (
	ErrNoSample    = errors.New("gpio: no range sample yet")
	ErrStaleSample = errors.New("gpio: range sample is stale")
)

// DefaultChip is the GPIO character device used on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// Pins holds the BCM pin assignments. The long/env tags are read by the
// command-line parser when Pins is embedded as an option group.
type Pins struct {
	Button  int `long:"button" env:"BUTTON" description:"BCM pin of the touch sensor" yaml:"button"`
	Trigger int `long:"trigger" env:"TRIGGER" description:"BCM pin of the sonar trigger" yaml:"trigger"`
	Echo    int `long:"echo" env:"ECHO" description:"BCM pin of the sonar echo" yaml:"echo"`
	LeftA   int `long:"left-a" env:"LEFT_A" description:"BCM pin of left motor input A" yaml:"left_a"`
	LeftB   int `long:"left-b" env:"LEFT_B" description:"BCM pin of left motor input B" yaml:"left_b"`
	RightA  int `long:"right-a" env:"RIGHT_A" description:"BCM pin of right motor input A" yaml:"right_a"`
	RightB  int `long:"right-b" env:"RIGHT_B" description:"BCM pin of right motor input B" yaml:"right_b"`
}

// Pin defaults (BCM numbering)
const (
	DefaultPinButton  = 17
	DefaultPinTrigger = 23
	DefaultPinEcho    = 24
	DefaultPinLeftA   = 5
	DefaultPinLeftB   = 6
	DefaultPinRightA  = 13
	DefaultPinRightB  = 19
)

// DefaultPins returns the default wiring.
func DefaultPins() Pins {
	return Pins{
		Button:  DefaultPinButton,
		Trigger: DefaultPinTrigger,
		Echo:    DefaultPinEcho,
		LeftA:   DefaultPinLeftA,
		LeftB:   DefaultPinLeftB,
		RightA:  DefaultPinRightA,
		RightB:  DefaultPinRightB,
	}
}
