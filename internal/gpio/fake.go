package gpio

import "errors"

// FakeButton is a test double that returns scripted button states.
type FakeButton struct {
	// Samples contains scripted raw states to return.
	// Each call to Pressed() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Pressed()
	ReadError error
}

// NewFakeButton creates a FakeButton with the given samples.
func NewFakeButton(samples []bool) *FakeButton {
	return &FakeButton{Samples: samples}
}

// Pressed returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeButton) Pressed() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the button as closed.
func (f *FakeButton) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the button to the beginning of samples.
func (f *FakeButton) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeRangeSensor is a test double that returns scripted distances.
type FakeRangeSensor struct {
	// Samples contains scripted distances in cm, consumed one per call.
	// The last sample repeats once exhausted.
	Samples []int

	index int

	Closed bool

	// ReadError, if set, will be returned by Distance()
	ReadError error
}

// NewFakeRangeSensor creates a FakeRangeSensor with the given samples.
func NewFakeRangeSensor(samples []int) *FakeRangeSensor {
	return &FakeRangeSensor{Samples: samples}
}

// Distance returns the next scripted distance.
func (f *FakeRangeSensor) Distance() (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}

	if len(f.Samples) == 0 {
		return 0, ErrNoSample
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the sensor as closed.
func (f *FakeRangeSensor) Close() error {
	f.Closed = true
	return nil
}

// Motor commands recorded by FakeMotor.
const (
	CommandForward = "FORWARD"
	CommandStop    = "STOP"
)

// FakeMotor records the commands it receives.
type FakeMotor struct {
	// Commands contains every command received, in order.
	Commands []string

	// CommandError, if set, is returned by Forward and Stop.
	// The command is still recorded.
	CommandError error

	Closed bool
}

// NewFakeMotor creates a FakeMotor.
func NewFakeMotor() *FakeMotor {
	return &FakeMotor{}
}

// Forward records a forward command.
func (f *FakeMotor) Forward() error {
	f.Commands = append(f.Commands, CommandForward)
	return f.CommandError
}

// Stop records a stop command.
func (f *FakeMotor) Stop() error {
	f.Commands = append(f.Commands, CommandStop)
	return f.CommandError
}

// Close marks the motor as closed.
func (f *FakeMotor) Close() error {
	f.Closed = true
	return nil
}

// Running reports whether the last command was forward.
func (f *FakeMotor) Running() bool {
	return len(f.Commands) > 0 && f.Commands[len(f.Commands)-1] == CommandForward
}
