//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errNotSupported = errors.New("gpio: cdev backend not supported on this platform (requires Linux)")

// RealButton is not available on non-Linux platforms.
type RealButton struct{}

// NewRealButton returns an error on non-Linux platforms.
func NewRealButton(chip string, pin int) (*RealButton, error) {
	return nil, errNotSupported
}

// Pressed is not implemented on non-Linux platforms.
func (b *RealButton) Pressed() (bool, error) {
	return false, errNotSupported
}

// Close is not implemented on non-Linux platforms.
func (b *RealButton) Close() error {
	return nil
}

// RealMotor is not available on non-Linux platforms.
type RealMotor struct{}

// NewRealMotor returns an error on non-Linux platforms.
func NewRealMotor(chip string, pinA, pinB int) (*RealMotor, error) {
	return nil, errNotSupported
}

// Forward is not implemented on non-Linux platforms.
func (m *RealMotor) Forward() error { return errNotSupported }

// Stop is not implemented on non-Linux platforms.
func (m *RealMotor) Stop() error { return errNotSupported }

// Close is not implemented on non-Linux platforms.
func (m *RealMotor) Close() error { return nil }

// RealSonar is not available on non-Linux platforms.
type RealSonar struct{}

// NewRealSonar returns an error on non-Linux platforms.
func NewRealSonar(chip string, pinTrigger, pinEcho int, interval time.Duration) (*RealSonar, error) {
	return nil, errNotSupported
}

// Distance is not implemented on non-Linux platforms.
func (s *RealSonar) Distance() (int, error) { return 0, errNotSupported }

// Close is not implemented on non-Linux platforms.
func (s *RealSonar) Close() error { return nil }
