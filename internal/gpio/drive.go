package gpio

import (
	"errors"
	"fmt"
)

// Drive commands both wheels together.
type Drive struct {
	Left  Motor
	Right Motor
}

// NewDrive pairs two motors.
func NewDrive(left, right Motor) *Drive {
	return &Drive{Left: left, Right: right}
}

// Forward starts both motors. Both are commanded even if one fails.
func (d *Drive) Forward() error {
	var errs []error
	if err := d.Left.Forward(); err != nil {
		errs = append(errs, fmt.Errorf("left forward: %w", err))
	}
	if err := d.Right.Forward(); err != nil {
		errs = append(errs, fmt.Errorf("right forward: %w", err))
	}
	return errors.Join(errs...)
}

// Stop stops both motors. Both are commanded even if one fails.
func (d *Drive) Stop() error {
	var errs []error
	if err := d.Left.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("left stop: %w", err))
	}
	if err := d.Right.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("right stop: %w", err))
	}
	return errors.Join(errs...)
}

// Close stops and releases both motors.
func (d *Drive) Close() error {
	var errs []error
	if err := d.Left.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close left: %w", err))
	}
	if err := d.Right.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close right: %w", err))
	}
	return errors.Join(errs...)
}
