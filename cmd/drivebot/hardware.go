package main

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/drivebot/internal/gpio"
)

// hardware bundles the devices the control loop needs.
type hardware struct {
	button  gpio.Button
	sonar   gpio.RangeSensor
	drive   *gpio.Drive
	closers []func() error
}

// openHardware opens every device on the configured backend. On failure
// anything already opened is closed again.
func openHardware(cfg *config) (*hardware, error) {
	hw := &hardware{}

	var err error
	switch cfg.Backend {
	case backendCdev:
		err = hw.openCdev(cfg)
	case backendPeriph:
		if err = gpio.InitPeriph(); err == nil {
			err = hw.openPeriph(cfg)
		}
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		if cerr := hw.Close(); cerr != nil {
			log.Warnf("close partially opened hardware: %v", cerr)
		}
		return nil, err
	}

	log.Infof("opened %s hardware: button=%d trigger=%d echo=%d left=%d/%d right=%d/%d",
		cfg.Backend, cfg.Pins.Button, cfg.Pins.Trigger, cfg.Pins.Echo,
		cfg.Pins.LeftA, cfg.Pins.LeftB, cfg.Pins.RightA, cfg.Pins.RightB)
	return hw, nil
}

func (hw *hardware) openCdev(cfg *config) error {
	p := cfg.Pins

	button, err := gpio.NewRealButton(cfg.Chip, p.Button)
	if err != nil {
		return err
	}
	hw.button = button
	hw.closers = append(hw.closers, button.Close)

	sonar, err := gpio.NewRealSonar(cfg.Chip, p.Trigger, p.Echo, cfg.SonarInterval)
	if err != nil {
		return err
	}
	hw.sonar = sonar
	hw.closers = append(hw.closers, sonar.Close)

	left, err := gpio.NewRealMotor(cfg.Chip, p.LeftA, p.LeftB)
	if err != nil {
		return err
	}
	hw.closers = append(hw.closers, left.Close)

	right, err := gpio.NewRealMotor(cfg.Chip, p.RightA, p.RightB)
	if err != nil {
		return err
	}
	hw.closers = append(hw.closers, right.Close)

	hw.drive = gpio.NewDrive(left, right)
	return nil
}

func (hw *hardware) openPeriph(cfg *config) error {
	p := cfg.Pins

	button, err := gpio.NewPeriphButton(p.Button)
	if err != nil {
		return err
	}
	hw.button = button
	hw.closers = append(hw.closers, button.Close)

	sonar, err := gpio.NewPeriphSonar(p.Trigger, p.Echo, cfg.SonarInterval)
	if err != nil {
		return err
	}
	hw.sonar = sonar
	hw.closers = append(hw.closers, sonar.Close)

	left, err := gpio.NewPeriphMotor(p.LeftA, p.LeftB)
	if err != nil {
		return err
	}
	hw.closers = append(hw.closers, left.Close)

	right, err := gpio.NewPeriphMotor(p.RightA, p.RightB)
	if err != nil {
		return err
	}
	hw.closers = append(hw.closers, right.Close)

	hw.drive = gpio.NewDrive(left, right)
	return nil
}

// Close releases devices in reverse order, so motors are stopped and
// released before the sensors.
func (hw *hardware) Close() error {
	var errs []error
	for i := len(hw.closers) - 1; i >= 0; i-- {
		if err := hw.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	hw.closers = nil
	return errors.Join(errs...)
}
