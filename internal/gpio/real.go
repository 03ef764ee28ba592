//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/warthog618/go-gpiocdev"
)

// RealButton reads the touch sensor through the Linux GPIO character device.
type RealButton struct {
	line *gpiocdev.Line
}

// NewRealButton requests the button pin as an input with pull-down.
// The sensor drives the line high while pressed.
func NewRealButton(chip string, pin int) (*RealButton, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		return nil, fmt.Errorf("request button pin %d: %w", pin, err)
	}
	return &RealButton{line: line}, nil
}

// Pressed returns the raw line state.
func (b *RealButton) Pressed() (bool, error) {
	v, err := b.line.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return v == 1, nil
}

// Close releases the line.
func (b *RealButton) Close() error {
	if b.line == nil {
		return nil
	}
	if err := b.line.Close(); err != nil {
		return fmt.Errorf("close button pin: %w", err)
	}
	return nil
}

// RealMotor drives one H-bridge channel (L298N style IN1/IN2 pair).
type RealMotor struct {
	lines *gpiocdev.Lines
}

// NewRealMotor requests both direction pins as outputs, initially low
// (motor coasting).
func NewRealMotor(chip string, pinA, pinB int) (*RealMotor, error) {
	lines, err := gpiocdev.RequestLines(chip, []int{pinA, pinB}, gpiocdev.AsOutput(0, 0))
	if err != nil {
		return nil, fmt.Errorf("request motor pins %d/%d: %w", pinA, pinB, err)
	}
	return &RealMotor{lines: lines}, nil
}

// Forward drives IN1 high and IN2 low.
func (m *RealMotor) Forward() error {
	if err := m.lines.SetValues([]int{1, 0}); err != nil {
		return fmt.Errorf("motor forward: %w", err)
	}
	return nil
}

// Stop drives both inputs low.
func (m *RealMotor) Stop() error {
	if err := m.lines.SetValues([]int{0, 0}); err != nil {
		return fmt.Errorf("motor stop: %w", err)
	}
	return nil
}

// Close stops the motor and releases the lines. Pins are reconfigured as
// inputs with pull-down so the bridge is not left driven.
func (m *RealMotor) Close() error {
	if m.lines == nil {
		return nil
	}
	var errs []error
	if err := m.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := m.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure motor pins: %w", err))
	}
	if err := m.lines.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close motor pins: %w", err))
	}
	return errors.Join(errs...)
}

// RealSonar samples an HC-SR04 ultrasonic sensor continuously.
// Echo pulse width is measured from kernel edge timestamps, so it is not
// affected by scheduling latency of the sampling goroutine.
type RealSonar struct {
	trig   *gpiocdev.Line
	echo   *gpiocdev.Line
	latest *latestReading

	// rise is only touched by the edge handler.
	rise time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

// NewRealSonar requests the trigger and echo pins and starts sampling every
// interval.
func NewRealSonar(chip string, pinTrigger, pinEcho int, interval time.Duration) (*RealSonar, error) {
	s := &RealSonar{
		latest: newLatestReading(staleAfter(interval)),
		done:   make(chan struct{}),
	}

	trig, err := gpiocdev.RequestLine(chip, pinTrigger, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request trigger pin %d: %w", pinTrigger, err)
	}

	echo, err := gpiocdev.RequestLine(chip, pinEcho,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(s.handleEdge))
	if err != nil {
		trig.Close()
		return nil, fmt.Errorf("request echo pin %d: %w", pinEcho, err)
	}

	s.trig = trig
	s.echo = echo

	s.wg.Add(1)
	go s.run(interval)

	return s, nil
}

func (s *RealSonar) run(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// failing limits logging to the first error and the recovery.
	failing := false
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			err := firePulse(s.trig)
			switch {
			case err != nil && !failing:
				log.Warnf("sonar: %v", err)
				failing = true
			case err == nil && failing:
				log.Info("sonar: trigger recovered")
				failing = false
			}
		}
	}
}

func (s *RealSonar) handleEdge(evt gpiocdev.LineEvent) {
	switch evt.Type {
	case gpiocdev.LineEventRisingEdge:
		s.rise = evt.Timestamp
	case gpiocdev.LineEventFallingEdge:
		if s.rise == 0 {
			return
		}
		s.latest.store(EchoToCm(evt.Timestamp - s.rise))
		s.rise = 0
	}
}

// Distance returns the latest sample.
func (s *RealSonar) Distance() (int, error) {
	return s.latest.load()
}

// Close stops sampling and releases both lines.
func (s *RealSonar) Close() error {
	close(s.done)
	s.wg.Wait()

	var errs []error
	if err := s.trig.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close trigger pin: %w", err))
	}
	if err := s.echo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close echo pin: %w", err))
	}
	return errors.Join(errs...)
}
