package gpio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	pgpio "periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

// InitPeriph loads the periph host drivers. Must be called once before any
// periph-backed device is created.
func InitPeriph() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	return nil
}

func periphPin(n int) (pgpio.PinIO, error) {
	name := fmt.Sprintf("GPIO%d", n)
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("periph: no pin %s", name)
	}
	return p, nil
}

// PeriphButton reads the touch sensor through periph.
type PeriphButton struct {
	pin pgpio.PinIO
}

// NewPeriphButton configures the button pin as an input with pull-down.
func NewPeriphButton(pin int) (*PeriphButton, error) {
	p, err := periphPin(pin)
	if err != nil {
		return nil, err
	}
	if err := p.In(pgpio.PullDown, pgpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configure button pin %d: %w", pin, err)
	}
	return &PeriphButton{pin: p}, nil
}

// Pressed returns the raw pin level.
func (b *PeriphButton) Pressed() (bool, error) {
	return b.pin.Read() == pgpio.High, nil
}

// Close halts the pin.
func (b *PeriphButton) Close() error {
	return b.pin.Halt()
}

// PeriphMotor drives one H-bridge channel through periph.
type PeriphMotor struct {
	a, b pgpio.PinIO
}

// NewPeriphMotor configures both direction pins as low outputs.
func NewPeriphMotor(pinA, pinB int) (*PeriphMotor, error) {
	a, err := periphPin(pinA)
	if err != nil {
		return nil, err
	}
	b, err := periphPin(pinB)
	if err != nil {
		return nil, err
	}
	m := &PeriphMotor{a: a, b: b}
	if err := m.set(pgpio.Low, pgpio.Low); err != nil {
		return nil, fmt.Errorf("configure motor pins %d/%d: %w", pinA, pinB, err)
	}
	return m, nil
}

func (m *PeriphMotor) set(a, b pgpio.Level) error {
	if err := m.a.Out(a); err != nil {
		return err
	}
	return m.b.Out(b)
}

// Forward drives IN1 high and IN2 low.
func (m *PeriphMotor) Forward() error {
	if err := m.set(pgpio.High, pgpio.Low); err != nil {
		return fmt.Errorf("motor forward: %w", err)
	}
	return nil
}

// Stop drives both inputs low.
func (m *PeriphMotor) Stop() error {
	if err := m.set(pgpio.Low, pgpio.Low); err != nil {
		return fmt.Errorf("motor stop: %w", err)
	}
	return nil
}

// Close stops the motor and halts both pins.
func (m *PeriphMotor) Close() error {
	var errs []error
	if err := m.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := m.a.Halt(); err != nil {
		errs = append(errs, err)
	}
	if err := m.b.Halt(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// PeriphSonar samples an HC-SR04 through periph. The echo pulse is timed in
// user space with WaitForEdge, so readings carry some scheduling jitter.
type PeriphSonar struct {
	trig, echo pgpio.PinIO
	latest     *latestReading
	done       chan struct{}
	wg         sync.WaitGroup
}

// NewPeriphSonar configures the pins and starts sampling every interval.
func NewPeriphSonar(pinTrigger, pinEcho int, interval time.Duration) (*PeriphSonar, error) {
	trig, err := periphPin(pinTrigger)
	if err != nil {
		return nil, err
	}
	echo, err := periphPin(pinEcho)
	if err != nil {
		return nil, err
	}
	if err := trig.Out(pgpio.Low); err != nil {
		return nil, fmt.Errorf("configure trigger pin %d: %w", pinTrigger, err)
	}
	if err := echo.In(pgpio.PullDown, pgpio.BothEdges); err != nil {
		return nil, fmt.Errorf("configure echo pin %d: %w", pinEcho, err)
	}

	s := &PeriphSonar{
		trig:   trig,
		echo:   echo,
		latest: newLatestReading(staleAfter(interval)),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run(interval)
	return s, nil
}

func (s *PeriphSonar) run(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if pulse, ok := s.ping(); ok {
				s.latest.store(EchoToCm(pulse))
			}
		}
	}
}

func (s *PeriphSonar) ping() (time.Duration, bool) {
	if err := s.trig.Out(pgpio.High); err != nil {
		return 0, false
	}
	time.Sleep(triggerPulse)
	if err := s.trig.Out(pgpio.Low); err != nil {
		return 0, false
	}

	if !s.echo.WaitForEdge(echoTimeout) || s.echo.Read() != pgpio.High {
		return 0, false
	}
	start := time.Now()
	if !s.echo.WaitForEdge(echoTimeout) {
		return 0, false
	}
	return time.Since(start), true
}

// Distance returns the latest sample.
func (s *PeriphSonar) Distance() (int, error) {
	return s.latest.load()
}

// Close stops sampling and halts both pins.
func (s *PeriphSonar) Close() error {
	close(s.done)
	s.wg.Wait()
	return errors.Join(s.trig.Halt(), s.echo.Halt())
}
