package gpio

import (
	"fmt"
	"sync"
	"time"
)

// echoPerCm is the round-trip echo time per centimeter for an HC-SR04.
const echoPerCm = 58 * time.Microsecond

// triggerPulse is the minimum trigger pulse width for an HC-SR04.
const triggerPulse = 10 * time.Microsecond

// echoTimeout bounds the wait for an echo edge. The sensor holds echo high
// for ~38ms when nothing is in range.
const echoTimeout = 50 * time.Millisecond

// EchoToCm converts an echo pulse width to a distance in centimeters.
func EchoToCm(pulse time.Duration) int {
	if pulse <= 0 {
		return 0
	}
	return int(pulse / echoPerCm)
}

// latestReading holds the most recent range sample. It is written by the
// sampling goroutine and read by the control loop.
type latestReading struct {
	mu         sync.Mutex
	cm         int
	at         time.Time
	ok         bool
	staleAfter time.Duration
	now        func() time.Time
}

func newLatestReading(staleAfter time.Duration) *latestReading {
	return &latestReading{staleAfter: staleAfter, now: time.Now}
}

func (l *latestReading) store(cm int) {
	l.mu.Lock()
	l.cm = cm
	l.at = l.now()
	l.ok = true
	l.mu.Unlock()
}

func (l *latestReading) load() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.ok {
		return 0, ErrNoSample
	}
	if l.staleAfter > 0 && l.now().Sub(l.at) > l.staleAfter {
		return l.cm, ErrStaleSample
	}
	return l.cm, nil
}

// staleAfter returns how old a sample may get before it is rejected.
// A few missed echoes are tolerated.
func staleAfter(interval time.Duration) time.Duration {
	return 5*interval + echoTimeout
}

// outputLine is the part of an output line needed to fire the trigger.
type outputLine interface {
	SetValue(value int) error
}

// firePulse raises the trigger line for one trigger pulse. The line is
// driven low again even when raising it failed.
func firePulse(trig outputLine) error {
	errHigh := trig.SetValue(1)
	if errHigh == nil {
		time.Sleep(triggerPulse)
	}
	if err := trig.SetValue(0); err != nil {
		return fmt.Errorf("clear trigger: %w", err)
	}
	if errHigh != nil {
		return fmt.Errorf("set trigger: %w", errHigh)
	}
	return nil
}
