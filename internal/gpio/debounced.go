package gpio

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/drivebot/internal/logic"
)

// Clock provides time to blocking helpers. Tests substitute a virtual clock.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the real monotonic clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep blocks for d.
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// DefaultReleasePoll is how often the raw button is sampled while waiting for
// release.
const DefaultReleasePoll = 5 * time.Millisecond

// DebouncedButton is a blocking wrapper around a raw Button.
// It uses the same debounce rules as logic.Button.
type DebouncedButton struct {
	raw         Button
	window      time.Duration
	debounce    *logic.Button
	clock       Clock
	releasePoll time.Duration
}

// NewDebouncedButton wraps raw with the given debounce window.
func NewDebouncedButton(raw Button, window time.Duration, clock Clock) *DebouncedButton {
	return &DebouncedButton{
		raw:         raw,
		window:      window,
		debounce:    logic.NewButton(window),
		clock:       clock,
		releasePoll: DefaultReleasePoll,
	}
}

// PollPressRelease reports whether a complete press-release happened.
//
// If the button is not pressed it returns false at once. Otherwise it waits
// the debounce window and samples again: a press that has already ended is
// rejected, a press still held is confirmed and the call blocks until the
// button is released, then returns true.
//
// Cancellation is checked between samples.
func (d *DebouncedButton) PollPressRelease(ctx context.Context) (bool, error) {
	pressed, err := d.raw.Pressed()
	if err != nil {
		return false, fmt.Errorf("read button: %w", err)
	}
	if !pressed {
		return false, nil
	}

	d.debounce.Process(true, d.clock.Now())

	if d.debounce.State() == logic.ButtonDebouncing {
		if err := d.sleep(ctx, d.window); err != nil {
			return false, err
		}
		pressed, err = d.raw.Pressed()
		if err != nil {
			d.reset()
			return false, fmt.Errorf("read button: %w", err)
		}
		d.debounce.Process(pressed, d.clock.Now())
		if d.debounce.State() != logic.ButtonAwaitingRelease {
			d.reset()
			return false, nil
		}
	}

	for {
		if err := d.sleep(ctx, d.releasePoll); err != nil {
			return false, err
		}
		pressed, err = d.raw.Pressed()
		if err != nil {
			d.reset()
			return false, fmt.Errorf("read button: %w", err)
		}
		if d.debounce.Process(pressed, d.clock.Now()) {
			return true, nil
		}
	}
}

func (d *DebouncedButton) sleep(ctx context.Context, dur time.Duration) error {
	if err := ctx.Err(); err != nil {
		d.reset()
		return err
	}
	d.clock.Sleep(dur)
	if err := ctx.Err(); err != nil {
		d.reset()
		return err
	}
	return nil
}

// reset discards a half-finished cycle so the next call starts clean.
func (d *DebouncedButton) reset() {
	d.debounce = logic.NewButton(d.window)
}
