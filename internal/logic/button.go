package logic

import "time"

// Button turns a noisy raw press signal into a single press-release event.
//
// A raw press is sampled once more at since+window; only if it is still held
// at that point is it trusted. Samples taken inside the window are ignored,
// so a press that ends (or bounces) before the deadline is silently dropped.
// The event fires on release, never while the button is held.
type Button struct {
	window time.Duration
	state  ButtonState
	since  time.Time
}

// NewButton creates a debouncer with the given window.
func NewButton(window time.Duration) *Button {
	return &Button{
		window: window,
		state:  ButtonReleased,
	}
}

// Process takes a raw sample and reports whether a complete press-release
// cycle finished with this sample.
func (b *Button) Process(pressed bool, now time.Time) bool {
	switch b.state {
	case ButtonReleased:
		if !pressed {
			return false
		}
		b.state = ButtonDebouncing
		b.since = now
		// A zero window confirms on the same sample.
		return b.checkDeadline(pressed, now)

	case ButtonDebouncing:
		return b.checkDeadline(pressed, now)

	case ButtonAwaitingRelease:
		if pressed {
			return false
		}
		b.state = ButtonReleased
		return true

	case ButtonSuppressed:
		if !pressed {
			b.state = ButtonReleased
		}
		return false
	}
	return false
}

func (b *Button) checkDeadline(pressed bool, now time.Time) bool {
	if now.Sub(b.since) < b.window {
		return false
	}
	if pressed {
		b.state = ButtonAwaitingRelease
	} else {
		b.state = ButtonReleased
	}
	return false
}

// Suppress discards any press in progress. Input is ignored until the raw
// state reads released.
func (b *Button) Suppress() {
	if b.state == ButtonReleased {
		return
	}
	b.state = ButtonSuppressed
}

// State returns the current debounce state.
func (b *Button) State() ButtonState {
	return b.state
}

// Window returns the configured debounce window.
func (b *Button) Window() time.Duration {
	return b.window
}
