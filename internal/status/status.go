// Package status provides a thread-safe status tracker for the drivebot daemon.
// It is read by the HTTP handlers and the websocket feed.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/drivebot/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Backend         string
	PollMs          int64
	DebounceMs      int64
	MinRangeCm      int
	SonarIntervalMs int64
	HeartbeatMs     int64
	Broker          string
	HTTPAddr        string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	ButtonState   logic.ButtonState
	DistanceCm    int
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets controller state, debounce state, last distance and event counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(state logic.State, button logic.ButtonState, distanceCm int, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.ButtonState = button
	t.snap.DistanceCm = distanceCm
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
