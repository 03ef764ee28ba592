package logic

import "time"

// Controller is the drive state machine. It starts in StateIdle, enters
// StateRunning on a debounced press-release and returns to StateIdle on the
// next press-release, on an obstacle closer than the minimum range, or when
// the range sensor cannot be read.
type Controller struct {
	minRangeCm    int
	button        *Button
	state         State
	lastDistance  int
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewController creates a controller in StateIdle.
// The startTime is used for calculating uptime in heartbeat events.
func NewController(cfg Config, startTime time.Time) *Controller {
	return &Controller{
		minRangeCm:    cfg.MinimumRangeCm,
		button:        NewButton(cfg.DebounceWindow),
		state:         StateIdle,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process advances the state machine by one tick and returns the transition
// it caused, if any. At most one event is returned per tick.
func (c *Controller) Process(input Input) []Event {
	if input.DistanceOK {
		c.lastDistance = input.DistanceCm
	}

	// The button is sampled on every tick so debounce timing keeps running
	// while proximity is being watched.
	released := c.button.Process(input.Pressed, input.Time)

	switch c.state {
	case StateIdle:
		if released {
			return c.transition(StateRunning, EventStart, ReasonButton, input.Time)
		}

	case StateRunning:
		// Proximity is not evaluated on the tick that starts the drive; it is
		// evaluated on every later tick, whatever the debouncer is doing.
		switch {
		case !input.DistanceOK:
			c.button.Suppress()
			return c.transition(StateIdle, EventStop, ReasonSensorFault, input.Time)
		case input.DistanceCm < c.minRangeCm:
			c.button.Suppress()
			return c.transition(StateIdle, EventStop, ReasonProximity, input.Time)
		case released:
			return c.transition(StateIdle, EventStop, ReasonButton, input.Time)
		}
	}

	return nil
}

// Halt stops a running drive for shutdown. Returns nil if already idle.
func (c *Controller) Halt(now time.Time) *Event {
	if c.state != StateRunning {
		return nil
	}
	events := c.transition(StateIdle, EventStop, ReasonShutdown, now)
	return &events[0]
}

func (c *Controller) transition(to State, typ EventType, reason Reason, now time.Time) []Event {
	c.state = to

	switch {
	case typ == EventStart:
		c.eventCounts.Starts++
	case reason == ReasonButton:
		c.eventCounts.ButtonStops++
	case reason == ReasonProximity:
		c.eventCounts.ProximityStops++
	case reason == ReasonSensorFault:
		c.eventCounts.FaultStops++
	}

	return []Event{{
		Timestamp:  now,
		Type:       typ,
		Reason:     reason,
		State:      to,
		DistanceCm: c.lastDistance,
	}}
}

// State returns the current controller state.
func (c *Controller) State() State {
	return c.state
}

// ButtonState returns the current debounce state.
func (c *Controller) ButtonState() ButtonState {
	return c.button.State()
}

// LastDistance returns the most recent successful proximity reading in cm.
func (c *Controller) LastDistance() int {
	return c.lastDistance
}

// EventCountsSnapshot returns a copy of the event counts since startup.
func (c *Controller) EventCountsSnapshot() EventCounts {
	return c.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.eventCounts,
	}
}
