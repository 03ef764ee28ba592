package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	State         string     `json:"state"`
	Button        string     `json:"button"`
	DistanceCm    int        `json:"distance_cm"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"event_counts"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Starts         int `json:"starts"`
	ButtonStops    int `json:"button_stops"`
	ProximityStops int `json:"proximity_stops"`
	FaultStops     int `json:"fault_stops"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Backend         string `json:"backend"`
	PollMs          int64  `json:"poll_ms"`
	DebounceMs      int64  `json:"debounce_ms"`
	MinRangeCm      int    `json:"min_range_cm"`
	SonarIntervalMs int64  `json:"sonar_interval_ms"`
	HeartbeatMs     int64  `json:"heartbeat_ms"`
	Broker          string `json:"broker"`
	HTTPAddr        string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}
	button := string(snap.ButtonState)
	if button == "" {
		button = "UNKNOWN"
	}

	return StatusInner{
		State:         state,
		Button:        button,
		DistanceCm:    snap.DistanceCm,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Starts:         snap.Counts.Starts,
			ButtonStops:    snap.Counts.ButtonStops,
			ProximityStops: snap.Counts.ProximityStops,
			FaultStops:     snap.Counts.FaultStops,
		},
		Config: ConfigJSON{
			Backend:         snap.Config.Backend,
			PollMs:          snap.Config.PollMs,
			DebounceMs:      snap.Config.DebounceMs,
			MinRangeCm:      snap.Config.MinRangeCm,
			SonarIntervalMs: snap.Config.SonarIntervalMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
