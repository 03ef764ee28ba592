package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/drivebot/internal/logic"
)

func startEvent(ts time.Time) logic.Event {
	return logic.Event{
		Timestamp:  ts,
		Type:       logic.EventStart,
		Reason:     logic.ReasonButton,
		State:      logic.StateRunning,
		DistanceCm: 42,
	}
}

func TestFormatPayload(t *testing.T) {
	event := startEvent(time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC))

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Drive.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Drive.Timestamp)
	}
	if parsed.Drive.Event != "START" {
		t.Errorf("unexpected event: %s", parsed.Drive.Event)
	}
	if parsed.Drive.Reason != "BUTTON" {
		t.Errorf("unexpected reason: %s", parsed.Drive.Reason)
	}
	if parsed.Drive.State != "RUNNING" {
		t.Errorf("unexpected state: %s", parsed.Drive.State)
	}
	if parsed.Drive.DistanceCm != 42 {
		t.Errorf("unexpected distance: %d", parsed.Drive.DistanceCm)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := logic.Event{
		Timestamp:  time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Type:       logic.EventStop,
		Reason:     logic.ReasonProximity,
		State:      logic.StateIdle,
		DistanceCm: 7,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"drive":{"timestamp":"2026-02-02T22:18:12Z","event":"STOP","reason":"PROXIMITY","state":"IDLE","distance_cm":7}}`
	if string(payload) != want {
		t.Errorf("payload mismatch\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFormatPayloadAllReasons(t *testing.T) {
	tests := []struct {
		eventType  logic.EventType
		reason     logic.Reason
		state      logic.State
		wantEvent  string
		wantReason string
	}{
		{logic.EventStart, logic.ReasonButton, logic.StateRunning, "START", "BUTTON"},
		{logic.EventStop, logic.ReasonButton, logic.StateIdle, "STOP", "BUTTON"},
		{logic.EventStop, logic.ReasonProximity, logic.StateIdle, "STOP", "PROXIMITY"},
		{logic.EventStop, logic.ReasonSensorFault, logic.StateIdle, "STOP", "SENSOR_FAULT"},
		{logic.EventStop, logic.ReasonShutdown, logic.StateIdle, "STOP", "SHUTDOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.wantEvent+"_"+tt.wantReason, func(t *testing.T) {
			payload, err := FormatPayload(logic.Event{
				Timestamp: time.Now(),
				Type:      tt.eventType,
				Reason:    tt.reason,
				State:     tt.state,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Drive.Event != tt.wantEvent {
				t.Errorf("event: got %s, want %s", parsed.Drive.Event, tt.wantEvent)
			}
			if parsed.Drive.Reason != tt.wantReason {
				t.Errorf("reason: got %s, want %s", parsed.Drive.Reason, tt.wantReason)
			}
			if parsed.Drive.State != string(tt.state) {
				t.Errorf("state: got %s, want %s", parsed.Drive.State, tt.state)
			}
		})
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	event := startEvent(time.Date(2026, 2, 2, 23, 18, 12, 0, loc))

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Drive.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Drive.Timestamp)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "robot/drivebot/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "robot/drivebot/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != want {
		t.Errorf("payload mismatch\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Event:     "RECONNECTED",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"RECONNECTED"}}`
	if string(payload) != want {
		t.Errorf("payload mismatch\ngot:  %s\nwant: %s", payload, want)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"system":{"event":"HEARTBEAT","state":"IDLE"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(startEvent(time.Now())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.Events))
	}
	if f.Events[0].Type != logic.EventStart {
		t.Errorf("unexpected event type: %s", f.Events[0].Type)
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	if err := f.Publish(startEvent(time.Now())); err == nil {
		t.Error("expected error")
	}
	if len(f.Events) != 0 {
		t.Errorf("expected no events recorded on error, got %d", len(f.Events))
	}
}

func TestFakePublisherPublishSystem(t *testing.T) {
	f := NewFakePublisher()

	err := f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(f.SystemEvents))
	}
	if f.SystemEvents[0].Event != "STARTUP" {
		t.Errorf("unexpected event: %s", f.SystemEvents[0].Event)
	}
	if !f.SystemEvents[0].Retained {
		t.Error("expected retained flag to be recorded")
	}
	if len(f.SystemPayloads) != 1 {
		t.Fatalf("expected 1 system payload, got %d", len(f.SystemPayloads))
	}
}

func TestFakePublisherPublishSystemError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishSystemError = errors.New("broker gone")

	if err := f.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Error("expected error")
	}
	if len(f.SystemEvents) != 0 {
		t.Errorf("expected no system events recorded on error, got %d", len(f.SystemEvents))
	}
}

func TestFakePublisherPreservesEventOrder(t *testing.T) {
	f := NewFakePublisher()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	events := []logic.Event{
		{Timestamp: base, Type: logic.EventStart, Reason: logic.ReasonButton, State: logic.StateRunning},
		{Timestamp: base.Add(time.Second), Type: logic.EventStop, Reason: logic.ReasonProximity, State: logic.StateIdle},
		{Timestamp: base.Add(2 * time.Second), Type: logic.EventStart, Reason: logic.ReasonButton, State: logic.StateRunning},
	}
	for _, e := range events {
		if err := f.Publish(e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(f.Events) != len(events) {
		t.Fatalf("expected %d events, got %d", len(events), len(f.Events))
	}
	for i := range events {
		if f.Events[i] != events[i] {
			t.Errorf("event %d: got %+v, want %+v", i, f.Events[i], events[i])
		}
	}
}

func TestFakePublisherCloseAndReset(t *testing.T) {
	f := NewFakePublisher()
	f.Connected = true
	f.Publish(startEvent(time.Now()))
	f.PublishSystem(SystemEvent{Event: "STARTUP"})

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("expected Closed after Close")
	}

	f.Reset()
	if f.Closed || f.Connected {
		t.Error("expected flags cleared after Reset")
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 || len(f.Payloads) != 0 || len(f.SystemPayloads) != 0 {
		t.Error("expected recordings cleared after Reset")
	}

	if err := f.Publish(startEvent(time.Now())); err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
	if len(f.Events) != 1 {
		t.Errorf("expected publisher reusable after reset, got %d events", len(f.Events))
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(startEvent(time.Now())); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if (NopPublisher{}).IsConnected() {
		t.Error("NopPublisher should never report connected")
	}
}

func TestWillPayloadFormat(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Event:     "OFFLINE",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.System.Event != "OFFLINE" || parsed.System.Reason != "MQTT_DISCONNECT" {
		t.Errorf("unexpected will payload: %+v", parsed.System)
	}
}
