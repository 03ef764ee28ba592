package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/drivebot/internal/logic"
	"github.com/sweeney/drivebot/internal/status"
)

func testConfig() status.Config {
	return status.Config{
		Backend:         "cdev",
		PollMs:          10,
		DebounceMs:      500,
		MinRangeCm:      10,
		SonarIntervalMs: 60,
		HeartbeatMs:     900000,
		Broker:          "tcp://192.168.1.200:1883",
		HTTPAddr:        ":8080",
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := status.NewTracker(start, testConfig())
	srv := New(":0", tr, 10*time.Millisecond)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
}

func readStatus(t *testing.T, conn *websocket.Conn) status.StatusJSON {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read websocket frame: %v", err)
	}
	var sj status.StatusJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		t.Fatalf("decode websocket frame: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.StateRunning, logic.ButtonReleased, 55, logic.EventCounts{Starts: 5, ButtonStops: 2, ProximityStops: 2})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.State != "RUNNING" {
		t.Errorf("State: got %q, want RUNNING", sj.Status.State)
	}
	if sj.Status.DistanceCm != 55 {
		t.Errorf("DistanceCm: got %d, want 55", sj.Status.DistanceCm)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.Starts != 5 {
		t.Errorf("Counts.Starts: got %d, want 5", sj.Status.Counts.Starts)
	}
	if sj.Status.Counts.ProximityStops != 2 {
		t.Errorf("Counts.ProximityStops: got %d, want 2", sj.Status.Counts.ProximityStops)
	}
	if sj.Status.Config.PollMs != 10 {
		t.Errorf("Config.PollMs: got %d, want 10", sj.Status.Config.PollMs)
	}
	if sj.Status.Config.HTTPAddr != ":8080" {
		t.Errorf("Config.HTTPAddr: got %q", sj.Status.Config.HTTPAddr)
	}
}

func TestJSONUnknownStateBeforeFirstTick(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.State != "UNKNOWN" {
		t.Errorf("State before first tick: got %q, want UNKNOWN", sj.Status.State)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.StateRunning, logic.ButtonAwaitingRelease, 42, logic.EventCounts{Starts: 1})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	for _, want := range []string{"RUNNING", "AWAITING_RELEASE", "42 cm", "/ws"} {
		if !strings.Contains(body.String(), want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.StateIdle, logic.ButtonReleased, 80, logic.EventCounts{})

	get := func() status.StatusJSON {
		resp, err := http.Get(ts.URL + "/index.json")
		if err != nil {
			t.Fatalf("GET /index.json: %v", err)
		}
		defer resp.Body.Close()
		var sj status.StatusJSON
		if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
			t.Fatalf("decode JSON: %v", err)
		}
		return sj
	}

	if sj := get(); sj.Status.State != "IDLE" {
		t.Errorf("State: got %q, want IDLE", sj.Status.State)
	}

	tr.Update(logic.StateRunning, logic.ButtonReleased, 80, logic.EventCounts{Starts: 1})
	tr.SetMQTTConnected(true)

	sj := get()
	if sj.Status.State != "RUNNING" {
		t.Errorf("State: got %q, want RUNNING", sj.Status.State)
	}
	if sj.Status.Counts.Starts != 1 {
		t.Errorf("Counts.Starts: got %d, want 1", sj.Status.Counts.Starts)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

func TestWebsocketPushesStatus(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.StateIdle, logic.ButtonReleased, 90, logic.EventCounts{})

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts.URL), nil)
	if err != nil {
		t.Fatalf("dial /ws: %v", err)
	}
	defer conn.Close()

	first := readStatus(t, conn)
	if first.Status.State != "IDLE" {
		t.Errorf("first frame State: got %q, want IDLE", first.Status.State)
	}
	if first.Status.DistanceCm != 90 {
		t.Errorf("first frame DistanceCm: got %d, want 90", first.Status.DistanceCm)
	}

	tr.Update(logic.StateRunning, logic.ButtonReleased, 30, logic.EventCounts{Starts: 1})

	// Frames are pushed on an interval; wait for one that reflects the update.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sj := readStatus(t, conn)
		if sj.Status.State == "RUNNING" {
			if sj.Status.DistanceCm != 30 {
				t.Errorf("DistanceCm: got %d, want 30", sj.Status.DistanceCm)
			}
			return
		}
	}
	t.Fatal("never received a frame with State=RUNNING")
}

func TestWebsocketRejectsPlainHTTP(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/ws")
	if err != nil {
		t.Fatalf("GET /ws: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestShutdownClosesWebsocketClients(t *testing.T) {
	tr := status.NewTracker(time.Now(), testConfig())
	srv := New(":0", tr, 10*time.Millisecond)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(ln)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial /ws: %v", err)
	}
	defer conn.Close()
	readStatus(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
				t.Errorf("expected going-away close, got %v", err)
			}
			return
		}
	}
}

func TestShutdownTwice(t *testing.T) {
	tr := status.NewTracker(time.Now(), testConfig())
	srv := New(":0", tr, 10*time.Millisecond)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve(ln)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	// The listener may already be gone; only the hook matters here.
	srv.Shutdown(ctx)

	// The shutdown hook runs in its own goroutine; give it time to run
	// before the test ends so a double close would surface here.
	time.Sleep(50 * time.Millisecond)
	select {
	case <-srv.quit:
	default:
		t.Error("expected quit channel to be closed")
	}
}
