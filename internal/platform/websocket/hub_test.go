package websocket

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHub() *Hub { return NewHub(zerolog.Nop()) }

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := newTestHub()
	client := NewClient()
	client.Topics = []string{"emergency/1", "emergency/1", "patient/9"}

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.TopicCount("emergency/1") != 1 || len(client.Topics) != 2 {
		t.Fatalf("expected deduplicated subscription, topics=%v", client.Topics)
	}

	hub.Unregister(client)
	hub.Unregister(client)
	if hub.ClientCount() != 0 || hub.TopicCount("emergency/1") != 0 {
		t.Fatalf("expected hub to be empty after unregister")
	}
	if _, ok := <-client.Send; ok {
		t.Error("expected Send channel to be closed")
	}
}

func TestHub_BroadcastOnlyToTopic(t *testing.T) {
	hub := newTestHub()
	a, b := NewClient(), NewClient()
	a.Topics = []string{"emergency/1"}
	b.Topics = []string{"emergency/2"}
	hub.Register(a)
	hub.Register(b)

	evt, err := NewEvent("emergency.status", "emergency/1", "EmergencyRequest", "1", map[string]string{"status": "dispatched"})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	hub.Broadcast("emergency/1", evt)

	select {
	case data := <-a.Send:
		var got Event
		json.Unmarshal(data, &got)
		if got.Type != "emergency.status" || got.ResourceID != "1" {
			t.Errorf("unexpected event %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
	select {
	case <-b.Send:
		t.Error("non-subscriber received event")
	default:
	}
}

func TestHub_FullBufferDoesNotBlock(t *testing.T) {
	hub := newTestHub()
	c := &Client{ID: "slow", Send: make(chan []byte, 1), Topics: []string{"t"}}
	hub.Register(c)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Broadcast("t", Event{Type: "x", Topic: "t"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client buffer")
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := newTestHub()
	c := NewClient()
	hub.Register(c)
	hub.Subscribe(c, []string{"a", "b"})
	hub.Unsubscribe(c, []string{"a"})

	if hub.TopicCount("a") != 0 || hub.TopicCount("b") != 1 {
		t.Errorf("unexpected counts a=%d b=%d", hub.TopicCount("a"), hub.TopicCount("b"))
	}
	if len(c.Topics) != 1 || c.Topics[0] != "b" {
		t.Errorf("unexpected client topics %v", c.Topics)
	}
}

func TestHub_ConcurrentRegisterUnregister(t *testing.T) {
	hub := newTestHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := NewClient()
			c.Topics = []string{"shared"}
			hub.Register(c)
			hub.Broadcast("shared", Event{Type: "x"})
			hub.Unregister(c)
		}()
	}
	wg.Wait()
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestAllowed_FiltersTopics(t *testing.T) {
	auth := func(_ context.Context, topic string) bool { return strings.HasPrefix(topic, "patient/1") }
	got := allowed(context.Background(), auth, []string{"patient/1", " ", "patient/2"})
	if len(got) != 1 || got[0] != "patient/1" {
		t.Errorf("unexpected topics %v", got)
	}
}

func TestWebSocketHandler_SubscribeAndReceive(t *testing.T) {
	hub := newTestHub()
	authorize := func(_ context.Context, topic string) bool { return topic != "emergency/forbidden" }
	handler := NewWebSocketHandler(hub, authorize, nil, zerolog.Nop())

	e := echo.New()
	handler.RegisterRoutes(e.Group(""))
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	if err := conn.WriteJSON(ClientMessage{Action: "subscribe", Topics: []string{"emergency/abc", "emergency/forbidden"}}); err != nil {
		t.Fatalf("failed to send subscribe: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.TopicCount("emergency/abc") != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.TopicCount("emergency/abc") != 1 {
		t.Fatal("expected subscription to be registered")
	}
	if hub.TopicCount("emergency/forbidden") != 0 {
		t.Fatal("unauthorized topic must not be subscribed")
	}

	hub.Broadcast("emergency/abc", Event{Type: "emergency.position", Topic: "emergency/abc", ResourceID: "abc"})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var received Event
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if received.Type != "emergency.position" || received.ResourceID != "abc" {
		t.Fatalf("unexpected event %+v", received)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Error("expected client to be unregistered after disconnect")
	}
}

func TestServeSSE_SnapshotThenEventsUntilStop(t *testing.T) {
	hub := newTestHub()
	e := echo.New()
	e.GET("/stream", func(c echo.Context) error {
		snap := func() (*Event, error) { return &Event{Type: "emergency.snapshot", Topic: "emergency/1"}, nil }
		return ServeSSE(c, hub, "emergency/1", snap, func(evt Event) bool { return evt.Type == "emergency.closed" })
	})
	server := httptest.NewServer(e)
	defer server.Close()

	resp, err := http.Get(server.URL + "/stream")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if strings.HasPrefix(line, "event: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
			}
		}
	}

	if got := readEvent(); got != "emergency.snapshot" {
		t.Fatalf("expected snapshot first, got %s", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.TopicCount("emergency/1") != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	hub.Broadcast("emergency/1", Event{Type: "emergency.status", Topic: "emergency/1"})
	hub.Broadcast("emergency/1", Event{Type: "emergency.closed", Topic: "emergency/1"})

	if got := readEvent(); got != "emergency.status" {
		t.Fatalf("expected status event, got %s", got)
	}
	if got := readEvent(); got != "emergency.closed" {
		t.Fatalf("expected closing event, got %s", got)
	}

	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Error("expected SSE client to be unregistered when the stream ends")
	}
}

func TestServeSSE_UpdateDuringSnapshotIsDelivered(t *testing.T) {
	hub := newTestHub()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	// The terminal update lands while the snapshot is being built.
	snap := func() (*Event, error) {
		if hub.TopicCount("emergency/1") != 1 {
			t.Error("expected the stream to be subscribed before the snapshot")
		}
		hub.Broadcast("emergency/1", Event{Type: "emergency.closed", Topic: "emergency/1"})
		return &Event{Type: "emergency.snapshot", Topic: "emergency/1"}, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- ServeSSE(c, hub, "emergency/1", snap, func(evt Event) bool { return evt.Type == "emergency.closed" })
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end on the update published during the snapshot")
	}

	body := rec.Body.String()
	first, last := strings.Index(body, "event: emergency.snapshot"), strings.Index(body, "event: emergency.closed")
	if first < 0 || last < first {
		t.Errorf("expected snapshot then closing event, got %q", body)
	}
}

func TestServeSSE_SnapshotErrorSendsNothing(t *testing.T) {
	hub := newTestHub()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/stream", nil), rec)

	want := echo.NewHTTPError(http.StatusNotFound, "gone")
	err := ServeSSE(c, hub, "emergency/1", func() (*Event, error) { return nil, want }, nil)
	if err != want {
		t.Fatalf("expected the snapshot error, got %v", err)
	}
	if c.Response().Committed || hub.ClientCount() != 0 {
		t.Errorf("expected no response and no client, committed=%v clients=%d", c.Response().Committed, hub.ClientCount())
	}
}

func TestServeSSE_SkipsUndecodableFrames(t *testing.T) {
	hub := newTestHub()
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/stream", nil), rec)

	snap := func() (*Event, error) {
		hub.mu.RLock()
		for client := range hub.clients["emergency/1"] {
			client.Send <- []byte("not json")
		}
		hub.mu.RUnlock()
		hub.Broadcast("emergency/1", Event{Type: "emergency.closed", Topic: "emergency/1"})
		return nil, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- ServeSSE(c, hub, "emergency/1", snap, func(evt Event) bool { return evt.Type == "emergency.closed" })
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end")
	}

	body := rec.Body.String()
	if strings.Contains(body, "not json") {
		t.Errorf("undecodable frame was written: %q", body)
	}
	if !strings.Contains(body, "event: emergency.closed") {
		t.Errorf("expected the valid event after the bad frame, got %q", body)
	}
}
