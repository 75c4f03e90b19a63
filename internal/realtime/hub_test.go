package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) *Hub {
	t.Helper()

	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = h.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func recv(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		var ev Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestHub_RoomDelivery(t *testing.T) {
	t.Parallel()

	h := startHub(t)
	a := newClient(h, nil, 8)
	b := newClient(h, nil, 8)
	h.add(a)
	h.add(b)

	h.join(a, "curation")
	if ev := recv(t, a); ev.Type != "joined" || ev.Room != "curation" {
		t.Fatalf("ack = %+v", ev)
	}
	h.join(b, "anime:1")
	recv(t, b)

	h.Publish("curation", "curation.updated", map[string]any{"type": "featured"})
	ev := recv(t, a)
	if ev.Type != "curation.updated" || ev.Room != "curation" {
		t.Fatalf("event = %+v", ev)
	}
	select {
	case <-b.send:
		t.Fatal("client outside the room received the event")
	case <-time.After(50 * time.Millisecond):
	}

	h.leave(a, "curation")
	if ev := recv(t, a); ev.Type != "left" {
		t.Fatalf("ack = %+v", ev)
	}
	if h.RoomSize("curation") != 0 {
		t.Fatalf("room size = %d", h.RoomSize("curation"))
	}
}

func TestHub_SlowClientDropped(t *testing.T) {
	t.Parallel()

	h := startHub(t)
	slow := newClient(h, nil, 1)
	h.add(slow)
	h.join(slow, "r")
	waitFor(t, func() bool { return h.RoomSize("r") == 1 })

	// the join ack fills the buffer, so the next event overflows it
	h.Publish("r", "x", nil)
	waitFor(t, func() bool { return h.ClientCount() == 0 })
	if h.RoomSize("r") != 0 {
		t.Fatal("dropped client still in room")
	}
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	t.Parallel()

	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- h.Serve(ctx) }()

	c := newClient(h, nil, 4)
	h.add(c)
	cancel()
	if err := <-stopped; err != context.Canceled {
		t.Fatalf("Serve returned %v", err)
	}

	for range c.send {
	}
	if h.add(newClient(h, nil, 1)) {
		t.Fatal("add must fail after stop")
	}
}

func TestHandler_WebsocketRoundTrip(t *testing.T) {
	t.Parallel()

	h := startHub(t)
	srv := httptest.NewServer(NewHandler(h, []string{"*"}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?room=curation"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() Event {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		return ev
	}

	if ev := read(); ev.Type != "joined" || ev.Room != "curation" {
		t.Fatalf("first frame = %+v", ev)
	}

	if err := conn.WriteJSON(Frame{Action: "join", Room: "anime:abc"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ev := read(); ev.Type != "joined" || ev.Room != "anime:abc" {
		t.Fatalf("join ack = %+v", ev)
	}

	h.Publish("anime:abc", "anime.rated", map[string]any{"value": 5})
	if ev := read(); ev.Type != "anime.rated" {
		t.Fatalf("event = %+v", ev)
	}

	if err := conn.WriteJSON(Frame{Action: "dance"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ev := read(); ev.Type != "error" {
		t.Fatalf("want error frame, got %+v", ev)
	}
}
