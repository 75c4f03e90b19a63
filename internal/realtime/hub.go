// Package realtime fans events out to websocket clients grouped in named
// rooms. Delivery is at most once: nothing is stored, and a client whose
// send buffer is full is disconnected rather than waited on.
package realtime

import (
	"context"
	"sync"
	"time"

	"animaaz/internal/logging"
	"animaaz/internal/metrics"

	json "github.com/goccy/go-json"
)

const (
	broadcastBuffer = 256
	maxRoomName     = 128
)

// Event is the frame sent to subscribers.
type Event struct {
	Type string    `json:"type"`
	Room string    `json:"room,omitempty"`
	Data any       `json:"data,omitempty"`
	At   time.Time `json:"at"`
}

type op int

const (
	opJoin op = iota
	opLeave
	opReply
)

// command is a client request handled on the hub goroutine, which is the
// only writer of client send channels.
type command struct {
	op     op
	client *Client
	room   string
	reply  Event
}

type Hub struct {
	register   chan *Client
	unregister chan *Client
	cmds       chan command
	broadcast  chan Event
	done       chan struct{}
	stopOnce   sync.Once

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		cmds:       make(chan command, 64),
		broadcast:  make(chan Event, broadcastBuffer),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
	}
}

// String names the hub in supervisor logs.
func (h *Hub) String() string { return "realtime-hub" }

// Serve runs the hub loop until ctx is cancelled, then disconnects every
// client.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			n := h.closeAll()
			logging.Info().Str("component", "realtime-hub").Int("clients_closed", n).Msg("realtime hub stopped")
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.RealtimeClients.Set(float64(total))
			logging.Debug().Int("total_clients", total).Msg("realtime client connected")

		case c := <-h.unregister:
			h.drop(c)

		case cmd := <-h.cmds:
			h.apply(cmd)

		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

// Publish queues an event for every subscriber of room. It never blocks;
// when the queue is full the event is dropped.
func (h *Hub) Publish(room, eventType string, data any) {
	ev := Event{Type: eventType, Room: room, Data: data, At: time.Now().UTC()}
	select {
	case h.broadcast <- ev:
		metrics.RealtimeEvents.WithLabelValues(eventType).Inc()
	default:
		logging.Warn().Str("room", room).Str("type", eventType).Msg("realtime queue full, event dropped")
	}
}

// RoomSize reports the number of subscribers of room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// The helpers below give up once the hub has stopped so client goroutines
// never block on a dead loop.

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) submit(cmd command) {
	select {
	case h.cmds <- cmd:
	case <-h.done:
	}
}

func (h *Hub) join(c *Client, room string) {
	h.submit(command{op: opJoin, client: c, room: room})
}

func (h *Hub) leave(c *Client, room string) {
	h.submit(command{op: opLeave, client: c, room: room})
}

func (h *Hub) reply(c *Client, ev Event) {
	h.submit(command{op: opReply, client: c, reply: ev})
}

func (h *Hub) apply(cmd command) {
	h.mu.Lock()
	if _, ok := h.clients[cmd.client]; !ok {
		h.mu.Unlock()
		return
	}
	ev := cmd.reply
	switch cmd.op {
	case opJoin:
		members, ok := h.rooms[cmd.room]
		if !ok {
			members = make(map[*Client]struct{})
			h.rooms[cmd.room] = members
		}
		members[cmd.client] = struct{}{}
		cmd.client.rooms[cmd.room] = struct{}{}
		ev = Event{Type: "joined", Room: cmd.room}
	case opLeave:
		h.removeFromRoomLocked(cmd.client, cmd.room)
		ev = Event{Type: "left", Room: cmd.room}
	}
	h.mu.Unlock()

	ev.At = time.Now().UTC()
	h.sendTo(cmd.client, ev)
}

func (h *Hub) deliver(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		logging.Error().Err(err).Str("type", ev.Type).Msg("encode realtime event")
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[ev.Room]))
	for c := range h.rooms[ev.Room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		select {
		case c.send <- payload:
		default:
			logging.Warn().Uint64("client", c.id).Msg("realtime client too slow, disconnecting")
			h.drop(c)
		}
	}
}

func (h *Hub) sendTo(c *Client, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
		h.drop(c)
	}
}

// drop removes c from every room and closes its send channel once.
func (h *Hub) drop(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	for room := range c.rooms {
		h.removeFromRoomLocked(c, room)
	}
	delete(h.clients, c)
	close(c.send)
	total := len(h.clients)
	h.mu.Unlock()

	metrics.RealtimeClients.Set(float64(total))
}

func (h *Hub) removeFromRoomLocked(c *Client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) closeAll() int {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.drop(c)
	}
	return len(clients)
}

func validRoom(room string) bool {
	return room != "" && len(room) <= maxRoomName
}
