package realtime

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"animaaz/internal/logging"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64

	// clients may change subscriptions a few times per second
	frameRate  = 5
	frameBurst = 10
)

var clientIDCounter atomic.Uint64

// Frame is a message sent by a client.
type Frame struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

type Client struct {
	id      uint64
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	rooms   map[string]struct{}
	limiter *rate.Limiter
}

func newClient(hub *Hub, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		id:      clientIDCounter.Add(1),
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, buffer),
		rooms:   make(map[string]struct{}),
		limiter: rate.NewLimiter(rate.Limit(frameRate), frameBurst),
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Uint64("client", c.id).Msg("unexpected websocket close")
			}
			return
		}

		if !c.limiter.Allow() {
			c.reply(Event{Type: "error", Data: "rate limited"})
			continue
		}

		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.reply(Event{Type: "error", Data: "invalid frame"})
			continue
		}
		room := strings.TrimSpace(f.Room)

		switch f.Action {
		case "join":
			if !validRoom(room) {
				c.reply(Event{Type: "error", Data: "invalid room"})
				continue
			}
			c.hub.join(c, room)
		case "leave":
			c.hub.leave(c, room)
		case "ping":
			c.reply(Event{Type: "pong"})
		default:
			c.reply(Event{Type: "error", Data: "unknown action"})
		}
	}
}

func (c *Client) reply(ev Event) {
	c.hub.reply(c, ev)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Handler upgrades GET /ws. Rooms named in ?room= are joined right away;
// more can be joined or left with {"action":"join"|"leave","room":"..."}.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler accepts connections from the given origins; "*" allows any.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
	}
}

// ServeHTTP godoc
// @Summary      Realtime events
// @Description  Websocket upgrade. Join rooms with ?room=curation&room=anime:<id>.
// @Tags         realtime
// @Param        room  query  []string  false  "rooms to join"  collectionFormat(multi)
// @Success      101
// @Router       /ws [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newClient(h.hub, conn, sendBuffer)
	if !h.hub.add(c) {
		_ = conn.Close()
		return
	}
	go c.writePump()

	for _, room := range r.URL.Query()["room"] {
		if room = strings.TrimSpace(room); validRoom(room) {
			h.hub.join(c, room)
		}
	}
	go c.readPump()
}
