package api

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/speedwagon-io/xrgimon/internal/collector"
	"github.com/speedwagon-io/xrgimon/internal/config"
	"github.com/speedwagon-io/xrgimon/internal/dashboard"
	"github.com/speedwagon-io/xrgimon/internal/display"
	"github.com/speedwagon-io/xrgimon/internal/lib/logger/sl"
	"github.com/speedwagon-io/xrgimon/internal/window"
)

const (
	// Client to server.
	MessageSelect = "select"
	MessageClose  = "close"
	MessagePing   = "ping"

	// Server to client.
	MessageDashboard = "dashboard"
	MessageHistory   = "history"
	MessageError     = "error"
	MessagePong      = "pong"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

type Message struct {
	Type      string    `json:"type"`
	DeviceID  string    `json:"device_id,omitempty"`
	Preset    string    `json:"preset,omitempty"`
	Year      string    `json:"year,omitempty"`
	Start     string    `json:"start,omitempty"`
	End       string    `json:"end,omitempty"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type client struct {
	id          string
	conn        *websocket.Conn
	send        chan Message
	controllers map[string]*dashboard.Controller

	// Dashboard views bypass send. pending holds the newest unsent view per
	// device and is never dropped.
	mu      sync.Mutex
	pending map[string]Message
	wake    chan struct{}
}

// Hub serves live dashboards. Each connection gets its own controller per
// device, so a viewer switching filters only supersedes its own fetches.
type Hub struct {
	log      *slog.Logger
	fleet    *config.FleetConfig
	fetcher  collector.Fetcher
	resolver *window.Resolver
	cards    *display.Normalizer
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]*client
}

func NewHub(
	log *slog.Logger,
	fleet *config.FleetConfig,
	fetcher collector.Fetcher,
	resolver *window.Resolver,
	cards *display.Normalizer,
) *Hub {
	return &Hub{
		log:      log,
		fleet:    fleet,
		fetcher:  fetcher,
		resolver: resolver,
		cards:    cards,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients: make(map[string]*client),
	}
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", sl.Err(err))
		return
	}

	c := &client{
		id:          uuid.NewString(),
		conn:        conn,
		send:        make(chan Message, sendBuffer),
		controllers: make(map[string]*dashboard.Controller),
		pending:     make(map[string]Message),
		wake:        make(chan struct{}, 1),
	}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

// Broadcast sends msg to every connected client. Clients whose buffer is full
// miss the message.
func (h *Hub) Broadcast(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Debug("client send buffer full", slog.String("client", c.id))
		}
	}
}

// NotifyRefresh forwards a rebuilt history to every client.
func (h *Hub) NotifyRefresh(r collector.Refresh) {
	h.Broadcast(Message{Type: MessageHistory, Data: r})
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close drops every connection. Each read loop then cleans up its client.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		c.conn.Close()
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("client connected", slog.String("client", c.id), slog.Int("total", total))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("client disconnected", slog.String("client", c.id), slog.Int("total", total))
}

func (h *Hub) readPump(c *client) {
	ctx, cancel := context.WithCancel(context.Background())

	defer func() {
		cancel()
		// Controllers must be closed before send is, since their
		// callbacks write to it.
		for _, ctrl := range c.controllers {
			ctrl.Close()
		}
		h.unregister(c)
		c.conn.Close()
	}()

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", slog.String("client", c.id), sl.Err(err))
			}
			return
		}

		switch msg.Type {
		case MessageSelect:
			h.handleSelect(ctx, c, msg)
		case MessageClose:
			if ctrl, ok := c.controllers[msg.DeviceID]; ok {
				ctrl.Close()
				delete(c.controllers, msg.DeviceID)
			}
		case MessagePing:
			c.enqueue(h.log, Message{Type: MessagePong})
		default:
			c.enqueue(h.log, Message{Type: MessageError, Error: "unknown message type " + msg.Type})
		}
	}
}

func (h *Hub) handleSelect(ctx context.Context, c *client, msg Message) {
	if _, ok := h.fleet.Device(msg.DeviceID); !ok {
		c.enqueue(h.log, Message{Type: MessageError, DeviceID: msg.DeviceID, Error: "unknown device"})
		return
	}

	preset, err := window.ParsePreset(msg.Preset, msg.Year, msg.Start, msg.End, h.resolver.Location())
	if err != nil {
		c.enqueue(h.log, Message{Type: MessageError, DeviceID: msg.DeviceID, Error: err.Error()})
		return
	}

	ctrl, ok := c.controllers[msg.DeviceID]
	if !ok {
		deviceID := msg.DeviceID
		ctrl = dashboard.NewController(h.log, h.fetcher, h.resolver, h.cards, deviceID, func(v dashboard.View) {
			c.pushDashboard(Message{Type: MessageDashboard, DeviceID: deviceID, Data: v})
		})
		c.controllers[deviceID] = ctrl
	}

	if _, err := ctrl.Select(ctx, preset); err != nil {
		c.enqueue(h.log, Message{Type: MessageError, DeviceID: msg.DeviceID, Error: err.Error()})
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.log.Debug("websocket write failed", slog.String("client", c.id), sl.Err(err))
				return
			}

		case <-c.wake:
			for _, msg := range c.takeDashboards() {
				c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := c.conn.WriteJSON(msg); err != nil {
					h.log.Debug("websocket write failed", slog.String("client", c.id), sl.Err(err))
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) enqueue(log *slog.Logger, msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	select {
	case c.send <- msg:
	default:
		log.Debug("client send buffer full", slog.String("client", c.id))
	}
}

// pushDashboard replaces any unsent view of the same device.
func (c *client) pushDashboard(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	c.mu.Lock()
	c.pending[msg.DeviceID] = msg
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *client) takeDashboards() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, 0, len(c.pending))
	for id, msg := range c.pending {
		out = append(out, msg)
		delete(c.pending, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}
