package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the deadline for a single websocket write.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for the client's pong before the
	// connection is considered dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	sendBufferSize = 64
)

// DisconnectHandler is called when a client's connection drops, before the
// client is unregistered.
type DisconnectHandler func(*Client)

// Client is one connected participant's websocket handle.
// DisplayName and declared SenderID are set by the synchronizer on join;
// they are only touched from the connection's read goroutine.
type Client struct {
	ID          string
	DisplayName string
	SenderID    string

	hub  *Hub
	conn *websocket.Conn

	// sendMu guards send and closed. The read goroutine enqueues snapshots
	// and error notices directly, so closing the channel on eviction must be
	// ordered against those sends or they panic.
	sendMu sync.Mutex
	send   chan []byte
	closed bool

	disconnect DisconnectHandler
}

// SetDisconnectHandler sets the handler invoked when the connection drops.
func (c *Client) SetDisconnectHandler(handler DisconnectHandler) {
	c.disconnect = handler
}

// Send queues a message for delivery on the client's connection. Messages to
// a client whose buffer is full are dropped along with the client; broadcasts
// are fire-and-forget by design.
func (c *Client) Send(message any) {
	data, err := json.Marshal(message)
	if err != nil {
		return
	}
	c.enqueue(data)
}

// enqueue queues raw bytes without blocking. After the hub has evicted the
// client it is a no-op.
func (c *Client) enqueue(data []byte) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		go c.hub.drop(c)
	}
}

// closeSend marks the client evicted and closes its send channel, exactly
// once. Called only from the hub's Run goroutine.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// broadcast is one fan-out unit: a payload for every member of a session,
// optionally excluding the originating connection.
type broadcast struct {
	session ID
	payload []byte
	exclude string
}

// Hub owns every websocket connection and the session membership map. All
// registration and fan-out flows through its Run loop.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	sessions map[ID]map[string]*Client
	// membership tracks which sessions each connection joined, so a dropped
	// connection can be detached from all of them.
	membership map[string]map[ID]struct{}

	register   chan *Client
	unregister chan *Client
	outbound   chan broadcast

	// done is closed when Run exits so pump teardown never blocks on a
	// stopped hub.
	done chan struct{}

	log *slog.Logger
}

// NewHub returns an empty hub. Call Run before registering clients.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		sessions:   make(map[ID]map[string]*Client),
		membership: make(map[string]map[ID]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan broadcast, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// NewClient wraps an upgraded websocket connection. The caller starts the
// pumps with Start.
func (h *Hub) NewClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		ID:   id,
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// Run drives registration, unregistration, and fan-out until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.log.Debug("client registered", slog.String("client_id", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for id, members := range h.sessions {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.sessions, id)
					}
				}
				delete(h.membership, client.ID)
				delete(h.clients, client.ID)
				client.closeSend()
			}
			h.mu.Unlock()
			h.log.Debug("client unregistered", slog.String("client_id", client.ID))

		case msg := <-h.outbound:
			h.mu.RLock()
			for clientID, client := range h.sessions[msg.session] {
				if clientID == msg.exclude {
					continue
				}
				client.enqueue(msg.payload)
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// JoinSession adds a client to a session's membership.
func (h *Hub) JoinSession(client *Client, id ID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[id]; !ok {
		h.sessions[id] = make(map[string]*Client)
	}
	h.sessions[id][client.ID] = client

	if _, ok := h.membership[client.ID]; !ok {
		h.membership[client.ID] = make(map[ID]struct{})
	}
	h.membership[client.ID][id] = struct{}{}
}

// LeaveSession removes a client from a session's membership.
func (h *Hub) LeaveSession(client *Client, id ID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.sessions[id]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.sessions, id)
		}
	}
	if joined, ok := h.membership[client.ID]; ok {
		delete(joined, id)
	}
}

// SessionsOf returns the sessions the client currently belongs to.
func (h *Hub) SessionsOf(client *Client) []ID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]ID, 0, len(h.membership[client.ID]))
	for id := range h.membership[client.ID] {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast fans a message out to every member of a session. exclude names a
// connection id to skip, or "" for the whole session. Delivery is
// fire-and-forget: no acknowledgment and no cross-connection ordering.
func (h *Hub) Broadcast(id ID, message any, exclude string) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("marshal broadcast failed", slog.String("error", err.Error()))
		return
	}
	select {
	case h.outbound <- broadcast{session: id, payload: data, exclude: exclude}:
	case <-h.done:
	}
}

func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Start launches the client's read and write pumps. handler receives every
// inbound message; it runs on the connection's read goroutine, so events from
// one participant are processed in order.
func (c *Client) Start(handler func(*Client, []byte)) {
	go c.writePump()
	go c.readPump(handler)
}

func (c *Client) readPump(handler func(*Client, []byte)) {
	defer func() {
		if c.disconnect != nil {
			c.disconnect(c)
		}
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket read error",
					slog.String("client_id", c.ID),
					slog.String("error", err.Error()))
			}
			return
		}
		handler(c, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
