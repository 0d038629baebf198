package http

import "sync"

// Role identifies the class of a connected client.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleHost        Role = "host"
	RoleDisplay     Role = "display"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type client struct {
	connID string
	role   Role
	send   chan outboundMessage
}

// Hub tracks connected clients and multicasts messages per role group. The
// websocket handler owns the per-connection writer goroutines; the hub only
// pushes onto their buffered send channels.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	byConn  map[string]*client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		byConn:  make(map[string]*client),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.byConn[c.connID] = c
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		delete(h.byConn, c.connID)
		close(c.send)
	}
	h.mu.Unlock()
}

func (h *Hub) setRole(c *client, r Role) {
	h.mu.Lock()
	c.role = r
	h.mu.Unlock()
}

// Broadcast sends to every connected client.
func (h *Hub) Broadcast(typ string, payload any) {
	msg := outboundMessage{Type: typ, Payload: payload}
	h.mu.RLock()
	for c := range h.clients {
		push(c.send, msg)
	}
	h.mu.RUnlock()
}

// BroadcastTo sends to every client in one role group.
func (h *Hub) BroadcastTo(r Role, typ string, payload any) {
	msg := outboundMessage{Type: typ, Payload: payload}
	h.mu.RLock()
	for c := range h.clients {
		if c.role == r {
			push(c.send, msg)
		}
	}
	h.mu.RUnlock()
}

// SendTo sends to the client bound to one connection id. The push stays
// inside the critical section: unregister closes the send channel under the
// write lock, so a send after releasing the read lock could hit a closed
// channel.
func (h *Hub) SendTo(connID, typ string, payload any) {
	h.mu.RLock()
	if c, ok := h.byConn[connID]; ok {
		push(c.send, outboundMessage{Type: typ, Payload: payload})
	}
	h.mu.RUnlock()
}

// push never blocks the broadcast path: when a client's buffer is full the
// oldest pending message is dropped to make room.
func push(ch chan outboundMessage, msg outboundMessage) {
	select {
	case ch <- msg:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- msg:
		default:
		}
	}
}
