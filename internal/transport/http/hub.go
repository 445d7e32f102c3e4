package http

import (
	"encoding/json"
	"sync"

	"live-quiz-engine/internal/app"

	"go.uber.org/zap"
)

// Hub tracks live websocket clients and per-quiz broadcast groups. It
// implements app.Broadcaster.
type Hub struct {
	log *zap.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	groups  map[string]map[string]struct{}
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:     log,
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

// Unregister forgets the client, removes it from every group and closes its send channel.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	delete(h.clients, connID)
	for quizID, members := range h.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, quizID)
		}
	}
	close(c.send)
}

func (h *Hub) JoinGroup(quizID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	members, ok := h.groups[quizID]
	if !ok {
		members = make(map[string]struct{})
		h.groups[quizID] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) DissolveGroup(quizID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := h.groups[quizID]
	delete(h.groups, quizID)
	out := make([]string, 0, len(members))
	for connID := range members {
		out = append(out, connID)
	}
	return out
}

func (h *Hub) NotifyFormer(quizID string, connIDs []string, msg app.Message) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	current := h.groups[quizID]
	for _, connID := range connIDs {
		if _, rejoined := current[connID]; rejoined {
			continue
		}
		if c, ok := h.clients[connID]; ok {
			h.deliver(c, data, msg.Type)
		}
	}
}

func (h *Hub) Unicast(connID string, msg app.Message) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.deliver(c, data, msg.Type)
	}
}

func (h *Hub) Broadcast(quizID string, msg app.Message) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.groups[quizID] {
		if c, ok := h.clients[connID]; ok {
			h.deliver(c, data, msg.Type)
		}
	}
}

func (h *Hub) BroadcastAll(msg app.Message) {
	data, ok := h.encode(msg)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.deliver(c, data, msg.Type)
	}
}

// deliver must be called with h.mu held so the send channel cannot be closed underneath it.
func (h *Hub) deliver(c *Client, data []byte, typ string) {
	select {
	case c.send <- data:
	default:
		h.log.Warn("client send buffer full, dropping message",
			zap.String("connId", c.id), zap.String("type", typ))
	}
}

func (h *Hub) encode(msg app.Message) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("encode outbound message", zap.String("type", msg.Type), zap.Error(err))
		return nil, false
	}
	return data, true
}
