package broadcast

import (
	"sort"
	"sync"

	"github.com/go-monolith/mono/pkg/types"
)

// Envelope is the frame delivered to clients.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Sender delivers envelopes to one live connection.
// Send must not block.
type Sender interface {
	ID() string
	Send(env Envelope) error
}

// Hub tracks live connections and the topics they are subscribed to.
type Hub struct {
	clients map[string]Sender              // connID -> Sender
	topics  map[string]map[string]struct{} // topic -> set of connIDs
	mu      sync.RWMutex
	logger  types.Logger
}

// NewHub creates a new Hub.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		clients: make(map[string]Sender),
		topics:  make(map[string]map[string]struct{}),
		logger:  logger,
	}
}

// Register adds a connection with no topic memberships.
func (h *Hub) Register(s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[s.ID()] = s
}

// Unregister removes a connection and drops it from every topic.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, connID)
	for topic, members := range h.topics {
		if _, ok := members[connID]; ok {
			h.removeLocked(topic, connID)
		}
	}
}

// Join subscribes a registered connection to topic.
func (h *Hub) Join(connID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[connID]; !ok {
		return
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]struct{})
	}
	h.topics[topic][connID] = struct{}{}
}

// Leave unsubscribes a connection from topic.
func (h *Hub) Leave(connID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(topic, connID)
}

func (h *Hub) removeLocked(topic, connID string) {
	members, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.topics, topic)
	}
}

// Drop removes every member from topic.
func (h *Hub) Drop(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.topics, topic)
}

// Publish delivers an event to the current members of topic.
// Publishing to an empty topic is a no-op.
func (h *Hub) Publish(topic, event string, payload any) {
	h.mu.RLock()
	members := h.topics[topic]
	targets := make([]Sender, 0, len(members))
	for connID := range members {
		if s, ok := h.clients[connID]; ok {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	env := Envelope{Type: event, Payload: payload}
	for _, s := range targets {
		if err := s.Send(env); err != nil {
			h.logger.Debug("Dropped event", "topic", topic, "event", event, "conn", s.ID(), "error", err)
		}
	}
}

// SendTo delivers an event to a single connection.
func (h *Hub) SendTo(connID, event string, payload any) {
	h.mu.RLock()
	s, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := s.Send(Envelope{Type: event, Payload: payload}); err != nil {
		h.logger.Debug("Dropped event", "event", event, "conn", connID, "error", err)
	}
}

// IsMember reports whether connID is subscribed to topic.
func (h *Hub) IsMember(connID, topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.topics[topic][connID]
	return ok
}

// Members returns the sorted connection IDs subscribed to topic.
func (h *Hub) Members(topic string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.topics[topic]))
	for connID := range h.topics[topic] {
		ids = append(ids, connID)
	}
	sort.Strings(ids)
	return ids
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TopicCount returns the number of non-empty topics.
func (h *Hub) TopicCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics)
}

// Closer is implemented by senders that own a network connection.
type Closer interface {
	Close()
}

// CloseAll closes every connection and clears all state.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]Sender)
	h.topics = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, s := range clients {
		if c, ok := s.(Closer); ok {
			c.Close()
		}
	}
}
