package broadcast

import (
	"sync"

	"github.com/example/moderated-room/domain/room"
)

// Binding is what a connection negotiated when it joined a room.
type Binding struct {
	RoomCode string
	Role     room.Role
	UserID   string
}

// Bound reports whether the connection has completed a join.
func (b Binding) Bound() bool {
	return b.RoomCode != ""
}

// Registry maps live connections to their room bindings.
type Registry struct {
	conns map[string]Binding
	mu    sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Binding)}
}

// Register records a new connection with no binding.
func (r *Registry) Register(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[connID]; !ok {
		r.conns[connID] = Binding{}
	}
}

// Bind sets the connection's binding, replacing and returning any previous one.
func (r *Registry) Bind(connID string, b Binding) Binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.conns[connID]
	r.conns[connID] = b
	return prev
}

// Reset clears the binding but keeps the connection registered.
func (r *Registry) Reset(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[connID]; ok {
		r.conns[connID] = Binding{}
	}
}

// Unbind forgets the connection and returns its last binding.
func (r *Registry) Unbind(connID string) (Binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.conns[connID]
	delete(r.conns, connID)
	return b, ok
}

// Lookup returns the connection's current binding.
func (r *Registry) Lookup(connID string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.conns[connID]
	return b, ok
}

// FindByUser returns the connections bound to userID.
func (r *Registry) FindByUser(userID string) []string {
	if userID == "" {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for connID, b := range r.conns {
		if b.UserID == userID {
			ids = append(ids, connID)
		}
	}
	return ids
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
