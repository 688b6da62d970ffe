package broadcast

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module owns the connection registry and topic fanout.
type Module struct {
	hub      *Hub
	registry *Registry
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new broadcast module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		hub:      NewHub(logger),
		registry: NewRegistry(),
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Broadcast module started")
	return nil
}

// Stop closes every live connection.
func (m *Module) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	m.hub.CloseAll()
	m.logger.Info("Broadcast module stopped", "connected_clients", clientCount)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
			"active_topics":     m.hub.TopicCount(),
			"registered_conns":  m.registry.Len(),
		},
	}
}

// Hub returns the topic fanout hub.
func (m *Module) Hub() *Hub {
	return m.hub
}

// Registry returns the connection registry.
func (m *Module) Registry() *Registry {
	return m.registry
}
