package directory

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module owns the directory database for the lifetime of the application.
type Module struct {
	store  *GormStore
	dbPath string
	logger types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a directory module around an opened store.
func NewModule(store *GormStore, dbPath string, logger types.Logger) *Module {
	return &Module{
		store:  store,
		dbPath: dbPath,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "directory"
}

// Start migrates the schema.
func (m *Module) Start(_ context.Context) error {
	if m.store == nil {
		return fmt.Errorf("directory store not set")
	}
	if err := m.store.Migrate(); err != nil {
		return err
	}
	m.logger.Info("Directory module started", "database", m.dbPath)
	return nil
}

// Stop closes the database.
func (m *Module) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Close(); err != nil {
		m.logger.Warn("Failed to close database", "error", err)
	}
	m.logger.Info("Directory module stopped")
	return nil
}

// Health pings the database.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	if err := m.store.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.dbPath,
		},
	}
}

// Store returns the directory store.
func (m *Module) Store() *GormStore {
	return m.store
}
