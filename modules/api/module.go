package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/moderated-room/config"
	"github.com/example/moderated-room/modules/audit"
	"github.com/example/moderated-room/modules/broadcast"
	"github.com/example/moderated-room/modules/session"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Realtime is the coordinator surface driven by websocket events.
type Realtime interface {
	Connect(s broadcast.Sender)
	Binding(connID string) (broadcast.Binding, bool)
	HandleJoin(ctx context.Context, connID string, req session.JoinRequest) error
	HandleSend(ctx context.Context, req session.SendRequest) error
	ApproveMessage(ctx context.Context, messageID string) error
	ApproveUser(ctx context.Context, userID string) error
	KickUser(ctx context.Context, userID, roomCodeHint string) error
	DeleteRoom(ctx context.Context, roomCode string) error
	HandleLeave(ctx context.Context, connID, userID, roomCodeHint string) error
	GetPendingMessages(ctx context.Context, connID, roomCode string) error
	HandleDisconnect(ctx context.Context, connID string) error
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	app      *fiber.App
	session  session.SessionPort
	realtime Realtime
	hub      *broadcast.Hub
	trail    *audit.Trail
	cfg      config.Config
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg config.Config, logger types.Logger) *APIModule {
	return &APIModule{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"session"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "session":
		m.session = session.NewSessionAdapter(container)
	}
}

// SetRealtime sets the coordinator and hub used by the websocket endpoint
// (called from main.go, neither is exposed via ServiceContainer).
func (m *APIModule) SetRealtime(rt Realtime, hub *broadcast.Hub) {
	m.realtime = rt
	m.hub = hub
}

// SetAudit sets the moderation trail served by GET /api/v1/audit.
func (m *APIModule) SetAudit(trail *audit.Trail) {
	m.trail = trail
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.session == nil {
		return fmt.Errorf("session adapter dependency not set")
	}
	if m.realtime == nil || m.hub == nil {
		return fmt.Errorf("realtime dependency not set")
	}

	m.app = m.newApp()

	go func() {
		if err := m.app.Listen(":" + m.cfg.Port); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "port", m.cfg.Port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server...")
	return m.app.Shutdown()
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{"port": m.cfg.Port}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, " + AccessKeyHeader,
	}))
	app.Use(m.loggerMiddleware())

	m.setupRoutes(app)
	return app
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// loggerMiddleware returns a Fiber middleware for request logging.
func (m *APIModule) loggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip logging for WebSocket upgrade requests
		if c.Get("Upgrade") == "websocket" {
			return c.Next()
		}
		err := c.Next()
		m.logger.Info("HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode())
		return err
	}
}
