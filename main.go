package main

import (
	"context"
	"log"
	"os"

	"github.com/example/moderated-room/config"
	"github.com/example/moderated-room/modules/api"
	"github.com/example/moderated-room/modules/audit"
	"github.com/example/moderated-room/modules/broadcast"
	"github.com/example/moderated-room/modules/directory"
	"github.com/example/moderated-room/modules/session"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	log.Println("=== Moderated Room Coordinator - Fiber + EventBus ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	logger := app.Logger()

	store, err := directory.Open(cfg.DBPath, cfg.DBDebug)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	// Create modules
	directoryModule := directory.NewModule(store, cfg.DBPath, logger)
	broadcastModule := broadcast.NewModule(logger)

	coordinator, err := session.NewCoordinator(
		store,
		broadcastModule.Hub(),
		broadcastModule.Registry(),
		cfg.Credentials(),
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create session coordinator: %v", err)
	}

	sessionModule := session.NewModule(coordinator, logger)
	auditModule := audit.NewModule(cfg.AuditCapacity, logger)
	apiModule := api.NewModule(cfg, logger)

	// Inject realtime pieces into API module
	// (These are not exposed via ServiceContainer)
	apiModule.SetRealtime(coordinator, broadcastModule.Hub())
	apiModule.SetAudit(auditModule.Trail())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - directory: GORM store (migrations on start)
	// - broadcast: WebSocket hub + connection registry
	// - session: Coordinator (ServiceProviderModule + EventEmitterModule)
	// - audit: Event consumer (moderation trail)
	// - api: Driving adapter (Fiber HTTP/WebSocket server, depends on session)
	app.Register(directoryModule)
	app.Register(broadcastModule)
	app.Register(sessionModule)
	app.Register(auditModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Persistence: GORM + SQLite")
	log.Printf("  - Database: %s", cfg.DBPath)
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", cfg.Port)
	log.Println("  GET    /health                      - Health check")
	log.Println("  POST   /api/v1/rooms                - Create a room (superadmin)")
	log.Println("  POST   /api/v1/rooms/join           - Register a pending user")
	log.Println("  GET    /api/v1/rooms/:code/users    - List users (admin)")
	log.Println("  GET    /api/v1/rooms/:code/messages - List messages (admin)")
	log.Println("  DELETE /api/v1/rooms/:code          - Delete a room (superadmin)")
	log.Println("  PATCH  /api/v1/users/:id/approve    - Approve a user (admin)")
	log.Println("  DELETE /api/v1/users/:id            - Kick a user (admin)")
	log.Println("  DELETE /api/v1/messages/:id         - Delete a message (admin)")
	log.Println("  GET    /api/v1/audit                - Moderation trail (superadmin)")
	log.Println("  Admin routes read the X-Access-Key header")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", cfg.Port)
	log.Println("  Frames: {\"type\": ..., \"payload\": {...}}")
	log.Println("  Events: join_room, send_message, approve_message, approve_user,")
	log.Println("          kick_user, delete_room, leave_room, get_pending_messages")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
