package api

import (
	"errors"
	"strconv"

	"github.com/example/moderated-room/domain/room"
	"github.com/example/moderated-room/modules/audit"
	"github.com/example/moderated-room/modules/session"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 1000
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	// Health check
	app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(m.handleWebSocket))

	// REST API v1
	api := app.Group("/api/v1")

	superadmin := m.requireRole(room.RoleSuperadmin)
	admin := m.requireRole(room.RoleAdmin, room.RoleSuperadmin)

	// Rooms
	api.Post("/rooms", superadmin, m.createRoom)
	api.Post("/rooms/join", m.joinRoom)
	api.Get("/rooms/:code/users", admin, m.listUsers)
	api.Get("/rooms/:code/messages", admin, m.listMessages)
	api.Delete("/rooms/:code", superadmin, m.deleteRoom)

	// Moderation
	api.Patch("/users/:id/approve", admin, m.approveUser)
	api.Delete("/users/:id", admin, m.kickUser)
	api.Delete("/messages/:id", admin, m.deleteMessage)

	api.Get("/audit", superadmin, m.listAudit)
}

// requireRole admits requests whose access key matches any of the roles.
func (m *APIModule) requireRole(roles ...room.Role) fiber.Handler {
	creds := m.cfg.Credentials()
	return func(c *fiber.Ctx) error {
		key := c.Get(AccessKeyHeader)
		if key != "" {
			for _, role := range roles {
				if creds.Check(role, key) {
					return c.Next()
				}
			}
		}
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid access key",
		})
	}
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	details := map[string]any{"module": "api"}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
	}
	return c.JSON(HealthResponse{
		Status:  "healthy",
		Details: details,
	})
}

// createRoom handles POST /api/v1/rooms.
func (m *APIModule) createRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	r, err := m.session.CreateRoom(c.UserContext(), req.Name, string(room.RoleSuperadmin))
	if err != nil {
		return m.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

// joinRoom handles POST /api/v1/rooms/join.
func (m *APIModule) joinRoom(c *fiber.Ctx) error {
	var req JoinRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	user, err := m.session.RegisterUser(c.UserContext(), req.RoomCode, req.Username)
	if err != nil {
		return m.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// listUsers handles GET /api/v1/rooms/:code/users.
func (m *APIModule) listUsers(c *fiber.Ctx) error {
	code := session.NormalizeRoomCode(c.Params("code"))
	users, err := m.session.ListUsers(c.UserContext(), code, room.Status(c.Query("status")))
	if err != nil {
		return m.writeError(c, err)
	}
	if users == nil {
		users = []*room.User{}
	}
	return c.JSON(UserListResponse{RoomCode: code, Users: users})
}

// listMessages handles GET /api/v1/rooms/:code/messages.
func (m *APIModule) listMessages(c *fiber.Ctx) error {
	code := session.NormalizeRoomCode(c.Params("code"))
	msgs, err := m.session.ListMessages(c.UserContext(), code, room.Status(c.Query("status")))
	if err != nil {
		return m.writeError(c, err)
	}
	if msgs == nil {
		msgs = []*room.Message{}
	}
	return c.JSON(MessageListResponse{RoomCode: code, Messages: msgs})
}

// deleteRoom handles DELETE /api/v1/rooms/:code.
func (m *APIModule) deleteRoom(c *fiber.Ctx) error {
	if err := m.session.DeleteRoom(c.UserContext(), c.Params("code")); err != nil {
		return m.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// approveUser handles PATCH /api/v1/users/:id/approve.
func (m *APIModule) approveUser(c *fiber.Ctx) error {
	if err := m.session.ApproveUser(c.UserContext(), c.Params("id")); err != nil {
		return m.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// kickUser handles DELETE /api/v1/users/:id. The optional room_code query
// names the room to notify when the user's own room is already gone.
func (m *APIModule) kickUser(c *fiber.Ctx) error {
	if err := m.session.KickUser(c.UserContext(), c.Params("id"), c.Query("room_code")); err != nil {
		return m.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// deleteMessage handles DELETE /api/v1/messages/:id.
func (m *APIModule) deleteMessage(c *fiber.Ctx) error {
	if err := m.session.DeleteMessage(c.UserContext(), c.Params("id")); err != nil {
		return m.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// listAudit handles GET /api/v1/audit.
func (m *APIModule) listAudit(c *fiber.Ctx) error {
	limit := defaultAuditLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxAuditLimit {
			limit = parsed
		}
	}

	resp := AuditResponse{Entries: []audit.Entry{}}
	if m.trail != nil {
		resp.Entries = append(resp.Entries, m.trail.Recent(limit)...)
	}
	return c.JSON(resp)
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request body",
	})
}

// writeError maps session errors onto HTTP responses.
func (m *APIModule) writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, session.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case errors.Is(err, session.ErrRoomNotFound):
		return notFound(c, "Room not found")
	case errors.Is(err, session.ErrUserNotFound):
		return notFound(c, "User not found")
	case errors.Is(err, session.ErrMessageNotFound):
		return notFound(c, "Message not found")
	case errors.Is(err, session.ErrRoomCodeExhausted):
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "code_exhausted",
			Message: "Could not allocate a room code, try again",
		})
	}

	m.logger.Error("Request failed", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "internal_error",
		Message: "Request failed",
	})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
		Error:   "not_found",
		Message: message,
	})
}
