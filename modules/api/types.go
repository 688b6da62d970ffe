package api

import (
	"encoding/json"

	"github.com/example/moderated-room/domain/room"
	"github.com/example/moderated-room/modules/audit"
)

// AccessKeyHeader carries the role secret on admin routes.
const AccessKeyHeader = "X-Access-Key"

// CreateRoomRequest is the API request to create a room.
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// JoinRoomRequest registers a pending user in a room.
type JoinRoomRequest struct {
	RoomCode string `json:"room_code"`
	Username string `json:"username"`
}

// UserListResponse is the API response for listing users.
type UserListResponse struct {
	RoomCode string       `json:"room_code"`
	Users    []*room.User `json:"users"`
}

// MessageListResponse is the API response for listing messages.
type MessageListResponse struct {
	RoomCode string          `json:"room_code"`
	Messages []*room.Message `json:"messages"`
}

// AuditResponse is the API response for the moderation trail.
type AuditResponse struct {
	Entries []audit.Entry `json:"entries"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// Inbound websocket event names.
const (
	WSJoinRoom           = "join_room"
	WSSendMessage        = "send_message"
	WSApproveMessage     = "approve_message"
	WSApproveUser        = "approve_user"
	WSKickUser           = "kick_user"
	WSDeleteRoom         = "delete_room"
	WSLeaveRoom          = "leave_room"
	WSGetPendingMessages = "get_pending_messages"
)

// inboundEnvelope is a frame read from a websocket client.
type inboundEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type messagePayload struct {
	MessageID string `json:"message_id"`
}

type userPayload struct {
	UserID   string `json:"user_id"`
	RoomCode string `json:"room_code"`
}

type roomPayload struct {
	RoomCode string `json:"room_code"`
}
