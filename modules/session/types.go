package session

import (
	"strings"
	"unicode/utf8"

	"github.com/example/moderated-room/domain/room"
)

// Validation constants
const (
	MaxUsernameLength = 50
	MaxRoomNameLength = 100
	MaxMessageLength  = 5000
)

// Events delivered to connections.
const (
	EventAuthFailed            = "auth_failed"
	EventRoomNotFound          = "room_not_found"
	EventUserApproved          = "user_approved"
	EventLoadMessages          = "load_messages"
	EventLoadPendingMessages   = "load_pending_messages"
	EventLoadBroadcastMessages = "load_broadcast_messages"
	EventReceiveMessage        = "receive_message"
	EventNewPendingMessage     = "new_pending_message"
	EventBroadcastMessage      = "broadcast_message"
	EventMessageApproved       = "message_approved"
	EventMessageDeleted        = "message_deleted"
	EventUserKicked            = "user_kicked"
	EventRoomDeleted           = "room_deleted"
	EventRefreshUserLists      = "refresh_user_lists"
	EventLiveUsers             = "superadmin_live_users"
)

// Service names registered in the service container.
const (
	ServiceCreateRoom    = "create-room"
	ServiceRegisterUser  = "register-user"
	ServiceApproveUser   = "approve-user"
	ServiceKickUser      = "kick-user"
	ServiceDeleteRoom    = "delete-room"
	ServiceApproveMsg    = "approve-message"
	ServiceDeleteMessage = "delete-message"
	ServiceListUsers     = "list-users"
	ServiceListMessages  = "list-messages"
)

// JoinRequest is the payload of a join_room event.
type JoinRequest struct {
	RoomCode   string    `json:"room_code"`
	Role       room.Role `json:"role"`
	UserID     string    `json:"user_id,omitempty"`
	Credential string    `json:"credential,omitempty"`
}

// SendRequest is the payload of a send_message event.
type SendRequest struct {
	UserID   string `json:"user_id"`
	RoomCode string `json:"room_code"`
	Content  string `json:"content"`
}

// CreateRoomRequest is the request for creating a new room.
type CreateRoomRequest struct {
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
}

// CreateRoomResponse is the response for creating a room.
type CreateRoomResponse struct {
	Room      *room.Room `json:"room,omitempty"`
	Invalid   string     `json:"invalid,omitempty"`
	Exhausted bool       `json:"exhausted,omitempty"`
}

// RegisterUserRequest is the request for joining a room as a pending user.
type RegisterUserRequest struct {
	RoomCode string `json:"room_code"`
	Username string `json:"username"`
}

// RegisterUserResponse is the response for registering a user.
type RegisterUserResponse struct {
	User    *room.User `json:"user,omitempty"`
	Found   bool       `json:"found"`
	Invalid string     `json:"invalid,omitempty"`
}

// UserRequest addresses a single user.
type UserRequest struct {
	UserID       string `json:"user_id"`
	RoomCodeHint string `json:"room_code_hint,omitempty"`
}

// MessageRequest addresses a single message.
type MessageRequest struct {
	MessageID string `json:"message_id"`
}

// RoomRequest addresses a room by code.
type RoomRequest struct {
	RoomCode string `json:"room_code"`
}

// FoundResponse reports whether the addressed record existed.
type FoundResponse struct {
	Found bool `json:"found"`
}

// ListRequest lists users or messages of a room, optionally by status.
type ListRequest struct {
	RoomCode string      `json:"room_code"`
	Status   room.Status `json:"status,omitempty"`
}

// ListUsersResponse is the response for listing users.
type ListUsersResponse struct {
	Users   []*room.User `json:"users"`
	Found   bool         `json:"found"`
	Invalid string       `json:"invalid,omitempty"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []*room.Message `json:"messages"`
	Found    bool            `json:"found"`
	Invalid  string          `json:"invalid,omitempty"`
}

// ValidateUsername validates a username.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLength {
		return ErrUsernameTooLong
	}
	if !utf8.ValidString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

// ValidateRoomName validates a room name.
func ValidateRoomName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLength {
		return ErrRoomNameTooLong
	}
	if !utf8.ValidString(name) {
		return ErrRoomNameInvalid
	}
	return nil
}

// ValidateMessage validates a message content.
func ValidateMessage(content string) error {
	if content == "" {
		return ErrMessageEmpty
	}
	if len(content) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(content) {
		return ErrMessageInvalid
	}
	return nil
}

// ValidateStatusFilter accepts an empty filter or a known status.
func ValidateStatusFilter(status room.Status) error {
	if status == "" || status.Valid() {
		return nil
	}
	return ErrStatusInvalid
}
