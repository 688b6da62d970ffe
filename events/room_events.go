package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// RoomCreatedEvent is emitted when a new room is created.
type RoomCreatedEvent struct {
	RoomID    string    `json:"room_id"`
	RoomCode  string    `json:"room_code"`
	RoomName  string    `json:"room_name"`
	CreatedBy string    `json:"created_by"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomDeletedEvent is emitted after a room and its records are removed.
type RoomDeletedEvent struct {
	RoomID    string    `json:"room_id"`
	RoomCode  string    `json:"room_code"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageApprovedEvent is emitted when a moderator approves a message.
type MessageApprovedEvent struct {
	MessageID      string    `json:"message_id"`
	RoomCode       string    `json:"room_code"`
	SenderUsername string    `json:"sender_username"`
	Timestamp      time.Time `json:"timestamp"`
}

// MessageDeletedEvent is emitted when a message is removed.
type MessageDeletedEvent struct {
	MessageID string    `json:"message_id"`
	RoomCode  string    `json:"room_code"`
	Timestamp time.Time `json:"timestamp"`
}

// UserApprovedEvent is emitted when a pending participant is approved.
type UserApprovedEvent struct {
	UserID    string    `json:"user_id"`
	RoomCode  string    `json:"room_code"`
	Timestamp time.Time `json:"timestamp"`
}

// UserKickedEvent is emitted when a participant is kicked.
type UserKickedEvent struct {
	UserID          string    `json:"user_id"`
	RoomCode        string    `json:"room_code"`
	DeletedMessages int64     `json:"deleted_messages"`
	Timestamp       time.Time `json:"timestamp"`
}

// Event definitions for the moderation domain.
var (
	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"session",
		"RoomCreated",
		"v1",
	)

	RoomDeletedV1 = helper.EventDefinition[RoomDeletedEvent](
		"session",
		"RoomDeleted",
		"v1",
	)

	MessageApprovedV1 = helper.EventDefinition[MessageApprovedEvent](
		"session",
		"MessageApproved",
		"v1",
	)

	MessageDeletedV1 = helper.EventDefinition[MessageDeletedEvent](
		"session",
		"MessageDeleted",
		"v1",
	)

	UserApprovedV1 = helper.EventDefinition[UserApprovedEvent](
		"session",
		"UserApproved",
		"v1",
	)

	UserKickedV1 = helper.EventDefinition[UserKickedEvent](
		"session",
		"UserKicked",
		"v1",
	)
)
