package directory

import (
	"context"
	"errors"

	"github.com/example/moderated-room/domain/room"
)

var (
	// ErrNotFound is returned when a room, user or message does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateCode is returned when a room code is already taken.
	ErrDuplicateCode = errors.New("room code already exists")
)

// Store is the durable directory of rooms, users and messages.
// It is the single source of truth; callers must not cache its records
// across requests.
type Store interface {
	CreateRoom(ctx context.Context, r *room.Room) error
	FindRoomByCode(ctx context.Context, code string) (*room.Room, error)
	FindRoomByID(ctx context.Context, id string) (*room.Room, error)
	// DeleteRoom removes the room together with its users and messages.
	DeleteRoom(ctx context.Context, id string) error

	CreateUser(ctx context.Context, u *room.User) error
	FindUserByID(ctx context.Context, id string) (*room.User, error)
	FindUserByConnectionID(ctx context.Context, connID string) (*room.User, error)
	FindUsersByIDs(ctx context.Context, ids []string) (map[string]*room.User, error)
	// FindUsersByRoomAndStatus returns every user of the room when status is empty.
	FindUsersByRoomAndStatus(ctx context.Context, roomID string, status room.Status) ([]*room.User, error)
	FindOnlineUsersByRoomAndStatus(ctx context.Context, roomID string, status room.Status) ([]*room.User, error)
	// SetUserPresence marks the user online on connID, or offline when connID is empty.
	SetUserPresence(ctx context.Context, userID, connID string) error
	ApproveUser(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) error

	CreateMessage(ctx context.Context, m *room.Message) error
	FindMessageByID(ctx context.Context, id string) (*room.Message, error)
	// FindMessagesByRoom returns messages oldest first, all statuses when status is empty.
	FindMessagesByRoom(ctx context.Context, roomID string, status room.Status) ([]*room.Message, error)
	ApproveMessage(ctx context.Context, id string) error
	DeleteMessage(ctx context.Context, id string) error
	DeleteMessagesBySender(ctx context.Context, senderID string) (int64, error)
}
