package session

import (
	"context"
	"errors"
	"strings"

	"github.com/example/moderated-room/domain/room"
	"github.com/example/moderated-room/events"
	"github.com/example/moderated-room/modules/directory"
	"github.com/go-monolith/mono"
	"github.com/google/uuid"
)

// CreateRoom creates a room under a fresh code, retrying on collision
// at most MaxCodeAttempts times.
func (c *Coordinator) CreateRoom(ctx context.Context, name, createdBy string) (*room.Room, error) {
	name = strings.TrimSpace(name)
	if err := ValidateRoomName(name); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= MaxCodeAttempts; attempt++ {
		code := c.newCode()
		if _, err := c.store.FindRoomByCode(ctx, code); err == nil {
			continue
		} else if !errors.Is(err, directory.ErrNotFound) {
			return nil, err
		}

		r := &room.Room{
			ID:        uuid.New().String(),
			Code:      code,
			Name:      name,
			CreatedBy: createdBy,
			CreatedAt: c.now(),
		}
		if err := c.store.CreateRoom(ctx, r); err != nil {
			if errors.Is(err, directory.ErrDuplicateCode) {
				c.logger.Debug("Room code collision", "code", code, "attempt", attempt)
				continue
			}
			return nil, err
		}

		c.emit("RoomCreated", func(bus mono.EventBus) error {
			return events.RoomCreatedV1.Publish(bus, events.RoomCreatedEvent{
				RoomID:    r.ID,
				RoomCode:  r.Code,
				RoomName:  r.Name,
				CreatedBy: createdBy,
				Timestamp: r.CreatedAt,
			}, nil)
		})
		c.logger.Info("Room created", "room", r.Code, "name", r.Name)
		return r, nil
	}

	c.logger.Error("Room code space exhausted", "attempts", MaxCodeAttempts)
	return nil, ErrRoomCodeExhausted
}

// RegisterUser creates a pending participant in a room.
func (c *Coordinator) RegisterUser(ctx context.Context, roomCode, username string) (*room.User, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}

	r, err := c.findRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}

	user := &room.User{
		ID:        uuid.New().String(),
		Username:  username,
		Role:      room.RoleUser,
		RoomID:    r.ID,
		Status:    room.StatusPending,
		CreatedAt: c.now(),
	}
	if err := c.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	c.fanout.Publish(RoomTopic(r.Code), EventRefreshUserLists, nil)
	c.logger.Info("User awaiting approval", "user", user.ID, "room", r.Code)
	return user, nil
}

// ListUsers returns a room's users, all of them when status is empty.
func (c *Coordinator) ListUsers(ctx context.Context, roomCode string, status room.Status) ([]*room.User, error) {
	if err := ValidateStatusFilter(status); err != nil {
		return nil, err
	}
	r, err := c.findRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	return c.store.FindUsersByRoomAndStatus(ctx, r.ID, status)
}

// ListMessages returns a room's messages oldest first with senders resolved.
func (c *Coordinator) ListMessages(ctx context.Context, roomCode string, status room.Status) ([]*room.Message, error) {
	if err := ValidateStatusFilter(status); err != nil {
		return nil, err
	}
	r, err := c.findRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}
	return c.roomMessages(ctx, r.ID, status)
}

func (c *Coordinator) findRoom(ctx context.Context, roomCode string) (*room.Room, error) {
	code := NormalizeRoomCode(roomCode)
	if code == "" {
		return nil, ErrRoomNotFound
	}
	r, err := c.store.FindRoomByCode(ctx, code)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return r, nil
}
