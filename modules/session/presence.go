package session

import (
	"context"
	"errors"

	"github.com/example/moderated-room/events"
	"github.com/example/moderated-room/modules/directory"
	"github.com/go-monolith/mono"
)

// HandleDisconnect forgets the connection and takes its user offline.
func (c *Coordinator) HandleDisconnect(ctx context.Context, connID string) error {
	c.registry.Unbind(connID)
	c.fanout.Unregister(connID)

	user, err := c.store.FindUserByConnectionID(ctx, connID)
	if err != nil {
		return ignoreNotFound(err)
	}
	if err := c.store.SetUserPresence(ctx, user.ID, ""); err != nil {
		return ignoreNotFound(err)
	}
	c.logger.Info("User went offline", "user", user.ID, "conn", connID)
	return c.BroadcastLiveUsers(ctx, user.RoomID)
}

// ApproveUser admits a pending user to the room.
func (c *Coordinator) ApproveUser(ctx context.Context, userID string) error {
	user, err := c.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := c.store.ApproveUser(ctx, user.ID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	r, err := c.store.FindRoomByID(ctx, user.RoomID)
	if err != nil {
		return ignoreNotFound(err)
	}
	c.fanout.Publish(RoomTopic(r.Code), EventUserApproved, user.ID)
	c.fanout.Publish(RoomTopic(r.Code), EventRefreshUserLists, nil)

	c.emit("UserApproved", func(bus mono.EventBus) error {
		return events.UserApprovedV1.Publish(bus, events.UserApprovedEvent{
			UserID:    user.ID,
			RoomCode:  r.Code,
			Timestamp: c.now(),
		}, nil)
	})
	c.logger.Info("User approved", "user", user.ID, "room", r.Code)
	return c.publishLiveUsers(ctx, r)
}

// KickUser deletes a user and every message it sent, then removes its
// connections from the room topics.
func (c *Coordinator) KickUser(ctx context.Context, userID, roomCodeHint string) error {
	user, err := c.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			c.logger.Debug("Kick of unknown user", "user", userID)
			return ErrUserNotFound
		}
		return err
	}

	deleted, err := c.store.DeleteMessagesBySender(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := c.store.DeleteUser(ctx, user.ID); err != nil && !errors.Is(err, directory.ErrNotFound) {
		return err
	}

	code := NormalizeRoomCode(roomCodeHint)
	r, err := c.store.FindRoomByID(ctx, user.RoomID)
	switch {
	case err == nil:
		code = r.Code
	case !errors.Is(err, directory.ErrNotFound):
		return err
	}
	if code == "" {
		return nil
	}

	c.fanout.Publish(RoomTopic(code), EventUserKicked, user.ID)
	c.fanout.Publish(RoomTopic(code), EventRefreshUserLists, nil)
	if r != nil {
		if err := c.publishLiveUsers(ctx, r); err != nil {
			c.logger.Warn("Failed to publish live users", "room", code, "error", err)
		}
	}

	for _, connID := range c.registry.FindByUser(user.ID) {
		c.fanout.Leave(connID, RoomTopic(code))
		c.fanout.Leave(connID, BroadcastTopic(code))
		c.registry.Reset(connID)
	}

	c.emit("UserKicked", func(bus mono.EventBus) error {
		return events.UserKickedV1.Publish(bus, events.UserKickedEvent{
			UserID:          user.ID,
			RoomCode:        code,
			DeletedMessages: deleted,
			Timestamp:       c.now(),
		}, nil)
	})
	c.logger.Info("User kicked", "user", user.ID, "room", code, "deleted_messages", deleted)
	return nil
}

// HandleLeave deletes the leaving user and unsubscribes the connection
// from the hinted room.
func (c *Coordinator) HandleLeave(ctx context.Context, connID, userID, roomCodeHint string) error {
	if userID != "" {
		if err := c.removeUser(ctx, userID); err != nil {
			return err
		}
	}

	code := NormalizeRoomCode(roomCodeHint)
	if code == "" {
		return nil
	}
	c.fanout.Leave(connID, RoomTopic(code))
	c.fanout.Leave(connID, BroadcastTopic(code))
	if b, ok := c.registry.Lookup(connID); ok && b.RoomCode == code {
		c.registry.Reset(connID)
	}
	c.fanout.Publish(RoomTopic(code), EventRefreshUserLists, nil)
	return nil
}

func (c *Coordinator) removeUser(ctx context.Context, userID string) error {
	user, err := c.store.FindUserByID(ctx, userID)
	if err != nil {
		return ignoreNotFound(err)
	}
	if err := c.store.DeleteUser(ctx, user.ID); err != nil {
		return ignoreNotFound(err)
	}

	r, err := c.store.FindRoomByID(ctx, user.RoomID)
	if err != nil {
		return ignoreNotFound(err)
	}
	c.logger.Info("User left room", "user", user.ID, "room", r.Code)
	if err := c.publishLiveUsers(ctx, r); err != nil {
		return err
	}
	c.fanout.Publish(RoomTopic(r.Code), EventRefreshUserLists, nil)
	return nil
}

// DeleteRoom removes a room with all of its users and messages.
func (c *Coordinator) DeleteRoom(ctx context.Context, roomCode string) error {
	code := NormalizeRoomCode(roomCode)
	if code == "" {
		return ErrRoomNotFound
	}
	r, err := c.store.FindRoomByCode(ctx, code)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrRoomNotFound
		}
		return err
	}

	if err := c.store.DeleteRoom(ctx, r.ID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrRoomNotFound
		}
		return err
	}

	c.fanout.Publish(RoomTopic(code), EventRoomDeleted, code)
	for _, topic := range []string{RoomTopic(code), BroadcastTopic(code)} {
		for _, connID := range c.fanout.Members(topic) {
			if b, ok := c.registry.Lookup(connID); ok && b.RoomCode == code {
				c.registry.Reset(connID)
			}
		}
		c.fanout.Drop(topic)
	}

	c.emit("RoomDeleted", func(bus mono.EventBus) error {
		return events.RoomDeletedV1.Publish(bus, events.RoomDeletedEvent{
			RoomID:    r.ID,
			RoomCode:  code,
			Timestamp: c.now(),
		}, nil)
	})
	c.logger.Info("Room deleted", "room", code)
	return nil
}
