package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/moderated-room/domain/room"
	"github.com/example/moderated-room/events"
	"github.com/example/moderated-room/modules/directory"
	"github.com/go-monolith/mono"
	"github.com/google/uuid"
)

// HandleSend stores a new pending message and shows it to the room.
// Empty content or an unknown room or sender is a no-op.
func (c *Coordinator) HandleSend(ctx context.Context, req SendRequest) error {
	content := strings.TrimSpace(req.Content)
	if content == "" || req.UserID == "" {
		return nil
	}
	if err := ValidateMessage(content); err != nil {
		return err
	}

	code := NormalizeRoomCode(req.RoomCode)
	if code == "" {
		return nil
	}
	r, err := c.store.FindRoomByCode(ctx, code)
	if err != nil {
		return ignoreNotFound(err)
	}
	sender, err := c.store.FindUserByID(ctx, req.UserID)
	if err != nil {
		return ignoreNotFound(err)
	}
	if sender.RoomID != r.ID {
		c.logger.Debug("Sender is not a member of room", "user", sender.ID, "room", code)
		return nil
	}

	now := c.now()
	msg := &room.Message{
		ID:             uuid.New().String(),
		RoomID:         r.ID,
		SenderID:       sender.ID,
		SenderUsername: sender.Username,
		Content:        content,
		Status:         room.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.store.CreateMessage(ctx, msg); err != nil {
		return err
	}
	msg.Sender = sender

	c.fanout.Publish(RoomTopic(code), EventReceiveMessage, msg)
	c.fanout.Publish(RoomTopic(code), EventNewPendingMessage, msg)
	c.logger.Debug("Message queued for moderation", "message", msg.ID, "room", code)
	return nil
}

// ApproveMessage moves a message to approved and releases it to broadcast viewers.
// Approving an approved message republishes it.
func (c *Coordinator) ApproveMessage(ctx context.Context, messageID string) error {
	msg, err := c.store.FindMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	if err := c.store.ApproveMessage(ctx, msg.ID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	msg.Status = room.StatusApproved

	r, err := c.store.FindRoomByID(ctx, msg.RoomID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	c.resolveSenders(ctx, []*room.Message{msg})

	c.fanout.Publish(BroadcastTopic(r.Code), EventBroadcastMessage, msg)
	c.fanout.Publish(RoomTopic(r.Code), EventReceiveMessage, msg)
	c.fanout.Publish(RoomTopic(r.Code), EventMessageApproved, msg)

	c.emit("MessageApproved", func(bus mono.EventBus) error {
		return events.MessageApprovedV1.Publish(bus, events.MessageApprovedEvent{
			MessageID:      msg.ID,
			RoomCode:       r.Code,
			SenderUsername: msg.SenderUsername,
			Timestamp:      c.now(),
		}, nil)
	})
	c.logger.Info("Message approved", "message", msg.ID, "room", r.Code)
	return nil
}

// DeleteMessage removes a message from any state and tells every surface to drop it.
func (c *Coordinator) DeleteMessage(ctx context.Context, messageID string) error {
	msg, err := c.store.FindMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	if err := c.store.DeleteMessage(ctx, msg.ID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	r, err := c.store.FindRoomByID(ctx, msg.RoomID)
	if err != nil {
		return ignoreNotFound(err)
	}
	c.fanout.Publish(RoomTopic(r.Code), EventMessageDeleted, msg.ID)
	c.fanout.Publish(BroadcastTopic(r.Code), EventMessageDeleted, msg.ID)

	c.emit("MessageDeleted", func(bus mono.EventBus) error {
		return events.MessageDeletedV1.Publish(bus, events.MessageDeletedEvent{
			MessageID: msg.ID,
			RoomCode:  r.Code,
			Timestamp: c.now(),
		}, nil)
	})
	c.logger.Info("Message deleted", "message", msg.ID, "room", r.Code)
	return nil
}

// GetPendingMessages sends the room's pending messages to the requester.
func (c *Coordinator) GetPendingMessages(ctx context.Context, connID, roomCode string) error {
	code := NormalizeRoomCode(roomCode)
	if code == "" {
		return nil
	}
	r, err := c.store.FindRoomByCode(ctx, code)
	if err != nil {
		return ignoreNotFound(err)
	}
	msgs, err := c.roomMessages(ctx, r.ID, room.StatusPending)
	if err != nil {
		return err
	}
	c.fanout.SendTo(connID, EventLoadPendingMessages, msgs)
	return nil
}

// roomMessages loads a room's messages oldest first with senders resolved.
func (c *Coordinator) roomMessages(ctx context.Context, roomID string, status room.Status) ([]*room.Message, error) {
	msgs, err := c.store.FindMessagesByRoom(ctx, roomID, status)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	c.resolveSenders(ctx, msgs)
	return msgs, nil
}

// resolveSenders attaches live sender records where they still exist.
// A missing sender is not an error; the message keeps SenderUsername.
func (c *Coordinator) resolveSenders(ctx context.Context, msgs []*room.Message) {
	ids := make([]string, 0, len(msgs))
	seen := make(map[string]struct{}, len(msgs))
	for _, m := range msgs {
		if m.SenderID == "" {
			continue
		}
		if _, ok := seen[m.SenderID]; ok {
			continue
		}
		seen[m.SenderID] = struct{}{}
		ids = append(ids, m.SenderID)
	}
	if len(ids) == 0 {
		return
	}

	senders, err := c.store.FindUsersByIDs(ctx, ids)
	if err != nil {
		c.logger.Warn("Failed to resolve message senders", "error", err)
		return
	}
	for _, m := range msgs {
		m.Sender = senders[m.SenderID]
	}
}

func ignoreNotFound(err error) error {
	if errors.Is(err, directory.ErrNotFound) {
		return nil
	}
	return err
}
