package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/moderated-room/domain/room"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// SessionPort defines the synchronous admin operations on rooms.
type SessionPort interface {
	CreateRoom(ctx context.Context, name, createdBy string) (*room.Room, error)
	RegisterUser(ctx context.Context, roomCode, username string) (*room.User, error)
	ApproveUser(ctx context.Context, userID string) error
	KickUser(ctx context.Context, userID, roomCodeHint string) error
	DeleteRoom(ctx context.Context, roomCode string) error
	ApproveMessage(ctx context.Context, messageID string) error
	DeleteMessage(ctx context.Context, messageID string) error
	ListUsers(ctx context.Context, roomCode string, status room.Status) ([]*room.User, error)
	ListMessages(ctx context.Context, roomCode string, status room.Status) ([]*room.Message, error)
}

// SessionAdapter implements SessionPort using the service container.
type SessionAdapter struct {
	container mono.ServiceContainer
}

// NewSessionAdapter creates a new SessionAdapter.
func NewSessionAdapter(container mono.ServiceContainer) SessionPort {
	if container == nil {
		panic("session: ServiceContainer is nil")
	}
	return &SessionAdapter{container: container}
}

func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}

// CreateRoom creates a new room.
func (a *SessionAdapter) CreateRoom(ctx context.Context, name, createdBy string) (*room.Room, error) {
	req := CreateRoomRequest{Name: name, CreatedBy: createdBy}
	var resp CreateRoomResponse
	if err := callService(ctx, a.container, ServiceCreateRoom, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Invalid != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, resp.Invalid)
	}
	if resp.Exhausted {
		return nil, ErrRoomCodeExhausted
	}
	return resp.Room, nil
}

// RegisterUser creates a pending user in a room.
func (a *SessionAdapter) RegisterUser(ctx context.Context, roomCode, username string) (*room.User, error) {
	req := RegisterUserRequest{RoomCode: roomCode, Username: username}
	var resp RegisterUserResponse
	if err := callService(ctx, a.container, ServiceRegisterUser, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Invalid != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, resp.Invalid)
	}
	if !resp.Found {
		return nil, ErrRoomNotFound
	}
	return resp.User, nil
}

// ApproveUser approves a pending user.
func (a *SessionAdapter) ApproveUser(ctx context.Context, userID string) error {
	return callFound(ctx, a.container, ServiceApproveUser, &UserRequest{UserID: userID}, ErrUserNotFound)
}

// KickUser removes a user and its messages.
func (a *SessionAdapter) KickUser(ctx context.Context, userID, roomCodeHint string) error {
	return callFound(ctx, a.container, ServiceKickUser, &UserRequest{UserID: userID, RoomCodeHint: roomCodeHint}, ErrUserNotFound)
}

// DeleteRoom removes a room and everything in it.
func (a *SessionAdapter) DeleteRoom(ctx context.Context, roomCode string) error {
	return callFound(ctx, a.container, ServiceDeleteRoom, &RoomRequest{RoomCode: roomCode}, ErrRoomNotFound)
}

// ApproveMessage approves a pending message.
func (a *SessionAdapter) ApproveMessage(ctx context.Context, messageID string) error {
	return callFound(ctx, a.container, ServiceApproveMsg, &MessageRequest{MessageID: messageID}, ErrMessageNotFound)
}

// DeleteMessage removes a message.
func (a *SessionAdapter) DeleteMessage(ctx context.Context, messageID string) error {
	return callFound(ctx, a.container, ServiceDeleteMessage, &MessageRequest{MessageID: messageID}, ErrMessageNotFound)
}

// ListUsers lists the users of a room.
func (a *SessionAdapter) ListUsers(ctx context.Context, roomCode string, status room.Status) ([]*room.User, error) {
	req := ListRequest{RoomCode: roomCode, Status: status}
	var resp ListUsersResponse
	if err := callService(ctx, a.container, ServiceListUsers, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Invalid != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, resp.Invalid)
	}
	if !resp.Found {
		return nil, ErrRoomNotFound
	}
	return resp.Users, nil
}

// ListMessages lists the messages of a room.
func (a *SessionAdapter) ListMessages(ctx context.Context, roomCode string, status room.Status) ([]*room.Message, error) {
	req := ListRequest{RoomCode: roomCode, Status: status}
	var resp ListMessagesResponse
	if err := callService(ctx, a.container, ServiceListMessages, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Invalid != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, resp.Invalid)
	}
	if !resp.Found {
		return nil, ErrRoomNotFound
	}
	return resp.Messages, nil
}

func callFound[Req any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, notFound error) error {
	var resp FoundResponse
	if err := callService(ctx, container, service, req, &resp); err != nil {
		return err
	}
	if !resp.Found {
		return notFound
	}
	return nil
}
