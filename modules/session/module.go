package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/moderated-room/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module exposes the coordinator to other modules and emits its domain events.
type Module struct {
	coordinator *Coordinator
	logger      types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new session module.
func NewModule(coordinator *Coordinator, logger types.Logger) *Module {
	return &Module{
		coordinator: coordinator,
		logger:      logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "session"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.coordinator.SetEventBus(bus)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomCreatedV1.ToBase(),
		events.RoomDeletedV1.ToBase(),
		events.MessageApprovedV1.ToBase(),
		events.MessageDeletedV1.ToBase(),
		events.UserApprovedV1.ToBase(),
		events.UserKickedV1.ToBase(),
	}
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Session module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Session module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.coordinator != nil,
		Message: "operational",
		Details: map[string]any{
			"bound_connections": m.coordinator.registry.Len(),
		},
	}
}

// Coordinator returns the room session coordinator.
func (m *Module) Coordinator() *Coordinator {
	return m.coordinator
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreateRoom, json.Unmarshal, json.Marshal, m.handleCreateRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateRoom, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRegisterUser, json.Unmarshal, json.Marshal, m.handleRegisterUser,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRegisterUser, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceApproveUser, json.Unmarshal, json.Marshal, m.handleApproveUser,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceApproveUser, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceKickUser, json.Unmarshal, json.Marshal, m.handleKickUser,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceKickUser, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDeleteRoom, json.Unmarshal, json.Marshal, m.handleDeleteRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDeleteRoom, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceApproveMsg, json.Unmarshal, json.Marshal, m.handleApproveMessage,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceApproveMsg, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDeleteMessage, json.Unmarshal, json.Marshal, m.handleDeleteMessage,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDeleteMessage, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListUsers, json.Unmarshal, json.Marshal, m.handleListUsers,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListUsers, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListMessages, json.Unmarshal, json.Marshal, m.handleListMessages,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListMessages, err)
	}

	m.logger.Info("Registered session services")
	return nil
}

func (m *Module) handleCreateRoom(ctx context.Context, req CreateRoomRequest, _ *mono.Msg) (CreateRoomResponse, error) {
	r, err := m.coordinator.CreateRoom(ctx, req.Name, req.CreatedBy)
	switch {
	case err == nil:
		return CreateRoomResponse{Room: r}, nil
	case isValidationError(err):
		return CreateRoomResponse{Invalid: err.Error()}, nil
	case errors.Is(err, ErrRoomCodeExhausted):
		return CreateRoomResponse{Exhausted: true}, nil
	default:
		return CreateRoomResponse{}, err
	}
}

func (m *Module) handleRegisterUser(ctx context.Context, req RegisterUserRequest, _ *mono.Msg) (RegisterUserResponse, error) {
	user, err := m.coordinator.RegisterUser(ctx, req.RoomCode, req.Username)
	switch {
	case err == nil:
		return RegisterUserResponse{User: user, Found: true}, nil
	case isValidationError(err):
		return RegisterUserResponse{Found: true, Invalid: err.Error()}, nil
	case errors.Is(err, ErrRoomNotFound):
		return RegisterUserResponse{Found: false}, nil
	default:
		return RegisterUserResponse{}, err
	}
}

func (m *Module) handleApproveUser(ctx context.Context, req UserRequest, _ *mono.Msg) (FoundResponse, error) {
	return foundResponse(m.coordinator.ApproveUser(ctx, req.UserID), ErrUserNotFound)
}

func (m *Module) handleKickUser(ctx context.Context, req UserRequest, _ *mono.Msg) (FoundResponse, error) {
	return foundResponse(m.coordinator.KickUser(ctx, req.UserID, req.RoomCodeHint), ErrUserNotFound)
}

func (m *Module) handleDeleteRoom(ctx context.Context, req RoomRequest, _ *mono.Msg) (FoundResponse, error) {
	return foundResponse(m.coordinator.DeleteRoom(ctx, req.RoomCode), ErrRoomNotFound)
}

func (m *Module) handleApproveMessage(ctx context.Context, req MessageRequest, _ *mono.Msg) (FoundResponse, error) {
	return foundResponse(m.coordinator.ApproveMessage(ctx, req.MessageID), ErrMessageNotFound)
}

func (m *Module) handleDeleteMessage(ctx context.Context, req MessageRequest, _ *mono.Msg) (FoundResponse, error) {
	return foundResponse(m.coordinator.DeleteMessage(ctx, req.MessageID), ErrMessageNotFound)
}

func (m *Module) handleListUsers(ctx context.Context, req ListRequest, _ *mono.Msg) (ListUsersResponse, error) {
	users, err := m.coordinator.ListUsers(ctx, req.RoomCode, req.Status)
	switch {
	case err == nil:
		return ListUsersResponse{Users: users, Found: true}, nil
	case isValidationError(err):
		return ListUsersResponse{Found: true, Invalid: err.Error()}, nil
	case errors.Is(err, ErrRoomNotFound):
		return ListUsersResponse{Found: false}, nil
	default:
		return ListUsersResponse{}, err
	}
}

func (m *Module) handleListMessages(ctx context.Context, req ListRequest, _ *mono.Msg) (ListMessagesResponse, error) {
	msgs, err := m.coordinator.ListMessages(ctx, req.RoomCode, req.Status)
	switch {
	case err == nil:
		return ListMessagesResponse{Messages: msgs, Found: true}, nil
	case isValidationError(err):
		return ListMessagesResponse{Found: true, Invalid: err.Error()}, nil
	case errors.Is(err, ErrRoomNotFound):
		return ListMessagesResponse{Found: false}, nil
	default:
		return ListMessagesResponse{}, err
	}
}

// foundResponse turns a not-found sentinel into Found=false so it survives
// the JSON boundary.
func foundResponse(err, notFound error) (FoundResponse, error) {
	switch {
	case err == nil:
		return FoundResponse{Found: true}, nil
	case errors.Is(err, notFound):
		return FoundResponse{Found: false}, nil
	default:
		return FoundResponse{}, err
	}
}
