package audit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/example/moderated-room/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module records moderation events in an in-memory trail.
type Module struct {
	trail  *Trail
	logger types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new audit module.
func NewModule(capacity int, logger types.Logger) *Module {
	return &Module{
		trail:  NewTrail(capacity),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "audit"
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Audit module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Audit module stopped", "recorded", m.trail.Total())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"recorded": m.trail.Total(),
		},
	}
}

// Trail returns the recorded entries.
func (m *Module) Trail() *Trail {
	return m.trail
}

// RegisterEventConsumers registers event handlers.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomCreatedV1, m.handleRoomCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomDeletedV1, m.handleRoomDeleted, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageApprovedV1, m.handleMessageApproved, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageApproved consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageDeletedV1, m.handleMessageDeleted, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserApprovedV1, m.handleUserApproved, m,
	); err != nil {
		return fmt.Errorf("failed to register UserApproved consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserKickedV1, m.handleUserKicked, m,
	); err != nil {
		return fmt.Errorf("failed to register UserKicked consumer: %w", err)
	}

	m.logger.Info("Registered audit event consumers")
	return nil
}

func (m *Module) handleRoomCreated(_ context.Context, event events.RoomCreatedEvent, _ *mono.Msg) error {
	m.record(Entry{Event: "room_created", RoomCode: event.RoomCode, Subject: event.RoomID, Detail: event.RoomName, At: event.Timestamp})
	return nil
}

func (m *Module) handleRoomDeleted(_ context.Context, event events.RoomDeletedEvent, _ *mono.Msg) error {
	m.record(Entry{Event: "room_deleted", RoomCode: event.RoomCode, Subject: event.RoomID, At: event.Timestamp})
	return nil
}

func (m *Module) handleMessageApproved(_ context.Context, event events.MessageApprovedEvent, _ *mono.Msg) error {
	m.record(Entry{Event: "message_approved", RoomCode: event.RoomCode, Subject: event.MessageID, Detail: event.SenderUsername, At: event.Timestamp})
	return nil
}

func (m *Module) handleMessageDeleted(_ context.Context, event events.MessageDeletedEvent, _ *mono.Msg) error {
	m.record(Entry{Event: "message_deleted", RoomCode: event.RoomCode, Subject: event.MessageID, At: event.Timestamp})
	return nil
}

func (m *Module) handleUserApproved(_ context.Context, event events.UserApprovedEvent, _ *mono.Msg) error {
	m.record(Entry{Event: "user_approved", RoomCode: event.RoomCode, Subject: event.UserID, At: event.Timestamp})
	return nil
}

func (m *Module) handleUserKicked(_ context.Context, event events.UserKickedEvent, _ *mono.Msg) error {
	m.record(Entry{
		Event:    "user_kicked",
		RoomCode: event.RoomCode,
		Subject:  event.UserID,
		Detail:   strconv.FormatInt(event.DeletedMessages, 10) + " messages removed",
		At:       event.Timestamp,
	})
	return nil
}

func (m *Module) record(e Entry) {
	m.trail.Add(e)
	m.logger.Debug("Audit entry recorded", "event", e.Event, "room", e.RoomCode, "subject", e.Subject)
}
