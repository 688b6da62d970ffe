package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/example/moderated-room/domain/room"
	"github.com/example/moderated-room/modules/broadcast"
	"github.com/example/moderated-room/modules/directory"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Fanout delivers events to topics and single connections.
type Fanout interface {
	Register(s broadcast.Sender)
	Unregister(connID string)
	Join(connID, topic string)
	Leave(connID, topic string)
	Drop(topic string)
	Members(topic string) []string
	Publish(topic, event string, payload any)
	SendTo(connID, event string, payload any)
}

// Credentials holds the shared secret for each privileged role.
type Credentials struct {
	Superadmin string
	Admin      string
	Broadcast  string
}

// Check compares key with the secret of role in constant time.
// Roles without a secret always pass; an unset secret never matches.
func (c Credentials) Check(role room.Role, key string) bool {
	var secret string
	switch role {
	case room.RoleSuperadmin:
		secret = c.Superadmin
	case room.RoleAdmin:
		secret = c.Admin
	case room.RoleBroadcast:
		secret = c.Broadcast
	default:
		return true
	}
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(key)) == 1
}

func authFailureReason(role room.Role) string {
	switch role {
	case room.RoleSuperadmin:
		return "invalid superadmin credentials"
	case room.RoleAdmin:
		return "invalid admin access key"
	default:
		return "invalid stream authorization"
	}
}

// Coordinator runs the room session protocol: joins, moderation, presence
// and cascading removal. It keeps no copy of durable records.
type Coordinator struct {
	store    directory.Store
	fanout   Fanout
	registry *broadcast.Registry
	creds    Credentials
	eventBus mono.EventBus
	newCode  func() string
	now      func() time.Time
	logger   types.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithCodeGenerator replaces the room code generator.
func WithCodeGenerator(gen func() string) Option {
	return func(c *Coordinator) {
		c.newCode = gen
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(
	store directory.Store,
	fanout Fanout,
	registry *broadcast.Registry,
	creds Credentials,
	logger types.Logger,
	opts ...Option,
) (*Coordinator, error) {
	c := &Coordinator{
		store:    store,
		fanout:   fanout,
		registry: registry,
		creds:    creds,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.newCode == nil {
		gen, err := NewCodeGenerator()
		if err != nil {
			return nil, fmt.Errorf("failed to create room code generator: %w", err)
		}
		c.newCode = gen
	}
	return c, nil
}

// SetEventBus wires the bus used for domain events.
func (c *Coordinator) SetEventBus(bus mono.EventBus) {
	c.eventBus = bus
}

// Credentials returns the configured role secrets.
func (c *Coordinator) Credentials() Credentials {
	return c.creds
}

// Connect registers a live connection with no room binding.
func (c *Coordinator) Connect(s broadcast.Sender) {
	c.fanout.Register(s)
	c.registry.Register(s.ID())
}

// Binding returns the room binding of a connection.
func (c *Coordinator) Binding(connID string) (broadcast.Binding, bool) {
	return c.registry.Lookup(connID)
}

// HandleJoin validates a join request and enrolls the connection.
// Malformed requests are ignored; auth and lookup failures are reported to
// the requester only.
func (c *Coordinator) HandleJoin(ctx context.Context, connID string, req JoinRequest) error {
	code := NormalizeRoomCode(req.RoomCode)
	if code == "" || !req.Role.Valid() {
		c.logger.Debug("Ignoring malformed join", "conn", connID, "role", req.Role)
		return nil
	}

	if req.Role.Privileged() && !c.creds.Check(req.Role, req.Credential) {
		c.logger.Warn("Join rejected", "conn", connID, "role", req.Role, "room", code)
		c.fanout.SendTo(connID, EventAuthFailed, authFailureReason(req.Role))
		return nil
	}

	r, err := c.store.FindRoomByCode(ctx, code)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			c.fanout.SendTo(connID, EventRoomNotFound, code)
			return nil
		}
		return fmt.Errorf("join %s: %w", code, err)
	}

	prev := c.registry.Bind(connID, broadcast.Binding{RoomCode: code, Role: req.Role})
	if prev.Bound() {
		c.fanout.Leave(connID, RoomTopic(prev.RoomCode))
		c.fanout.Leave(connID, BroadcastTopic(prev.RoomCode))
	}
	c.fanout.Join(connID, RoomTopic(code))

	user := c.attachUser(ctx, connID, r, req)
	if prev.UserID != "" && (user == nil || prev.UserID != user.ID) {
		c.detachUser(ctx, prev.UserID, connID)
	}

	switch req.Role {
	case room.RoleUser:
		msgs, err := c.roomMessages(ctx, r.ID, "")
		if err != nil {
			return fmt.Errorf("join %s: %w", code, err)
		}
		c.fanout.SendTo(connID, EventLoadMessages, msgs)
		c.fanout.Publish(RoomTopic(code), EventRefreshUserLists, nil)
	case room.RoleAdmin:
		msgs, err := c.roomMessages(ctx, r.ID, room.StatusPending)
		if err != nil {
			return fmt.Errorf("join %s: %w", code, err)
		}
		c.fanout.SendTo(connID, EventLoadPendingMessages, msgs)
	case room.RoleBroadcast:
		c.fanout.Join(connID, BroadcastTopic(code))
		msgs, err := c.roomMessages(ctx, r.ID, room.StatusApproved)
		if err != nil {
			return fmt.Errorf("join %s: %w", code, err)
		}
		c.fanout.SendTo(connID, EventLoadBroadcastMessages, msgs)
	case room.RoleSuperadmin:
		live, err := c.store.FindOnlineUsersByRoomAndStatus(ctx, r.ID, room.StatusApproved)
		if err != nil {
			return fmt.Errorf("join %s: %w", code, err)
		}
		c.fanout.SendTo(connID, EventLiveUsers, live)
		c.fanout.SendTo(connID, EventRefreshUserLists, nil)
	}

	c.logger.Info("Connection joined room", "conn", connID, "room", code, "role", req.Role)
	return c.publishLiveUsers(ctx, r)
}

// attachUser marks the requested user online on connID. Users of other
// rooms are not attached.
func (c *Coordinator) attachUser(ctx context.Context, connID string, r *room.Room, req JoinRequest) *room.User {
	if req.UserID == "" {
		return nil
	}

	user, err := c.store.FindUserByID(ctx, req.UserID)
	if err != nil {
		if !errors.Is(err, directory.ErrNotFound) {
			c.logger.Warn("Failed to resolve joining user", "user", req.UserID, "error", err)
		}
		return nil
	}
	if user.RoomID != r.ID {
		c.logger.Debug("Joining user belongs to another room", "user", user.ID, "room", r.Code)
		return nil
	}

	if err := c.store.SetUserPresence(ctx, user.ID, connID); err != nil {
		c.logger.Warn("Failed to mark user online", "user", user.ID, "error", err)
		return nil
	}
	c.registry.Bind(connID, broadcast.Binding{RoomCode: r.Code, Role: req.Role, UserID: user.ID})

	if user.Status == room.StatusApproved {
		c.fanout.SendTo(connID, EventUserApproved, user.ID)
	}
	return user
}

// detachUser clears presence for a user this connection no longer represents.
func (c *Coordinator) detachUser(ctx context.Context, userID, connID string) {
	user, err := c.store.FindUserByID(ctx, userID)
	if err != nil || user.ConnectionID != connID {
		return
	}
	if err := c.store.SetUserPresence(ctx, user.ID, ""); err != nil {
		c.logger.Warn("Failed to mark user offline", "user", user.ID, "error", err)
		return
	}
	if err := c.BroadcastLiveUsers(ctx, user.RoomID); err != nil {
		c.logger.Warn("Failed to publish live users", "room", user.RoomID, "error", err)
	}
}

// BroadcastLiveUsers publishes the approved, online users of a room.
func (c *Coordinator) BroadcastLiveUsers(ctx context.Context, roomID string) error {
	r, err := c.store.FindRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil
		}
		return err
	}
	return c.publishLiveUsers(ctx, r)
}

func (c *Coordinator) publishLiveUsers(ctx context.Context, r *room.Room) error {
	live, err := c.store.FindOnlineUsersByRoomAndStatus(ctx, r.ID, room.StatusApproved)
	if err != nil {
		return fmt.Errorf("live users of %s: %w", r.Code, err)
	}
	c.fanout.Publish(RoomTopic(r.Code), EventLiveUsers, live)
	return nil
}

// emit publishes a domain event when a bus is wired.
func (c *Coordinator) emit(name string, publish func(bus mono.EventBus) error) {
	if c.eventBus == nil {
		return
	}
	if err := publish(c.eventBus); err != nil {
		c.logger.Warn("Failed to publish event", "event", name, "error", err)
	}
}
