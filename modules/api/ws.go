package api

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/example/moderated-room/domain/room"
	"github.com/example/moderated-room/modules/broadcast"
	"github.com/example/moderated-room/modules/session"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// handleWebSocket handles WebSocket connections at /ws.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()
	conn := broadcast.NewConn(connID, c, m.cfg.WSSendBuffer)
	go conn.Run()

	m.realtime.Connect(conn)
	limiter := rate.NewLimiter(rate.Limit(m.cfg.SendRatePerSec), m.cfg.SendBurst)

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StoreTimeout)
		defer cancel()
		if err := m.realtime.HandleDisconnect(ctx, connID); err != nil {
			m.logger.Warn("Disconnect cleanup failed", "conn", connID, "error", err)
		}
		conn.Close()
		conn.Wait()
		m.logger.Info("WebSocket client disconnected", "conn", connID)
	}()

	m.logger.Info("WebSocket client connected", "conn", connID)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Warn("WebSocket read error", "conn", connID, "error", err)
			}
			return
		}
		m.dispatch(connID, limiter, data)
	}
}

// dispatch decodes one inbound frame and routes it to the coordinator.
// Malformed or unauthorised frames are dropped.
func (m *APIModule) dispatch(connID string, limiter *rate.Limiter, data []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		m.logger.Debug("Ignoring malformed frame", "conn", connID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.StoreTimeout)
	defer cancel()

	var err error
	switch env.Type {
	case WSJoinRoom:
		var req session.JoinRequest
		if !m.decode(connID, env, &req) {
			return
		}
		err = m.realtime.HandleJoin(ctx, connID, req)

	case WSSendMessage:
		if limiter != nil && !limiter.Allow() {
			m.logger.Debug("Send rate exceeded", "conn", connID)
			return
		}
		var req session.SendRequest
		if !m.decode(connID, env, &req) {
			return
		}
		if req.UserID == "" {
			if b, ok := m.realtime.Binding(connID); ok {
				req.UserID = b.UserID
			}
		}
		err = m.realtime.HandleSend(ctx, req)

	case WSApproveMessage:
		var p messagePayload
		if !m.authorize(connID, env.Type, room.RoleAdmin, room.RoleSuperadmin) || !m.decode(connID, env, &p) {
			return
		}
		err = m.realtime.ApproveMessage(ctx, p.MessageID)

	case WSApproveUser:
		var p userPayload
		if !m.authorize(connID, env.Type, room.RoleAdmin, room.RoleSuperadmin) || !m.decode(connID, env, &p) {
			return
		}
		err = m.realtime.ApproveUser(ctx, p.UserID)

	case WSKickUser:
		var p userPayload
		if !m.authorize(connID, env.Type, room.RoleAdmin, room.RoleSuperadmin) || !m.decode(connID, env, &p) {
			return
		}
		err = m.realtime.KickUser(ctx, p.UserID, p.RoomCode)

	case WSGetPendingMessages:
		var p roomPayload
		if !m.authorize(connID, env.Type, room.RoleAdmin, room.RoleSuperadmin) || !m.decode(connID, env, &p) {
			return
		}
		err = m.realtime.GetPendingMessages(ctx, connID, p.RoomCode)

	case WSDeleteRoom:
		var p roomPayload
		if !m.authorize(connID, env.Type, room.RoleSuperadmin) || !m.decode(connID, env, &p) {
			return
		}
		err = m.realtime.DeleteRoom(ctx, p.RoomCode)

	case WSLeaveRoom:
		var p userPayload
		if !m.decode(connID, env, &p) {
			return
		}
		err = m.realtime.HandleLeave(ctx, connID, p.UserID, p.RoomCode)

	default:
		m.logger.Debug("Ignoring unknown event", "conn", connID, "type", env.Type)
		return
	}

	switch {
	case err == nil:
	case isNotFound(err):
		m.logger.Debug("Event target not found", "conn", connID, "type", env.Type, "error", err)
	default:
		m.logger.Warn("Event handling failed", "conn", connID, "type", env.Type, "error", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, session.ErrRoomNotFound) ||
		errors.Is(err, session.ErrUserNotFound) ||
		errors.Is(err, session.ErrMessageNotFound)
}

func (m *APIModule) decode(connID string, env inboundEnvelope, target any) bool {
	if len(env.Payload) == 0 {
		m.logger.Debug("Ignoring event without payload", "conn", connID, "type", env.Type)
		return false
	}
	if err := json.Unmarshal(env.Payload, target); err != nil {
		m.logger.Debug("Ignoring malformed payload", "conn", connID, "type", env.Type, "error", err)
		return false
	}
	return true
}

// authorize checks that the connection was bound with one of the roles.
func (m *APIModule) authorize(connID, event string, roles ...room.Role) bool {
	b, ok := m.realtime.Binding(connID)
	if ok && b.Bound() {
		for _, role := range roles {
			if b.Role == role {
				return true
			}
		}
	}
	m.logger.Debug("Ignoring unauthorised event", "conn", connID, "type", event)
	return false
}
