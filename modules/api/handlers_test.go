package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/moderated-room/config"
	"github.com/example/moderated-room/domain/room"
	"github.com/example/moderated-room/modules/audit"
	"github.com/example/moderated-room/modules/session"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }

// mockSessionPort implements session.SessionPort for testing
type mockSessionPort struct {
	createRoomFunc     func(ctx context.Context, name, createdBy string) (*room.Room, error)
	registerUserFunc   func(ctx context.Context, roomCode, username string) (*room.User, error)
	approveUserFunc    func(ctx context.Context, userID string) error
	kickUserFunc       func(ctx context.Context, userID, roomCodeHint string) error
	deleteRoomFunc     func(ctx context.Context, roomCode string) error
	approveMessageFunc func(ctx context.Context, messageID string) error
	deleteMessageFunc  func(ctx context.Context, messageID string) error
	listUsersFunc      func(ctx context.Context, roomCode string, status room.Status) ([]*room.User, error)
	listMessagesFunc   func(ctx context.Context, roomCode string, status room.Status) ([]*room.Message, error)
}

var errNotImplemented = errors.New("not implemented")

func (m *mockSessionPort) CreateRoom(ctx context.Context, name, createdBy string) (*room.Room, error) {
	if m.createRoomFunc != nil {
		return m.createRoomFunc(ctx, name, createdBy)
	}
	return nil, errNotImplemented
}

func (m *mockSessionPort) RegisterUser(ctx context.Context, roomCode, username string) (*room.User, error) {
	if m.registerUserFunc != nil {
		return m.registerUserFunc(ctx, roomCode, username)
	}
	return nil, errNotImplemented
}

func (m *mockSessionPort) ApproveUser(ctx context.Context, userID string) error {
	if m.approveUserFunc != nil {
		return m.approveUserFunc(ctx, userID)
	}
	return errNotImplemented
}

func (m *mockSessionPort) KickUser(ctx context.Context, userID, roomCodeHint string) error {
	if m.kickUserFunc != nil {
		return m.kickUserFunc(ctx, userID, roomCodeHint)
	}
	return errNotImplemented
}

func (m *mockSessionPort) DeleteRoom(ctx context.Context, roomCode string) error {
	if m.deleteRoomFunc != nil {
		return m.deleteRoomFunc(ctx, roomCode)
	}
	return errNotImplemented
}

func (m *mockSessionPort) ApproveMessage(ctx context.Context, messageID string) error {
	if m.approveMessageFunc != nil {
		return m.approveMessageFunc(ctx, messageID)
	}
	return errNotImplemented
}

func (m *mockSessionPort) DeleteMessage(ctx context.Context, messageID string) error {
	if m.deleteMessageFunc != nil {
		return m.deleteMessageFunc(ctx, messageID)
	}
	return errNotImplemented
}

func (m *mockSessionPort) ListUsers(ctx context.Context, roomCode string, status room.Status) ([]*room.User, error) {
	if m.listUsersFunc != nil {
		return m.listUsersFunc(ctx, roomCode, status)
	}
	return nil, errNotImplemented
}

func (m *mockSessionPort) ListMessages(ctx context.Context, roomCode string, status room.Status) ([]*room.Message, error) {
	if m.listMessagesFunc != nil {
		return m.listMessagesFunc(ctx, roomCode, status)
	}
	return nil, errNotImplemented
}

func testConfig() config.Config {
	return config.Config{
		Port:             "0",
		CORSAllowOrigins: "*",
		SendRatePerSec:   5,
		SendBurst:        10,
		WSSendBuffer:     8,
		StoreTimeout:     time.Second,
		AuditCapacity:    10,
		SuperadminKey:    "root-key",
		AdminKey:         "mod-key",
		BroadcastKey:     "feed-key",
	}
}

func newTestModule(port session.SessionPort) *APIModule {
	m := NewModule(testConfig(), &mockLogger{})
	m.session = port
	return m
}

func doRequest(t *testing.T, m *APIModule, method, path, key, body string) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(AccessKeyHeader, key)
	}

	resp, err := m.newApp().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestAccessControl(t *testing.T) {
	port := &mockSessionPort{
		deleteRoomFunc:  func(_ context.Context, _ string) error { return nil },
		approveUserFunc: func(_ context.Context, _ string) error { return nil },
	}
	m := newTestModule(port)

	tests := []struct {
		name           string
		method         string
		path           string
		key            string
		expectedStatus int
	}{
		{"no key on admin route", http.MethodPatch, "/api/v1/users/u1/approve", "", http.StatusUnauthorized},
		{"broadcast key on admin route", http.MethodPatch, "/api/v1/users/u1/approve", "feed-key", http.StatusUnauthorized},
		{"admin key on admin route", http.MethodPatch, "/api/v1/users/u1/approve", "mod-key", http.StatusNoContent},
		{"superadmin key on admin route", http.MethodPatch, "/api/v1/users/u1/approve", "root-key", http.StatusNoContent},
		{"admin key on superadmin route", http.MethodDelete, "/api/v1/rooms/ABC123", "mod-key", http.StatusUnauthorized},
		{"superadmin key on superadmin route", http.MethodDelete, "/api/v1/rooms/ABC123", "root-key", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := doRequest(t, m, tt.method, tt.path, tt.key, "")
			assert.Equal(t, tt.expectedStatus, status)
		})
	}
}

func TestCreateRoom(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		var gotName, gotBy string
		m := newTestModule(&mockSessionPort{
			createRoomFunc: func(_ context.Context, name, createdBy string) (*room.Room, error) {
				gotName, gotBy = name, createdBy
				return &room.Room{ID: "r1", Code: "ABC123", Name: name}, nil
			},
		})

		status, body := doRequest(t, m, http.MethodPost, "/api/v1/rooms", "root-key", `{"name":"Lobby"}`)
		assert.Equal(t, http.StatusCreated, status)
		assert.Equal(t, "Lobby", gotName)
		assert.Equal(t, "superadmin", gotBy)

		var r room.Room
		require.NoError(t, json.Unmarshal([]byte(body), &r))
		assert.Equal(t, "ABC123", r.Code)
	})

	t.Run("error mapping", func(t *testing.T) {
		tests := []struct {
			err            error
			expectedStatus int
			expectedBody   string
		}{
			{fmt.Errorf("%w: room name is required", session.ErrInvalidInput), http.StatusBadRequest, "validation_error"},
			{session.ErrRoomCodeExhausted, http.StatusServiceUnavailable, "code_exhausted"},
			{errors.New("nats timeout"), http.StatusInternalServerError, "internal_error"},
		}
		for _, tt := range tests {
			m := newTestModule(&mockSessionPort{
				createRoomFunc: func(_ context.Context, _, _ string) (*room.Room, error) {
					return nil, tt.err
				},
			})
			status, body := doRequest(t, m, http.MethodPost, "/api/v1/rooms", "root-key", `{"name":""}`)
			assert.Equal(t, tt.expectedStatus, status)
			assert.Contains(t, body, tt.expectedBody)
		}
	})

	t.Run("bad body", func(t *testing.T) {
		m := newTestModule(&mockSessionPort{})
		status, body := doRequest(t, m, http.MethodPost, "/api/v1/rooms", "root-key", `{`)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Contains(t, body, "invalid_request")
	})
}

func TestJoinRoom(t *testing.T) {
	m := newTestModule(&mockSessionPort{
		registerUserFunc: func(_ context.Context, roomCode, username string) (*room.User, error) {
			if roomCode != "ABC123" {
				return nil, session.ErrRoomNotFound
			}
			return &room.User{ID: "u1", Username: username, Role: room.RoleUser, Status: room.StatusPending}, nil
		},
	})

	status, body := doRequest(t, m, http.MethodPost, "/api/v1/rooms/join", "", `{"room_code":"ABC123","username":"ann"}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Contains(t, body, `"status":"pending"`)

	status, body = doRequest(t, m, http.MethodPost, "/api/v1/rooms/join", "", `{"room_code":"ZZZ999","username":"ann"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Room not found")
}

func TestListUsers(t *testing.T) {
	var gotCode string
	var gotStatus room.Status
	m := newTestModule(&mockSessionPort{
		listUsersFunc: func(_ context.Context, roomCode string, status room.Status) ([]*room.User, error) {
			gotCode, gotStatus = roomCode, status
			return nil, nil
		},
	})

	status, body := doRequest(t, m, http.MethodGet, "/api/v1/rooms/abc123/users?status=pending", "mod-key", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ABC123", gotCode)
	assert.Equal(t, room.StatusPending, gotStatus)

	var resp UserListResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.NotNil(t, resp.Users)
	assert.Empty(t, resp.Users)
}

func TestListMessages(t *testing.T) {
	m := newTestModule(&mockSessionPort{
		listMessagesFunc: func(_ context.Context, _ string, status room.Status) ([]*room.Message, error) {
			if status == "bogus" {
				return nil, fmt.Errorf("%w: invalid status", session.ErrInvalidInput)
			}
			return []*room.Message{{ID: "m1", Content: "hi", Status: room.StatusApproved}}, nil
		},
	})

	status, body := doRequest(t, m, http.MethodGet, "/api/v1/rooms/ABC123/messages", "root-key", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"m1"`)

	status, _ = doRequest(t, m, http.MethodGet, "/api/v1/rooms/ABC123/messages?status=bogus", "root-key", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestModerationRoutes(t *testing.T) {
	var kicked, hint, deleted string
	m := newTestModule(&mockSessionPort{
		kickUserFunc: func(_ context.Context, userID, roomCodeHint string) error {
			kicked, hint = userID, roomCodeHint
			return nil
		},
		deleteMessageFunc: func(_ context.Context, messageID string) error {
			if messageID == "gone" {
				return session.ErrMessageNotFound
			}
			deleted = messageID
			return nil
		},
		approveUserFunc: func(_ context.Context, _ string) error {
			return session.ErrUserNotFound
		},
	})

	status, _ := doRequest(t, m, http.MethodDelete, "/api/v1/users/u7?room_code=ABC123", "mod-key", "")
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, "u7", kicked)
	assert.Equal(t, "ABC123", hint)

	status, _ = doRequest(t, m, http.MethodDelete, "/api/v1/messages/m9", "mod-key", "")
	assert.Equal(t, http.StatusNoContent, status)
	assert.Equal(t, "m9", deleted)

	status, body := doRequest(t, m, http.MethodDelete, "/api/v1/messages/gone", "mod-key", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Message not found")

	status, body = doRequest(t, m, http.MethodPatch, "/api/v1/users/nobody/approve", "mod-key", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "User not found")
}

func TestListAudit(t *testing.T) {
	m := newTestModule(&mockSessionPort{})

	status, body := doRequest(t, m, http.MethodGet, "/api/v1/audit", "root-key", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"entries":[]}`, body)

	trail := audit.NewTrail(5)
	trail.Add(audit.Entry{Event: "room_created", RoomCode: "ABC123"})
	trail.Add(audit.Entry{Event: "user_kicked", RoomCode: "ABC123"})
	m.SetAudit(trail)

	status, body = doRequest(t, m, http.MethodGet, "/api/v1/audit?limit=1", "root-key", "")
	assert.Equal(t, http.StatusOK, status)

	var resp AuditResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "user_kicked", resp.Entries[0].Event)

	status, _ = doRequest(t, m, http.MethodGet, "/api/v1/audit", "mod-key", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestHealthAndUpgrade(t *testing.T) {
	m := newTestModule(&mockSessionPort{})

	status, body := doRequest(t, m, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"healthy"`)

	status, _ = doRequest(t, m, http.MethodGet, "/ws", "", "")
	assert.Equal(t, http.StatusUpgradeRequired, status)
}

func TestStart_RequiresDependencies(t *testing.T) {
	m := NewModule(testConfig(), &mockLogger{})
	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session adapter")

	m.session = &mockSessionPort{}
	err = m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "realtime")
}
