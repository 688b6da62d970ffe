package api

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/moderated-room/domain/room"
	"github.com/example/moderated-room/modules/broadcast"
	"github.com/example/moderated-room/modules/session"
	fws "github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// fakeRealtime records the coordinator calls made by the dispatcher.
type fakeRealtime struct {
	mu       sync.Mutex
	bindings map[string]broadcast.Binding
	calls    []string
	joins    []session.JoinRequest
	sends    []session.SendRequest
}

func newFakeRealtime() *fakeRealtime {
	return &fakeRealtime{bindings: make(map[string]broadcast.Binding)}
}

func (f *fakeRealtime) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRealtime) Connect(s broadcast.Sender) {
	f.record("connect:" + s.ID())
}

func (f *fakeRealtime) Binding(connID string) (broadcast.Binding, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bindings[connID]
	return b, ok
}

func (f *fakeRealtime) HandleJoin(_ context.Context, _ string, req session.JoinRequest) error {
	f.mu.Lock()
	f.joins = append(f.joins, req)
	f.mu.Unlock()
	f.record("join")
	return nil
}

func (f *fakeRealtime) HandleSend(_ context.Context, req session.SendRequest) error {
	f.mu.Lock()
	f.sends = append(f.sends, req)
	f.mu.Unlock()
	f.record("send")
	return nil
}

func (f *fakeRealtime) ApproveMessage(_ context.Context, id string) error {
	f.record("approve_message:" + id)
	return nil
}

func (f *fakeRealtime) ApproveUser(_ context.Context, id string) error {
	f.record("approve_user:" + id)
	return nil
}

func (f *fakeRealtime) KickUser(_ context.Context, id, hint string) error {
	f.record("kick:" + id + ":" + hint)
	return nil
}

func (f *fakeRealtime) DeleteRoom(_ context.Context, code string) error {
	f.record("delete_room:" + code)
	return nil
}

func (f *fakeRealtime) HandleLeave(_ context.Context, _, userID, hint string) error {
	f.record("leave:" + userID + ":" + hint)
	return nil
}

func (f *fakeRealtime) GetPendingMessages(_ context.Context, _, code string) error {
	f.record("pending:" + code)
	return nil
}

func (f *fakeRealtime) HandleDisconnect(_ context.Context, connID string) error {
	f.record("disconnect:" + connID)
	return nil
}

func (f *fakeRealtime) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newDispatchModule(rt *fakeRealtime) *APIModule {
	m := NewModule(testConfig(), &mockLogger{})
	m.SetRealtime(rt, broadcast.NewHub(&mockLogger{}))
	return m
}

func TestDispatch_Join(t *testing.T) {
	rt := newFakeRealtime()
	m := newDispatchModule(rt)

	m.dispatch("c1", nil, []byte(`{"type":"join_room","payload":{"room_code":"abc123","role":"admin","credential":"mod-key"}}`))

	assert.Equal(t, []string{"join"}, rt.calls)
	assert.Equal(t, "abc123", rt.joins[0].RoomCode)
	assert.Equal(t, room.RoleAdmin, rt.joins[0].Role)
	assert.Equal(t, "mod-key", rt.joins[0].Credential)
}

func TestDispatch_IgnoresMalformed(t *testing.T) {
	rt := newFakeRealtime()
	m := newDispatchModule(rt)

	frames := []string{
		`not json`,
		`{"type":"join_room"}`,
		`{"type":"join_room","payload":"oops"}`,
		`{"type":"mystery","payload":{}}`,
	}
	for _, f := range frames {
		m.dispatch("c1", nil, []byte(f))
	}
	assert.Empty(t, rt.calls)
}

func TestDispatch_SendFallsBackToBoundUser(t *testing.T) {
	rt := newFakeRealtime()
	rt.bindings["c1"] = broadcast.Binding{RoomCode: "ABC123", Role: room.RoleUser, UserID: "u1"}
	m := newDispatchModule(rt)

	m.dispatch("c1", nil, []byte(`{"type":"send_message","payload":{"room_code":"ABC123","content":"hi"}}`))
	m.dispatch("c1", nil, []byte(`{"type":"send_message","payload":{"user_id":"u2","room_code":"ABC123","content":"yo"}}`))

	assert.Len(t, rt.sends, 2)
	assert.Equal(t, "u1", rt.sends[0].UserID)
	assert.Equal(t, "u2", rt.sends[1].UserID)
}

func TestDispatch_SendRateLimited(t *testing.T) {
	rt := newFakeRealtime()
	m := newDispatchModule(rt)
	limiter := rate.NewLimiter(rate.Limit(0.001), 2)

	frame := []byte(`{"type":"send_message","payload":{"user_id":"u1","room_code":"ABC123","content":"hi"}}`)
	for i := 0; i < 5; i++ {
		m.dispatch("c1", limiter, frame)
	}
	assert.Len(t, rt.sends, 2)
}

func TestDispatch_RoleGating(t *testing.T) {
	tests := []struct {
		name     string
		binding  *broadcast.Binding
		frame    string
		expected []string
	}{
		{
			name:     "unbound approve ignored",
			frame:    `{"type":"approve_message","payload":{"message_id":"m1"}}`,
			expected: nil,
		},
		{
			name:     "user approve ignored",
			binding:  &broadcast.Binding{RoomCode: "ABC123", Role: room.RoleUser},
			frame:    `{"type":"approve_message","payload":{"message_id":"m1"}}`,
			expected: nil,
		},
		{
			name:     "admin approve message",
			binding:  &broadcast.Binding{RoomCode: "ABC123", Role: room.RoleAdmin},
			frame:    `{"type":"approve_message","payload":{"message_id":"m1"}}`,
			expected: []string{"approve_message:m1"},
		},
		{
			name:     "superadmin approve user",
			binding:  &broadcast.Binding{RoomCode: "ABC123", Role: room.RoleSuperadmin},
			frame:    `{"type":"approve_user","payload":{"user_id":"u1","room_code":"ABC123"}}`,
			expected: []string{"approve_user:u1"},
		},
		{
			name:     "admin bound elsewhere acts by id",
			binding:  &broadcast.Binding{RoomCode: "OTHER1", Role: room.RoleAdmin},
			frame:    `{"type":"kick_user","payload":{"user_id":"u1","room_code":"ABC123"}}`,
			expected: []string{"kick:u1:ABC123"},
		},
		{
			name:     "admin kick",
			binding:  &broadcast.Binding{RoomCode: "ABC123", Role: room.RoleAdmin},
			frame:    `{"type":"kick_user","payload":{"user_id":"u1","room_code":"ABC123"}}`,
			expected: []string{"kick:u1:ABC123"},
		},
		{
			name:     "admin pending messages",
			binding:  &broadcast.Binding{RoomCode: "ABC123", Role: room.RoleAdmin},
			frame:    `{"type":"get_pending_messages","payload":{"room_code":"ABC123"}}`,
			expected: []string{"pending:ABC123"},
		},
		{
			name:     "admin delete room ignored",
			binding:  &broadcast.Binding{RoomCode: "ABC123", Role: room.RoleAdmin},
			frame:    `{"type":"delete_room","payload":{"room_code":"ABC123"}}`,
			expected: nil,
		},
		{
			name:     "superadmin delete room",
			binding:  &broadcast.Binding{RoomCode: "ABC123", Role: room.RoleSuperadmin},
			frame:    `{"type":"delete_room","payload":{"room_code":"ABC123"}}`,
			expected: []string{"delete_room:ABC123"},
		},
		{
			name:     "leave needs no role",
			frame:    `{"type":"leave_room","payload":{"user_id":"u1","room_code":"ABC123"}}`,
			expected: []string{"leave:u1:ABC123"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newFakeRealtime()
			if tt.binding != nil {
				rt.bindings["c1"] = *tt.binding
			}
			m := newDispatchModule(rt)

			m.dispatch("c1", nil, []byte(tt.frame))
			assert.Equal(t, tt.expected, rt.calls)
		})
	}
}

func TestHandleWebSocket_Lifecycle(t *testing.T) {
	rt := newFakeRealtime()
	m := newDispatchModule(rt)
	app := m.newApp()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(time.Second) })

	client, _, err := fws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)

	frame := `{"type":"join_room","payload":{"room_code":"ABC123","role":"user"}}`
	require.NoError(t, client.WriteMessage(fws.TextMessage, []byte(frame)))
	assert.Eventually(t, func() bool {
		return len(rt.snapshot()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	calls := rt.snapshot()
	require.Len(t, calls, 2)
	require.True(t, strings.HasPrefix(calls[0], "connect:"))
	connID := strings.TrimPrefix(calls[0], "connect:")
	assert.NotEmpty(t, connID)
	assert.Equal(t, "join", calls[1])

	require.NoError(t, client.Close())

	assert.Eventually(t, func() bool {
		calls := rt.snapshot()
		return len(calls) == 3 && calls[2] == "disconnect:"+connID
	}, 2*time.Second, 10*time.Millisecond)
}
