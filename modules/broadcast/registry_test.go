package broadcast

import (
	"testing"

	"github.com/example/moderated-room/domain/room"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_BindOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Register("c1")

	b, ok := r.Lookup("c1")
	assert.True(t, ok)
	assert.False(t, b.Bound())

	prev := r.Bind("c1", Binding{RoomCode: "AAA111", Role: room.RoleUser, UserID: "u1"})
	assert.False(t, prev.Bound())

	prev = r.Bind("c1", Binding{RoomCode: "BBB222", Role: room.RoleAdmin})
	assert.Equal(t, "AAA111", prev.RoomCode)

	b, _ = r.Lookup("c1")
	assert.Equal(t, "BBB222", b.RoomCode)
	assert.Equal(t, room.RoleAdmin, b.Role)
}

func TestRegistry_UnbindAndReset(t *testing.T) {
	r := NewRegistry()
	r.Register("c1")
	r.Bind("c1", Binding{RoomCode: "AAA111", Role: room.RoleUser, UserID: "u1"})
	r.Register("c1")

	assert.Equal(t, []string{"c1"}, r.FindByUser("u1"))

	r.Reset("c1")
	b, ok := r.Lookup("c1")
	assert.True(t, ok)
	assert.False(t, b.Bound())

	r.Bind("c1", Binding{RoomCode: "AAA111", UserID: "u1"})
	last, ok := r.Unbind("c1")
	assert.True(t, ok)
	assert.Equal(t, "u1", last.UserID)
	assert.Equal(t, 0, r.Len())

	_, ok = r.Unbind("c1")
	assert.False(t, ok)
}
