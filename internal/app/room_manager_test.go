package app

import (
	"testing"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRoomJoinIsIdempotent(t *testing.T) {
	m := NewRoomManager()
	assert.True(t, m.Join("c1", "g1"))
	assert.False(t, m.Join("c1", "g1"))
	assert.True(t, m.Join("c2", "g1"))

	assert.Equal(t, []core.ConnID{"c1", "c2"}, m.Members("g1"))
	assert.Empty(t, m.Members("nobody-here"))
}

func TestRoomDropConnLeavesEveryRoom(t *testing.T) {
	m := NewRoomManager()
	m.Join("c1", "u1")
	m.Join("c1", "g1")
	m.Join("c2", "g1")

	assert.Equal(t, []domain.RoomName{"g1", "u1"}, m.RoomsOf("c1"))

	m.DropConn("c1")
	assert.Empty(t, m.RoomsOf("c1"))
	assert.Equal(t, []core.ConnID{"c2"}, m.Members("g1"))
	assert.Equal(t, []core.RoomInfo{{Name: "g1", MemberCount: 1}}, m.List())

	m.DropConn("c1")
	m.DropConn("c2")
	assert.Empty(t, m.List())
}

func TestRoomLeave(t *testing.T) {
	m := NewRoomManager()
	m.Join("c1", "u1")
	m.Join("c1", "g1")

	assert.True(t, m.Leave("c1", "u1"))
	assert.False(t, m.Leave("c1", "u1"))
	assert.False(t, m.Leave("c9", "g1"))
	assert.Equal(t, []domain.RoomName{"g1"}, m.RoomsOf("c1"))
	assert.Equal(t, []core.RoomInfo{{Name: "g1", MemberCount: 1}}, m.List())
}
