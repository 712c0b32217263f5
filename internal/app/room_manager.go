package app

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

type connSet map[core.ConnID]struct{}

// RoomManager keeps named rooms of connections. Rooms appear on first join
// and vanish with their last member.
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomName]connSet
	byConn map[core.ConnID]map[domain.RoomName]struct{}
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:  make(map[domain.RoomName]connSet),
		byConn: make(map[core.ConnID]map[domain.RoomName]struct{}),
	}
}

// Join adds cid to room. It reports false when cid was already a member.
func (m *RoomManager) Join(cid core.ConnID, room domain.RoomName) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.rooms[room]
	if !ok {
		members = make(connSet)
		m.rooms[room] = members
	}
	if _, ok := members[cid]; ok {
		return false
	}
	members[cid] = struct{}{}

	joined, ok := m.byConn[cid]
	if !ok {
		joined = make(map[domain.RoomName]struct{})
		m.byConn[cid] = joined
	}
	joined[room] = struct{}{}
	log.Debug().Str("module", "app.rooms").Str("cid", string(cid)).Str("room", string(room)).Msg("joined")
	return true
}

// Members returns the connections in room, sorted.
func (m *RoomManager) Members(room domain.RoomName) []core.ConnID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := m.rooms[room]
	out := make([]core.ConnID, 0, len(members))
	for cid := range members {
		out = append(out, cid)
	}
	slices.Sort(out)
	return out
}

// RoomsOf returns the rooms cid has joined, sorted.
func (m *RoomManager) RoomsOf(cid core.ConnID) []domain.RoomName {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.RoomName, 0, len(m.byConn[cid]))
	for room := range m.byConn[cid] {
		out = append(out, room)
	}
	slices.Sort(out)
	return out
}

// Leave removes cid from room. It reports false when cid was not a member.
func (m *RoomManager) Leave(cid core.ConnID, room domain.RoomName) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.rooms[room]
	if !ok {
		return false
	}
	if _, ok := members[cid]; !ok {
		return false
	}
	delete(members, cid)
	if len(members) == 0 {
		delete(m.rooms, room)
	}
	if joined := m.byConn[cid]; joined != nil {
		delete(joined, room)
		if len(joined) == 0 {
			delete(m.byConn, cid)
		}
	}
	log.Debug().Str("module", "app.rooms").Str("cid", string(cid)).Str("room", string(room)).Msg("left")
	return true
}

// DropConn removes cid from every room it joined.
func (m *RoomManager) DropConn(cid core.ConnID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for room := range m.byConn[cid] {
		members := m.rooms[room]
		delete(members, cid)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
	delete(m.byConn, cid)
}

func (m *RoomManager) List() []core.RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(m.rooms))
	for name, members := range m.rooms {
		out = append(out, core.RoomInfo{Name: name, MemberCount: len(members)})
	}
	slices.SortFunc(out, func(a, b core.RoomInfo) int { return cmp.Compare(a.Name, b.Name) })
	return out
}
