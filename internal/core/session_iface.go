package core

import "github.com/dkeye/Chat/internal/domain"

// ConnID identifies one live transport session. It is generated on upgrade
// and never reused.
type ConnID string

// PresenceEntry pairs a logical user with one of its live connections.
type PresenceEntry struct {
	UserID domain.UserID `json:"userId"`
	ConnID ConnID        `json:"connectionId"`
}

// Target is a resolved delivery endpoint.
type Target struct {
	ConnID ConnID
	Signal SignalConnection
}

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []ConnID
}

// RoomInfo is a read-only view of a room for APIs.
type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	MemberCount int             `json:"client_count"`
}
