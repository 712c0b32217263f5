package app

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	UserID domain.UserID
	Signal core.SignalConnection
	Cancel context.CancelFunc
}

// Registry maps live connections to the logical users they registered as.
// A connection carries at most one user; a user may own many connections.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.ConnID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.ConnID]*sessionEntry),
	}
}

// BindSignal attaches the transport of a freshly upgraded connection.
func (r *Registry) BindSignal(cid core.ConnID, sig core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[cid]; ok {
		e.Signal = sig
		e.Cancel = cancel
	} else {
		r.sessions[cid] = &sessionEntry{Signal: sig, Cancel: cancel}
	}
	log.Debug().Str("module", "app.registry").Str("cid", string(cid)).Msg("bound signal")
}

// Register records the presence entry (uid, cid). Registering the same
// connection again replaces its user; the replaced user is returned.
func (r *Registry) Register(cid core.ConnID, uid domain.UserID) domain.UserID {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[cid]
	if !ok {
		e = &sessionEntry{}
		r.sessions[cid] = e
	}
	prev := e.UserID
	e.UserID = uid
	ev := log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("user", string(uid))
	if prev != "" && prev != uid {
		ev = ev.Str("replaced", string(prev))
	}
	ev.Msg("registered")
	return prev
}

// Unregister forgets the connection entirely. It reports whether the
// connection had a presence entry.
func (r *Registry) Unregister(cid core.ConnID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[cid]
	if !ok {
		return false
	}
	delete(r.sessions, cid)
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Str("user", string(e.UserID)).Msg("unregistered")
	return e.UserID != ""
}

// UserOf returns the user a connection registered as.
func (r *Registry) UserOf(cid core.ConnID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[cid]
	if !ok || e.UserID == "" {
		return "", false
	}
	return e.UserID, true
}

// Lookup returns every live connection of uid, sorted. Empty when offline.
func (r *Registry) Lookup(uid domain.UserID) []core.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ConnID, 0, 2)
	for cid, e := range r.sessions {
		if e.UserID == uid {
			out = append(out, cid)
		}
	}
	slices.Sort(out)
	return out
}

// Online reports whether uid has at least one live connection.
func (r *Registry) Online(uid domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.sessions {
		if e.UserID == uid {
			return true
		}
	}
	return false
}

// Snapshot returns every presence entry exactly once, ordered by user then
// connection.
func (r *Registry) Snapshot() []core.PresenceEntry {
	r.mu.RLock()
	out := make([]core.PresenceEntry, 0, len(r.sessions))
	for cid, e := range r.sessions {
		if e.UserID == "" {
			continue
		}
		out = append(out, core.PresenceEntry{UserID: e.UserID, ConnID: cid})
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b core.PresenceEntry) int {
		if c := cmp.Compare(a.UserID, b.UserID); c != 0 {
			return c
		}
		return cmp.Compare(a.ConnID, b.ConnID)
	})
	return out
}

// Targets resolves the transports of every live connection of uid.
func (r *Registry) Targets(uid domain.UserID) []core.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.Target
	for cid, e := range r.sessions {
		if e.UserID == uid && e.Signal != nil {
			out = append(out, core.Target{ConnID: cid, Signal: e.Signal})
		}
	}
	return out
}

// Resolve returns transports for the given connection ids, skipping the ones
// that are gone.
func (r *Registry) Resolve(cids []core.ConnID) []core.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Target, 0, len(cids))
	for _, cid := range cids {
		if e, ok := r.sessions[cid]; ok && e.Signal != nil {
			out = append(out, core.Target{ConnID: cid, Signal: e.Signal})
		}
	}
	return out
}

// All returns the transports of every connection, registered or not.
func (r *Registry) All() []core.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.Target, 0, len(r.sessions))
	for cid, e := range r.sessions {
		if e.Signal != nil {
			out = append(out, core.Target{ConnID: cid, Signal: e.Signal})
		}
	}
	return out
}

// Len is the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) Cancel(cid core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.sessions[cid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("cid", string(cid)).Msg("canceled session")
	return true
}
