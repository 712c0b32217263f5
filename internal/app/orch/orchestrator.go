package orch

import (
	"sync/atomic"

	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator routes relay events to their targets. It owns no state of its
// own; presence lives in Registry and group membership in Rooms.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.RoomManager
	Policy   app.Policy

	// notifyUnavailable sends callUnavailable back to a caller whose callee
	// has no live connection. Off by default: offers are dropped silently.
	notifyUnavailable atomic.Bool
}

func New(reg *app.Registry, rooms *app.RoomManager, policy app.Policy) *Orchestrator {
	return &Orchestrator{Registry: reg, Rooms: rooms, Policy: policy}
}

// SetNotifyUnavailable toggles the callUnavailable notice. Safe to call
// while serving.
func (o *Orchestrator) SetNotifyUnavailable(on bool) {
	o.notifyUnavailable.Store(on)
}

func (o *Orchestrator) deliver(targets []core.Target, f core.Frame) core.PublishResult {
	res := core.PublishResult{}
	for _, t := range targets {
		if err := t.Signal.TrySend(f); err != nil {
			res.Dropped = append(res.Dropped, t.ConnID)
			continue
		}
		res.SendTo++
	}
	o.applyPolicy(res.Dropped)
	return res
}

func (o *Orchestrator) applyPolicy(dropped []core.ConnID) {
	if o.Policy == nil {
		return
	}
	for _, cid := range dropped {
		switch o.Policy.OnBackPressure(cid) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("cid", string(cid)).Msg("kicking slow connection")
			o.Registry.Cancel(cid)
		case app.MarkSlow, app.DropFrame, app.NoAction:
		}
	}
}

func (o *Orchestrator) emit(targets []core.Target, typ string, data any) core.PublishResult {
	if len(targets) == 0 {
		return core.PublishResult{}
	}
	f, err := core.EncodeEvent(typ, data)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("event", typ).Msg("encode")
		return core.PublishResult{}
	}
	res := o.deliver(targets, f)
	log.Debug().Str("module", "orch").Str("event", typ).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("emit")
	return res
}

// EmitAll broadcasts to every live connection.
func (o *Orchestrator) EmitAll(typ string, data any) core.PublishResult {
	return o.emit(o.Registry.All(), typ, data)
}

// EmitAllExcept broadcasts to every live connection but cid.
func (o *Orchestrator) EmitAllExcept(cid core.ConnID, typ string, data any) core.PublishResult {
	all := o.Registry.All()
	targets := all[:0]
	for _, t := range all {
		if t.ConnID != cid {
			targets = append(targets, t)
		}
	}
	return o.emit(targets, typ, data)
}

// EmitRoom delivers to every connection that joined room.
func (o *Orchestrator) EmitRoom(room domain.RoomName, typ string, data any) core.PublishResult {
	return o.emit(o.Registry.Resolve(o.Rooms.Members(room)), typ, data)
}

// EmitUser delivers to every live connection of uid. Connections that only
// joined the personal room without registering are used as a fallback;
// members registered as another user never are.
func (o *Orchestrator) EmitUser(uid domain.UserID, typ string, data any) core.PublishResult {
	targets := o.Registry.Targets(uid)
	if len(targets) == 0 {
		targets = o.personalRoomTargets(uid)
	}
	if len(targets) == 0 {
		log.Debug().Str("module", "orch").Str("event", typ).Str("user", string(uid)).Msg("user offline, dropped")
	}
	return o.emit(targets, typ, data)
}

func (o *Orchestrator) personalRoomTargets(uid domain.UserID) []core.Target {
	members := o.Rooms.Members(domain.PersonalRoom(uid))
	cids := members[:0]
	for _, cid := range members {
		if owner, ok := o.Registry.UserOf(cid); ok && owner != uid {
			continue
		}
		cids = append(cids, cid)
	}
	return o.Registry.Resolve(cids)
}

// EmitConn delivers to a single connection.
func (o *Orchestrator) EmitConn(cid core.ConnID, typ string, data any) core.PublishResult {
	return o.emit(o.Registry.Resolve([]core.ConnID{cid}), typ, data)
}
