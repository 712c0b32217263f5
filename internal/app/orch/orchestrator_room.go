package orch

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

// Connect binds the transport of a new connection. It has no presence until
// AddUser.
func (o *Orchestrator) Connect(cid core.ConnID, sig core.SignalConnection, cancel context.CancelFunc) {
	o.Registry.BindSignal(cid, sig, cancel)
	log.Info().Str("module", "orch").Str("cid", string(cid)).Msg("connected")
}

// AddUser registers cid as uid, joins its personal room and broadcasts the
// new presence snapshot. A connection switching users leaves the personal
// room of the user it replaced.
func (o *Orchestrator) AddUser(cid core.ConnID, uid domain.UserID) core.PublishResult {
	if prev := o.Registry.Register(cid, uid); prev != "" && prev != uid {
		o.Rooms.Leave(cid, domain.PersonalRoom(prev))
	}
	o.Rooms.Join(cid, domain.PersonalRoom(uid))
	return o.broadcastPresence()
}

// JoinRoom joins the personal room of uid.
func (o *Orchestrator) JoinRoom(cid core.ConnID, uid domain.UserID) {
	if o.Rooms.Join(cid, domain.PersonalRoom(uid)) {
		log.Info().Str("module", "orch").Str("cid", string(cid)).Str("user", string(uid)).Msg("joined personal room")
	}
}

func (o *Orchestrator) JoinConversation(cid core.ConnID, conv domain.ConversationID) {
	if o.Rooms.Join(cid, domain.ConversationRoom(conv)) {
		log.Info().Str("module", "orch").Str("cid", string(cid)).Str("conversation", string(conv)).Msg("joined conversation")
	}
}

// SendMessage relays an already persisted message, verbatim, to every
// connection in the room of its conversation, sender included.
func (o *Orchestrator) SendMessage(conv domain.ConversationID, msg json.RawMessage) core.PublishResult {
	return o.EmitRoom(domain.ConversationRoom(conv), core.EvMessage, msg)
}

// Disconnect removes every trace of cid, then tells everybody left about the
// new presence and that any call with cid is over.
func (o *Orchestrator) Disconnect(cid core.ConnID) {
	o.Rooms.DropConn(cid)
	o.Registry.Unregister(cid)
	o.broadcastPresence()
	o.EmitAllExcept(cid, core.EvCallEnded, nil)
	log.Info().Str("module", "orch").Str("cid", string(cid)).Msg("disconnected")
}

func (o *Orchestrator) broadcastPresence() core.PublishResult {
	return o.EmitAll(core.EvGetUsers, o.Registry.Snapshot())
}
