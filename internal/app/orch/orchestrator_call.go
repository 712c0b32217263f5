package orch

import (
	"github.com/dkeye/Chat/internal/core"
	"github.com/rs/zerolog/log"
)

// The relay holds no call records. Each handler only routes one envelope to
// the counterpart's live connections.

// CallUser relays an offer to every connection of the callee. An offline
// callee means zero deliveries and no error.
func (o *Orchestrator) CallUser(cid core.ConnID, p core.CallOffer) core.PublishResult {
	res := o.EmitUser(p.UserToCall, core.EvCallUser, core.IncomingCall{
		Signal: p.SignalData,
		From:   p.From,
		Name:   p.Name,
	})
	log.Info().Str("module", "orch.call").Str("from", string(p.From)).Str("to", string(p.UserToCall)).Int("sent_to", res.SendTo).Msg("offer")
	if res.SendTo == 0 && o.notifyUnavailable.Load() {
		o.EmitConn(cid, core.EvCallUnavailable, core.Unavailable{To: p.UserToCall})
	}
	return res
}

// AnswerCall relays the callee's answer signal back to the caller.
func (o *Orchestrator) AnswerCall(p core.CallAnswer) core.PublishResult {
	res := o.EmitUser(p.To, core.EvCallAccepted, p.Signal)
	log.Info().Str("module", "orch.call").Str("to", string(p.To)).Int("sent_to", res.SendTo).Msg("answer")
	return res
}

// EndCall tells the counterpart to tear down, whatever state the call is in.
func (o *Orchestrator) EndCall(p core.CallEnd) core.PublishResult {
	res := o.EmitUser(p.To, core.EvEndCall, nil)
	log.Info().Str("module", "orch.call").Str("to", string(p.To)).Int("sent_to", res.SendTo).Msg("end")
	return res
}
