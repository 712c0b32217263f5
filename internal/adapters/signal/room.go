package signal

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoinConversation(
	cid core.ConnID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	id, err := decodeID(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad joinConversation payload")
		ctl.sendError(conn, core.EvJoinConversation, err)
		return
	}
	ctl.Orch.JoinConversation(cid, domain.ConversationID(id))
}

// handleSendMessage fans out a message the client already persisted over
// REST. Only conversationId is read; the rest goes out verbatim.
func (ctl *SignalWSController) handleSendMessage(
	cid core.ConnID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var env core.MessageEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad sendMessage payload")
		ctl.sendError(conn, core.EvSendMessage, fmt.Errorf("%w: %v", core.ErrBadPayload, err))
		return
	}
	if env.ConversationID == "" {
		ctl.sendError(conn, core.EvSendMessage, fmt.Errorf("%w: conversationId", core.ErrMissingField))
		return
	}

	res := ctl.Orch.SendMessage(env.ConversationID, data)
	log.Debug().Str("module", "signal").Str("cid", string(cid)).Str("conversation", string(env.ConversationID)).Int("sent_to", res.SendTo).Msg("sendMessage")
}
