package signal

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Chat/internal/core"
	"github.com/rs/zerolog/log"
)

type validator interface {
	Validate() error
}

// decodeCall unmarshals and validates a call envelope.
func decodeCall(data json.RawMessage, p validator) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: data", core.ErrMissingField)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("%w: %v", core.ErrBadPayload, err)
	}
	return p.Validate()
}

func (ctl *SignalWSController) handleCallUser(
	cid core.ConnID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p core.CallOffer
	if err := decodeCall(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad callUser payload")
		ctl.sendError(conn, core.EvCallUser, err)
		return
	}
	ctl.Orch.CallUser(cid, p)
}

func (ctl *SignalWSController) handleAnswerCall(
	cid core.ConnID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p core.CallAnswer
	if err := decodeCall(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad answerCall payload")
		ctl.sendError(conn, core.EvAnswerCall, err)
		return
	}
	ctl.Orch.AnswerCall(p)
}

func (ctl *SignalWSController) handleEndCall(
	cid core.ConnID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	var p core.CallEnd
	if err := decodeCall(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad endCall payload")
		ctl.sendError(conn, core.EvEndCall, err)
		return
	}
	ctl.Orch.EndCall(p)
}
