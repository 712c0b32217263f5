package signal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/rs/zerolog/log"
)

var ErrIdentityMismatch = errors.New("identity_mismatch")

// decodeID reads the bare JSON string payload of addUser, joinRoom and
// joinConversation.
func decodeID(data json.RawMessage) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: data", core.ErrMissingField)
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrBadPayload, err)
	}
	if id == "" {
		return "", fmt.Errorf("%w: data", core.ErrMissingField)
	}
	return id, nil
}

func decodeUserID(data json.RawMessage) (domain.UserID, error) {
	raw, err := decodeID(data)
	if err != nil {
		return "", err
	}
	uid := domain.UserID(raw)
	if !uid.Valid() {
		return "", fmt.Errorf("%w: %v", core.ErrBadPayload, domain.ErrUserIDInvalid)
	}
	return uid, nil
}

func (ctl *SignalWSController) handleAddUser(
	cid core.ConnID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	uid, err := decodeUserID(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad addUser payload")
		ctl.sendError(conn, core.EvAddUser, err)
		return
	}
	if conn.sessionUser != "" && conn.sessionUser != uid {
		log.Warn().Str("module", "signal").Str("cid", string(cid)).Str("session", string(conn.sessionUser)).Str("user", string(uid)).Msg("addUser identity mismatch")
		ctl.sendError(conn, core.EvAddUser, ErrIdentityMismatch)
		return
	}

	res := ctl.Orch.AddUser(cid, uid)
	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("user", string(uid)).Int("notified", res.SendTo).Msg("addUser")
}

func (ctl *SignalWSController) handleJoinRoom(
	cid core.ConnID,
	conn *WsSignalConn,
	data json.RawMessage,
) {
	uid, err := decodeUserID(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad joinRoom payload")
		ctl.sendError(conn, core.EvJoinRoom, err)
		return
	}
	if conn.sessionUser != "" && conn.sessionUser != uid {
		log.Warn().Str("module", "signal").Str("cid", string(cid)).Str("session", string(conn.sessionUser)).Str("user", string(uid)).Msg("joinRoom identity mismatch")
		ctl.sendError(conn, core.EvJoinRoom, ErrIdentityMismatch)
		return
	}
	ctl.Orch.JoinRoom(cid, uid)
}
