package signal

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Chat/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		// Unblocks readPump when the context was canceled from outside.
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Cfg.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cid core.ConnID, c *WsSignalConn, cancel context.CancelFunc) {
	defer func() {
		log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(cid)
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(cid)
		}
		c.Close()
	}()

	if ctl.Cfg.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.Cfg.ReadLimit)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Error().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
			ctl.handleSignal(cid, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(cid core.ConnID, c *WsSignalConn, data []byte) {
	ev, err := core.DecodeEvent(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("bad envelope")
		ctl.sendError(c, "", err)
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(cid) {
		log.Warn().Str("module", "signal").Str("cid", string(cid)).Str("type", ev.Type).Msg("rate limited")
		ctl.sendError(c, ev.Type, core.ErrRateLimited)
		return
	}

	switch ev.Type {
	case core.EvAddUser:
		ctl.handleAddUser(cid, c, ev.Data)
	case core.EvJoinRoom:
		ctl.handleJoinRoom(cid, c, ev.Data)
	case core.EvJoinConversation:
		ctl.handleJoinConversation(cid, c, ev.Data)
	case core.EvSendMessage:
		ctl.handleSendMessage(cid, c, ev.Data)
	case core.EvCallUser:
		ctl.handleCallUser(cid, c, ev.Data)
	case core.EvAnswerCall:
		ctl.handleAnswerCall(cid, c, ev.Data)
	case core.EvEndCall:
		ctl.handleEndCall(cid, c, ev.Data)
	case core.EvPing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", ev.Type).Msg("unknown signal")
		ctl.sendError(c, ev.Type, core.ErrUnknownEvent)
	}
}

func (ctl *SignalWSController) send(c *WsSignalConn, typ string, data any) {
	f, err := core.EncodeEvent(typ, data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("send encode")
		return
	}
	_ = c.TrySend(f)
}

// sendError answers a rejected event. The reason is the sentinel the error
// wraps, so clients can switch on it.
func (ctl *SignalWSController) sendError(c *WsSignalConn, event string, err error) {
	reason := err.Error()
	for _, sentinel := range []error{
		core.ErrBadPayload, core.ErrMissingField, core.ErrRateLimited, core.ErrUnknownEvent, ErrIdentityMismatch,
	} {
		if errors.Is(err, sentinel) {
			reason = sentinel.Error()
			break
		}
	}
	ctl.send(c, core.EvError, core.ErrorPayload{Event: event, Error: reason})
}
