package signal

import "github.com/dkeye/Chat/internal/core"

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	ctl.send(conn, core.EvPong, nil)
}
