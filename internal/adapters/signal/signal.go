package signal

import (
	"context"
	"net/http"
	"sync"

	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/config"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// SessionUserKey is the gin context key under which the HTTP layer puts the
// logged-in user id, if any.
const SessionUserKey = "session_user"

type SignalWSController struct {
	Orch    *orch.Orchestrator
	Cfg     config.WSConfig
	Limiter *RateLimiter
}

func NewSignalWSController(o *orch.Orchestrator, cfg config.WSConfig) *SignalWSController {
	ctl := &SignalWSController{Orch: o, Cfg: cfg}
	if cfg.RateLimit > 0 {
		ctl.Limiter = NewRateLimiter(cfg.RateLimit, cfg.RateInterval)
	}
	return ctl
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	// sessionUser pins addUser when the socket came with a login session.
	sessionUser domain.UserID

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	cid := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn:        ws,
		send:        make(chan core.Frame, ctl.Cfg.SendBuffer),
		sessionUser: domain.UserID(c.GetString(SessionUserKey)),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Connect(cid, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cid, conn, cancel)
}
