// Package client is a small relay client: it speaks the event envelope over
// a gorilla websocket and keeps the local call state in step with what the
// relay delivers.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Chat/internal/call"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("client closed")

type Client struct {
	conn    *websocket.Conn
	events  chan core.Event
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	wmu sync.Mutex

	mu   sync.Mutex
	user domain.UserID
	name string

	Call *call.Call
}

// Dial connects to a relay endpoint such as ws://host/api/ws.
func Dial(ctx context.Context, url string, header http.Header) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	ws, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		conn:   ws,
		events:  make(chan core.Event, 256),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		Call:    call.New(),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.stopped)
	defer close(c.events)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Str("module", "client").Msg("read loop done")
			return
		}
		ev, err := core.DecodeEvent(data)
		if err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("bad frame")
			continue
		}
		c.observe(ev)
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}

// observe advances the call machine. Transitions that do not apply to the
// current state are ignored, as a busy peer would. callEnded goes out on any
// disconnect and does not name the peer, so only endCall hangs up.
func (c *Client) observe(ev core.Event) {
	switch ev.Type {
	case core.EvCallUser:
		var in core.IncomingCall
		if err := decodeData(ev, &in); err == nil {
			_ = c.Call.Ring(in.From, in.Name, in.Signal)
		}
	case core.EvCallAccepted:
		_ = c.Call.Accepted(ev.Data)
	case core.EvEndCall:
		c.Call.Hangup()
	}
}

func (c *Client) Emit(typ string, data any) error {
	f, err := core.EncodeEvent(typ, data)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, f)
}

// Next returns the next event, whatever its type.
func (c *Client) Next(ctx context.Context) (core.Event, error) {
	select {
	case ev, ok := <-c.events:
		if !ok {
			return core.Event{}, ErrClosed
		}
		return ev, nil
	case <-ctx.Done():
		return core.Event{}, ctx.Err()
	}
}

// NextOf skips events until one of type typ arrives.
func (c *Client) NextOf(ctx context.Context, typ string) (core.Event, error) {
	for {
		ev, err := c.Next(ctx)
		if err != nil {
			return ev, fmt.Errorf("waiting for %s: %w", typ, err)
		}
		if ev.Type == typ {
			return ev, nil
		}
	}
}

// Sync round-trips a ping. Events the relay handled for this connection
// before the pong are done by the time it returns.
func (c *Client) Sync(ctx context.Context) error {
	if err := c.Emit(core.EvPing, nil); err != nil {
		return err
	}
	_, err := c.NextOf(ctx, core.EvPong)
	return err
}

func (c *Client) Close() error {
	c.once.Do(func() { close(c.done) })
	c.wmu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.conn.Close()
}

// AddUser announces this connection as uid.
func (c *Client) AddUser(uid domain.UserID, name string) error {
	c.mu.Lock()
	c.user, c.name = uid, name
	c.mu.Unlock()
	return c.Emit(core.EvAddUser, uid)
}

func (c *Client) JoinConversation(id domain.ConversationID) error {
	return c.Emit(core.EvJoinConversation, id)
}

// SendMessage relays an already persisted message to its conversation.
func (c *Client) SendMessage(m *domain.Message) error {
	return c.Emit(core.EvSendMessage, m)
}

func (c *Client) CallUser(to domain.UserID, offer webrtc.SessionDescription) error {
	signal, err := call.EncodeSDP(offer)
	if err != nil {
		return err
	}
	if err := c.Call.Dial(to); err != nil {
		return err
	}
	c.mu.Lock()
	from, name := c.user, c.name
	c.mu.Unlock()
	return c.Emit(core.EvCallUser, core.CallOffer{UserToCall: to, SignalData: signal, From: from, Name: name})
}

func (c *Client) AnswerCall(answer webrtc.SessionDescription) error {
	signal, err := call.EncodeSDP(answer)
	if err != nil {
		return err
	}
	if err := c.Call.Answer(); err != nil {
		return err
	}
	peer, _ := c.Call.Peer()
	return c.Emit(core.EvAnswerCall, core.CallAnswer{Signal: signal, To: peer})
}

func (c *Client) EndCall() error {
	peer, _ := c.Call.Peer()
	c.Call.Hangup()
	if peer == "" {
		return nil
	}
	return c.Emit(core.EvEndCall, core.CallEnd{To: peer})
}
