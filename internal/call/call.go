// Package call tracks one peer's view of a 1:1 call. The server relays
// signals without state, so every client keeps its own machine:
//
//	idle -> calling  -> accepted -> active -> ended
//	idle -> ringing  -> accepted -> active -> ended
//
// Any state may jump to ended.
package call

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Chat/internal/domain"
)

type State int

const (
	Idle State = iota
	Calling
	Ringing
	Accepted
	Active
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Calling:
		return "calling"
	case Ringing:
		return "ringing"
	case Accepted:
		return "accepted"
	case Active:
		return "active"
	case Ended:
		return "ended"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var ErrInvalidTransition = errors.New("invalid call transition")

type Call struct {
	mu       sync.Mutex
	state    State
	peer     domain.UserID
	peerName string
	remote   json.RawMessage
}

func New() *Call { return &Call{} }

func (c *Call) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Peer is the other side of the current or last call.
func (c *Call) Peer() (domain.UserID, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peer, c.peerName
}

// RemoteSignal is the last signal received from the peer.
func (c *Call) RemoteSignal() json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote
}

func (c *Call) move(to State, allowed ...State) error {
	for _, from := range allowed {
		if c.state == from {
			c.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, to)
}

// Dial starts an outgoing call. A finished call may be redialed.
func (c *Call) Dial(peer domain.UserID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.move(Calling, Idle, Ended); err != nil {
		return err
	}
	c.peer, c.peerName, c.remote = peer, "", nil
	return nil
}

// Ring records an incoming offer.
func (c *Call) Ring(from domain.UserID, name string, signal json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.move(Ringing, Idle, Ended); err != nil {
		return err
	}
	c.peer, c.peerName, c.remote = from, name, signal
	return nil
}

// Answer is the callee picking up.
func (c *Call) Answer() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.move(Accepted, Ringing)
}

// Accepted is the caller receiving the callee's answer.
func (c *Call) Accepted(signal json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.move(Accepted, Calling); err != nil {
		return err
	}
	c.remote = signal
	return nil
}

// Connected marks media as flowing.
func (c *Call) Connected() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.move(Active, Accepted)
}

// Hangup ends the call from any state. It reports whether a call was in
// progress.
func (c *Call) Hangup() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	live := c.state != Idle && c.state != Ended
	c.state = Ended
	return live
}
