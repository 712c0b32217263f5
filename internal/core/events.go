package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Chat/internal/domain"
)

// Event names on the wire.
const (
	EvAddUser          = "addUser"
	EvJoinRoom         = "joinRoom"
	EvJoinConversation = "joinConversation"
	EvSendMessage      = "sendMessage"
	EvCallUser         = "callUser"
	EvAnswerCall       = "answerCall"
	EvEndCall          = "endCall"
	EvPing             = "ping"

	EvGetUsers        = "getUsers"
	EvMessage         = "message"
	EvCallAccepted    = "callAccepted"
	EvCallEnded       = "callEnded"
	EvCallUnavailable = "callUnavailable"
	EvPong            = "pong"
	EvError           = "error"
)

var (
	ErrBadPayload   = errors.New("bad_payload")
	ErrMissingField = errors.New("missing_field")
	ErrRateLimited  = errors.New("rate_limited")
	ErrUnknownEvent = errors.New("unknown_event")
)

// Event is the envelope of every frame exchanged over the socket.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent marshals data and wraps it into an Event frame.
func EncodeEvent(typ string, data any) (Frame, error) {
	ev := Event{Type: typ}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", typ, err)
		}
		ev.Data = raw
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", typ, err)
	}
	return b, nil
}

// DecodeEvent parses the envelope only; Data stays raw.
func DecodeEvent(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("%w: type", ErrMissingField)
	}
	return ev, nil
}

// ErrorPayload is sent back to a client whose event was rejected.
type ErrorPayload struct {
	Event string `json:"event"`
	Error string `json:"error"`
}

// CallOffer is the client envelope of callUser. SignalData is opaque.
type CallOffer struct {
	UserToCall domain.UserID   `json:"userToCall"`
	SignalData json.RawMessage `json:"signalData"`
	From       domain.UserID   `json:"from"`
	Name       string          `json:"name"`
}

func (p CallOffer) Validate() error {
	switch {
	case !p.UserToCall.Valid():
		return fmt.Errorf("%w: userToCall", ErrMissingField)
	case !p.From.Valid():
		return fmt.Errorf("%w: from", ErrMissingField)
	case len(p.SignalData) == 0:
		return fmt.Errorf("%w: signalData", ErrMissingField)
	}
	return nil
}

// IncomingCall is what the callee receives for callUser.
type IncomingCall struct {
	Signal json.RawMessage `json:"signal"`
	From   domain.UserID   `json:"from"`
	Name   string          `json:"name"`
}

// CallAnswer is the client envelope of answerCall.
type CallAnswer struct {
	Signal json.RawMessage `json:"signal"`
	To     domain.UserID   `json:"to"`
}

func (p CallAnswer) Validate() error {
	switch {
	case !p.To.Valid():
		return fmt.Errorf("%w: to", ErrMissingField)
	case len(p.Signal) == 0:
		return fmt.Errorf("%w: signal", ErrMissingField)
	}
	return nil
}

// CallEnd is the client envelope of endCall.
type CallEnd struct {
	To domain.UserID `json:"to"`
}

func (p CallEnd) Validate() error {
	if !p.To.Valid() {
		return fmt.Errorf("%w: to", ErrMissingField)
	}
	return nil
}

// Unavailable tells a caller that the callee has no live connection.
type Unavailable struct {
	To domain.UserID `json:"to"`
}

// MessageEnvelope extracts the routing field of an otherwise opaque message.
type MessageEnvelope struct {
	ConversationID domain.ConversationID `json:"conversationId"`
}
