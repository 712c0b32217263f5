package call

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

var ErrBadSignal = errors.New("bad signal")

// EncodeSDP wraps a session description into the opaque signal relayed by
// the server.
func EncodeSDP(sd webrtc.SessionDescription) (json.RawMessage, error) {
	if sd.SDP == "" {
		return nil, fmt.Errorf("%w: empty sdp", ErrBadSignal)
	}
	b, err := json.Marshal(sd)
	if err != nil {
		return nil, fmt.Errorf("encode sdp: %w", err)
	}
	return b, nil
}

// DecodeSDP reads a signal produced by EncodeSDP. want restricts the
// accepted type; zero accepts any known type.
func DecodeSDP(raw json.RawMessage, want webrtc.SDPType) (webrtc.SessionDescription, error) {
	var sd webrtc.SessionDescription
	if err := json.Unmarshal(raw, &sd); err != nil {
		return sd, fmt.Errorf("%w: %v", ErrBadSignal, err)
	}
	if sd.Type == webrtc.SDPType(0) || sd.SDP == "" {
		return sd, fmt.Errorf("%w: missing type or sdp", ErrBadSignal)
	}
	if want != webrtc.SDPType(0) && sd.Type != want {
		return sd, fmt.Errorf("%w: got %s, want %s", ErrBadSignal, sd.Type, want)
	}
	return sd, nil
}
