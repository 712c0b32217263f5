package call

import (
	"encoding/json"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallerPath(t *testing.T) {
	c := New()
	require.NoError(t, c.Dial("bob"))
	assert.Equal(t, Calling, c.State())

	assert.ErrorIs(t, c.Connected(), ErrInvalidTransition)
	assert.ErrorIs(t, c.Answer(), ErrInvalidTransition, "only a ringing callee answers")

	require.NoError(t, c.Accepted(json.RawMessage(`{"type":"answer"}`)))
	require.NoError(t, c.Connected())
	assert.Equal(t, Active, c.State())
	assert.JSONEq(t, `{"type":"answer"}`, string(c.RemoteSignal()))

	assert.True(t, c.Hangup())
	assert.Equal(t, Ended, c.State())
	assert.False(t, c.Hangup())
}

func TestCalleePath(t *testing.T) {
	c := New()
	require.NoError(t, c.Ring("alice", "Alice", json.RawMessage(`1`)))
	peer, name := c.Peer()
	assert.Equal(t, "alice", string(peer))
	assert.Equal(t, "Alice", name)

	assert.ErrorIs(t, c.Dial("carol"), ErrInvalidTransition, "busy while ringing")
	require.NoError(t, c.Answer())
	assert.Equal(t, Accepted, c.State())
}

func TestEndBeforeAcceptAndRedial(t *testing.T) {
	c := New()
	require.NoError(t, c.Dial("bob"))
	assert.True(t, c.Hangup())
	require.NoError(t, c.Dial("bob"))
	assert.Equal(t, Calling, c.State())
	assert.Nil(t, c.RemoteSignal())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ringing", Ringing.String())
	assert.Equal(t, "state(42)", State(42).String())
}

func TestSDPRoundTrip(t *testing.T) {
	raw, err := EncodeSDP(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0\r\n"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0\r\n"}`, string(raw))

	sd, err := DecodeSDP(raw, webrtc.SDPTypeOffer)
	require.NoError(t, err)
	assert.Equal(t, "v=0\r\n", sd.SDP)

	_, err = DecodeSDP(raw, webrtc.SDPTypeAnswer)
	assert.ErrorIs(t, err, ErrBadSignal)

	_, err = DecodeSDP(json.RawMessage(`{"sdp":""}`), 0)
	assert.ErrorIs(t, err, ErrBadSignal)

	_, err = EncodeSDP(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer})
	assert.ErrorIs(t, err, ErrBadSignal)
}
