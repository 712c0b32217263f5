package signal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/call"
	"github.com/dkeye/Chat/internal/client"
	"github.com/dkeye/Chat/internal/config"
	"github.com/dkeye/Chat/internal/core"
	"github.com/dkeye/Chat/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWS = config.WSConfig{
	ReadLimit:  1 << 16,
	PingPeriod: time.Second,
	PongWait:   2 * time.Second,
	WriteWait:  time.Second,
	SendBuffer: 64,
}

type harness struct {
	t    *testing.T
	url  string
	orch *orch.Orchestrator
}

func newHarness(t *testing.T, cfg config.WSConfig) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := orch.New(app.NewRegistry(), app.NewRoomManager(), app.SimplePolicy{})
	ctl := NewSignalWSController(o, cfg)
	ctx, cancel := context.WithCancel(context.Background())

	r := gin.New()
	r.GET("/api/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &harness{t: t, url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws", orch: o}
}

func (h *harness) dial() *client.Client {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := client.Dial(ctx, h.url, nil)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { c.Close() })
	return c
}

// login dials and registers uid, waiting until the relay has processed it.
func (h *harness) login(uid domain.UserID) *client.Client {
	h.t.Helper()
	c := h.dial()
	require.NoError(h.t, c.AddUser(uid, strings.ToUpper(string(uid))))
	require.NoError(h.t, c.Sync(waitCtx(h.t)))
	return c
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// quiet asserts that no event of type typ shows up for a short while.
func quiet(t *testing.T, c *client.Client, typ string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err := c.NextOf(ctx, typ)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "unexpected %s", typ)
}

func sdp(typ webrtc.SDPType) webrtc.SessionDescription {
	return webrtc.SessionDescription{Type: typ, SDP: "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\n"}
}

func TestPresenceBroadcastOnAddUserAndDisconnect(t *testing.T) {
	h := newHarness(t, testWS)
	c1 := h.login("u1")
	c2 := h.dial()

	require.NoError(t, c2.AddUser("u2", "U2"))
	ev, err := c1.NextOf(waitCtx(t), core.EvGetUsers)
	require.NoError(t, err)
	// c1 may still see its own registration snapshot first.
	for {
		snap, err := client.Decode[[]core.PresenceEntry](ev)
		require.NoError(t, err)
		if len(snap) == 2 {
			assert.Equal(t, domain.UserID("u1"), snap[0].UserID)
			assert.Equal(t, domain.UserID("u2"), snap[1].UserID)
			break
		}
		ev, err = c1.NextOf(waitCtx(t), core.EvGetUsers)
		require.NoError(t, err)
	}

	require.NoError(t, c2.Close())
	ev, err = c1.NextOf(waitCtx(t), core.EvGetUsers)
	require.NoError(t, err)
	snap, err := client.Decode[[]core.PresenceEntry](ev)
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, domain.UserID("u1"), snap[0].UserID)

	_, err = c1.NextOf(waitCtx(t), core.EvCallEnded)
	require.NoError(t, err)
	assert.Empty(t, h.orch.Registry.Lookup("u2"))
}

func TestMessageDeliveredOnlyToConversationRoom(t *testing.T) {
	h := newHarness(t, testWS)
	c1 := h.login("u1")
	c2 := h.login("u2")
	c3 := h.login("u3")
	for _, c := range []*client.Client{c1, c2} {
		require.NoError(t, c.JoinConversation("g1"))
		require.NoError(t, c.Sync(waitCtx(t)))
	}

	msg := &domain.Message{ID: "m1", ConversationID: "g1", Text: "hello", Type: domain.MessageText}
	require.NoError(t, c1.SendMessage(msg))

	for _, c := range []*client.Client{c1, c2} {
		ev, err := c.NextOf(waitCtx(t), core.EvMessage)
		require.NoError(t, err)
		got, err := client.Decode[domain.Message](ev)
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Text)
		assert.Equal(t, domain.MessageID("m1"), got.ID)
	}
	quiet(t, c3, core.EvMessage)
}

func TestCallToOfflineUserIsDropped(t *testing.T) {
	h := newHarness(t, testWS)
	c1 := h.login("u1")

	require.NoError(t, c1.CallUser("u2", sdp(webrtc.SDPTypeOffer)))
	require.NoError(t, c1.Sync(waitCtx(t)))
	quiet(t, c1, core.EvError)
	assert.Equal(t, call.Calling, c1.Call.State(), "caller keeps waiting")
}

func TestCallToOfflineUserNotifiesWhenEnabled(t *testing.T) {
	h := newHarness(t, testWS)
	h.orch.SetNotifyUnavailable(true)
	c1 := h.login("u1")

	require.NoError(t, c1.CallUser("u2", sdp(webrtc.SDPTypeOffer)))
	ev, err := c1.NextOf(waitCtx(t), core.EvCallUnavailable)
	require.NoError(t, err)
	got, err := client.Decode[core.Unavailable](ev)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("u2"), got.To)
}

func TestCallReachesEveryCalleeConnectionAndCompletes(t *testing.T) {
	h := newHarness(t, testWS)
	alice := h.login("alice")
	bobPhone := h.login("bob")
	bobLaptop := h.login("bob")

	require.NoError(t, alice.CallUser("bob", sdp(webrtc.SDPTypeOffer)))

	for _, c := range []*client.Client{bobPhone, bobLaptop} {
		ev, err := c.NextOf(waitCtx(t), core.EvCallUser)
		require.NoError(t, err)
		in, err := client.Decode[core.IncomingCall](ev)
		require.NoError(t, err)
		assert.Equal(t, domain.UserID("alice"), in.From)
		assert.Equal(t, "ALICE", in.Name)
		offer, err := call.DecodeSDP(in.Signal, webrtc.SDPTypeOffer)
		require.NoError(t, err)
		assert.Contains(t, offer.SDP, "v=0")
		assert.Equal(t, call.Ringing, c.Call.State())
	}

	require.NoError(t, bobLaptop.AnswerCall(sdp(webrtc.SDPTypeAnswer)))
	_, err := alice.NextOf(waitCtx(t), core.EvCallAccepted)
	require.NoError(t, err)
	assert.Equal(t, call.Accepted, alice.Call.State())
	_, err = call.DecodeSDP(alice.Call.RemoteSignal(), webrtc.SDPTypeAnswer)
	require.NoError(t, err)

	require.NoError(t, alice.EndCall())
	for _, c := range []*client.Client{bobPhone, bobLaptop} {
		_, err := c.NextOf(waitCtx(t), core.EvEndCall)
		require.NoError(t, err)
		assert.Equal(t, call.Ended, c.Call.State())
	}
}

func TestUnrelatedDisconnectKeepsCallUp(t *testing.T) {
	h := newHarness(t, testWS)
	alice := h.login("alice")
	bob := h.login("bob")
	carol := h.login("carol")

	require.NoError(t, alice.CallUser("bob", sdp(webrtc.SDPTypeOffer)))
	_, err := bob.NextOf(waitCtx(t), core.EvCallUser)
	require.NoError(t, err)
	require.NoError(t, bob.AnswerCall(sdp(webrtc.SDPTypeAnswer)))
	_, err = alice.NextOf(waitCtx(t), core.EvCallAccepted)
	require.NoError(t, err)

	require.NoError(t, carol.Close())
	for _, c := range []*client.Client{alice, bob} {
		_, err := c.NextOf(waitCtx(t), core.EvCallEnded)
		require.NoError(t, err)
		assert.Equal(t, call.Accepted, c.Call.State())
	}
}

func TestEndCallBeforeAnswer(t *testing.T) {
	h := newHarness(t, testWS)
	alice := h.login("alice")
	bob := h.login("bob")

	require.NoError(t, alice.CallUser("bob", sdp(webrtc.SDPTypeOffer)))
	_, err := bob.NextOf(waitCtx(t), core.EvCallUser)
	require.NoError(t, err)

	require.NoError(t, alice.EndCall())
	_, err = bob.NextOf(waitCtx(t), core.EvEndCall)
	require.NoError(t, err)
	assert.Equal(t, call.Ended, bob.Call.State())
}

func TestMalformedPayloadsAreRejected(t *testing.T) {
	h := newHarness(t, testWS)
	c := h.dial()

	cases := []struct {
		typ    string
		data   any
		reason string
	}{
		{core.EvAddUser, 42, "bad_payload"},
		{core.EvAddUser, "", "missing_field"},
		{core.EvCallUser, map[string]any{"userToCall": "u2"}, "missing_field"},
		{core.EvAnswerCall, map[string]any{"signal": "x"}, "missing_field"},
		{core.EvSendMessage, map[string]any{"text": "no room"}, "missing_field"},
		{"dance", nil, "unknown_event"},
	}
	for _, tc := range cases {
		require.NoError(t, c.Emit(tc.typ, tc.data))
		ev, err := c.NextOf(waitCtx(t), core.EvError)
		require.NoError(t, err)
		got, err := client.Decode[core.ErrorPayload](ev)
		require.NoError(t, err)
		assert.Equal(t, tc.typ, got.Event)
		assert.Equal(t, tc.reason, got.Error, tc.typ)
	}

	require.NoError(t, c.Sync(waitCtx(t)), "connection survives bad payloads")
	assert.Empty(t, h.orch.Registry.Snapshot())
}

func TestRateLimitedConnectionGetsError(t *testing.T) {
	cfg := testWS
	cfg.RateLimit = 2
	cfg.RateInterval = time.Minute
	h := newHarness(t, cfg)
	c := h.dial()

	for range 3 {
		require.NoError(t, c.Emit(core.EvPing, nil))
	}
	ev, err := c.NextOf(waitCtx(t), core.EvError)
	require.NoError(t, err)
	got, err := client.Decode[core.ErrorPayload](ev)
	require.NoError(t, err)
	assert.Equal(t, "rate_limited", got.Error)
}

func TestSessionUserPinsAddUserAndJoinRoom(t *testing.T) {
	gin.SetMode(gin.TestMode)
	o := orch.New(app.NewRegistry(), app.NewRoomManager(), app.SimplePolicy{})
	ctl := NewSignalWSController(o, testWS)
	r := gin.New()
	r.GET("/api/ws", func(c *gin.Context) {
		c.Set(SessionUserKey, "alice")
		ctl.HandleSignal(context.Background(), c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := client.Dial(waitCtx(t), "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	require.NoError(t, c.AddUser("mallory", ""))
	ev, err := c.NextOf(waitCtx(t), core.EvError)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"addUser","error":"identity_mismatch"}`, string(ev.Data))

	require.NoError(t, c.Emit(core.EvJoinRoom, "bob"))
	ev, err = c.NextOf(waitCtx(t), core.EvError)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"joinRoom","error":"identity_mismatch"}`, string(ev.Data))
	assert.Empty(t, o.Rooms.Members(domain.PersonalRoom("bob")))

	require.NoError(t, c.AddUser("alice", ""))
	require.NoError(t, c.Sync(waitCtx(t)))
	assert.Equal(t, []core.PresenceEntry{{UserID: "alice", ConnID: o.Registry.Lookup("alice")[0]}}, o.Registry.Snapshot())
}

func TestDecodeID(t *testing.T) {
	id, err := decodeID(json.RawMessage(`"g1"`))
	require.NoError(t, err)
	assert.Equal(t, "g1", id)

	_, err = decodeUserID(json.RawMessage(`"` + strings.Repeat("x", 37) + `"`))
	assert.ErrorIs(t, err, core.ErrBadPayload)
	_, err = decodeID(nil)
	assert.ErrorIs(t, err, core.ErrMissingField)
}
