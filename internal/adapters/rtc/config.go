// Package rtc hands WebRTC settings to clients. Media never touches the
// server; peers negotiate directly through the call relay.
package rtc

import (
	"github.com/dkeye/Chat/internal/config"
	"github.com/pion/webrtc/v4"
)

var defaultICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302"}},
}

// Configuration builds the peer connection settings clients should use.
// An empty list falls back to a public STUN server.
func Configuration(servers []config.ICEServer) webrtc.Configuration {
	out := webrtc.Configuration{}
	for _, s := range servers {
		if len(s.URLs) == 0 {
			continue
		}
		srv := webrtc.ICEServer{URLs: s.URLs}
		if s.Username != "" {
			srv.Username = s.Username
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		out.ICEServers = append(out.ICEServers, srv)
	}
	if len(out.ICEServers) == 0 {
		out.ICEServers = defaultICEServers
	}
	return out
}

// ClientConfig is the JSON shape browsers pass to RTCPeerConnection.
type ClientConfig struct {
	ICEServers []ClientICEServer `json:"iceServers"`
}

type ClientICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

func ForClient(c webrtc.Configuration) ClientConfig {
	out := ClientConfig{ICEServers: make([]ClientICEServer, 0, len(c.ICEServers))}
	for _, s := range c.ICEServers {
		cs := ClientICEServer{URLs: s.URLs, Username: s.Username}
		if cred, ok := s.Credential.(string); ok {
			cs.Credential = cred
		}
		out.ICEServers = append(out.ICEServers, cs)
	}
	return out
}
