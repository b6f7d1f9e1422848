package rtc

import (
	"fmt"
	"strings"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// ICE holds the peer configuration handed out to clients. The hub never opens
// a peer connection itself; clients use these servers for their own handshake.
type ICE struct {
	cfg webrtc.Configuration
}

// NewICE builds the configuration from a list of server URLs. A TURN URL may
// carry its credentials as turn:user:password@host:port.
func NewICE(urls []string) (*ICE, error) {
	cfg := webrtc.Configuration{ICETransportPolicy: webrtc.ICETransportPolicyAll}
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		server, err := parseServer(raw)
		if err != nil {
			return nil, err
		}
		cfg.ICEServers = append(cfg.ICEServers, server)
	}
	ice := &ICE{cfg: cfg}
	log.Info().Str("module", "rtc").Strs("urls", ice.URLs()).Msg("ice configured")
	return ice, nil
}

func parseServer(raw string) (webrtc.ICEServer, error) {
	server := webrtc.ICEServer{}
	addr := raw
	if at := strings.LastIndex(raw, "@"); at >= 0 {
		scheme, creds, _ := strings.Cut(raw[:at], ":")
		user, pass, _ := strings.Cut(creds, ":")
		server.Username, server.Credential = user, pass
		addr = scheme + ":" + raw[at+1:]
	}

	uri, err := stun.ParseURI(addr)
	if err != nil {
		return webrtc.ICEServer{}, fmt.Errorf("ice server %q: %w", addr, err)
	}
	isTURN := uri.Scheme == stun.SchemeTypeTURN || uri.Scheme == stun.SchemeTypeTURNS
	switch {
	case isTURN && server.Username == "":
		return webrtc.ICEServer{}, fmt.Errorf("ice server %q: turn needs user:password@", addr)
	case !isTURN && server.Username != "":
		return webrtc.ICEServer{}, fmt.Errorf("ice server %q: credentials are only valid for turn", addr)
	}
	server.URLs = []string{addr}
	return server, nil
}

// Configuration is what a client feeds to its own RTCPeerConnection.
func (i *ICE) Configuration() webrtc.Configuration { return i.cfg }

// URLs lists every configured server URL, credentials excluded.
func (i *ICE) URLs() []string {
	var out []string
	for _, s := range i.cfg.ICEServers {
		out = append(out, s.URLs...)
	}
	return out
}
