package collector

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/gommon/random"

	"git.backbone/corpix/stingray/pkg/beacon"
	"git.backbone/corpix/stingray/pkg/server"
)

// Hit is a single beacon received by the collector.
type Hit struct {
	ID         string       `msgpack:"id" json:"id"`
	Time       time.Time    `msgpack:"time" json:"time"`
	RemoteAddr string       `msgpack:"remote_addr" json:"remote_addr"`
	UserAgent  string       `msgpack:"user_agent" json:"user_agent"`
	Referer    string       `msgpack:"referer" json:"referer"`
	Path       string       `msgpack:"path" json:"path"`
	Data       beacon.Query `msgpack:"data" json:"data"`
}

func remoteAddr(req *http.Request) string {
	if ip := req.Header.Get(server.HeaderXForwardedFor); ip != "" {
		return strings.TrimSpace(strings.SplitN(ip, ",", 2)[0])
	}
	if ip := req.Header.Get(server.HeaderXRealIP); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}

// NewHit describes a beacon request. The request id assigned by the
// client or a proxy is kept, otherwise a new one is generated.
func NewHit(query beacon.Query, req *http.Request) Hit {
	id := req.Header.Get(server.HeaderXRequestID)
	if id == "" {
		id = random.String(32)
	}

	var path string
	if req.URL != nil {
		path = req.URL.Path
	}

	return Hit{
		ID:         id,
		Time:       time.Now().UTC(),
		RemoteAddr: remoteAddr(req),
		UserAgent:  req.UserAgent(),
		Referer:    req.Referer(),
		Path:       path,
		Data:       query,
	}
}
