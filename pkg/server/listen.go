package server

import (
	"net"
	"net/http"

	"git.backbone/corpix/stingray/pkg/errors"
	"git.backbone/corpix/stingray/pkg/log"
)

type Listener = net.Listener

// ListenerAddr reports the address a server is going to be reachable on.
func ListenerAddr(lr Listener, addr string) string {
	if lr != nil {
		return lr.Addr().String()
	}
	return addr
}

// ListenAndServe blocks until e stops. A server stopped with Shutdown or
// Close is not an error.
func ListenAndServe(e *Server, addr string, timeout TimeoutConfig, l log.Logger) error {
	l.Info().Str("addr", ListenerAddr(e.Listener, addr)).Msg("listening")

	err := e.StartServer(NewHTTP(addr, HTTPTimeoutOption(timeout)))
	if errors.Is(err, http.ErrServerClosed) {
		l.Warn().Str("addr", addr).Msg("server shutdown")
		return nil
	}

	return err
}
