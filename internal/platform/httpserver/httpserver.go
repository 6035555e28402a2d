// Package httpserver builds the HTTP server that fronts the message gate.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"
)

// Gate evaluation sits on the chat send path, so reads and writes are kept
// short; a caller that cannot get an answer in time fails closed on its side.
const (
	readHeaderTimeout = 2 * time.Second
	readTimeout       = 5 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 90 * time.Second
	maxHeaderBytes    = 16 << 10
)

// New returns a server whose internal errors (TLS handshakes, panics in
// net/http itself) go to log at WARN instead of the stdlib logger.
func New(addr string, handler http.Handler, log *slog.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}
	if log != nil {
		srv.ErrorLog = slog.NewLogLogger(log.With("component", "http_server").Handler(), slog.LevelWarn)
	}
	return srv
}
