// Package server streams synthesis runs to websocket clients.
//
// A client sends {"type":"run","content":"<yaml>"} to start a run; the YAML
// is overlaid on the server's base configuration. The server answers with
// started, progress, snapshot and finally finished, cancelled or error
// messages. {"type":"cancel"} stops the active run of that connection.
package server

import (
	"net/http"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"pivsynth/pkg/config"
)

type Server struct {
	addr     string
	upgrader websocket.Upgrader
	base     *config.Config
}

// NewServer returns a server listening on addr. base is the configuration
// every run starts from; a nil base selects config.DefaultConfig.
func NewServer(addr string, upgrader websocket.Upgrader, base *config.Config) *Server {
	if base == nil {
		base = config.DefaultConfig()
	}
	return &Server{
		addr:     addr,
		upgrader: upgrader,
		base:     base,
	}
}

// serveWs handles websocket requests from the peer.
func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	log.WithField("remote", conn.RemoteAddr().String()).Info("client connected")

	hub := NewHub(conn, s.base)
	hub.Run()

	log.WithField("remote", conn.RemoteAddr().String()).Info("client disconnected")
}

// Handler returns the HTTP handler serving /ws
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWs)
	return mux
}

// Serve listens on the configured address until the listener fails
func (s *Server) Serve() error {
	log.WithField("addr", s.addr).Info("serving websocket endpoint /ws")
	return http.ListenAndServe(s.addr, s.Handler())
}
