package http

import (
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// WSHandler upgrades HTTP connections and runs a chat session over them.
type WSHandler struct {
	sessions        SessionServer
	maxMessageBytes int64
	log             *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(sessions SessionServer, maxMessageBytes int64, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{sessions: sessions, maxMessageBytes: maxMessageBytes, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	if err := h.sessions.ServeConn(r.Context(), newWSConn(conn, r.RemoteAddr)); err != nil {
		h.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("ws session ended with error")
	}
}
