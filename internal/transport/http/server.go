package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/config"
	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/store"
)

// SessionServer runs chat sessions over arbitrary transports.
type SessionServer interface {
	ServeConn(ctx context.Context, t core.Transport) error
	Registry() *core.Registry
}

// NewServer builds the HTTP gateway. journal may be nil.
func NewServer(sessions SessionServer, journal store.Journal, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	sessionHandlers := NewSessionHandlers(sessions.Registry(), journal, logger)
	router.GET("/sessions", sessionHandlers.ListSessions)
	router.GET("/sessions/events", sessionHandlers.ListEvents)

	// The upgrade hijacks the connection, so /ws bypasses gin's writer.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(sessions, cfg.MaxMessageBytes, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
