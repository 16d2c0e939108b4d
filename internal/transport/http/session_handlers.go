package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat/internal/core"
	"github.com/vovakirdan/linechat/internal/store"
)

// SessionHandlers exposes the live registry and the session journal.
type SessionHandlers struct {
	registry *core.Registry
	journal  store.Journal
	log      *zerolog.Logger
}

// NewSessionHandlers creates a new session handlers instance.
func NewSessionHandlers(registry *core.Registry, journal store.Journal, logger *zerolog.Logger) *SessionHandlers {
	return &SessionHandlers{
		registry: registry,
		journal:  journal,
		log:      logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SessionResponse represents one open connection.
type SessionResponse struct {
	ID      string `json:"id"`
	LoginID string `json:"login_id,omitempty"`
	Remote  string `json:"remote"`
}

// EventResponse represents one journal entry.
type EventResponse struct {
	ID        int64  `json:"id"`
	ConnID    string `json:"conn_id"`
	LoginID   string `json:"login_id,omitempty"`
	Remote    string `json:"remote,omitempty"`
	Kind      string `json:"kind"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ListSessions returns open connections.
// GET /sessions
func (h *SessionHandlers) ListSessions(c *gin.Context) {
	infos := h.registry.Snapshot()
	resp := make([]SessionResponse, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, SessionResponse{ID: info.ID, LoginID: info.LoginID, Remote: info.Remote})
	}
	c.JSON(http.StatusOK, resp)
}

// ListEvents returns recent journal entries.
// GET /sessions/events?conn_id=...&limit=...
func (h *SessionHandlers) ListEvents(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "journal disabled"})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	events, err := h.journal.ListSessionEvents(c.Request.Context(), c.Query("conn_id"), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list session events")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, EventResponse{
			ID:        ev.ID,
			ConnID:    ev.ConnID,
			LoginID:   ev.LoginID,
			Remote:    ev.Remote,
			Kind:      string(ev.Kind),
			Detail:    ev.Detail,
			CreatedAt: ev.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, resp)
}
