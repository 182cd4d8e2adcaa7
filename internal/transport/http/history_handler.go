package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat/internal/proto"
	"github.com/vovakirdan/wirechat/internal/store"
)

const defaultHistoryLimit = 50

// HistoryHandler serves the most recent messages of a room.
type HistoryHandler struct {
	store store.MessageStore
	limit int
	log   *zerolog.Logger
}

// NewHistoryHandler creates a history handler returning at most limit messages.
func NewHistoryHandler(st store.MessageStore, limit int, logger *zerolog.Logger) *HistoryHandler {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &HistoryHandler{store: st, limit: limit, log: logger}
}

// Get handles GET /history/:room[?before=<id>]. Messages are oldest first.
func (h *HistoryHandler) Get(c *gin.Context) {
	room := strings.TrimSpace(c.Param("room"))
	if room == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "room is required"})
		return
	}

	var beforeID *int64
	if raw := c.Query("before"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before id"})
			return
		}
		beforeID = &id
	}

	resp := proto.HistoryResponse{Messages: []proto.MessageData{}}
	if h.store == nil {
		c.JSON(http.StatusOK, resp)
		return
	}

	msgs, err := h.store.ListMessages(c.Request.Context(), room, h.limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	for _, m := range msgs {
		resp.Messages = append(resp.Messages, proto.MessageData{
			ID:        m.ID,
			Room:      m.Room,
			Username:  m.Author,
			Text:      m.Body,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	c.JSON(http.StatusOK, resp)
}
