package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dreamworld-backend/internal/platform/logger"
	"github.com/yungbote/dreamworld-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.Hub
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{log: log.With("handler", "RealtimeHandler"), hub: hub}
}

// GET /api/events[?channels=a,b]
// Every stream receives the world channel.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	client := h.hub.NewClient()
	defer h.hub.CloseClient(client)
	h.hub.AddChannel(client, realtime.ChannelWorld)
	for _, ch := range strings.Split(c.Query("channels"), ",") {
		if ch = strings.TrimSpace(ch); ch != "" {
			h.hub.AddChannel(client, ch)
		}
	}
	h.log.Debug("event stream opened", "client_id", client.ID)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
	h.log.Debug("event stream closed", "client_id", client.ID)
}
