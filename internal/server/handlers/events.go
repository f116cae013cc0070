package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/campusvote/server/internal/logger"
	"github.com/campusvote/server/internal/realtime"
)

type EventsHandler struct {
	bus realtime.Bus
}

func NewEventsHandler(bus realtime.Bus) *EventsHandler {
	return &EventsHandler{bus: bus}
}

// Stream handles GET /api/events: a Server-Sent Events feed of vote
// notifications. Clients use these purely as refresh hints; a dropped or
// slow consumer loses events, never correctness.
func (h *EventsHandler) Stream(c *gin.Context) {
	events := make(chan realtime.VoteEvent, 16)
	ctx := c.Request.Context()

	err := h.bus.Subscribe(ctx, func(ev realtime.VoteEvent) {
		select {
		case events <- ev:
		default:
			// slow consumer, drop; the next event will catch them up
		}
	})
	if err != nil {
		logger.Error("sse subscribe failed", "err", err)
		respondError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-events:
			c.SSEvent("vote", ev)
			return true
		}
	})
}
