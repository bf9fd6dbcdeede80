package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/infra/broadcast"
	"github.com/oz-workspace/api/internal/modules/serializer"
	"github.com/oz-workspace/api/internal/modules/service"
)

type EventsHandler struct {
	hub       *broadcast.Hub
	rooms     service.RoomService
	keepalive time.Duration
}

func NewEventsHandler(hub *broadcast.Hub, rooms service.RoomService, keepalive time.Duration) *EventsHandler {
	if keepalive <= 0 {
		keepalive = 25 * time.Second
	}
	return &EventsHandler{hub: hub, rooms: rooms, keepalive: keepalive}
}

// Stream godoc
//
//	@Summary		Live events
//	@Description	Server-sent events for one room, or for the whole workspace when room_id is omitted. Frames are named after the event type; "resync" means events were dropped and state should be re-fetched.
//	@Tags			events
//	@Produce		text/event-stream
//	@Param			room_id	query	string	false	"Room ID"	Format(uuid)
//	@Security		BearerAuth
//	@Success		200	{object}	broadcast.Event
//	@Router			/events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	m := membershipFrom(c)

	scope := broadcast.WorkspaceScope(m.WorkspaceID)
	if raw := c.Query("room_id"); raw != "" {
		roomID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
			return
		}
		if _, err := h.rooms.Get(ctx, m.WorkspaceID, roomID); err != nil {
			serializer.Abort(c, err)
			return
		}
		scope = broadcast.RoomScope(roomID)
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, serializer.Err(http.StatusInternalServerError, "streaming not supported", nil))
		return
	}

	sub := h.hub.Subscribe(scope)
	defer h.hub.Unsubscribe(sub)

	setSSEHeaders(c.Writer)
	c.Status(http.StatusOK)
	sseWrite(c.Writer, "ping", "ready")
	flusher.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sub.TakeResync() {
				sseWrite(c.Writer, "resync", map[string]string{"reason": "dropped"})
			}
			sseWrite(c.Writer, "ping", time.Now().UTC().Format(time.RFC3339Nano))
			flusher.Flush()
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			if sub.TakeResync() {
				sseWrite(c.Writer, "resync", map[string]string{"reason": "dropped"})
			}
			sseWrite(c.Writer, string(evt.Type), evt)
			flusher.Flush()
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
}

func sseWrite(w http.ResponseWriter, event string, data any) {
	payload := marshalPayload(data)
	if event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event)
	}
	for _, line := range strings.Split(payload, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
}

func marshalPayload(data any) string {
	switch payload := data.(type) {
	case string:
		return payload
	case []byte:
		return string(payload)
	default:
		b, err := sonic.Marshal(payload)
		if err != nil {
			return fmt.Sprintf("%v", data)
		}
		return string(b)
	}
}
