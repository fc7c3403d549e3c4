package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

const defaultHeartbeat = 25 * time.Second

// RealtimeHandler streams invalidation events over server-sent events.
type RealtimeHandler struct {
	hub       *events.Hub
	done      <-chan struct{}
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewRealtimeHandler constructs handler. Streams end when ctx is cancelled.
func NewRealtimeHandler(ctx context.Context, hub *events.Hub, logger *zap.Logger) *RealtimeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeHandler{hub: hub, done: ctx.Done(), heartbeat: defaultHeartbeat, logger: logger}
}

// Stream GET /api/realtime.
func (h *RealtimeHandler) Stream(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	sub := h.hub.Subscribe(filterFor(actor))

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.hub.Unsubscribe(sub)
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()

		if _, err := fmt.Fprint(w, "retry: 3000\n\n"); err != nil || w.Flush() != nil {
			return
		}
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil || w.Flush() != nil {
					return
				}
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				if err := writeEvent(w, event); err != nil {
					h.logger.Debug("realtime client gone", zap.String("user_id", actor.ID), zap.Error(err))
					return
				}
			}
		}
	}))
	return nil
}

// filterFor keeps notification events private to their recipient and
// ticket events to users allowed to read the ticket.
func filterFor(actor *domain.Profile) events.Filter {
	return func(event events.Event) bool {
		if !event.Type.IsRealtime() {
			return false
		}
		if event.Type == events.EventNotificationsChanged {
			return event.UserID == actor.ID
		}
		if actor.Role.IsStaff() {
			return true
		}
		return event.Audience.Allows(actor.ID, actor.EntityID)
	}
}

func writeEvent(w *bufio.Writer, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data); err != nil {
		return err
	}
	return w.Flush()
}
