package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// Syncer pushes local changes to Mojito360.
type Syncer interface {
	Sync(ctx context.Context, req service.SyncRequest) (*service.SyncResult, error)
	Probe(ctx context.Context) error
}

// SyncHandler exposes outbound sync.
type SyncHandler struct {
	sync Syncer
}

// NewSyncHandler constructs handler.
func NewSyncHandler(sync Syncer) *SyncHandler {
	return &SyncHandler{sync: sync}
}

// Sync POST /api/sync.
func (h *SyncHandler) Sync(c *fiber.Ctx) error {
	var req dto.SyncRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.sync.Sync(c.UserContext(), service.SyncRequest{
		Action:    service.SyncAction(req.Action),
		TicketID:  req.TicketID,
		CommentID: req.CommentID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true, "data": result})
}

// Probe GET /api/sync checks connectivity with the external API.
func (h *SyncHandler) Probe(c *fiber.Ctx) error {
	if err := h.sync.Probe(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}
