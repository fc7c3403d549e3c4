package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/integration/mojito"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// ActionSkippedEcho is reported for webhook calls triggered by our own sync.
const ActionSkippedEcho = "skipped_echo"

// SettingsLoader reads the persisted app settings.
type SettingsLoader interface {
	Get(ctx context.Context) (domain.AppSettings, error)
}

// WebhookIngester reconciles inbound Mojito360 changes.
type WebhookIngester interface {
	Ingest(ctx context.Context, settings domain.AppSettings, payload mojito.WebhookPayload) (*service.WebhookResult, error)
}

// WebhookHandler receives Mojito360 webhook calls.
type WebhookHandler struct {
	settings SettingsLoader
	ingester WebhookIngester
	origin   string
	logger   *zap.Logger
}

// NewWebhookHandler constructs handler. origin is this application's X-Origin value.
func NewWebhookHandler(settings SettingsLoader, ingester WebhookIngester, origin string, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{settings: settings, ingester: ingester, origin: origin, logger: logger}
}

// Receive POST /webhooks/mojito.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	if h.origin != "" && strings.EqualFold(strings.TrimSpace(c.Get(mojito.OriginHeader)), h.origin) {
		h.logger.Debug("webhook echo skipped")
		return c.JSON(fiber.Map{"ok": true, "action": ActionSkippedEcho})
	}
	var payload mojito.WebhookPayload
	if err := bind(c, &payload); err != nil {
		return err
	}
	settings, err := h.settings.Get(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	result, err := h.ingester.Ingest(c.UserContext(), settings, payload)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"ok":                true,
		"action":            result.Action,
		"ticket_id":         result.TicketID,
		"attachments_added": result.AttachmentsAdded,
	})
}

// OnlyMethods rejects any other method with 405.
func OnlyMethods(methods ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, m := range methods {
			if c.Method() == m {
				return c.Next()
			}
		}
		return apperrors.NewMethodNotAllowed(c.Method())
	}
}
