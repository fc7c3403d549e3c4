package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// AutoCloser runs one auto-close sweep.
type AutoCloser interface {
	Run(ctx context.Context, settings domain.AppSettings) (*service.AutoCloseResult, error)
}

// JobsHandler exposes scheduled jobs to an external scheduler.
type JobsHandler struct {
	settings  SettingsLoader
	autoClose AutoCloser
}

// NewJobsHandler constructs handler.
func NewJobsHandler(settings SettingsLoader, autoClose AutoCloser) *JobsHandler {
	return &JobsHandler{settings: settings, autoClose: autoClose}
}

// AutoClose POST /jobs/auto-close.
func (h *JobsHandler) AutoClose(c *fiber.Ctx) error {
	settings, err := h.settings.Get(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	result, err := h.autoClose.Run(c.UserContext(), settings)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
