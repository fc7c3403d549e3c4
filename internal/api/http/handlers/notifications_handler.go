package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// Inbox serves in-app notifications.
type Inbox interface {
	List(ctx context.Context, actor *domain.Profile, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, actor *domain.Profile, ids []string) (int64, error)
}

// EmailSender mails notification digests.
type EmailSender interface {
	Send(ctx context.Context, ids []string) (*service.EmailDispatchResult, error)
}

// NotificationsHandler serves the inbox and the email dispatch endpoint.
type NotificationsHandler struct {
	inbox Inbox
	email EmailSender
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(inbox Inbox, email EmailSender) *NotificationsHandler {
	return &NotificationsHandler{inbox: inbox, email: email}
}

// List GET /api/notifications?unread=true&limit=50.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	items, err := h.inbox.List(c.UserContext(), actor, c.QueryBool("unread"), parseInt(c.Query("limit"), 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewNotificationList(items)})
}

// MarkRead POST /api/notifications/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.MarkReadRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	updated, err := h.inbox.MarkRead(c.UserContext(), actor, req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"updated": updated}})
}

// Dispatch POST /api/notifications/email mails the listed notifications. The
// response body is the dispatch result itself.
func (h *NotificationsHandler) Dispatch(c *fiber.Ctx) error {
	if _, err := principal(c); err != nil {
		return err
	}
	var req dto.EmailDispatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.email.Send(c.UserContext(), req.NotificationIDs)
	if err != nil {
		return err
	}
	return c.JSON(result)
}
