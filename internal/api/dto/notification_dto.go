package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// MarkReadRequest lists notifications to mark read. Empty marks the whole inbox.
type MarkReadRequest struct {
	IDs []string `json:"ids" validate:"omitempty,dive,required"`
}

// EmailDispatchRequest asks for the listed notifications to be mailed.
type EmailDispatchRequest struct {
	NotificationIDs []string `json:"notificationIds" validate:"required,min=1,dive,required"`
}

// SyncRequest triggers an outbound Mojito360 sync.
type SyncRequest struct {
	Action    string `json:"action" validate:"required,oneof=create update message"`
	TicketID  string `json:"ticket_id" validate:"required"`
	CommentID string `json:"comment_id"`
}

// NotificationResponse is one inbox row.
type NotificationResponse struct {
	ID          string                  `json:"id"`
	TicketID    *string                 `json:"ticket_id"`
	EntityID    *string                 `json:"entity_id"`
	Type        domain.NotificationType `json:"type"`
	TriggeredBy *string                 `json:"triggered_by"`
	Message     string                  `json:"message"`
	IsRead      bool                    `json:"is_read"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NewNotificationList maps inbox rows.
func NewNotificationList(items []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{
			ID:          n.ID,
			TicketID:    n.TicketID,
			EntityID:    n.EntityID,
			Type:        n.Type,
			TriggeredBy: n.TriggeredBy,
			Message:     n.Message,
			IsRead:      n.IsRead,
			CreatedAt:   n.CreatedAt,
		})
	}
	return out
}
