package domain

import "time"

// NotificationType classifies notification rows.
type NotificationType string

const (
	NotificationMention          NotificationType = "mention"
	NotificationAssignment       NotificationType = "assignment"
	NotificationStatusChange     NotificationType = "status_change"
	NotificationNewComment       NotificationType = "new_comment"
	NotificationEntityAssignment NotificationType = "entity_assignment"
)

// Notification is an in-app message for one recipient.
type Notification struct {
	ID          string
	UserID      string
	TicketID    *string
	EntityID    *string
	Type        NotificationType
	TriggeredBy *string
	Message     string
	IsRead      bool
	IsEmailSent bool
	CreatedAt   time.Time
}

// NotificationDelivery is a notification joined with what the mail digest needs.
type NotificationDelivery struct {
	Notification
	RecipientEmail  *string
	RecipientName   *string
	TicketReference *int64
	TicketTitle     *string
	EntityName      *string
	TriggeredByName *string
}
