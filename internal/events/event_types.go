package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	// Realtime invalidation events, fanned out to every open client.
	EventTicketChanged        EventType = "ticket:changed"
	EventCommentsChanged      EventType = "comments:changed"
	EventNotificationsChanged EventType = "notifications:changed"

	// Workflow events, handled in-process only.
	EventNotificationsCreated EventType = "notifications:created"
	EventCommentCreated       EventType = "comment:created"
	EventTicketCreated        EventType = "ticket:created"
)

// IsRealtime reports whether the event is forwarded to realtime subscribers.
func (t EventType) IsRealtime() bool {
	switch t {
	case EventTicketChanged, EventCommentsChanged, EventNotificationsChanged:
		return true
	}
	return false
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Audience  *Audience `json:"audience,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// Audience names the non-staff users allowed to see a ticket event:
// members of the ticket's entity and its creator.
type Audience struct {
	EntityID  string `json:"entity_id,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

// Allows reports whether a client with the given id and entity may see the event.
func (a *Audience) Allows(userID string, entityID *string) bool {
	if a == nil {
		return false
	}
	if a.CreatedBy != "" && a.CreatedBy == userID {
		return true
	}
	return a.EntityID != "" && entityID != nil && a.EntityID == *entityID
}

// WithAudience returns a copy of e restricted to the ticket's entity and creator.
func (e Event) WithAudience(entityID, createdBy *string) Event {
	audience := &Audience{}
	if entityID != nil {
		audience.EntityID = *entityID
	}
	if createdBy != nil {
		audience.CreatedBy = *createdBy
	}
	e.Audience = audience
	return e
}

func newEvent(eventType EventType) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// TicketChanged signals that a ticket row was written.
func TicketChanged(ticketID string) Event {
	e := newEvent(EventTicketChanged)
	e.TicketID = ticketID
	return e
}

// CommentsChanged signals that a ticket's comment thread was written.
func CommentsChanged(ticketID string) Event {
	e := newEvent(EventCommentsChanged)
	e.TicketID = ticketID
	return e
}

// NotificationsChanged signals new or updated notifications for a user.
func NotificationsChanged(userID string) Event {
	e := newEvent(EventNotificationsChanged)
	e.UserID = userID
	return e
}

// NotificationsCreatedPayload carries the rows awaiting email dispatch.
type NotificationsCreatedPayload struct {
	NotificationIDs []string `json:"notification_ids"`
}

// NotificationsCreated asks the email dispatcher to mail the given rows.
func NotificationsCreated(ids []string) Event {
	e := newEvent(EventNotificationsCreated)
	e.Payload = NotificationsCreatedPayload{NotificationIDs: ids}
	return e
}

// CommentCreatedPayload describes a new comment.
type CommentCreatedPayload struct {
	CommentID  string `json:"comment_id"`
	IsInternal bool   `json:"is_internal"`
}

// CommentCreated signals a new comment on ticketID.
func CommentCreated(ticketID, commentID string, internal bool) Event {
	e := newEvent(EventCommentCreated)
	e.TicketID = ticketID
	e.Payload = CommentCreatedPayload{CommentID: commentID, IsInternal: internal}
	return e
}

// TicketCreated signals a ticket opened locally.
func TicketCreated(ticketID string) Event {
	e := newEvent(EventTicketCreated)
	e.TicketID = ticketID
	return e
}
