package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string          `json:"title" validate:"required,max=300"`
	Description string          `json:"description" validate:"max=20000"`
	Priority    domain.Priority `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	EntityID    *string         `json:"entity_id" validate:"omitempty,uuid"`
	Category    *string         `json:"category"`
	Application *string         `json:"application"`
	Type        *string         `json:"type"`
}

// UpdateTicketRequest is the reviewed draft from the edit panel. Omitted fields
// are left untouched; an empty string clears a nullable field.
type UpdateTicketRequest struct {
	Stage       *domain.Stage    `json:"stage"`
	Priority    *domain.Priority `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	EntityID    *string          `json:"entity_id"`
	AssignedTo  *string          `json:"assigned_to"`
	Type        *string          `json:"type"`
	Application *string          `json:"application"`
	Labels      *[]string        `json:"labels" validate:"omitempty,dive,required"`
	Confirmed   bool             `json:"confirmed"`
	Solution    string           `json:"solution" validate:"max=20000"`
}

// MoveTicketRequest is a board drag.
type MoveTicketRequest struct {
	Stage     domain.Stage `json:"stage" validate:"required"`
	Confirmed bool         `json:"confirmed"`
	Solution  string       `json:"solution" validate:"max=20000"`
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID                     string          `json:"id"`
	Reference              int64           `json:"reference"`
	ExternalRef            *string         `json:"external_ref"`
	ExternalSource         *string         `json:"external_source"`
	ExternalURL            *string         `json:"external_url"`
	Title                  string          `json:"title"`
	Description            string          `json:"description"`
	Stage                  domain.Stage    `json:"stage"`
	Priority               domain.Priority `json:"priority"`
	AssignedTo             *string         `json:"assigned_to"`
	CreatedBy              *string         `json:"created_by"`
	CreatedByEmail         *string         `json:"created_by_email"`
	UpdatedBy              *string         `json:"updated_by"`
	EntityID               *string         `json:"entity_id"`
	Category               *string         `json:"category"`
	Application            *string         `json:"application"`
	Classification         *string         `json:"classification"`
	Channel                *string         `json:"channel"`
	Type                   *string         `json:"type"`
	PendingValidationSince *time.Time      `json:"pending_validation_since"`
	LastClientActivityAt   *time.Time      `json:"last_client_activity_at"`
	Solution               *string         `json:"solution"`
	ClosedAt               *time.Time      `json:"closed_at"`
	ReopenedFromTicketID   *string         `json:"reopened_from_ticket_id"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                     t.ID,
		Reference:              t.Reference,
		ExternalRef:            t.ExternalRef,
		ExternalSource:         t.ExternalSource,
		ExternalURL:            t.ExternalURL,
		Title:                  t.Title,
		Description:            t.Description,
		Stage:                  t.Stage,
		Priority:               t.Priority,
		AssignedTo:             t.AssignedTo,
		CreatedBy:              t.CreatedBy,
		CreatedByEmail:         t.CreatedByEmail,
		UpdatedBy:              t.UpdatedBy,
		EntityID:               t.EntityID,
		Category:               t.Category,
		Application:            t.Application,
		Classification:         t.Classification,
		Channel:                t.Channel,
		Type:                   t.Type,
		PendingValidationSince: t.PendingValidationSince,
		LastClientActivityAt:   t.LastClientActivityAt,
		Solution:               t.Solution,
		ClosedAt:               t.ClosedAt,
		ReopenedFromTicketID:   t.ReopenedFromTicketID,
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
	}
}

// NewTicketList maps a slice of tickets.
func NewTicketList(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}

// LabelResponse is a ticket label.
type LabelResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	CommentID  *string   `json:"comment_id"`
	FileName   string    `json:"file_name"`
	URL        string    `json:"url"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketResponse
	Labels      []LabelResponse      `json:"labels"`
	Attachments []AttachmentResponse `json:"attachments"`
}

// NewTicketDetailResponse maps a ticket with its labels and attachments.
func NewTicketDetailResponse(t *domain.Ticket, labels []domain.Label, attachments []domain.Attachment) TicketDetailResponse {
	resp := TicketDetailResponse{
		TicketResponse: NewTicketResponse(t),
		Labels:         make([]LabelResponse, 0, len(labels)),
		Attachments:    make([]AttachmentResponse, 0, len(attachments)),
	}
	for _, l := range labels {
		resp.Labels = append(resp.Labels, LabelResponse{ID: l.ID, Name: l.Name, Color: l.Color})
	}
	for _, a := range attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{
			ID:         a.ID,
			CommentID:  a.CommentID,
			FileName:   a.FileName,
			URL:        a.URL,
			UploadedBy: a.UploadedBy,
			CreatedAt:  a.CreatedAt,
		})
	}
	return resp
}

// TicketChangeResponse reports what a change committed.
type TicketChangeResponse struct {
	Ticket         TicketResponse `json:"ticket"`
	Changed        []string       `json:"changed"`
	Applied        bool           `json:"applied"`
	NotificationID *string        `json:"notification_id,omitempty"`
}
