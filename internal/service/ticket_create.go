package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// TicketCreateInput describes a new local ticket.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.Priority
	EntityID    *string
	Category    *string
	Application *string
	Type        *string
	Channel     *string
}

// Create opens a ticket. Clients always file against their own entity. The
// entity's default assignee, when set, receives the ticket and an
// entity_assignment notification.
func (s *TicketChangeService) Create(ctx context.Context, actor *domain.Profile, input TicketCreateInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	entityID := input.EntityID
	if !actor.Role.IsStaff() {
		entityID = actor.EntityID
	}

	ticket := &domain.Ticket{
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		Stage:          domain.StageNew,
		Priority:       priority,
		CreatedBy:      strPtr(actor.ID),
		CreatedByEmail: optional(actor.Email),
		UpdatedBy:      strPtr(actor.ID),
		EntityID:       entityID,
		Category:       input.Category,
		Application:    input.Application,
		Type:           input.Type,
		Channel:        input.Channel,
	}
	if !actor.Role.IsStaff() {
		now := s.now().UTC()
		ticket.LastClientActivityAt = &now
	}

	var entity *domain.Entity
	if entityID != nil && s.entities != nil {
		found, err := s.entities.GetByID(ctx, *entityID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.NewValidationError("unknown entity", map[string]any{"entity_id": *entityID})
		case err != nil:
			return nil, apperrors.MapError(err)
		}
		entity = found
		if entity.DefaultAssigneeID != nil {
			ticket.AssignedTo = entity.DefaultAssigneeID
			ticket.Stage = domain.StageAssigned
		}
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.publisher, ticketEvents(ticket, events.TicketChanged(ticket.ID), events.TicketCreated(ticket.ID))...)

	if entity != nil && ticket.AssignedTo != nil && *ticket.AssignedTo != actor.ID {
		notification := &domain.Notification{
			UserID:      *ticket.AssignedTo,
			TicketID:    strPtr(ticket.ID),
			EntityID:    strPtr(entity.ID),
			Type:        domain.NotificationEntityAssignment,
			TriggeredBy: strPtr(actor.ID),
			Message:     fmt.Sprintf("Nuevo ticket #%d de %s: %s", ticket.Reference, entity.Name, ticket.Title),
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			return ticket, PartialApplyError([]string{"ticket_create"}, StepNotification, err)
		}
		publish(ctx, s.publisher,
			events.NotificationsChanged(notification.UserID),
			events.NotificationsCreated([]string{notification.ID}),
		)
	}
	return ticket, nil
}
