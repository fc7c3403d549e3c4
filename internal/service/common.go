package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

// Error codes specific to the ticket workflow.
const (
	CodeConfirmationRequired = "CONFIRMATION_REQUIRED"
	CodeSolutionRequired     = "SOLUTION_REQUIRED"
	CodePartialApply         = "PARTIAL_APPLY"
)

// ErrSolutionRequired rejects a move into pending_validation without a solution note.
var ErrSolutionRequired = apperrors.NewDomainError(CodeSolutionRequired,
	"a solution is required before moving a ticket to pending validation", http.StatusBadRequest, nil)

// ErrConfirmationRequired reports a stage change that was not explicitly confirmed.
func ErrConfirmationRequired(from, to domain.Stage) error {
	return apperrors.NewDomainError(CodeConfirmationRequired, "stage change requires confirmation", http.StatusConflict,
		map[string]any{"from": from, "to": to})
}

// PartialApplyError reports a multi-step change that stopped after some steps were applied.
func PartialApplyError(completed []string, failed string, err error) error {
	return &apperrors.DomainError{
		Code:       CodePartialApply,
		Message:    "ticket change partially applied",
		HTTPStatus: http.StatusInternalServerError,
		Details: map[string]any{
			"completed": completed,
			"failed":    failed,
		},
		Err: err,
	}
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

// canAccessTicket reports whether the actor may read the ticket.
// Staff see everything; clients see tickets they opened or that belong to their entity.
func canAccessTicket(actor *domain.Profile, ticket *domain.Ticket) bool {
	if actor == nil {
		return false
	}
	if actor.Role.IsStaff() {
		return true
	}
	if ticket.CreatedBy != nil && *ticket.CreatedBy == actor.ID {
		return true
	}
	return actor.EntityID != nil && ticket.EntityID != nil && *actor.EntityID == *ticket.EntityID
}

// ticketEvents restricts evts to the audience that may read ticket.
func ticketEvents(ticket *domain.Ticket, evts ...events.Event) []events.Event {
	for i := range evts {
		evts[i] = evts[i].WithAudience(ticket.EntityID, ticket.CreatedBy)
	}
	return evts
}

func publish(ctx context.Context, publisher events.Publisher, evts ...events.Event) {
	if publisher == nil {
		return
	}
	for _, e := range evts {
		_ = publisher.Publish(ctx, e)
	}
}

func strPtr(s string) *string {
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
