package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// SLAView is the SLA row of a ticket with its badge. Status is nil when no policy applies.
type SLAView struct {
	Status *domain.SLAStatus `json:"status"`
	Badge  domain.SLABadge   `json:"badge"`
}

// SLAService exposes the precomputed SLA view.
type SLAService struct {
	sla repository.SLARepository
}

// NewSLAService constructs the service.
func NewSLAService(repo repository.SLARepository) *SLAService {
	return &SLAService{sla: repo}
}

// Get returns the SLA status for ticketID. A ticket without a matching threshold
// yields the neutral badge and no error.
func (s *SLAService) Get(ctx context.Context, ticketID string) (*SLAView, error) {
	status, err := s.sla.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &SLAView{Badge: BadgeFor(nil)}, nil
		}
		return nil, apperrors.MapError(err)
	}
	return &SLAView{Status: status, Badge: BadgeFor(status)}, nil
}

// BadgeFor maps a view row to its display badge.
func BadgeFor(status *domain.SLAStatus) domain.SLABadge {
	if status == nil {
		return domain.SLABadge{State: domain.SLAStateNone, Tone: domain.SLAToneNeutral, Label: "Sin SLA"}
	}
	switch status.Status {
	case domain.SLALabelOnTime:
		return domain.SLABadge{State: domain.SLAStateOnTime, Tone: domain.SLATonePositive, Label: status.Status}
	case domain.SLALabelAtRisk:
		return domain.SLABadge{State: domain.SLAStateAtRisk, Tone: domain.SLAToneWarning, Label: status.Status}
	case domain.SLALabelOverdue:
		return domain.SLABadge{State: domain.SLAStateOverdue, Tone: domain.SLAToneNegative, Label: status.Status}
	default:
		return domain.SLABadge{State: domain.SLAStateNone, Tone: domain.SLAToneNeutral, Label: "Sin SLA"}
	}
}
