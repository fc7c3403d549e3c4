package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// TicketListFilter describes board and list filters.
type TicketListFilter struct {
	Stages     []domain.Stage
	Priorities []domain.Priority
	AssignedTo *string
	EntityID   *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketDetail is a ticket with its labels and attachments.
type TicketDetail struct {
	Ticket      *domain.Ticket      `json:"ticket"`
	Labels      []domain.Label      `json:"labels"`
	Attachments []domain.Attachment `json:"attachments"`
}

// TicketQueryService serves ticket reads.
type TicketQueryService struct {
	tickets     repository.TicketRepository
	history     repository.StageHistoryRepository
	labels      repository.LabelRepository
	attachments repository.AttachmentRepository
	cache       cache.TicketCache
	logger      *zap.Logger
	now         Clock
}

// TicketQueryDependencies bundles collaborators.
type TicketQueryDependencies struct {
	TicketRepo       repository.TicketRepository
	StageHistoryRepo repository.StageHistoryRepository
	LabelRepo        repository.LabelRepository
	AttachmentRepo   repository.AttachmentRepository
	Cache            cache.TicketCache
	Logger           *zap.Logger
	Clock            Clock
}

// NewTicketQueryService constructs the service.
func NewTicketQueryService(deps TicketQueryDependencies) *TicketQueryService {
	c := deps.Cache
	if c == nil {
		c = cache.NewTicketCache(nil, 0)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketQueryService{
		tickets:     deps.TicketRepo,
		history:     deps.StageHistoryRepo,
		labels:      deps.LabelRepo,
		attachments: deps.AttachmentRepo,
		cache:       c,
		logger:      logger,
		now:         clockOrNow(deps.Clock),
	}
}

// List returns tickets visible to actor. Clients are scoped to their entity, or
// to their own tickets when they have none.
func (s *TicketQueryService) List(ctx context.Context, actor *domain.Profile, filter TicketListFilter) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	repoFilter := repository.TicketFilter{
		Stages:     filter.Stages,
		Priorities: filter.Priorities,
		AssignedTo: filter.AssignedTo,
		EntityID:   filter.EntityID,
		SearchTerm: filter.SearchTerm,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if !actor.Role.IsStaff() {
		if actor.EntityID != nil {
			repoFilter.EntityID = actor.EntityID
		} else {
			repoFilter.CreatedBy = &actor.ID
		}
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// Get returns a ticket through the read cache.
func (s *TicketQueryService) Get(ctx context.Context, actor *domain.Profile, ticketID string) (*domain.Ticket, error) {
	ticket, hit, err := s.cache.Get(ctx, ticketID)
	if err != nil {
		s.logger.Warn("ticket cache read failed", zap.String("ticket_id", ticketID), zap.Error(err))
	}
	if !hit {
		ticket, err = s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return nil, notFoundOr(err, "ticket", ticketID)
		}
		if err := s.cache.Set(ctx, ticket); err != nil {
			s.logger.Warn("ticket cache write failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
	}
	if !canAccessTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// Detail returns the ticket with labels and attachments.
func (s *TicketQueryService) Detail(ctx context.Context, actor *domain.Profile, ticketID string) (*TicketDetail, error) {
	ticket, err := s.Get(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	labels, err := s.labels.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	attachments, err := s.attachments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if labels == nil {
		labels = []domain.Label{}
	}
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return &TicketDetail{Ticket: ticket, Labels: labels, Attachments: attachments}, nil
}

// StageHistory aggregates the ticket's stage ledger at the service clock.
func (s *TicketQueryService) StageHistory(ctx context.Context, actor *domain.Profile, ticketID string) (*domain.StageHistorySummary, error) {
	if _, err := s.Get(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	summary := SummarizeStageHistory(entries, s.now().UTC())
	return &summary, nil
}

// InvalidateCache drops the cached copy of a ticket.
func (s *TicketQueryService) InvalidateCache(ctx context.Context, ticketID string) error {
	return s.cache.Invalidate(ctx, ticketID)
}
