package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mailer"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// NoCandidatesMessage is reported when a sweep finds nothing to close.
const NoCandidatesMessage = "Sin candidatos"

// AutoCloseTicketResult is the outcome for one closed ticket.
type AutoCloseTicketResult struct {
	TicketID string `json:"ticket_id"`
	Emailed  bool   `json:"emailed"`
}

// AutoCloseResult summarises one sweep.
type AutoCloseResult struct {
	Closed  int                     `json:"closed"`
	Results []AutoCloseTicketResult `json:"results,omitempty"`
	Message string                  `json:"message,omitempty"`
}

// AutoCloseService closes tickets left in pending_validation past the configured window.
type AutoCloseService struct {
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	profiles repository.ProfileRepository
	mailer   mailer.Mailer
	events   events.Publisher
	metrics  *observability.Metrics
	logger   *zap.Logger
	baseURL  string
	now      Clock
}

// AutoCloseDependencies bundles collaborators.
type AutoCloseDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	ProfileRepo repository.ProfileRepository
	Mailer      mailer.Mailer
	Publisher   events.Publisher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	BaseURL     string
	Clock       Clock
}

// NewAutoCloseService constructs the service.
func NewAutoCloseService(deps AutoCloseDependencies) *AutoCloseService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutoCloseService{
		tickets:  deps.TicketRepo,
		comments: deps.CommentRepo,
		profiles: deps.ProfileRepo,
		mailer:   deps.Mailer,
		events:   deps.Publisher,
		metrics:  deps.Metrics,
		logger:   logger,
		baseURL:  deps.BaseURL,
		now:      clockOrNow(deps.Clock),
	}
}

// Run performs one sweep with the given settings.
//
// A ticket is closed when now - max(pending_validation_since, last_client_activity_at)
// reaches the threshold. Any failure aborts the sweep; tickets closed before the
// failure stay closed and the rest are left for the next run.
func (s *AutoCloseService) Run(ctx context.Context, settings domain.AppSettings) (*AutoCloseResult, error) {
	systemUser := settings.SystemUser()
	if systemUser == "" {
		return nil, apperrors.NewConfigError("app_settings.system_user_id is not configured")
	}
	hours := settings.AutoCloseHours()
	threshold := settings.AutoCloseThreshold()

	pending, err := s.tickets.ListPendingValidation(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := s.now().UTC()
	candidates := make([]domain.Ticket, 0, len(pending))
	for _, ticket := range pending {
		if isAutoCloseCandidate(ticket, now, threshold) {
			candidates = append(candidates, ticket)
		}
	}
	if len(candidates) == 0 {
		return &AutoCloseResult{Closed: 0, Message: NoCandidatesMessage}, nil
	}

	emails, err := s.resolveEmails(ctx, candidates)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := &AutoCloseResult{Results: make([]AutoCloseTicketResult, 0, len(candidates))}
	for _, ticket := range candidates {
		emailed, err := s.closeOne(ctx, ticket, systemUser, hours, now, emails[ticket.ID])
		if err != nil {
			s.logger.Error("auto-close aborted",
				zap.String("ticket_id", ticket.ID),
				zap.Int("closed_before_failure", result.Closed),
				zap.Error(err),
			)
			return nil, apperrors.MapError(fmt.Errorf("auto-close ticket %s: %w", ticket.ID, err))
		}
		result.Closed++
		result.Results = append(result.Results, AutoCloseTicketResult{TicketID: ticket.ID, Emailed: emailed})
	}

	s.logger.Info("auto-close sweep finished", zap.Int("closed", result.Closed), zap.Int("threshold_hours", hours))
	return result, nil
}

func isAutoCloseCandidate(ticket domain.Ticket, now time.Time, threshold time.Duration) bool {
	if ticket.Stage != domain.StagePendingValidation || ticket.PendingValidationSince == nil {
		return false
	}
	last := *ticket.PendingValidationSince
	if ticket.LastClientActivityAt != nil && ticket.LastClientActivityAt.After(last) {
		last = *ticket.LastClientActivityAt
	}
	return now.Sub(last) >= threshold
}

// resolveEmails prefers created_by_email and looks the rest up in one query.
func (s *AutoCloseService) resolveEmails(ctx context.Context, tickets []domain.Ticket) (map[string]string, error) {
	emails := make(map[string]string, len(tickets))
	missing := []string{}
	seen := map[string]struct{}{}
	for _, ticket := range tickets {
		if email := strings.TrimSpace(derefString(ticket.CreatedByEmail)); email != "" {
			emails[ticket.ID] = email
			continue
		}
		if ticket.CreatedBy == nil {
			continue
		}
		if _, ok := seen[*ticket.CreatedBy]; !ok {
			seen[*ticket.CreatedBy] = struct{}{}
			missing = append(missing, *ticket.CreatedBy)
		}
	}
	if len(missing) == 0 {
		return emails, nil
	}

	byProfile, err := s.profiles.EmailsByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, ticket := range tickets {
		if _, ok := emails[ticket.ID]; ok || ticket.CreatedBy == nil {
			continue
		}
		if email := strings.TrimSpace(byProfile[*ticket.CreatedBy]); email != "" {
			emails[ticket.ID] = email
		}
	}
	return emails, nil
}

func (s *AutoCloseService) closeOne(ctx context.Context, ticket domain.Ticket, systemUser string, hours int, now time.Time, email string) (bool, error) {
	done := domain.StageDone
	patch := repository.TicketPatch{
		Stage:     &done,
		UpdatedBy: repository.SetValue(systemUser),
		ClosedAt:  repository.SetValue(now),
	}
	if err := s.tickets.Update(ctx, ticket.ID, patch); err != nil {
		return false, err
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: systemUser,
		Content: fmt.Sprintf("Ticket cerrado automáticamente: ha permanecido %d horas pendiente de validación sin respuesta del cliente. "+
			"Si el problema persiste, responde a este ticket.", hours),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return false, err
	}
	s.metrics.RecordAutoClosed(1)
	publish(ctx, s.events, ticketEvents(&ticket, events.TicketChanged(ticket.ID), events.CommentsChanged(ticket.ID))...)

	if email == "" || s.mailer == nil {
		return false, nil
	}
	msg := mailer.AutoCloseNotice(email, ticket.Reference, ticket.Title, hours, mailer.TicketLink(s.baseURL, ticket.ID))
	if err := s.mailer.Send(ctx, msg); err != nil {
		return false, err
	}
	s.metrics.RecordEmailSent()
	return true, nil
}
