package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/mailer"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// EmailDispatchResult lists which notifications were mailed.
type EmailDispatchResult struct {
	OK         bool     `json:"ok"`
	SentIDs    []string `json:"sentIds"`
	SkippedIDs []string `json:"skippedIds"`
}

// EmailDispatchService mails pending notifications as one digest per recipient.
type EmailDispatchService struct {
	notifications repository.NotificationRepository
	renderer      *mailer.Renderer
	mailer        mailer.Mailer
	metrics       *observability.Metrics
	logger        *zap.Logger
	baseURL       string
}

// EmailDispatchDependencies bundles collaborators.
type EmailDispatchDependencies struct {
	NotificationRepo repository.NotificationRepository
	Renderer         *mailer.Renderer
	Mailer           mailer.Mailer
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	BaseURL          string
}

// NewEmailDispatchService constructs the service.
func NewEmailDispatchService(deps EmailDispatchDependencies) *EmailDispatchService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	renderer := deps.Renderer
	if renderer == nil {
		renderer = mailer.NewRenderer()
	}
	return &EmailDispatchService{
		notifications: deps.NotificationRepo,
		renderer:      renderer,
		mailer:        deps.Mailer,
		metrics:       deps.Metrics,
		logger:        logger,
		baseURL:       deps.BaseURL,
	}
}

type recipientBatch struct {
	email string
	name  string
	rows  []domain.NotificationDelivery
}

// Send mails the unsent notifications among ids. Rows without a recipient
// address are reported as skipped. Each recipient's rows are marked sent right
// after their digest is accepted by the mail server.
func (s *EmailDispatchService) Send(ctx context.Context, ids []string) (*EmailDispatchResult, error) {
	ids = normalizeIDs(ids)
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("notificationIds is required", nil)
	}
	rows, err := s.notifications.ListForDispatch(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	result := &EmailDispatchResult{SentIDs: []string{}, SkippedIDs: []string{}}
	batches := []*recipientBatch{}
	byEmail := map[string]*recipientBatch{}
	for _, row := range rows {
		email := strings.TrimSpace(derefString(row.RecipientEmail))
		if email == "" {
			result.SkippedIDs = append(result.SkippedIDs, row.ID)
			continue
		}
		key := strings.ToLower(email)
		batch, ok := byEmail[key]
		if !ok {
			batch = &recipientBatch{email: email, name: derefString(row.RecipientName)}
			byEmail[key] = batch
			batches = append(batches, batch)
		}
		batch.rows = append(batch.rows, row)
	}

	for _, batch := range batches {
		msg, err := s.renderer.Digest(batch.email, batch.name, s.digestItems(batch.rows))
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logger.Error("notification digest failed",
				zap.String("recipient", batch.email),
				zap.Int("notifications", len(batch.rows)),
				zap.Error(err),
			)
			return nil, apperrors.NewUpstreamError("email", 0, "", err)
		}
		s.metrics.RecordEmailSent()

		sent := make([]string, len(batch.rows))
		for i, row := range batch.rows {
			sent[i] = row.ID
		}
		if err := s.notifications.MarkEmailSent(ctx, sent); err != nil {
			return nil, apperrors.MapError(err)
		}
		result.SentIDs = append(result.SentIDs, sent...)
	}

	result.OK = true
	return result, nil
}

func (s *EmailDispatchService) digestItems(rows []domain.NotificationDelivery) []mailer.DigestItem {
	items := make([]mailer.DigestItem, 0, len(rows))
	for _, row := range rows {
		item := mailer.DigestItem{Heading: headingFor(row), Body: row.Message}
		if row.TriggeredByName != nil {
			item.Body = fmt.Sprintf("%s\n\n_por %s_", row.Message, *row.TriggeredByName)
		}
		if row.TicketID != nil && s.baseURL != "" {
			item.Link = mailer.TicketLink(s.baseURL, *row.TicketID)
		}
		items = append(items, item)
	}
	return items
}

func headingFor(row domain.NotificationDelivery) string {
	switch {
	case row.TicketReference != nil && row.TicketTitle != nil:
		return fmt.Sprintf("Ticket #%d: %s", *row.TicketReference, *row.TicketTitle)
	case row.EntityName != nil:
		return *row.EntityName
	}
	switch row.Type {
	case domain.NotificationMention:
		return "Te han mencionado"
	case domain.NotificationAssignment:
		return "Nueva asignación"
	case domain.NotificationStatusChange:
		return "Cambio de estado"
	case domain.NotificationNewComment:
		return "Nuevo comentario"
	default:
		return "Notificación"
	}
}
