package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/integration/mojito"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// Webhook outcomes.
const (
	WebhookUpserted     = "upserted"
	WebhookReopened     = "reopened"
	WebhookChildTouched = "child_touched"
	WebhookChildCreated = "child_created"
)

// Sanitizer cleans HTML received from outside.
type Sanitizer interface {
	Sanitize(html string) string
}

// WebhookResult reports how an inbound change was applied.
type WebhookResult struct {
	Action           string `json:"action"`
	TicketID         string `json:"ticket_id"`
	AttachmentsAdded int    `json:"attachments_added"`

	ticket *domain.Ticket
}

// WebhookService reconciles Mojito360 webhook calls into local tickets.
type WebhookService struct {
	tickets     repository.TicketRepository
	entities    repository.EntityRepository
	attachments repository.AttachmentRepository
	sanitizer   Sanitizer
	events      events.Publisher
	metrics     *observability.Metrics
	logger      *zap.Logger
	source      string
	now         Clock
}

// WebhookDependencies bundles collaborators.
type WebhookDependencies struct {
	TicketRepo     repository.TicketRepository
	EntityRepo     repository.EntityRepository
	AttachmentRepo repository.AttachmentRepository
	Sanitizer      Sanitizer
	Publisher      events.Publisher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Source         string
	Clock          Clock
}

// NewWebhookService constructs the service.
func NewWebhookService(deps WebhookDependencies) *WebhookService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	source := deps.Source
	if source == "" {
		source = domain.ExternalSourceMojito
	}
	return &WebhookService{
		tickets:     deps.TicketRepo,
		entities:    deps.EntityRepo,
		attachments: deps.AttachmentRepo,
		sanitizer:   deps.Sanitizer,
		events:      deps.Publisher,
		metrics:     deps.Metrics,
		logger:      logger,
		source:      source,
		now:         clockOrNow(deps.Clock),
	}
}

// Ingest applies one webhook payload.
//
// Tickets not yet known, or not done, are upserted on (external_source, external_ref).
// A done ticket receiving a change from its requester is reopened in place within
// the reopen window (inclusive); past it, the open child ticket is touched or a new
// child is created. Any other change to a done ticket is mirrored by upsert.
func (s *WebhookService) Ingest(ctx context.Context, settings domain.AppSettings, payload mojito.WebhookPayload) (*WebhookResult, error) {
	ref := payload.ID.String()
	if ref == "" {
		return nil, apperrors.NewValidationError("payload id is required", nil)
	}
	systemUser := settings.SystemUser()
	if len(payload.Attachments) > 0 && systemUser == "" {
		return nil, apperrors.NewConfigError("app_settings.system_user_id is required to record attachments")
	}

	existing, err := s.tickets.GetByExternal(ctx, s.source, ref)
	if errors.Is(err, pgx.ErrNoRows) {
		existing = nil
	} else if err != nil {
		return nil, apperrors.MapError(err)
	}

	sender := payload.SenderEmail()
	now := s.now().UTC()

	var result *WebhookResult
	if existing != nil && existing.Stage == domain.StageDone && existing.RequestedBy(sender) {
		result, err = s.reopen(ctx, settings, existing, payload, now)
	} else {
		result, err = s.upsert(ctx, settings, existing, payload, now)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	target := result.TicketID

	added, err := s.syncAttachments(ctx, target, systemUser, payload.Attachments)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	result.AttachmentsAdded = added

	s.metrics.RecordWebhook(result.Action)
	publish(ctx, s.events, ticketEvents(result.ticket, events.TicketChanged(target))...)
	s.logger.Info("webhook applied",
		zap.String("external_ref", ref),
		zap.String("ticket_id", target),
		zap.String("action", result.Action),
	)
	return result, nil
}

func (s *WebhookService) upsert(ctx context.Context, settings domain.AppSettings, existing *domain.Ticket, payload mojito.WebhookPayload, now time.Time) (*WebhookResult, error) {
	ref := payload.ID.String()
	entityID, assignee, err := s.resolveCompany(ctx, payload.Company)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(payload.Subject)
	if title == "" {
		title = fmt.Sprintf("Ticket Mojito %s", ref)
	}
	sender := payload.SenderEmail()
	ticket := &domain.Ticket{
		ExternalSource: strPtr(s.source),
		ExternalRef:    strPtr(ref),
		ExternalURL:    optional(payload.URL),
		Title:          title,
		Description:    s.sanitize(payload.Description),
		Stage:          domain.StageFromExternalStatus(payload.Status),
		Priority:       domain.PriorityMedium,
		AssignedTo:     assignee,
		CreatedByEmail: optional(payload.UserEmail),
		UpdatedBy:      optional(settings.SystemUser()),
		EntityID:       entityID,
		Category:       optional(payload.Category),
	}
	if existing == nil || existing.RequestedBy(sender) {
		ticket.LastClientActivityAt = &now
	}
	switch ticket.Stage {
	case domain.StagePendingValidation:
		ticket.PendingValidationSince = &now
	case domain.StageDone:
		ticket.ClosedAt = &now
	}
	if err := s.tickets.UpsertExternal(ctx, ticket); err != nil {
		return nil, err
	}
	return &WebhookResult{Action: WebhookUpserted, TicketID: ticket.ID, ticket: ticket}, nil
}

func (s *WebhookService) reopen(ctx context.Context, settings domain.AppSettings, closed *domain.Ticket, payload mojito.WebhookPayload, now time.Time) (*WebhookResult, error) {
	closedAt := closed.UpdatedAt
	if closed.ClosedAt != nil {
		closedAt = *closed.ClosedAt
	}
	systemUser := optional(settings.SystemUser())

	if now.Sub(closedAt) <= settings.ReopenWindow() {
		assigned := domain.StageAssigned
		patch := repository.TicketPatch{
			Stage:                &assigned,
			LastClientActivityAt: repository.SetValue(now),
			ClosedAt:             repository.SetNull[time.Time](),
		}
		if systemUser != nil {
			patch.UpdatedBy = repository.SetValue(*systemUser)
		}
		if err := s.tickets.Update(ctx, closed.ID, patch); err != nil {
			return nil, err
		}
		return &WebhookResult{Action: WebhookReopened, TicketID: closed.ID, ticket: closed}, nil
	}

	child, err := s.tickets.FindOpenReopenChild(ctx, closed.ID)
	switch {
	case err == nil:
		patch := repository.TicketPatch{LastClientActivityAt: repository.SetValue(now)}
		if err := s.tickets.Update(ctx, child.ID, patch); err != nil {
			return nil, err
		}
		return &WebhookResult{Action: WebhookChildTouched, TicketID: child.ID, ticket: child}, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, err
	}

	windowDays := int(settings.ReopenWindow().Hours() / 24)
	header := fmt.Sprintf("**Reapertura tardía del ticket #%d** (cerrado hace más de %d días).", closed.Reference, windowDays)
	description := header
	if body := s.sanitize(payload.Description); body != "" {
		description += "\n\n" + body
	}
	if payload.Message != nil && strings.TrimSpace(payload.Message.Content) != "" {
		description += "\n\n" + s.sanitize(payload.Message.Content)
	}

	title := closed.Title
	if subject := strings.TrimSpace(payload.Subject); subject != "" {
		title = subject
	}
	child = &domain.Ticket{
		Title:                title,
		Description:          description,
		Stage:                domain.StageNew,
		Priority:             closed.Priority,
		AssignedTo:           closed.AssignedTo,
		CreatedBy:            closed.CreatedBy,
		CreatedByEmail:       closed.CreatedByEmail,
		UpdatedBy:            systemUser,
		EntityID:             closed.EntityID,
		Category:             closed.Category,
		Application:          closed.Application,
		Classification:       closed.Classification,
		Channel:              closed.Channel,
		Type:                 closed.Type,
		LastClientActivityAt: &now,
		ReopenedFromTicketID: strPtr(closed.ID),
	}
	if err := s.tickets.Create(ctx, child); err != nil {
		return nil, err
	}
	return &WebhookResult{Action: WebhookChildCreated, TicketID: child.ID, ticket: child}, nil
}

// resolveCompany matches the company name exactly against entities.
func (s *WebhookService) resolveCompany(ctx context.Context, company string) (*string, *string, error) {
	company = strings.TrimSpace(company)
	if company == "" || s.entities == nil {
		return nil, nil, nil
	}
	entity, err := s.entities.GetByName(ctx, company)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return strPtr(entity.ID), entity.DefaultAssigneeID, nil
}

// syncAttachments records URLs not yet attached to the ticket.
func (s *WebhookService) syncAttachments(ctx context.Context, ticketID, uploader string, urls []string) (int, error) {
	if len(urls) == 0 {
		return 0, nil
	}
	known, err := s.attachments.ListURLsByTicket(ctx, ticketID)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(known))
	for _, u := range known {
		seen[u] = struct{}{}
	}

	added := 0
	for _, raw := range urls {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		attachment := &domain.Attachment{
			TicketID:   ticketID,
			FileName:   fileNameFromURL(u),
			URL:        u,
			UploadedBy: uploader,
		}
		if err := s.attachments.Create(ctx, attachment); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func (s *WebhookService) sanitize(content string) string {
	content = strings.TrimSpace(content)
	if s.sanitizer == nil || content == "" {
		return content
	}
	return strings.TrimSpace(s.sanitizer.Sanitize(content))
}

func fileNameFromURL(raw string) string {
	if parsed, err := url.Parse(raw); err == nil && parsed.Path != "" {
		if name := path.Base(parsed.Path); name != "/" && name != "." {
			return name
		}
	}
	return "adjunto"
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
