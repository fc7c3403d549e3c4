package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/integration/mojito"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// SyncAction selects what an outbound sync call pushes.
type SyncAction string

const (
	SyncCreate  SyncAction = "create"
	SyncUpdate  SyncAction = "update"
	SyncMessage SyncAction = "message"
)

// SyncRequest is one outbound sync call.
type SyncRequest struct {
	Action    SyncAction
	TicketID  string
	CommentID string
}

// SyncResult reports the outcome of a sync call.
type SyncResult struct {
	Action     SyncAction `json:"action"`
	TicketID   string     `json:"ticket_id"`
	ExternalID string     `json:"external_id,omitempty"`
	Skipped    bool       `json:"skipped,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// MojitoAPI is the subset of the Mojito360 client used for sync.
type MojitoAPI interface {
	CreateTicket(ctx context.Context, key string, fields mojito.TicketFields) (mojito.ExternalID, error)
	UpdateTicket(ctx context.Context, id mojito.ExternalID, fields mojito.TicketFields) error
	AddMessage(ctx context.Context, id mojito.ExternalID, content, authorEmail string) error
	Ping(ctx context.Context) error
}

// SyncService pushes local tickets and comments to Mojito360.
type SyncService struct {
	cfg      config.MojitoConfig
	client   MojitoAPI
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	profiles repository.ProfileRepository
	entities repository.EntityRepository
	events   events.Publisher
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// SyncDependencies bundles collaborators.
type SyncDependencies struct {
	Config      config.MojitoConfig
	Client      MojitoAPI
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	ProfileRepo repository.ProfileRepository
	EntityRepo  repository.EntityRepository
	Publisher   events.Publisher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewSyncService constructs the service.
func NewSyncService(deps SyncDependencies) *SyncService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		cfg:      deps.Config,
		client:   deps.Client,
		tickets:  deps.TicketRepo,
		comments: deps.CommentRepo,
		profiles: deps.ProfileRepo,
		entities: deps.EntityRepo,
		events:   deps.Publisher,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

// Sync runs one action. Missing configuration is reported before any external call.
func (s *SyncService) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if blank(req.TicketID) {
		return nil, apperrors.NewValidationError("ticket_id is required", nil)
	}
	switch req.Action {
	case SyncCreate:
		return s.create(ctx, req.TicketID)
	case SyncUpdate:
		return s.update(ctx, req.TicketID)
	case SyncMessage:
		if blank(req.CommentID) {
			return nil, apperrors.NewValidationError("comment_id is required for message", nil)
		}
		return s.message(ctx, req.TicketID, req.CommentID)
	default:
		return nil, apperrors.NewValidationError("unknown sync action", map[string]any{"action": req.Action})
	}
}

// Probe checks connectivity and credentials against the external API.
func (s *SyncService) Probe(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.client.Ping(ctx)
	s.metrics.RecordExternalCall("ping", err)
	if err != nil {
		return s.upstream("ping", "", "", err)
	}
	return nil
}

// Enabled reports whether outbound sync is configured.
func (s *SyncService) Enabled() bool {
	return s.ready() == nil
}

// MirrorComment pushes a public comment when its ticket is linked to Mojito360.
// Unlinked tickets, internal notes and a disabled integration are ignored.
func (s *SyncService) MirrorComment(ctx context.Context, ticketID, commentID string) error {
	if !s.Enabled() {
		return nil
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return notFoundOr(err, "ticket", ticketID)
	}
	if !ticket.IsExternal() {
		return nil
	}
	_, err = s.message(ctx, ticketID, commentID)
	return err
}

func (s *SyncService) ready() error {
	if err := s.cfg.Validate(); err != nil {
		return apperrors.NewConfigError(err.Error())
	}
	if s.client == nil {
		return apperrors.NewConfigError("mojito client not configured")
	}
	return nil
}

func (s *SyncService) create(ctx context.Context, ticketID string) (*SyncResult, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if ticket.IsExternal() {
		return &SyncResult{Action: SyncCreate, TicketID: ticket.ID, ExternalID: *ticket.ExternalRef, Skipped: true, Reason: "already linked"}, nil
	}

	fields, err := s.fieldsFor(ctx, ticket)
	if err != nil {
		return nil, err
	}
	externalID, err := s.client.CreateTicket(ctx, ticket.ID, fields)
	s.metrics.RecordExternalCall("create_ticket", err)
	if err != nil {
		return nil, s.upstream("create_ticket", ticket.ID, "", err)
	}

	if err := s.tickets.SetExternal(ctx, ticket.ID, s.source(), externalID.String(), nil); err != nil {
		return nil, apperrors.MapError(err)
	}
	publish(ctx, s.events, ticketEvents(ticket, events.TicketChanged(ticket.ID))...)
	return &SyncResult{Action: SyncCreate, TicketID: ticket.ID, ExternalID: externalID.String()}, nil
}

func (s *SyncService) update(ctx context.Context, ticketID string) (*SyncResult, error) {
	ticket, err := s.linkedTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	fields, err := s.fieldsFor(ctx, ticket)
	if err != nil {
		return nil, err
	}
	fields.UserEmail = ""
	externalID := mojito.ExternalID(*ticket.ExternalRef)
	err = s.client.UpdateTicket(ctx, externalID, fields)
	s.metrics.RecordExternalCall("update_ticket", err)
	if err != nil {
		return nil, s.upstream("update_ticket", ticket.ID, externalID.String(), err)
	}
	return &SyncResult{Action: SyncUpdate, TicketID: ticket.ID, ExternalID: externalID.String()}, nil
}

func (s *SyncService) message(ctx context.Context, ticketID, commentID string) (*SyncResult, error) {
	ticket, err := s.linkedTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, notFoundOr(err, "comment", commentID)
	}
	if comment.TicketID != ticket.ID {
		return nil, apperrors.NewValidationError("comment does not belong to ticket", map[string]any{"comment_id": commentID})
	}
	if comment.IsInternal || comment.IsDeleted {
		return &SyncResult{Action: SyncMessage, TicketID: ticket.ID, ExternalID: *ticket.ExternalRef, Skipped: true, Reason: "not public"}, nil
	}

	author, err := s.profiles.GetByID(ctx, comment.AuthorID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}
	authorEmail := ""
	if author != nil {
		authorEmail = author.Email
	}

	externalID := mojito.ExternalID(*ticket.ExternalRef)
	err = s.client.AddMessage(ctx, externalID, comment.Content, authorEmail)
	s.metrics.RecordExternalCall("add_message", err)
	if err != nil {
		return nil, s.upstream("add_message", ticket.ID, externalID.String(), err)
	}
	return &SyncResult{Action: SyncMessage, TicketID: ticket.ID, ExternalID: externalID.String()}, nil
}

func (s *SyncService) linkedTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if !ticket.IsExternal() {
		return nil, apperrors.NewValidationError("ticket is not linked to an external ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

func (s *SyncService) fieldsFor(ctx context.Context, ticket *domain.Ticket) (mojito.TicketFields, error) {
	fields := mojito.TicketFields{
		Subject:     ticket.Title,
		Description: ticket.Description,
		Category:    derefString(ticket.Category),
		UserEmail:   strings.TrimSpace(derefString(ticket.CreatedByEmail)),
		Status:      domain.ExternalStatusFromStage(ticket.Stage),
	}
	if ticket.EntityID != nil && s.entities != nil {
		entity, err := s.entities.GetByID(ctx, *ticket.EntityID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fields, apperrors.MapError(err)
		}
		if entity != nil {
			fields.Company = entity.Name
		}
	}
	if fields.UserEmail == "" && ticket.CreatedBy != nil {
		profile, err := s.profiles.GetByID(ctx, *ticket.CreatedBy)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fields, apperrors.MapError(err)
		}
		if profile != nil {
			fields.UserEmail = profile.Email
		}
	}
	return fields, nil
}

func (s *SyncService) source() string {
	if s.cfg.Source != "" {
		return s.cfg.Source
	}
	return domain.ExternalSourceMojito
}

func (s *SyncService) upstream(operation, ticketID, externalID string, err error) error {
	status, body := 0, ""
	var statusErr *mojito.StatusError
	if errors.As(err, &statusErr) {
		status, body = statusErr.StatusCode, statusErr.Body
	}
	s.logger.Error("mojito sync failed",
		zap.String("operation", operation),
		zap.String("ticket_id", ticketID),
		zap.String("external_id", externalID),
		zap.Int("upstream_status", status),
		zap.Error(err),
	)
	return apperrors.NewUpstreamError("mojito", status, body, err)
}
