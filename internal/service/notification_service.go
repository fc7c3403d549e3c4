package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

const defaultNotificationLimit = 50

// CacheInvalidator drops cached ticket copies.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context, ticketID string) error
}

// NotificationService serves the in-app inbox and reacts to workflow events.
type NotificationService struct {
	notifications repository.NotificationRepository
	dispatcher    events.Dispatcher
	email         *EmailDispatchService
	sync          *SyncService
	cache         CacheInvalidator
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	Dispatcher       events.Dispatcher
	EmailDispatch    *EmailDispatchService
	Sync             *SyncService
	Cache            CacheInvalidator
	Logger           *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: deps.NotificationRepo,
		dispatcher:    deps.Dispatcher,
		email:         deps.EmailDispatch,
		sync:          deps.Sync,
		cache:         deps.Cache,
		logger:        logger,
	}
}

// List returns the actor's notifications, newest first.
func (n *NotificationService) List(ctx context.Context, actor *domain.Profile, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if limit <= 0 || limit > 200 {
		limit = defaultNotificationLimit
	}
	items, err := n.notifications.ListByUser(ctx, actor.ID, unreadOnly, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// MarkRead flags the given notifications as read. An empty id list marks the
// whole inbox. Rows owned by other users are left untouched.
func (n *NotificationService) MarkRead(ctx context.Context, actor *domain.Profile, ids []string) (int64, error) {
	if actor == nil {
		return 0, apperrors.NewUnauthorized("authentication required")
	}
	updated, err := n.notifications.MarkRead(ctx, actor.ID, normalizeIDs(ids))
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if updated > 0 {
		publish(ctx, n.dispatcher, events.NotificationsChanged(actor.ID))
	}
	return updated, nil
}

// RegisterHandlers subscribes to workflow events. Handlers that call out to
// SMTP or Mojito360 are passed through wrap so they can run off the request
// path; cache invalidation always runs inline.
func (n *NotificationService) RegisterHandlers(wrap func(events.EventHandler) events.EventHandler) {
	if n.dispatcher == nil {
		return
	}
	if wrap == nil {
		wrap = func(h events.EventHandler) events.EventHandler { return h }
	}
	if n.cache != nil {
		n.dispatcher.Subscribe(events.EventTicketChanged, n.handleTicketChanged)
	}
	if n.email != nil {
		n.dispatcher.Subscribe(events.EventNotificationsCreated, wrap(n.handleNotificationsCreated))
	}
	if n.sync != nil {
		n.dispatcher.Subscribe(events.EventTicketCreated, wrap(n.handleTicketCreated))
		n.dispatcher.Subscribe(events.EventCommentCreated, wrap(n.handleCommentCreated))
	}
}

func (n *NotificationService) handleTicketChanged(ctx context.Context, event events.Event) error {
	return n.cache.InvalidateCache(ctx, event.TicketID)
}

func (n *NotificationService) handleNotificationsCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.NotificationsCreatedPayload)
	if !ok || len(payload.NotificationIDs) == 0 {
		return nil
	}
	result, err := n.email.Send(ctx, payload.NotificationIDs)
	if err != nil {
		return err
	}
	n.logger.Debug("notification emails dispatched",
		zap.Int("sent", len(result.SentIDs)),
		zap.Int("skipped", len(result.SkippedIDs)))
	return nil
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	if !n.sync.Enabled() {
		return nil
	}
	result, err := n.sync.Sync(ctx, SyncRequest{Action: SyncCreate, TicketID: event.TicketID})
	if err != nil {
		return err
	}
	n.logger.Info("ticket pushed to mojito",
		zap.String("ticket_id", result.TicketID),
		zap.String("external_id", result.ExternalID))
	return nil
}

func (n *NotificationService) handleCommentCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentCreatedPayload)
	if !ok || payload.IsInternal {
		return nil
	}
	return n.sync.MirrorComment(ctx, event.TicketID, payload.CommentID)
}
