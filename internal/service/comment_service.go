package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// CommentInput is a new comment on a ticket.
type CommentInput struct {
	Content    string
	IsInternal bool
	Mentions   []string
}

// CommentService manages the comment thread of a ticket.
type CommentService struct {
	tickets       repository.TicketRepository
	comments      repository.CommentRepository
	notifications repository.NotificationRepository
	publisher     events.Publisher
	logger        *zap.Logger
	now           Clock
}

// CommentDependencies bundles collaborators.
type CommentDependencies struct {
	TicketRepo       repository.TicketRepository
	CommentRepo      repository.CommentRepository
	NotificationRepo repository.NotificationRepository
	Publisher        events.Publisher
	Logger           *zap.Logger
	Clock            Clock
}

// NewCommentService constructs the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		tickets:       deps.TicketRepo,
		comments:      deps.CommentRepo,
		notifications: deps.NotificationRepo,
		publisher:     deps.Publisher,
		logger:        logger,
		now:           clockOrNow(deps.Clock),
	}
}

// Create adds a comment. Clients cannot post internal notes, and a client
// comment counts as client activity for auto-close purposes. Mentioned users
// and the assignee are notified.
func (s *CommentService) Create(ctx context.Context, actor *domain.Profile, ticketID string, input CommentInput) (*domain.Comment, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", nil)
	}
	ticket, err := s.accessibleTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	client := !actor.Role.IsStaff()
	if client && input.IsInternal {
		return nil, apperrors.NewForbidden("clients cannot post internal comments")
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		AuthorID:   actor.ID,
		Content:    content,
		IsInternal: input.IsInternal,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	evts := []events.Event{
		events.CommentsChanged(ticket.ID),
		events.CommentCreated(ticket.ID, comment.ID, comment.IsInternal),
	}
	if client {
		now := s.now().UTC()
		patch := repository.TicketPatch{LastClientActivityAt: repository.SetValue(now)}
		if err := s.tickets.Update(ctx, ticket.ID, patch); err != nil {
			s.logger.Warn("record client activity failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		} else {
			evts = append(evts, events.TicketChanged(ticket.ID))
		}
	}

	ids, recipients := s.notify(ctx, actor, ticket, comment, input.Mentions)
	for _, userID := range recipients {
		evts = append(evts, events.NotificationsChanged(userID))
	}
	if len(ids) > 0 {
		evts = append(evts, events.NotificationsCreated(ids))
	}
	publish(ctx, s.publisher, ticketEvents(ticket, evts...)...)
	return comment, nil
}

// notify creates mention and new_comment notifications. Failures are logged;
// the comment itself is already stored.
func (s *CommentService) notify(ctx context.Context, actor *domain.Profile, ticket *domain.Ticket, comment *domain.Comment, mentions []string) ([]string, []string) {
	if s.notifications == nil {
		return nil, nil
	}
	var ids, recipients []string
	seen := map[string]bool{actor.ID: true}
	create := func(userID string, kind domain.NotificationType, message string) {
		n := &domain.Notification{
			UserID:      userID,
			TicketID:    strPtr(ticket.ID),
			Type:        kind,
			TriggeredBy: strPtr(actor.ID),
			Message:     message,
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			s.logger.Warn("create comment notification failed",
				zap.String("ticket_id", ticket.ID),
				zap.String("user_id", userID),
				zap.Error(err))
			return
		}
		ids = append(ids, n.ID)
		recipients = append(recipients, userID)
	}

	name := actor.FullName
	if blank(name) {
		name = actor.Email
	}
	for _, userID := range normalizeIDs(mentions) {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		create(userID, domain.NotificationMention,
			fmt.Sprintf("%s te ha mencionado en el ticket #%d", name, ticket.Reference))
	}
	if ticket.AssignedTo != nil && !seen[*ticket.AssignedTo] {
		seen[*ticket.AssignedTo] = true
		create(*ticket.AssignedTo, domain.NotificationNewComment,
			fmt.Sprintf("Nuevo comentario de %s en el ticket #%d", name, ticket.Reference))
	}
	return ids, recipients
}

// List returns the thread in creation order. Clients never see internal notes,
// and deleted comments keep their place with the content removed.
func (s *CommentService) List(ctx context.Context, actor *domain.Profile, ticketID string) ([]domain.Comment, error) {
	ticket, err := s.accessibleTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID, actor.Role.IsStaff())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range comments {
		if comments[i].IsDeleted {
			comments[i].Content = ""
		}
	}
	return comments, nil
}

// Edit replaces the content of the actor's own comment.
func (s *CommentService) Edit(ctx context.Context, actor *domain.Profile, commentID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", nil)
	}
	comment, err := s.ownComment(ctx, actor, commentID)
	if err != nil {
		return nil, err
	}
	if err := s.comments.Edit(ctx, comment.ID, content, actor.ID); err != nil {
		return nil, notFoundOr(err, "comment", comment.ID)
	}
	now := s.now().UTC()
	comment.Content = content
	comment.EditedAt = &now
	comment.EditedBy = strPtr(actor.ID)
	publish(ctx, s.publisher, events.CommentsChanged(comment.TicketID))
	return comment, nil
}

// Delete soft-deletes the actor's own comment.
func (s *CommentService) Delete(ctx context.Context, actor *domain.Profile, commentID string) error {
	comment, err := s.ownComment(ctx, actor, commentID)
	if err != nil {
		return err
	}
	if err := s.comments.SoftDelete(ctx, comment.ID, actor.ID); err != nil {
		return notFoundOr(err, "comment", comment.ID)
	}
	publish(ctx, s.publisher, events.CommentsChanged(comment.TicketID))
	return nil
}

func (s *CommentService) accessibleTicket(ctx context.Context, actor *domain.Profile, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	if !canAccessTicket(actor, ticket) {
		return nil, apperrors.NewForbidden("ticket not accessible")
	}
	return ticket, nil
}

func (s *CommentService) ownComment(ctx context.Context, actor *domain.Profile, commentID string) (*domain.Comment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	comment, err := s.comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, notFoundOr(err, "comment", commentID)
	}
	if comment.AuthorID != actor.ID {
		return nil, apperrors.NewForbidden("only the author can change a comment")
	}
	if comment.IsDeleted {
		return nil, apperrors.NewConflict("comment already deleted", map[string]any{"id": comment.ID})
	}
	return comment, nil
}
