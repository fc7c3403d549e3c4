package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

// Steps of a ticket change, in execution order.
const (
	StepTicketUpdate = "ticket_update"
	StepNotification = "assignment_notification"
	StepLabels       = "labels"
)

// TicketDraft accumulates edits to a ticket. Nil fields are untouched; an empty
// string clears a nullable field.
type TicketDraft struct {
	Stage       *domain.Stage
	Priority    *domain.Priority
	EntityID    *string
	AssignedTo  *string
	Type        *string
	Application *string
	Labels      *[]string
}

// Confirmation carries the user's explicit approval of a stage change.
type Confirmation struct {
	Confirmed bool
	Solution  string
}

// TicketChangeResult describes what an Apply call did.
type TicketChangeResult struct {
	Ticket         *domain.Ticket `json:"ticket"`
	Changed        []string       `json:"changed"`
	Applied        bool           `json:"applied"`
	NotificationID *string        `json:"notification_id,omitempty"`
}

// TicketChangeService commits reviewed ticket edits.
type TicketChangeService struct {
	tickets       repository.TicketRepository
	labels        repository.LabelRepository
	entities      repository.EntityRepository
	notifications repository.NotificationRepository
	publisher     events.Publisher
	now           Clock
}

// TicketChangeDependencies bundles collaborators.
type TicketChangeDependencies struct {
	TicketRepo       repository.TicketRepository
	LabelRepo        repository.LabelRepository
	EntityRepo       repository.EntityRepository
	NotificationRepo repository.NotificationRepository
	Publisher        events.Publisher
	Clock            Clock
}

// NewTicketChangeService constructs the service.
func NewTicketChangeService(deps TicketChangeDependencies) *TicketChangeService {
	return &TicketChangeService{
		tickets:       deps.TicketRepo,
		labels:        deps.LabelRepo,
		entities:      deps.EntityRepo,
		notifications: deps.NotificationRepo,
		publisher:     deps.Publisher,
		now:           clockOrNow(deps.Clock),
	}
}

// Apply diffs draft against the stored ticket and commits the difference.
//
// A stage change needs confirmation.Confirmed, and entering pending_validation
// also needs a non-blank solution. The commit runs as up to three steps
// (ticket update, assignment notification, label replacement). A failure after
// the first step returns a PARTIAL_APPLY error naming the completed steps; each
// step can be repeated safely.
func (s *TicketChangeService) Apply(ctx context.Context, actor *domain.Profile, ticketID string, draft TicketDraft, confirmation Confirmation) (*TicketChangeResult, error) {
	ticket, err := s.loadForChange(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, ticket, draft, confirmation)
}

// Move changes only the stage, as a board drag does. Any stage may move to any
// other stage; moving onto the current stage is rejected.
func (s *TicketChangeService) Move(ctx context.Context, actor *domain.Profile, ticketID string, to domain.Stage, confirmation Confirmation) (*TicketChangeResult, error) {
	ticket, err := s.loadForChange(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Stage == to {
		return nil, apperrors.NewValidationError("ticket is already in that stage", map[string]any{"stage": to})
	}
	return s.apply(ctx, actor, ticket, TicketDraft{Stage: &to}, confirmation)
}

func (s *TicketChangeService) loadForChange(ctx context.Context, actor *domain.Profile, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("only support staff can change tickets")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", ticketID)
	}
	return ticket, nil
}

func (s *TicketChangeService) apply(ctx context.Context, actor *domain.Profile, ticket *domain.Ticket, draft TicketDraft, confirmation Confirmation) (*TicketChangeResult, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	patch, changed := diffDraft(ticket, draft)

	labelsChanged := false
	var labelIDs []string
	if draft.Labels != nil {
		current, err := s.labels.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		labelIDs = normalizeIDs(*draft.Labels)
		labelsChanged = !sameIDs(labelIDs, labelIDsOf(current))
	}

	result := &TicketChangeResult{Ticket: ticket, Changed: changed}
	if labelsChanged {
		result.Changed = append(result.Changed, "labels")
	}
	if len(result.Changed) == 0 {
		return result, nil
	}

	from := ticket.Stage
	stageChanged := patch.Stage != nil
	if stageChanged {
		to := *patch.Stage
		if !confirmation.Confirmed {
			return nil, ErrConfirmationRequired(from, to)
		}
		if to == domain.StagePendingValidation && blank(confirmation.Solution) {
			return nil, ErrSolutionRequired
		}
	}

	completed := []string{}

	if len(changed) > 0 {
		now := s.now().UTC()
		patch.UpdatedBy = repository.SetValue(actor.ID)
		if stageChanged {
			to := *patch.Stage
			if to == domain.StagePendingValidation {
				patch.Solution = repository.SetValue(strings.TrimSpace(confirmation.Solution))
				patch.PendingValidationSince = repository.SetValue(now)
			}
			if to == domain.StageDone {
				patch.ClosedAt = repository.SetValue(now)
			} else if from == domain.StageDone {
				patch.ClosedAt = repository.SetNull[time.Time]()
			}
		}
		if err := s.tickets.Update(ctx, ticket.ID, patch); err != nil {
			return nil, notFoundOr(err, "ticket", ticket.ID)
		}
		applyPatch(ticket, patch)
		completed = append(completed, StepTicketUpdate)
		publish(ctx, s.publisher, ticketEvents(ticket, events.TicketChanged(ticket.ID))...)
	}

	if patch.AssignedTo.Set && patch.AssignedTo.Value != nil && *patch.AssignedTo.Value != actor.ID {
		notification := &domain.Notification{
			UserID:      *patch.AssignedTo.Value,
			TicketID:    strPtr(ticket.ID),
			Type:        domain.NotificationAssignment,
			TriggeredBy: strPtr(actor.ID),
			Message:     fmt.Sprintf("Te han asignado el ticket #%d: %s", ticket.Reference, ticket.Title),
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			return nil, PartialApplyError(completed, StepNotification, err)
		}
		completed = append(completed, StepNotification)
		result.NotificationID = strPtr(notification.ID)
		publish(ctx, s.publisher,
			events.NotificationsChanged(notification.UserID),
			events.NotificationsCreated([]string{notification.ID}),
		)
	}

	if labelsChanged {
		if err := s.labels.Replace(ctx, ticket.ID, labelIDs); err != nil {
			return nil, PartialApplyError(completed, StepLabels, err)
		}
		completed = append(completed, StepLabels)
		if len(changed) == 0 {
			publish(ctx, s.publisher, ticketEvents(ticket, events.TicketChanged(ticket.ID))...)
		}
	}

	result.Applied = true
	return result, nil
}

func validateDraft(draft TicketDraft) error {
	if draft.Stage != nil && !draft.Stage.IsValid() {
		return apperrors.NewValidationError("unknown stage", map[string]any{"stage": *draft.Stage})
	}
	if draft.Priority != nil && !draft.Priority.IsValid() {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": *draft.Priority})
	}
	return nil
}

// diffDraft returns the patch for scalar fields that differ and their names.
func diffDraft(ticket *domain.Ticket, draft TicketDraft) (repository.TicketPatch, []string) {
	var patch repository.TicketPatch
	changed := []string{}

	if draft.Stage != nil && *draft.Stage != ticket.Stage {
		stage := *draft.Stage
		patch.Stage = &stage
		changed = append(changed, "stage")
	}
	if draft.Priority != nil && *draft.Priority != ticket.Priority {
		priority := *draft.Priority
		patch.Priority = &priority
		changed = append(changed, "priority")
	}
	if field, ok := diffNullable(ticket.EntityID, draft.EntityID); ok {
		patch.EntityID = field
		changed = append(changed, "entity_id")
	}
	if field, ok := diffNullable(ticket.AssignedTo, draft.AssignedTo); ok {
		patch.AssignedTo = field
		changed = append(changed, "assigned_to")
	}
	if field, ok := diffNullable(ticket.Type, draft.Type); ok {
		patch.Type = field
		changed = append(changed, "type")
	}
	if field, ok := diffNullable(ticket.Application, draft.Application); ok {
		patch.Application = field
		changed = append(changed, "application")
	}
	return patch, changed
}

func diffNullable(current, next *string) (repository.Nullable[string], bool) {
	if next == nil {
		return repository.Nullable[string]{}, false
	}
	value := strings.TrimSpace(*next)
	if value == derefString(current) {
		return repository.Nullable[string]{}, false
	}
	if value == "" {
		return repository.SetNull[string](), true
	}
	return repository.SetValue(value), true
}

func applyPatch(ticket *domain.Ticket, patch repository.TicketPatch) {
	if patch.Stage != nil {
		ticket.Stage = *patch.Stage
	}
	if patch.Priority != nil {
		ticket.Priority = *patch.Priority
	}
	assign := func(dst **string, field repository.Nullable[string]) {
		if field.Set {
			*dst = field.Value
		}
	}
	assign(&ticket.EntityID, patch.EntityID)
	assign(&ticket.AssignedTo, patch.AssignedTo)
	assign(&ticket.Type, patch.Type)
	assign(&ticket.Application, patch.Application)
	assign(&ticket.Solution, patch.Solution)
	assign(&ticket.UpdatedBy, patch.UpdatedBy)
	if patch.PendingValidationSince.Set {
		ticket.PendingValidationSince = patch.PendingValidationSince.Value
	}
	if patch.ClosedAt.Set {
		ticket.ClosedAt = patch.ClosedAt.Value
	}
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func labelIDsOf(labels []domain.Label) []string {
	ids := make([]string, len(labels))
	for i, l := range labels {
		ids[i] = l.ID
	}
	return normalizeIDs(ids)
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
