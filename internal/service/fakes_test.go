package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mailer"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func staff(id string) *domain.Profile {
	return &domain.Profile{ID: id, Email: id + "@support.test", FullName: "Agent " + id, Role: domain.RoleAgent}
}

func clientUser(id, entityID string) *domain.Profile {
	return &domain.Profile{ID: id, Email: id + "@client.test", FullName: "Client " + id, Role: domain.RoleClient, EntityID: strPtr(entityID)}
}

type mockTicketRepo struct {
	mu         sync.Mutex
	tickets    map[string]*domain.Ticket
	nextRef    int64
	patches    []repository.TicketPatch
	created    []string
	updateErr  error
	updateFail map[string]error
}

func newMockTicketRepo(tickets ...domain.Ticket) *mockTicketRepo {
	repo := &mockTicketRepo{tickets: map[string]*domain.Ticket{}, nextRef: 100}
	for i := range tickets {
		t := tickets[i]
		repo.tickets[t.ID] = &t
	}
	return repo
}

func (m *mockTicketRepo) get(id string) *domain.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tickets[id]; ok {
		cp := *t
		return &cp
	}
	return nil
}

func (m *mockTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRef++
	ticket.ID = fmt.Sprintf("t-%d", m.nextRef)
	ticket.Reference = m.nextRef
	ticket.CreatedAt = testNow
	ticket.UpdatedAt = testNow
	cp := *ticket
	m.tickets[ticket.ID] = &cp
	m.created = append(m.created, ticket.ID)
	return nil
}

func (m *mockTicketRepo) Update(ctx context.Context, id string, patch repository.TicketPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if err := m.updateFail[id]; err != nil {
		return err
	}
	t, ok := m.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	applyPatch(t, patch)
	if patch.LastClientActivityAt.Set {
		t.LastClientActivityAt = patch.LastClientActivityAt.Value
	}
	m.patches = append(m.patches, patch)
	return nil
}

func (m *mockTicketRepo) UpsertExternal(ctx context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if derefString(t.ExternalSource) == derefString(ticket.ExternalSource) && derefString(t.ExternalRef) == derefString(ticket.ExternalRef) {
			if ticket.Stage != t.Stage {
				if ticket.Stage == domain.StagePendingValidation {
					t.PendingValidationSince = ticket.PendingValidationSince
				}
				if ticket.Stage == domain.StageDone {
					t.ClosedAt = ticket.ClosedAt
				} else {
					t.ClosedAt = nil
				}
			}
			ticket.PendingValidationSince = t.PendingValidationSince
			ticket.ClosedAt = t.ClosedAt
			t.Title = ticket.Title
			t.Description = ticket.Description
			t.Stage = ticket.Stage
			if ticket.AssignedTo != nil {
				t.AssignedTo = ticket.AssignedTo
			}
			if ticket.EntityID != nil {
				t.EntityID = ticket.EntityID
			}
			if ticket.LastClientActivityAt != nil {
				t.LastClientActivityAt = ticket.LastClientActivityAt
			}
			ticket.ID = t.ID
			ticket.Reference = t.Reference
			return nil
		}
	}
	m.nextRef++
	ticket.ID = fmt.Sprintf("t-%d", m.nextRef)
	ticket.Reference = m.nextRef
	cp := *ticket
	m.tickets[ticket.ID] = &cp
	m.created = append(m.created, ticket.ID)
	return nil
}

func (m *mockTicketRepo) SetExternal(ctx context.Context, id, source, ref string, url *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.ExternalSource = strPtr(source)
	t.ExternalRef = strPtr(ref)
	t.ExternalURL = url
	return nil
}

func (m *mockTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if t := m.get(id); t != nil {
		return t, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockTicketRepo) GetByExternal(ctx context.Context, source, ref string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if derefString(t.ExternalSource) == source && derefString(t.ExternalRef) == ref {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockTicketRepo) FindOpenReopenChild(ctx context.Context, parentID string) (*domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if derefString(t.ReopenedFromTicketID) == parentID && !t.Stage.IsClosed() {
			cp := *t
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockTicketRepo) ListPendingValidation(ctx context.Context) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Ticket{}
	for _, t := range m.tickets {
		if t.Stage == domain.StagePendingValidation {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Ticket{}
	for _, t := range m.tickets {
		if filter.EntityID != nil && derefString(t.EntityID) != *filter.EntityID {
			continue
		}
		if filter.CreatedBy != nil && derefString(t.CreatedBy) != *filter.CreatedBy {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockLabelRepo struct {
	labels     map[string][]domain.Label
	replaced   map[string][]string
	replaceErr error
}

func (m *mockLabelRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Label, error) {
	return m.labels[ticketID], nil
}

func (m *mockLabelRepo) Replace(ctx context.Context, ticketID string, labelIDs []string) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	if m.replaced == nil {
		m.replaced = map[string][]string{}
	}
	m.replaced[ticketID] = labelIDs
	return nil
}

type mockNotificationRepo struct {
	created    []domain.Notification
	createErr  error
	deliveries []domain.NotificationDelivery
	sent       [][]string
	markedRead []string
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	n.ID = fmt.Sprintf("n-%d", len(m.created)+1)
	n.CreatedAt = testNow
	m.created = append(m.created, *n)
	return nil
}

func (m *mockNotificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	out := []domain.Notification{}
	for _, n := range m.created {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	m.markedRead = ids
	return int64(len(ids)), nil
}

func (m *mockNotificationRepo) ListForDispatch(ctx context.Context, ids []string) ([]domain.NotificationDelivery, error) {
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	out := []domain.NotificationDelivery{}
	for _, d := range m.deliveries {
		if wanted[d.ID] && !d.IsEmailSent {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkEmailSent(ctx context.Context, ids []string) error {
	m.sent = append(m.sent, ids)
	return nil
}

type mockCommentRepo struct {
	comments  map[string]*domain.Comment
	order     []string
	createErr error
}

func newMockCommentRepo(comments ...domain.Comment) *mockCommentRepo {
	repo := &mockCommentRepo{comments: map[string]*domain.Comment{}}
	for i := range comments {
		c := comments[i]
		repo.comments[c.ID] = &c
		repo.order = append(repo.order, c.ID)
	}
	return repo
}

func (m *mockCommentRepo) Create(ctx context.Context, c *domain.Comment) error {
	if m.createErr != nil {
		return m.createErr
	}
	c.ID = fmt.Sprintf("c-%d", len(m.order)+1)
	c.CreatedAt = testNow
	cp := *c
	m.comments[c.ID] = &cp
	m.order = append(m.order, c.ID)
	return nil
}

func (m *mockCommentRepo) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	if c, ok := m.comments[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockCommentRepo) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	out := []domain.Comment{}
	for _, id := range m.order {
		c := m.comments[id]
		if c.TicketID != ticketID || (c.IsInternal && !includeInternal) {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCommentRepo) Edit(ctx context.Context, id, content, editorID string) error {
	c, ok := m.comments[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.Content = content
	c.EditedBy = strPtr(editorID)
	return nil
}

func (m *mockCommentRepo) SoftDelete(ctx context.Context, id, deletedBy string) error {
	c, ok := m.comments[id]
	if !ok {
		return pgx.ErrNoRows
	}
	c.IsDeleted = true
	c.DeletedBy = strPtr(deletedBy)
	return nil
}

type mockProfileRepo struct {
	profiles    map[string]domain.Profile
	emailLookup [][]string
}

func (m *mockProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		return &p, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockProfileRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	for _, p := range m.profiles {
		if strings.EqualFold(p.Email, email) {
			p := p
			return &p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockProfileRepo) EmailsByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	m.emailLookup = append(m.emailLookup, ids)
	out := map[string]string{}
	for _, id := range ids {
		if p, ok := m.profiles[id]; ok {
			out[id] = p.Email
		}
	}
	return out, nil
}

type mockEntityRepo struct {
	entities map[string]domain.Entity
}

func (m *mockEntityRepo) GetByID(ctx context.Context, id string) (*domain.Entity, error) {
	if e, ok := m.entities[id]; ok {
		return &e, nil
	}
	return nil, pgx.ErrNoRows
}

func (m *mockEntityRepo) GetByName(ctx context.Context, name string) (*domain.Entity, error) {
	for _, e := range m.entities {
		if e.Name == name {
			e := e
			return &e, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type mockAttachmentRepo struct {
	attachments []domain.Attachment
}

func (m *mockAttachmentRepo) Create(ctx context.Context, a *domain.Attachment) error {
	a.ID = fmt.Sprintf("a-%d", len(m.attachments)+1)
	m.attachments = append(m.attachments, *a)
	return nil
}

func (m *mockAttachmentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	out := []domain.Attachment{}
	for _, a := range m.attachments {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAttachmentRepo) ListURLsByTicket(ctx context.Context, ticketID string) ([]string, error) {
	out := []string{}
	for _, a := range m.attachments {
		if a.TicketID == ticketID {
			out = append(out, a.URL)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type mockMailer struct {
	sent    []mailer.Message
	failOn  int
	sendErr error
}

func (m *mockMailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.sendErr != nil && len(m.sent)+1 >= m.failOn {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

var errBoom = errors.New("boom")
