package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/integration/mojito"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

type stubMojito struct {
	createdKeys []string
	created     []mojito.TicketFields
	updated     []mojito.TicketFields
	messages    []string
	authors     []string
	createID    mojito.ExternalID
	err         error
	calls       int
}

func (s *stubMojito) CreateTicket(ctx context.Context, key string, fields mojito.TicketFields) (mojito.ExternalID, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	s.createdKeys = append(s.createdKeys, key)
	s.created = append(s.created, fields)
	return s.createID, nil
}

func (s *stubMojito) UpdateTicket(ctx context.Context, id mojito.ExternalID, fields mojito.TicketFields) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.updated = append(s.updated, fields)
	return nil
}

func (s *stubMojito) AddMessage(ctx context.Context, id mojito.ExternalID, content, authorEmail string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, content)
	s.authors = append(s.authors, authorEmail)
	return nil
}

func (s *stubMojito) Ping(ctx context.Context) error {
	s.calls++
	return s.err
}

func mojitoConfig() config.MojitoConfig {
	return config.MojitoConfig{BaseURL: "https://api.mojito.test", TokenURL: "https://auth.mojito.test/token", ClientID: "id", ClientSecret: "secret"}
}

type syncFixture struct {
	tickets  *mockTicketRepo
	comments *mockCommentRepo
	client   *stubMojito
	svc      *SyncService
}

func newSyncFixture(cfg config.MojitoConfig, tickets []domain.Ticket, comments ...domain.Comment) *syncFixture {
	f := &syncFixture{
		tickets:  newMockTicketRepo(tickets...),
		comments: newMockCommentRepo(comments...),
		client:   &stubMojito{createID: "4321"},
	}
	f.svc = NewSyncService(SyncDependencies{
		Config:      cfg,
		Client:      f.client,
		TicketRepo:  f.tickets,
		CommentRepo: f.comments,
		ProfileRepo: &mockProfileRepo{profiles: map[string]domain.Profile{
			"u-1": {ID: "u-1", Email: "agent@desk.test"},
		}},
		EntityRepo: &mockEntityRepo{entities: map[string]domain.Entity{"e-1": {ID: "e-1", Name: "Acme"}}},
		Publisher:  &recordingPublisher{},
	})
	return f
}

func localTicket() domain.Ticket {
	return domain.Ticket{ID: "t-1", Title: "Broken sync", Description: "details", Stage: domain.StagePendingClient,
		EntityID: strPtr("e-1"), CreatedByEmail: strPtr("client@acme.test")}
}

func linkedTicket() domain.Ticket {
	t := localTicket()
	t.ExternalSource = strPtr(domain.ExternalSourceMojito)
	t.ExternalRef = strPtr("4321")
	return t
}

func TestSyncMissingConfigFailsBeforeCalls(t *testing.T) {
	f := newSyncFixture(config.MojitoConfig{}, []domain.Ticket{localTicket()})

	_, err := f.svc.Sync(context.Background(), SyncRequest{Action: SyncCreate, TicketID: "t-1"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfig))
	assert.Zero(t, f.client.calls)

	assert.Error(t, f.svc.Probe(context.Background()))
	assert.Zero(t, f.client.calls)
	assert.False(t, f.svc.Enabled())
}

func TestSyncCreateLinksTicket(t *testing.T) {
	f := newSyncFixture(mojitoConfig(), []domain.Ticket{localTicket()})

	result, err := f.svc.Sync(context.Background(), SyncRequest{Action: SyncCreate, TicketID: "t-1"})
	require.NoError(t, err)
	assert.Equal(t, "4321", result.ExternalID)
	assert.Equal(t, []string{"t-1"}, f.client.createdKeys)

	fields := f.client.created[0]
	assert.Equal(t, "Acme", fields.Company)
	assert.Equal(t, "client@acme.test", fields.UserEmail)
	assert.Equal(t, domain.MojitoStatusInfoPending, fields.Status)

	stored := f.tickets.get("t-1")
	assert.Equal(t, "4321", derefString(stored.ExternalRef))
	assert.Equal(t, domain.ExternalSourceMojito, derefString(stored.ExternalSource))

	again, err := f.svc.Sync(context.Background(), SyncRequest{Action: SyncCreate, TicketID: "t-1"})
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	assert.Len(t, f.client.createdKeys, 1)
}

func TestSyncUpdateOmitsUserEmail(t *testing.T) {
	f := newSyncFixture(mojitoConfig(), []domain.Ticket{linkedTicket()})

	_, err := f.svc.Sync(context.Background(), SyncRequest{Action: SyncUpdate, TicketID: "t-1"})
	require.NoError(t, err)
	require.Len(t, f.client.updated, 1)
	assert.Empty(t, f.client.updated[0].UserEmail)
	assert.Equal(t, "Broken sync", f.client.updated[0].Subject)
}

func TestSyncMessageUsesAuthorProfileAndSkipsInternal(t *testing.T) {
	f := newSyncFixture(mojitoConfig(), []domain.Ticket{linkedTicket()},
		domain.Comment{ID: "c-public", TicketID: "t-1", AuthorID: "u-1", Content: "On it"},
		domain.Comment{ID: "c-internal", TicketID: "t-1", AuthorID: "u-1", Content: "secret", IsInternal: true},
	)
	ctx := context.Background()

	_, err := f.svc.Sync(ctx, SyncRequest{Action: SyncMessage, TicketID: "t-1", CommentID: "c-public"})
	require.NoError(t, err)
	assert.Equal(t, []string{"On it"}, f.client.messages)
	assert.Equal(t, []string{"agent@desk.test"}, f.client.authors)

	result, err := f.svc.Sync(ctx, SyncRequest{Action: SyncMessage, TicketID: "t-1", CommentID: "c-internal"})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Len(t, f.client.messages, 1)
}

func TestSyncSurfacesUpstreamBody(t *testing.T) {
	f := newSyncFixture(mojitoConfig(), []domain.Ticket{linkedTicket()})
	f.client.err = &mojito.StatusError{Operation: "update_ticket", StatusCode: 422, Body: `{"error":"bad status"}`}

	_, err := f.svc.Sync(context.Background(), SyncRequest{Action: SyncUpdate, TicketID: "t-1"})
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeUpstream, domainErr.Code)
	assert.Equal(t, 500, domainErr.HTTPStatus)
	assert.Equal(t, 422, domainErr.Details["upstream_status"])
	assert.Equal(t, `{"error":"bad status"}`, domainErr.Details["upstream_body"])
}

func TestSyncValidatesRequest(t *testing.T) {
	f := newSyncFixture(mojitoConfig(), []domain.Ticket{localTicket()})
	ctx := context.Background()

	_, err := f.svc.Sync(ctx, SyncRequest{Action: SyncMessage, TicketID: "t-1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.svc.Sync(ctx, SyncRequest{Action: "delete", TicketID: "t-1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.svc.Sync(ctx, SyncRequest{Action: SyncUpdate, TicketID: "t-1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Zero(t, f.client.calls)
}

func TestMirrorCommentIgnoresUnlinkedTickets(t *testing.T) {
	f := newSyncFixture(mojitoConfig(), []domain.Ticket{localTicket()},
		domain.Comment{ID: "c-1", TicketID: "t-1", AuthorID: "u-1", Content: "hi"})

	require.NoError(t, f.svc.MirrorComment(context.Background(), "t-1", "c-1"))
	assert.Zero(t, f.client.calls)
}
