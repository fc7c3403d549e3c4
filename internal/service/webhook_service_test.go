package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/integration/mojito"
	"github.com/spec-kit/helpdesk-service/internal/mailer"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

type webhookFixture struct {
	tickets     *mockTicketRepo
	attachments *mockAttachmentRepo
	entities    *mockEntityRepo
	publisher   *recordingPublisher
	now         time.Time
	svc         *WebhookService
}

func newWebhookFixture(tickets ...domain.Ticket) *webhookFixture {
	f := &webhookFixture{
		tickets:     newMockTicketRepo(tickets...),
		attachments: &mockAttachmentRepo{},
		entities:    &mockEntityRepo{entities: map[string]domain.Entity{}},
		publisher:   &recordingPublisher{},
		now:         testNow,
	}
	f.svc = NewWebhookService(WebhookDependencies{
		TicketRepo:     f.tickets,
		EntityRepo:     f.entities,
		AttachmentRepo: f.attachments,
		Sanitizer:      mailer.NewRenderer(),
		Publisher:      f.publisher,
		Clock:          func() time.Time { return f.now },
	})
	return f
}

func webhookSettings() domain.AppSettings {
	days := 15
	return domain.AppSettings{ReopenWindowDays: &days, SystemUserID: strPtr("system")}
}

func closedExternalTicket(closedAt time.Time) domain.Ticket {
	return domain.Ticket{
		ID:             "t-1",
		Reference:      55,
		ExternalSource: strPtr(domain.ExternalSourceMojito),
		ExternalRef:    strPtr("9001"),
		Title:          "Invoice export",
		Stage:          domain.StageDone,
		Priority:       domain.PriorityHigh,
		CreatedByEmail: strPtr("Client@Acme.test"),
		AssignedTo:     strPtr("agent-1"),
		ClosedAt:       &closedAt,
	}
}

func clientMessage(content string) mojito.WebhookPayload {
	return mojito.WebhookPayload{
		ID:      mojito.ExternalID("9001"),
		Status:  domain.MojitoStatusCompleted,
		Message: &mojito.WebhookMessage{Content: content, AuthorEmail: "client@acme.test"},
	}
}

func TestWebhookReopensWithinWindow(t *testing.T) {
	closedAt := testNow.Add(-10 * 24 * time.Hour)
	f := newWebhookFixture(closedExternalTicket(closedAt))

	result, err := f.svc.Ingest(context.Background(), webhookSettings(), clientMessage("Still failing"))
	require.NoError(t, err)
	assert.Equal(t, WebhookReopened, result.Action)
	assert.Equal(t, "t-1", result.TicketID)

	ticket := f.tickets.get("t-1")
	assert.Equal(t, domain.StageAssigned, ticket.Stage)
	assert.Nil(t, ticket.ClosedAt)
	require.NotNil(t, ticket.LastClientActivityAt)
	assert.Equal(t, testNow, *ticket.LastClientActivityAt)
	assert.Empty(t, f.tickets.created)
}

func TestWebhookLateReopenCreatesOneChild(t *testing.T) {
	closedAt := testNow.Add(-20 * 24 * time.Hour)
	f := newWebhookFixture(closedExternalTicket(closedAt))
	ctx := context.Background()

	first, err := f.svc.Ingest(ctx, webhookSettings(), clientMessage("It broke again"))
	require.NoError(t, err)
	assert.Equal(t, WebhookChildCreated, first.Action)
	require.Len(t, f.tickets.created, 1)

	child := f.tickets.get(first.TicketID)
	assert.Equal(t, "t-1", derefString(child.ReopenedFromTicketID))
	assert.Equal(t, domain.StageNew, child.Stage)
	assert.Equal(t, domain.PriorityHigh, child.Priority)
	assert.Equal(t, "agent-1", derefString(child.AssignedTo))
	assert.Contains(t, child.Description, "Reapertura tardía del ticket #55")
	assert.Contains(t, child.Description, "15 días")
	assert.Contains(t, child.Description, "It broke again")
	assert.Nil(t, child.ExternalRef)
	assert.Equal(t, domain.StageDone, f.tickets.get("t-1").Stage)

	f.now = testNow.Add(5 * time.Minute)
	second, err := f.svc.Ingest(ctx, webhookSettings(), clientMessage("Any news?"))
	require.NoError(t, err)
	assert.Equal(t, WebhookChildTouched, second.Action)
	assert.Equal(t, first.TicketID, second.TicketID)
	assert.Len(t, f.tickets.created, 1)
	assert.Equal(t, f.now, *f.tickets.get(first.TicketID).LastClientActivityAt)
}

func TestWebhookWindowBoundaryIsInclusive(t *testing.T) {
	closedAt := testNow.Add(-15 * 24 * time.Hour)
	f := newWebhookFixture(closedExternalTicket(closedAt))

	result, err := f.svc.Ingest(context.Background(), webhookSettings(), clientMessage("hello"))
	require.NoError(t, err)
	assert.Equal(t, WebhookReopened, result.Action)
}

func TestWebhookDoneTicketFromOtherSenderIsMirrored(t *testing.T) {
	closedAt := testNow.Add(-time.Hour)
	f := newWebhookFixture(closedExternalTicket(closedAt))
	payload := clientMessage("closing note")
	payload.Message.AuthorEmail = "agent@vendor.test"

	result, err := f.svc.Ingest(context.Background(), webhookSettings(), payload)
	require.NoError(t, err)
	assert.Equal(t, WebhookUpserted, result.Action)
	assert.Equal(t, domain.StageDone, f.tickets.get("t-1").Stage)
}

func TestWebhookReplayUpsertsSameRow(t *testing.T) {
	f := newWebhookFixture()
	f.entities.entities["e-1"] = domain.Entity{ID: "e-1", Name: "Acme", DefaultAssigneeID: strPtr("agent-2")}
	payload := mojito.WebhookPayload{
		ID:          mojito.ExternalID("777"),
		Subject:     "Cannot print",
		Description: "<p>Hi</p><script>alert(1)</script>",
		Status:      domain.MojitoStatusInfoPending,
		Company:     "Acme",
		UserEmail:   "client@acme.test",
		Attachments: []string{"https://files.test/a/log.txt", "https://files.test/a/log.txt"},
	}
	ctx := context.Background()

	first, err := f.svc.Ingest(ctx, webhookSettings(), payload)
	require.NoError(t, err)
	assert.Equal(t, 1, first.AttachmentsAdded)

	payload.Attachments = append(payload.Attachments, "https://files.test/b/screen.png")
	second, err := f.svc.Ingest(ctx, webhookSettings(), payload)
	require.NoError(t, err)

	assert.Equal(t, first.TicketID, second.TicketID)
	assert.Len(t, f.tickets.created, 1)
	assert.Equal(t, 1, second.AttachmentsAdded)
	require.Len(t, f.attachments.attachments, 2)
	assert.Equal(t, "log.txt", f.attachments.attachments[0].FileName)
	assert.Equal(t, "system", f.attachments.attachments[0].UploadedBy)

	ticket := f.tickets.get(first.TicketID)
	assert.Equal(t, domain.StagePendingClient, ticket.Stage)
	assert.Equal(t, "e-1", derefString(ticket.EntityID))
	assert.Equal(t, "agent-2", derefString(ticket.AssignedTo))
	require.NotEmpty(t, f.publisher.events)
	for _, e := range f.publisher.events {
		require.NotNil(t, e.Audience)
		assert.Equal(t, "e-1", e.Audience.EntityID)
	}
	assert.NotContains(t, ticket.Description, "<script>")
	assert.Contains(t, ticket.Description, "Hi")
}

func TestWebhookRejectsMissingID(t *testing.T) {
	f := newWebhookFixture()

	_, err := f.svc.Ingest(context.Background(), webhookSettings(), mojito.WebhookPayload{Subject: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestWebhookAttachmentsNeedSystemUser(t *testing.T) {
	f := newWebhookFixture()
	payload := mojito.WebhookPayload{ID: mojito.ExternalID("1"), Attachments: []string{"https://files.test/x.pdf"}}

	_, err := f.svc.Ingest(context.Background(), domain.AppSettings{}, payload)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConfig))
	assert.Empty(t, f.tickets.created)
}

func TestFileNameFromURL(t *testing.T) {
	assert.Equal(t, "report.pdf", fileNameFromURL("https://cdn.test/files/report.pdf?sig=abc"))
	assert.Equal(t, "adjunto", fileNameFromURL("https://cdn.test/"))
}

func TestWebhookApprovalPendingStartsAutoCloseClock(t *testing.T) {
	f := newWebhookFixture()
	payload := mojito.WebhookPayload{
		ID:        mojito.ExternalID("4242"),
		Subject:   "VPN down",
		Status:    domain.MojitoStatusApprovalPending,
		UserEmail: "client@acme.test",
	}

	result, err := f.svc.Ingest(context.Background(), webhookSettings(), payload)
	require.NoError(t, err)

	ticket := f.tickets.get(result.TicketID)
	assert.Equal(t, domain.StagePendingValidation, ticket.Stage)
	require.NotNil(t, ticket.PendingValidationSince)
	assert.Equal(t, testNow, *ticket.PendingValidationSince)
	assert.True(t, isAutoCloseCandidate(*ticket, testNow.Add(100*time.Hour), 72*time.Hour))

	f.now = testNow.Add(time.Hour)
	_, err = f.svc.Ingest(context.Background(), webhookSettings(), payload)
	require.NoError(t, err)
	assert.Equal(t, testNow, *f.tickets.get(result.TicketID).PendingValidationSince)
}

func TestWebhookCompletedStampsClosedAt(t *testing.T) {
	f := newWebhookFixture()
	ctx := context.Background()
	payload := mojito.WebhookPayload{
		ID:        mojito.ExternalID("5150"),
		Subject:   "Printer jam",
		Status:    domain.MojitoStatusCompleted,
		UserEmail: "client@acme.test",
	}

	created, err := f.svc.Ingest(ctx, webhookSettings(), payload)
	require.NoError(t, err)
	ticket := f.tickets.get(created.TicketID)
	require.NotNil(t, ticket.ClosedAt)
	assert.Equal(t, testNow, *ticket.ClosedAt)

	f.now = testNow.Add(2 * time.Hour)
	mirrored := payload
	mirrored.Message = &mojito.WebhookMessage{Content: "closing note", AuthorEmail: "agent@vendor.test"}
	result, err := f.svc.Ingest(ctx, webhookSettings(), mirrored)
	require.NoError(t, err)
	assert.Equal(t, WebhookUpserted, result.Action)
	assert.Equal(t, testNow, *f.tickets.get(created.TicketID).ClosedAt)

	f.now = testNow.Add(20 * 24 * time.Hour)
	late := payload
	late.Message = &mojito.WebhookMessage{Content: "broken again", AuthorEmail: "client@acme.test"}
	result, err = f.svc.Ingest(ctx, webhookSettings(), late)
	require.NoError(t, err)
	assert.Equal(t, WebhookChildCreated, result.Action)
	assert.Equal(t, created.TicketID, derefString(f.tickets.get(result.TicketID).ReopenedFromTicketID))
}

func TestWebhookLeavingDoneClearsClosedAt(t *testing.T) {
	closedAt := testNow.Add(-time.Hour)
	f := newWebhookFixture(closedExternalTicket(closedAt))
	payload := mojito.WebhookPayload{ID: mojito.ExternalID("9001"), Status: domain.MojitoStatusAssigned}

	_, err := f.svc.Ingest(context.Background(), webhookSettings(), payload)
	require.NoError(t, err)

	ticket := f.tickets.get("t-1")
	assert.Equal(t, domain.StageAssigned, ticket.Stage)
	assert.Nil(t, ticket.ClosedAt)
}
