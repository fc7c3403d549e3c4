package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) InvalidateCache(ctx context.Context, ticketID string) error {
	r.ids = append(r.ids, ticketID)
	return nil
}

func TestNotificationHandlersDispatchEmailAndInvalidateCache(t *testing.T) {
	repo := &mockNotificationRepo{deliveries: []domain.NotificationDelivery{delivery("n-1", "ana@acme.test", 3)}}
	m := &mockMailer{}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	cache := &recordingInvalidator{}

	svc := NewNotificationService(NotificationDependencies{
		NotificationRepo: repo,
		Dispatcher:       dispatcher,
		EmailDispatch:    NewEmailDispatchService(EmailDispatchDependencies{NotificationRepo: repo, Mailer: m}),
		Cache:            cache,
	})
	wrapped := 0
	svc.RegisterHandlers(func(h events.EventHandler) events.EventHandler {
		wrapped++
		return h
	})
	assert.Equal(t, 1, wrapped)

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.TicketChanged("t-9")))
	require.NoError(t, dispatcher.Publish(ctx, events.NotificationsCreated([]string{"n-1"})))

	assert.Equal(t, []string{"t-9"}, cache.ids)
	require.Len(t, m.sent, 1)
	assert.Equal(t, "ana@acme.test", m.sent[0].To)
}

func TestNotificationHandlersMirrorPublicComments(t *testing.T) {
	f := newSyncFixture(mojitoConfig(), []domain.Ticket{linkedTicket()},
		domain.Comment{ID: "c-1", TicketID: "t-1", AuthorID: "u-1", Content: "public reply"})
	dispatcher := events.NewInMemoryDispatcher(nil)
	svc := NewNotificationService(NotificationDependencies{Dispatcher: dispatcher, Sync: f.svc})
	svc.RegisterHandlers(nil)

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.CommentCreated("t-1", "c-1", true)))
	assert.Empty(t, f.client.messages)

	require.NoError(t, dispatcher.Publish(ctx, events.CommentCreated("t-1", "c-1", false)))
	assert.Equal(t, []string{"public reply"}, f.client.messages)
}

func TestNotificationHandlersPushNewTickets(t *testing.T) {
	f := newSyncFixture(mojitoConfig(), []domain.Ticket{localTicket()})
	dispatcher := events.NewInMemoryDispatcher(nil)
	NewNotificationService(NotificationDependencies{Dispatcher: dispatcher, Sync: f.svc}).RegisterHandlers(nil)

	require.NoError(t, dispatcher.Publish(context.Background(), events.TicketCreated("t-1")))
	assert.Equal(t, "4321", derefString(f.tickets.get("t-1").ExternalRef))
}

func TestNotificationListAndMarkRead(t *testing.T) {
	repo := &mockNotificationRepo{created: []domain.Notification{
		{ID: "n-1", UserID: "agent"},
		{ID: "n-2", UserID: "agent", IsRead: true},
		{ID: "n-3", UserID: "other"},
	}}
	publisher := events.NewInMemoryDispatcher(nil)
	changed := 0
	publisher.Subscribe(events.EventNotificationsChanged, func(ctx context.Context, e events.Event) error {
		changed++
		assert.Equal(t, "agent", e.UserID)
		return nil
	})
	svc := NewNotificationService(NotificationDependencies{NotificationRepo: repo, Dispatcher: publisher})
	ctx := context.Background()

	unread, err := svc.List(ctx, staff("agent"), true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "n-1", unread[0].ID)

	updated, err := svc.MarkRead(ctx, staff("agent"), []string{"n-1", "n-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
	assert.Equal(t, []string{"n-1"}, repo.markedRead)
	assert.Equal(t, 1, changed)
}
