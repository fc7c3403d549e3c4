package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/errorutil"
)

type stubHistoryRepo struct {
	entries []domain.StageHistoryEntry
}

func (s stubHistoryRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.StageHistoryEntry, error) {
	return s.entries, nil
}

func newQueryService(t *testing.T, tickets *mockTicketRepo) *TicketQueryService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	started := testNow.Add(-90 * time.Minute)
	return NewTicketQueryService(TicketQueryDependencies{
		TicketRepo:       tickets,
		StageHistoryRepo: stubHistoryRepo{entries: []domain.StageHistoryEntry{{Stage: domain.StageNew, StartedAt: started}}},
		LabelRepo:        &mockLabelRepo{labels: map[string][]domain.Label{}},
		AttachmentRepo:   &mockAttachmentRepo{},
		Cache:            cache.NewTicketCache(client, time.Minute),
		Clock:            fixedClock,
	})
}

func TestTicketQueryGetUsesCacheUntilInvalidated(t *testing.T) {
	tickets := newMockTicketRepo(domain.Ticket{ID: "t-1", Title: "Old title", Stage: domain.StageNew, EntityID: strPtr("e-1")})
	svc := newQueryService(t, tickets)
	ctx := context.Background()

	first, err := svc.Get(ctx, staff("agent"), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Old title", first.Title)

	tickets.tickets["t-1"].Title = "New title"
	cached, err := svc.Get(ctx, staff("agent"), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Old title", cached.Title)

	require.NoError(t, svc.InvalidateCache(ctx, "t-1"))
	fresh, err := svc.Get(ctx, staff("agent"), "t-1")
	require.NoError(t, err)
	assert.Equal(t, "New title", fresh.Title)
}

func TestTicketQueryScopesClients(t *testing.T) {
	tickets := newMockTicketRepo(
		domain.Ticket{ID: "t-1", EntityID: strPtr("e-1")},
		domain.Ticket{ID: "t-2", EntityID: strPtr("e-2")},
	)
	svc := newQueryService(t, tickets)
	ctx := context.Background()

	list, err := svc.List(ctx, clientUser("c-1", "e-1"), TicketListFilter{EntityID: strPtr("e-2")})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "t-1", list[0].ID)

	_, err = svc.Get(ctx, clientUser("c-1", "e-1"), "t-2")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	all, err := svc.List(ctx, staff("agent"), TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTicketQueryStageHistoryUsesClock(t *testing.T) {
	svc := newQueryService(t, newMockTicketRepo(domain.Ticket{ID: "t-1"}))

	summary, err := svc.StageHistory(context.Background(), staff("agent"), "t-1")
	require.NoError(t, err)
	assert.Equal(t, int64(90*60), summary.TotalActiveSeconds)
	assert.Equal(t, testNow, summary.ComputedAt)
}

func TestTicketQueryDetailMissingTicket(t *testing.T) {
	svc := newQueryService(t, newMockTicketRepo())

	_, err := svc.Detail(context.Background(), staff("agent"), "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
