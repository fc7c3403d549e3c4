package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type stubSLARepo struct {
	status *domain.SLAStatus
	err    error
}

func (s stubSLARepo) GetByTicket(ctx context.Context, ticketID string) (*domain.SLAStatus, error) {
	return s.status, s.err
}

func TestBadgeFor(t *testing.T) {
	cases := map[string]struct {
		status *domain.SLAStatus
		want   domain.SLABadge
	}{
		"on time": {&domain.SLAStatus{Status: domain.SLALabelOnTime}, domain.SLABadge{State: domain.SLAStateOnTime, Tone: domain.SLATonePositive, Label: "A tiempo"}},
		"at risk": {&domain.SLAStatus{Status: domain.SLALabelAtRisk}, domain.SLABadge{State: domain.SLAStateAtRisk, Tone: domain.SLAToneWarning, Label: "En riesgo"}},
		"overdue": {&domain.SLAStatus{Status: domain.SLALabelOverdue}, domain.SLABadge{State: domain.SLAStateOverdue, Tone: domain.SLAToneNegative, Label: "Atrasado"}},
		"no row":  {nil, domain.SLABadge{State: domain.SLAStateNone, Tone: domain.SLAToneNeutral, Label: "Sin SLA"}},
		"unknown": {&domain.SLAStatus{Status: "??"}, domain.SLABadge{State: domain.SLAStateNone, Tone: domain.SLAToneNeutral, Label: "Sin SLA"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, BadgeFor(tc.status))
		})
	}
}

func TestSLAServiceMissingRowIsNeutral(t *testing.T) {
	svc := NewSLAService(stubSLARepo{err: pgx.ErrNoRows})

	view, err := svc.Get(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Nil(t, view.Status)
	assert.Equal(t, domain.SLAStateNone, view.Badge.State)
}

func TestSLAServiceSurfacesDatabaseErrors(t *testing.T) {
	svc := NewSLAService(stubSLARepo{err: errBoom})

	_, err := svc.Get(context.Background(), "t-1")
	require.Error(t, err)
}
