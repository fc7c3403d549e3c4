package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SLARepository reads the ticket_sla_status view.
type SLARepository interface {
	GetByTicket(ctx context.Context, ticketID string) (*domain.SLAStatus, error)
}

type slaRepository struct {
	pool DB
}

// NewSLARepository builds repository.
func NewSLARepository(pool DB) SLARepository {
	return &slaRepository{pool: pool}
}

func (r *slaRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.SLAStatus, error) {
	const query = `
        SELECT ticket_id, sla_status, elapsed_minutes, warning_minutes, breach_minutes
        FROM ticket_sla_status WHERE ticket_id=$1`
	var status domain.SLAStatus
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&status.TicketID,
		&status.Status,
		&status.ElapsedMinutes,
		&status.WarningMinutes,
		&status.BreachMinutes,
	); err != nil {
		return nil, err
	}
	return &status, nil
}
