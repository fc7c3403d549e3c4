package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// StageHistoryRepository reads the stage ledger maintained by the tickets trigger.
type StageHistoryRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.StageHistoryEntry, error)
}

type stageHistoryRepository struct {
	pool DB
}

// NewStageHistoryRepository builds repository.
func NewStageHistoryRepository(pool DB) StageHistoryRepository {
	return &stageHistoryRepository{pool: pool}
}

func (r *stageHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.StageHistoryEntry, error) {
	const query = `
        SELECT id, ticket_id, stage, started_at, ended_at, duration_seconds, is_paused
        FROM ticket_stage_history WHERE ticket_id=$1 ORDER BY started_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StageHistoryEntry
	for rows.Next() {
		var entry domain.StageHistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Stage,
			&entry.StartedAt,
			&entry.EndedAt,
			&entry.DurationSeconds,
			&entry.IsPaused,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
