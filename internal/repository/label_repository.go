package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// LabelRepository manages the ticket_labels association.
type LabelRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Label, error)
	// Replace swaps the ticket's label set atomically.
	Replace(ctx context.Context, ticketID string, labelIDs []string) error
}

type labelRepository struct {
	pool DB
}

// NewLabelRepository builds repository.
func NewLabelRepository(pool DB) LabelRepository {
	return &labelRepository{pool: pool}
}

func (r *labelRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Label, error) {
	const query = `
        SELECT l.id, l.name, l.color
        FROM labels l JOIN ticket_labels tl ON tl.label_id = l.id
        WHERE tl.ticket_id=$1 ORDER BY l.name ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Label
	for rows.Next() {
		var label domain.Label
		if err := rows.Scan(&label.ID, &label.Name, &label.Color); err != nil {
			return nil, err
		}
		result = append(result, label)
	}
	return result, rows.Err()
}

func (r *labelRepository) Replace(ctx context.Context, ticketID string, labelIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := replaceLabels(ctx, tx, ticketID, labelIDs); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func replaceLabels(ctx context.Context, tx pgx.Tx, ticketID string, labelIDs []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM ticket_labels WHERE ticket_id=$1`, ticketID); err != nil {
		return err
	}
	if len(labelIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
        INSERT INTO ticket_labels (ticket_id, label_id)
        SELECT $1, UNNEST($2::text[]::uuid[])
        ON CONFLICT DO NOTHING`, ticketID, labelIDs)
	return err
}
