package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
	// ListForDispatch returns the unsent rows among ids joined with recipient and ticket data.
	ListForDispatch(ctx context.Context, ids []string) ([]domain.NotificationDelivery, error)
	MarkEmailSent(ctx context.Context, ids []string) error
}

type notificationRepository struct {
	pool DB
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool DB) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, ticket_id, entity_id, type, triggered_by, message)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		n.UserID,
		n.TicketID,
		n.EntityID,
		n.Type,
		n.TriggeredBy,
		n.Message,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, user_id, ticket_id, entity_id, type, triggered_by, message, is_read, is_email_sent, created_at
        FROM notifications
        WHERE user_id=$1 AND (NOT $2 OR is_read = FALSE)
        ORDER BY created_at DESC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.TicketID,
			&n.EntityID,
			&n.Type,
			&n.TriggeredBy,
			&n.Message,
			&n.IsRead,
			&n.IsEmailSent,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	query := `UPDATE notifications SET is_read=TRUE WHERE user_id=$1 AND is_read=FALSE`
	args := []any{userID}
	if len(ids) > 0 {
		query += ` AND id = ANY($2::text[]::uuid[])`
		args = append(args, ids)
	}
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) ListForDispatch(ctx context.Context, ids []string) ([]domain.NotificationDelivery, error) {
	const query = `
        SELECT n.id, n.user_id, n.ticket_id, n.entity_id, n.type, n.triggered_by, n.message,
               n.is_read, n.is_email_sent, n.created_at,
               p.email, NULLIF(p.full_name, ''), t.reference, t.title, e.name, NULLIF(tb.full_name, '')
        FROM notifications n
        LEFT JOIN profiles p ON p.id = n.user_id
        LEFT JOIN tickets t ON t.id = n.ticket_id
        LEFT JOIN entities e ON e.id = n.entity_id
        LEFT JOIN profiles tb ON tb.id = n.triggered_by
        WHERE n.id = ANY($1::text[]::uuid[]) AND n.is_email_sent = FALSE
        ORDER BY n.created_at ASC`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.NotificationDelivery
	for rows.Next() {
		var d domain.NotificationDelivery
		if err := rows.Scan(
			&d.ID,
			&d.UserID,
			&d.TicketID,
			&d.EntityID,
			&d.Type,
			&d.TriggeredBy,
			&d.Message,
			&d.IsRead,
			&d.IsEmailSent,
			&d.CreatedAt,
			&d.RecipientEmail,
			&d.RecipientName,
			&d.TicketReference,
			&d.TicketTitle,
			&d.EntityName,
			&d.TriggeredByName,
		); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkEmailSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `UPDATE notifications SET is_email_sent=TRUE WHERE id = ANY($1::text[]::uuid[])`, ids)
	return err
}
