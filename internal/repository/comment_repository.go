package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CommentRepository manages ticket comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error)
	Edit(ctx context.Context, id, content, editorID string) error
	SoftDelete(ctx context.Context, id, deletedBy string) error
}

type commentRepository struct {
	pool DB
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool DB) CommentRepository {
	return &commentRepository{pool: pool}
}

const commentColumns = `id, ticket_id, author_id, content, is_internal, is_deleted, deleted_at, deleted_by, edited_at, edited_by, created_at`

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (ticket_id, author_id, content, is_internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.Content,
		comment.IsInternal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id=$1`
	return scanComment(r.pool.QueryRow(ctx, query, id))
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments
        WHERE ticket_id=$1 AND ($2 OR is_internal = FALSE)
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID, includeInternal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *comment)
	}
	return result, rows.Err()
}

func (r *commentRepository) Edit(ctx context.Context, id, content, editorID string) error {
	const query = `
        UPDATE comments SET content=$1, edited_at=NOW(), edited_by=$2
        WHERE id=$3 AND is_deleted = FALSE`
	cmd, err := r.pool.Exec(ctx, query, content, editorID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *commentRepository) SoftDelete(ctx context.Context, id, deletedBy string) error {
	const query = `
        UPDATE comments SET is_deleted=TRUE, deleted_at=NOW(), deleted_by=$1
        WHERE id=$2 AND is_deleted = FALSE`
	cmd, err := r.pool.Exec(ctx, query, deletedBy, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var comment domain.Comment
	if err := row.Scan(
		&comment.ID,
		&comment.TicketID,
		&comment.AuthorID,
		&comment.Content,
		&comment.IsInternal,
		&comment.IsDeleted,
		&comment.DeletedAt,
		&comment.DeletedBy,
		&comment.EditedAt,
		&comment.EditedBy,
		&comment.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &comment, nil
}
