package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string   `json:"content" validate:"required,max=20000"`
	IsInternal bool     `json:"is_internal"`
	Mentions   []string `json:"mentions" validate:"omitempty,max=50,dive,required"`
}

// EditCommentRequest payload.
type EditCommentRequest struct {
	Content string `json:"content" validate:"required,max=20000"`
}

// CommentResponse is a comment as shown in the thread. Content is empty for
// deleted comments.
type CommentResponse struct {
	ID         string     `json:"id"`
	TicketID   string     `json:"ticket_id"`
	AuthorID   string     `json:"author_id"`
	Content    string     `json:"content"`
	IsInternal bool       `json:"is_internal"`
	IsDeleted  bool       `json:"is_deleted"`
	EditedAt   *time.Time `json:"edited_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewCommentResponse maps a comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		TicketID:   c.TicketID,
		AuthorID:   c.AuthorID,
		Content:    c.Content,
		IsInternal: c.IsInternal,
		IsDeleted:  c.IsDeleted,
		EditedAt:   c.EditedAt,
		CreatedAt:  c.CreatedAt,
	}
}
