package domain

import "time"

// Comment is a threaded message on a ticket. Comments are never hard-deleted.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	Content    string
	IsInternal bool
	IsDeleted  bool
	DeletedAt  *time.Time
	DeletedBy  *string
	EditedAt   *time.Time
	EditedBy   *string
	CreatedAt  time.Time
}

// Attachment records a file linked to a ticket, optionally through a comment.
type Attachment struct {
	ID         string
	TicketID   string
	CommentID  *string
	FileName   string
	URL        string
	UploadedBy string
	CreatedAt  time.Time
}

// Label is a free tag that can be associated with tickets.
type Label struct {
	ID    string
	Name  string
	Color string
}
