package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// CommentThread manages ticket comments.
type CommentThread interface {
	Create(ctx context.Context, actor *domain.Profile, ticketID string, input service.CommentInput) (*domain.Comment, error)
	List(ctx context.Context, actor *domain.Profile, ticketID string) ([]domain.Comment, error)
	Edit(ctx context.Context, actor *domain.Profile, commentID, content string) (*domain.Comment, error)
	Delete(ctx context.Context, actor *domain.Profile, commentID string) error
}

// CommentsHandler serves the ticket thread.
type CommentsHandler struct {
	comments CommentThread
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(comments CommentThread) *CommentsHandler {
	return &CommentsHandler{comments: comments}
}

// List GET /api/tickets/:id/comments.
func (h *CommentsHandler) List(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	comments, err := h.comments.List(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, dto.NewCommentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /api/tickets/:id/comments.
func (h *CommentsHandler) Create(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Create(c.UserContext(), actor, c.Params("id"), service.CommentInput{
		Content:    req.Content,
		IsInternal: req.IsInternal,
		Mentions:   req.Mentions,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// Edit PATCH /api/comments/:id.
func (h *CommentsHandler) Edit(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.EditCommentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.Edit(c.UserContext(), actor, c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCommentResponse(comment)})
}

// Delete DELETE /api/comments/:id.
func (h *CommentsHandler) Delete(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	if err := h.comments.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
