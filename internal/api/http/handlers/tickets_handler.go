package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// TicketReader serves ticket reads.
type TicketReader interface {
	List(ctx context.Context, actor *domain.Profile, filter service.TicketListFilter) ([]domain.Ticket, error)
	Get(ctx context.Context, actor *domain.Profile, ticketID string) (*domain.Ticket, error)
	Detail(ctx context.Context, actor *domain.Profile, ticketID string) (*service.TicketDetail, error)
	StageHistory(ctx context.Context, actor *domain.Profile, ticketID string) (*domain.StageHistorySummary, error)
}

// TicketWriter commits ticket changes.
type TicketWriter interface {
	Create(ctx context.Context, actor *domain.Profile, input service.TicketCreateInput) (*domain.Ticket, error)
	Apply(ctx context.Context, actor *domain.Profile, ticketID string, draft service.TicketDraft, confirmation service.Confirmation) (*service.TicketChangeResult, error)
	Move(ctx context.Context, actor *domain.Profile, ticketID string, to domain.Stage, confirmation service.Confirmation) (*service.TicketChangeResult, error)
}

// SLAReader exposes SLA status.
type SLAReader interface {
	Get(ctx context.Context, ticketID string) (*service.SLAView, error)
}

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	reader TicketReader
	writer TicketWriter
	sla    SLAReader
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(reader TicketReader, writer TicketWriter, sla SLAReader) *TicketsHandler {
	return &TicketsHandler{reader: reader, writer: writer, sla: sla}
}

// List GET /api/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	filter := parseTicketQuery(c)
	tickets, err := h.reader.List(c.UserContext(), actor, filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketList(tickets)})
}

// Create POST /api/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.writer.Create(c.UserContext(), actor, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		EntityID:    req.EntityID,
		Category:    req.Category,
		Application: req.Application,
		Type:        req.Type,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Detail GET /api/tickets/:id.
func (h *TicketsHandler) Detail(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	detail, err := h.reader.Detail(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketDetailResponse(detail.Ticket, detail.Labels, detail.Attachments)})
}

// Update PATCH /api/tickets/:id commits a reviewed draft. Stage changes fail
// with CONFIRMATION_REQUIRED until the request carries confirmed=true.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	draft := service.TicketDraft{
		Stage:       req.Stage,
		Priority:    req.Priority,
		EntityID:    req.EntityID,
		AssignedTo:  req.AssignedTo,
		Type:        req.Type,
		Application: req.Application,
		Labels:      req.Labels,
	}
	result, err := h.writer.Apply(c.UserContext(), actor, c.Params("id"), draft,
		service.Confirmation{Confirmed: req.Confirmed, Solution: req.Solution})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": changeResponse(result)})
}

// Move POST /api/tickets/:id/move is a board drag onto another stage.
func (h *TicketsHandler) Move(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	var req dto.MoveTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.writer.Move(c.UserContext(), actor, c.Params("id"), req.Stage,
		service.Confirmation{Confirmed: req.Confirmed, Solution: req.Solution})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": changeResponse(result)})
}

// StageHistory GET /api/tickets/:id/stage-history.
func (h *TicketsHandler) StageHistory(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	summary, err := h.reader.StageHistory(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// SLA GET /api/tickets/:id/sla.
func (h *TicketsHandler) SLA(c *fiber.Ctx) error {
	actor, err := principal(c)
	if err != nil {
		return err
	}
	ticket, err := h.reader.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	view, err := h.sla.Get(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{
		AssignedTo: optionalQuery(c, "assigned_to"),
		EntityID:   optionalQuery(c, "entity_id"),
		SearchTerm: optionalQuery(c, "q"),
	}
	for _, s := range splitList(c.Query("stage")) {
		filter.Stages = append(filter.Stages, domain.Stage(s))
	}
	for _, p := range splitList(c.Query("priority")) {
		filter.Priorities = append(filter.Priorities, domain.Priority(p))
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := min(parseInt(c.Query("page_size"), 50), 200)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func changeResponse(result *service.TicketChangeResult) dto.TicketChangeResponse {
	changed := result.Changed
	if changed == nil {
		changed = []string{}
	}
	return dto.TicketChangeResponse{
		Ticket:         dto.NewTicketResponse(result.Ticket),
		Changed:        changed,
		Applied:        result.Applied,
		NotificationID: result.NotificationID,
	}
}
