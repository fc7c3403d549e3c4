package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Nullable is a column assignment that can also write NULL.
// The zero value leaves the column untouched.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// SetValue assigns v to the column.
func SetValue[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// SetNull writes NULL to the column.
func SetNull[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// TicketPatch lists the columns one UPDATE changes. updated_at is always refreshed.
type TicketPatch struct {
	Title                  *string
	Description            *string
	Stage                  *domain.Stage
	Priority               *domain.Priority
	AssignedTo             Nullable[string]
	EntityID               Nullable[string]
	Type                   Nullable[string]
	Application            Nullable[string]
	Category               Nullable[string]
	Solution               Nullable[string]
	UpdatedBy              Nullable[string]
	PendingValidationSince Nullable[time.Time]
	LastClientActivityAt   Nullable[time.Time]
	ClosedAt               Nullable[time.Time]
}

// TicketFilter captures board and list search parameters.
type TicketFilter struct {
	Stages      []domain.Stage
	Priorities  []domain.Priority
	AssignedTo  *string
	EntityID    *string
	CreatedBy   *string
	SearchTerm  *string
	UpdatedFrom *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, id string, patch TicketPatch) error
	UpsertExternal(ctx context.Context, ticket *domain.Ticket) error
	SetExternal(ctx context.Context, id, source, ref string, url *string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByExternal(ctx context.Context, source, ref string) (*domain.Ticket, error)
	FindOpenReopenChild(ctx context.Context, parentID string) (*domain.Ticket, error)
	ListPendingValidation(ctx context.Context) ([]domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool DB) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, reference, external_ref, external_source, external_url, title, description,
               stage, priority, assigned_to, created_by, created_by_email, updated_by, entity_id,
               category, application, classification, channel, type, pending_validation_since,
               last_client_activity_at, solution, closed_at, reopened_from_ticket_id, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, stage, priority, assigned_to, created_by, created_by_email,
            updated_by, entity_id, category, application, classification, channel, type,
            last_client_activity_at, reopened_from_ticket_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, reference, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Stage,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.CreatedBy,
		ticket.CreatedByEmail,
		ticket.UpdatedBy,
		ticket.EntityID,
		ticket.Category,
		ticket.Application,
		ticket.Classification,
		ticket.Channel,
		ticket.Type,
		ticket.LastClientActivityAt,
		ticket.ReopenedFromTicketID,
	).Scan(&ticket.ID, &ticket.Reference, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, id string, patch TicketPatch) error {
	sets, args := patch.assignments()
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$%d`, strings.Join(sets, ", "), len(args))
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (p TicketPatch) assignments() ([]string, []any) {
	sets := []string{}
	args := []any{}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Stage != nil {
		add("stage", *p.Stage)
	}
	if p.Priority != nil {
		add("priority", *p.Priority)
	}
	addNullable(add, "assigned_to", p.AssignedTo)
	addNullable(add, "entity_id", p.EntityID)
	addNullable(add, "type", p.Type)
	addNullable(add, "application", p.Application)
	addNullable(add, "category", p.Category)
	addNullable(add, "solution", p.Solution)
	addNullable(add, "updated_by", p.UpdatedBy)
	addNullable(add, "pending_validation_since", p.PendingValidationSince)
	addNullable(add, "last_client_activity_at", p.LastClientActivityAt)
	addNullable(add, "closed_at", p.ClosedAt)
	sets = append(sets, "updated_at=NOW()")
	return sets, args
}

func addNullable[T any](add func(string, any), column string, field Nullable[T]) {
	if field.Set {
		add(column, field.Value)
	}
}

// UpsertExternal inserts or updates the row keyed by (external_source, external_ref).
// created_by_email is only written on insert. The pending_validation_since and
// closed_at values on the ticket are taken only when the stage enters
// pending_validation or done; closed_at is cleared when the stage leaves done.
func (r *ticketRepository) UpsertExternal(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_source, external_ref, external_url, title, description, stage, priority,
            assigned_to, created_by_email, updated_by, entity_id, category, last_client_activity_at,
            pending_validation_since, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        ON CONFLICT (external_source, external_ref) DO UPDATE SET
            external_url = COALESCE(EXCLUDED.external_url, tickets.external_url),
            title = EXCLUDED.title,
            description = EXCLUDED.description,
            stage = EXCLUDED.stage,
            assigned_to = COALESCE(EXCLUDED.assigned_to, tickets.assigned_to),
            updated_by = EXCLUDED.updated_by,
            entity_id = COALESCE(EXCLUDED.entity_id, tickets.entity_id),
            category = COALESCE(EXCLUDED.category, tickets.category),
            last_client_activity_at = COALESCE(EXCLUDED.last_client_activity_at, tickets.last_client_activity_at),
            pending_validation_since = CASE
                WHEN EXCLUDED.stage = tickets.stage THEN tickets.pending_validation_since
                WHEN EXCLUDED.stage = 'pending_validation' THEN EXCLUDED.pending_validation_since
                ELSE tickets.pending_validation_since END,
            closed_at = CASE
                WHEN EXCLUDED.stage = tickets.stage THEN tickets.closed_at
                WHEN EXCLUDED.stage = 'done' THEN EXCLUDED.closed_at
                ELSE NULL END,
            updated_at = NOW()
        RETURNING id, reference, pending_validation_since, closed_at, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalSource,
		ticket.ExternalRef,
		ticket.ExternalURL,
		ticket.Title,
		ticket.Description,
		ticket.Stage,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.CreatedByEmail,
		ticket.UpdatedBy,
		ticket.EntityID,
		ticket.Category,
		ticket.LastClientActivityAt,
		ticket.PendingValidationSince,
		ticket.ClosedAt,
	).Scan(&ticket.ID, &ticket.Reference, &ticket.PendingValidationSince, &ticket.ClosedAt, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) SetExternal(ctx context.Context, id, source, ref string, url *string) error {
	const query = `
        UPDATE tickets SET external_source=$1, external_ref=$2, external_url=COALESCE($3, external_url), updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, source, ref, url, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) GetByExternal(ctx context.Context, source, ref string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE external_source=$1 AND external_ref=$2`
	return scanTicket(r.pool.QueryRow(ctx, query, source, ref))
}

// FindOpenReopenChild returns the newest ticket spawned from parentID that is not archived.
func (r *ticketRepository) FindOpenReopenChild(ctx context.Context, parentID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE reopened_from_ticket_id=$1 AND NOT (stage = ANY($2))
        ORDER BY created_at DESC LIMIT 1`
	return scanTicket(r.pool.QueryRow(ctx, query, parentID, stageStrings(domain.ClosedStages)))
}

func (r *ticketRepository) ListPendingValidation(ctx context.Context) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE stage=$1 AND pending_validation_since IS NOT NULL
        ORDER BY pending_validation_since ASC`
	rows, err := r.pool.Query(ctx, query, domain.StagePendingValidation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Stages) > 0 {
		args = append(args, stageStrings(filter.Stages))
		clauses = append(clauses, fmt.Sprintf("stage = ANY($%d)", len(args)))
	}
	if len(filter.Priorities) > 0 {
		priorities := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			priorities[i] = string(pr)
		}
		args = append(args, priorities)
		clauses = append(clauses, fmt.Sprintf("priority = ANY($%d)", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.EntityID != nil {
		args = append(args, *filter.EntityID)
		clauses = append(clauses, fmt.Sprintf("entity_id=$%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.UpdatedFrom != nil {
		args = append(args, *filter.UpdatedFrom)
		clauses = append(clauses, fmt.Sprintf("updated_at >= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR reference::text LIKE %s)", placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func stageStrings(stages []domain.Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Reference,
		&ticket.ExternalRef,
		&ticket.ExternalSource,
		&ticket.ExternalURL,
		&ticket.Title,
		&ticket.Description,
		&ticket.Stage,
		&ticket.Priority,
		&ticket.AssignedTo,
		&ticket.CreatedBy,
		&ticket.CreatedByEmail,
		&ticket.UpdatedBy,
		&ticket.EntityID,
		&ticket.Category,
		&ticket.Application,
		&ticket.Classification,
		&ticket.Channel,
		&ticket.Type,
		&ticket.PendingValidationSince,
		&ticket.LastClientActivityAt,
		&ticket.Solution,
		&ticket.ClosedAt,
		&ticket.ReopenedFromTicketID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
