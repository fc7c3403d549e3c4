package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EntityRepository persists client organizations.
type EntityRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Entity, error)
	GetByName(ctx context.Context, name string) (*domain.Entity, error)
}

type entityRepository struct {
	pool DB
}

// NewEntityRepository builds repository.
func NewEntityRepository(pool DB) EntityRepository {
	return &entityRepository{pool: pool}
}

func (r *entityRepository) GetByID(ctx context.Context, id string) (*domain.Entity, error) {
	const query = `SELECT id, name, default_assignee_id, created_at FROM entities WHERE id=$1`
	var entity domain.Entity
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&entity.ID,
		&entity.Name,
		&entity.DefaultAssigneeID,
		&entity.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetByName matches the entity name exactly.
func (r *entityRepository) GetByName(ctx context.Context, name string) (*domain.Entity, error) {
	const query = `SELECT id, name, default_assignee_id, created_at FROM entities WHERE name=$1`
	var entity domain.Entity
	if err := r.pool.QueryRow(ctx, query, name).Scan(
		&entity.ID,
		&entity.Name,
		&entity.DefaultAssigneeID,
		&entity.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &entity, nil
}
