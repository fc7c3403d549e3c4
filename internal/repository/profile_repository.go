package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ProfileRepository defines persistence access for application users.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	// EmailsByIDs resolves addresses in one round trip. Unknown ids are absent from the map.
	EmailsByIDs(ctx context.Context, ids []string) (map[string]string, error)
}

type profileRepository struct {
	pool DB
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool DB) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	const query = `SELECT id, email, full_name, role, entity_id, created_at FROM profiles WHERE id=$1`
	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.Email,
		&profile.FullName,
		&profile.Role,
		&profile.EntityID,
		&profile.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	const query = `SELECT id, email, full_name, role, entity_id, created_at FROM profiles WHERE LOWER(email)=LOWER($1)`
	var profile domain.Profile
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&profile.ID,
		&profile.Email,
		&profile.FullName,
		&profile.Role,
		&profile.EntityID,
		&profile.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) EmailsByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	result := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, email FROM profiles WHERE id = ANY($1::text[]::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, email string
		if err := rows.Scan(&id, &email); err != nil {
			return nil, err
		}
		result[id] = email
	}
	return result, rows.Err()
}
