package repository

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SettingsRepository reads the singleton app_settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (domain.AppSettings, error)
}

type settingsRepository struct {
	pool DB
}

// NewSettingsRepository builds repository.
func NewSettingsRepository(pool DB) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Get(ctx context.Context) (domain.AppSettings, error) {
	const query = `
        SELECT auto_close_pending_validation_hours, system_user_id, reopen_window_days
        FROM app_settings WHERE id=1`
	var settings domain.AppSettings
	err := r.pool.QueryRow(ctx, query).Scan(
		&settings.AutoClosePendingValidationHours,
		&settings.SystemUserID,
		&settings.ReopenWindowDays,
	)
	return settings, err
}
