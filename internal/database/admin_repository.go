package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/coursebot/pkg/models"
)

// AdminRepository handles database operations for bot admins
type AdminRepository struct {
	db *sqlx.DB
}

// NewAdminRepository creates a new repository instance
func NewAdminRepository(db *sqlx.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// Add grants admin rights. Adding an existing admin is a no-op.
func (r *AdminRepository) Add(ctx context.Context, telegramID int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO admins (telegram_id, created_at) VALUES (?, ?)
		ON CONFLICT (telegram_id) DO NOTHING`),
		telegramID, utc(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to add admin: %w", err)
	}
	return nil
}

// Remove revokes admin rights
func (r *AdminRepository) Remove(ctx context.Context, telegramID int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM admins WHERE telegram_id = ?"), telegramID)
	if err != nil {
		return fmt.Errorf("failed to remove admin: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to remove admin %d: %w", telegramID, models.ErrNotFound)
	}
	return nil
}

// IsAdmin reports whether the Telegram account is an admin
func (r *AdminRepository) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind("SELECT COUNT(*) FROM admins WHERE telegram_id = ?"), telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return n > 0, nil
}

// GetAll returns every admin
func (r *AdminRepository) GetAll(ctx context.Context) ([]models.Admin, error) {
	var admins []models.Admin
	err := r.db.SelectContext(ctx, &admins, "SELECT id, telegram_id, created_at FROM admins ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to get admins: %w", err)
	}
	return admins, nil
}
