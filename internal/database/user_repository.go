package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/coursebot/pkg/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, telegram_id, username, first_name, last_name, phone_number, created_at, updated_at"

// GetByID returns a user by internal ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind("SELECT "+userColumns+" FROM users WHERE id = ?"), id)
	if err != nil {
		return nil, wrapErr(err, "get user by ID")
	}
	return &user, nil
}

// GetByTelegramID returns a user by Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind("SELECT "+userColumns+" FROM users WHERE telegram_id = ?"), telegramID)
	if err != nil {
		return nil, wrapErr(err, "get user by Telegram ID")
	}
	return &user, nil
}

// Upsert inserts a user or refreshes the profile fields of an existing one.
// The phone number is never overwritten here.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	now := utc(time.Now())
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO users (telegram_id, username, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			updated_at = excluded.updated_at`),
		user.TelegramID, user.Username, user.FirstName, user.LastName, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}
	return r.GetByTelegramID(ctx, user.TelegramID)
}

// UpdatePhone stores the phone number a user shared
func (r *UserRepository) UpdatePhone(ctx context.Context, userID int64, phone string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE users SET phone_number = ?, updated_at = ? WHERE id = ?"),
		phone, utc(time.Now()), userID)
	if err != nil {
		return fmt.Errorf("failed to update phone: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to update phone of user %d: %w", userID, models.ErrNotFound)
	}
	return nil
}

// GetAll returns all users, newest first
func (r *UserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

// TelegramIDs returns the chat IDs of every user, used for broadcasts
func (r *UserRepository) TelegramIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, "SELECT telegram_id FROM users ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to get telegram ids: %w", err)
	}
	return ids, nil
}
