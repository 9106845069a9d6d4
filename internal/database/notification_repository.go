package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/coursebot/pkg/models"
)

// NotificationRepository handles database operations for reminder templates
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new repository instance
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, course_id, phase, media_kind, media_url, caption, button_text, button_url,
	is_active, created_at`

// GetActive returns the active templates of a course for a phase
func (r *NotificationRepository) GetActive(ctx context.Context, courseID int64, phase models.Phase) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.SelectContext(ctx, &list, r.db.Rebind(
		"SELECT "+notificationColumns+" FROM notifications WHERE course_id = ? AND phase = ? AND is_active = TRUE ORDER BY id"),
		courseID, phase)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	return list, nil
}

// GetAll returns every template
func (r *NotificationRepository) GetAll(ctx context.Context) ([]models.Notification, error) {
	var list []models.Notification
	err := r.db.SelectContext(ctx, &list, "SELECT "+notificationColumns+" FROM notifications ORDER BY course_id, id")
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	return list, nil
}

// Get returns one template by ID
func (r *NotificationRepository) Get(ctx context.Context, id int64) (*models.Notification, error) {
	var n models.Notification
	err := r.db.GetContext(ctx, &n,
		r.db.Rebind("SELECT "+notificationColumns+" FROM notifications WHERE id = ?"), id)
	if err != nil {
		return nil, wrapErr(err, "get notification")
	}
	return &n, nil
}

func validateNotification(n *models.Notification) error {
	if !n.Phase.Valid() || n.Phase.Terminal() {
		return fmt.Errorf("%w: notifications are not sent in phase %q", models.ErrInvalid, n.Phase)
	}
	if n.MediaKind != "" {
		if _, err := models.ParseMediaKind(string(n.MediaKind)); err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalid, err)
		}
	}
	return nil
}

// Create inserts a template
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if err := validateNotification(n); err != nil {
		return err
	}
	n.CreatedAt = utc(time.Now())
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`
		INSERT INTO notifications (course_id, phase, media_kind, media_url, caption, button_text, button_url, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		n.CourseID, n.Phase, n.MediaKind, n.MediaURL, n.Caption, n.ButtonText, n.ButtonURL, n.IsActive, n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of a template. The course and creation time are kept.
func (r *NotificationRepository) Update(ctx context.Context, n *models.Notification) error {
	if err := validateNotification(n); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE notifications
		SET phase = ?, media_kind = ?, media_url = ?, caption = ?, button_text = ?, button_url = ?, is_active = ?
		WHERE id = ?`),
		n.Phase, n.MediaKind, n.MediaURL, n.Caption, n.ButtonText, n.ButtonURL, n.IsActive, n.ID)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("failed to update notification %d: %w", n.ID, models.ErrNotFound)
	}
	return nil
}

// SetActive switches a template on or off and returns the updated row
func (r *NotificationRepository) SetActive(ctx context.Context, id int64, active bool) (*models.Notification, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("UPDATE notifications SET is_active = ? WHERE id = ?"), active, id)
	if err != nil {
		return nil, fmt.Errorf("failed to set notification state: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return nil, fmt.Errorf("failed to set notification %d state: %w", id, models.ErrNotFound)
	}
	return r.Get(ctx, id)
}

// Delete removes a template
func (r *NotificationRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM notifications WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("failed to delete notification %d: %w", id, models.ErrNotFound)
	}
	return nil
}
