package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/coursebot/pkg/models"
)

// ProgressRepository handles database operations for course progress
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const progressColumns = `id, user_id, course_id, current_lesson_index, phase, last_activity,
	completed_at, created_at, updated_at`

// GetProgress returns the learner's progress in a course
func (r *ProgressRepository) GetProgress(ctx context.Context, learnerID, courseID int64) (*models.CourseProgress, error) {
	var p models.CourseProgress
	err := r.db.GetContext(ctx, &p, r.db.Rebind(
		"SELECT "+progressColumns+" FROM course_progress WHERE user_id = ? AND course_id = ?"),
		learnerID, courseID)
	if err != nil {
		return nil, wrapErr(err, "get progress")
	}
	return &p, nil
}

// CreateProgress starts the learner at the first lesson. An existing record is returned unchanged.
func (r *ProgressRepository) CreateProgress(ctx context.Context, learnerID, courseID int64) (*models.CourseProgress, error) {
	now := utc(time.Now())
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO course_progress (user_id, course_id, current_lesson_index, phase, last_activity, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?, ?, ?)
		ON CONFLICT (user_id, course_id) DO NOTHING`),
		learnerID, courseID, models.PhaseWatchingLesson, now, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create progress: %w", err)
	}
	return r.GetProgress(ctx, learnerID, courseID)
}

// UpdateProgress stores the phase, position and timestamps of a progress record
func (r *ProgressRepository) UpdateProgress(ctx context.Context, p *models.CourseProgress) error {
	return updateProgress(ctx, r.db, p)
}

// CompleteTest stores a test result and the progress that follows it in one transaction
func (r *ProgressRepository) CompleteTest(ctx context.Context, result *models.TestResult, p *models.CourseProgress) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertTestResult(ctx, tx, result); err != nil {
		return err
	}
	if err := updateProgress(ctx, tx, p); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit test completion: %w", err)
	}
	return nil
}

// ListStaleProgress returns records in phase whose last activity is before idleSince
func (r *ProgressRepository) ListStaleProgress(ctx context.Context, phase models.Phase, idleSince time.Time) ([]models.CourseProgress, error) {
	var list []models.CourseProgress
	err := r.db.SelectContext(ctx, &list, r.db.Rebind(
		"SELECT "+progressColumns+" FROM course_progress WHERE phase = ? AND last_activity < ? ORDER BY last_activity"),
		phase, utc(idleSince))
	if err != nil {
		return nil, fmt.Errorf("failed to get stale progress: %w", err)
	}
	return list, nil
}

// updateProgress refuses to move the lesson index backwards
func updateProgress(ctx context.Context, db sqlx.ExtContext, p *models.CourseProgress) error {
	p.UpdatedAt = utc(time.Now())
	res, err := db.ExecContext(ctx, db.Rebind(`
		UPDATE course_progress
		SET current_lesson_index = ?, phase = ?, last_activity = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND current_lesson_index <= ?`),
		p.CurrentLessonIndex, p.Phase, utc(p.LastActivity), utcPtr(p.CompletedAt), p.UpdatedAt,
		p.ID, p.CurrentLessonIndex)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to update progress %d: %w", p.ID, models.ErrNotFound)
	}
	return nil
}
