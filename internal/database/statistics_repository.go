package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/coursebot/pkg/models"
)

// StatisticsRepository handles read-only reporting queries
type StatisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new repository instance
func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

// CourseStatistics returns per-course learner counts by phase and test results
func (r *StatisticsRepository) CourseStatistics(ctx context.Context) ([]models.CourseStatistics, error) {
	query := `
		SELECT
			c.id AS course_id,
			c.title AS course_title,
			COUNT(p.id) AS total_learners,
			COALESCE(SUM(CASE WHEN p.phase = 'watching_lesson' THEN 1 ELSE 0 END), 0) AS watching,
			COALESCE(SUM(CASE WHEN p.phase = 'taking_test' THEN 1 ELSE 0 END), 0) AS taking_test,
			COALESCE(SUM(CASE WHEN p.phase = 'completed' THEN 1 ELSE 0 END), 0) AS completed,
			(SELECT COUNT(*) FROM test_results r
				JOIN tests t ON t.id = r.test_id
				JOIN lessons l ON l.id = t.lesson_id
				WHERE l.course_id = c.id) AS tests_taken,
			(SELECT COALESCE(AVG(r.score), 0) FROM test_results r
				JOIN tests t ON t.id = r.test_id
				JOIN lessons l ON l.id = t.lesson_id
				WHERE l.course_id = c.id) AS average_score
		FROM courses c
		LEFT JOIN course_progress p ON p.course_id = c.id
		GROUP BY c.id, c.title, c.order_index
		ORDER BY c.order_index, c.id
	`
	var stats []models.CourseStatistics
	if err := r.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get course statistics: %w", err)
	}
	return stats, nil
}

// LearnerProgress returns one row per learner and course, most recently active first
func (r *StatisticsRepository) LearnerProgress(ctx context.Context) ([]models.LearnerProgressRow, error) {
	query := `
		SELECT
			u.id AS user_id,
			u.telegram_id,
			u.username,
			u.first_name,
			u.last_name,
			u.phone_number,
			c.title AS course_title,
			p.phase,
			p.current_lesson_index,
			p.last_activity,
			p.completed_at
		FROM course_progress p
		JOIN users u ON u.id = p.user_id
		JOIN courses c ON c.id = p.course_id
		ORDER BY p.last_activity DESC, p.id DESC
	`
	var rows []models.LearnerProgressRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get learner progress: %w", err)
	}
	return rows, nil
}
