package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/coursebot/pkg/models"
)

// TestResultRepository handles database operations for test results
type TestResultRepository struct {
	db *sqlx.DB
}

// NewTestResultRepository creates a new repository instance
func NewTestResultRepository(db *sqlx.DB) *TestResultRepository {
	return &TestResultRepository{db: db}
}

const testResultColumns = "id, user_id, test_id, attempt_id, score, grade, answers, created_at"

// GetByUserID returns all test results for a user, newest first
func (r *TestResultRepository) GetByUserID(ctx context.Context, userID int64) ([]models.TestResult, error) {
	var results []models.TestResult
	err := r.db.SelectContext(ctx, &results, r.db.Rebind(
		"SELECT "+testResultColumns+" FROM test_results WHERE user_id = ? ORDER BY created_at DESC, id DESC"), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get test results: %w", err)
	}
	return results, nil
}

// insertTestResult rejects a second result for the same attempt
func insertTestResult(ctx context.Context, db sqlx.ExtContext, result *models.TestResult) error {
	result.CreatedAt = utc(result.CreatedAt)
	if result.CreatedAt.IsZero() {
		result.CreatedAt = utc(time.Now())
	}
	err := db.QueryRowxContext(ctx, db.Rebind(`
		INSERT INTO test_results (user_id, test_id, attempt_id, score, grade, answers, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		result.UserID, result.TestID, result.AttemptID, result.Score, result.Grade, result.Answers, result.CreatedAt,
	).Scan(&result.ID)
	if err != nil {
		return fmt.Errorf("failed to insert test result: %w", err)
	}
	return nil
}
