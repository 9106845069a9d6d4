package course

import (
	"context"
	"time"

	"github.com/example/coursebot/pkg/models"
)

// Repository is the catalog and progress storage the state machine runs on.
// Lookups that miss return an error wrapping models.ErrNotFound.
type Repository interface {
	// GetActiveCourse returns the first active course with lessons, tests and questions loaded
	GetActiveCourse(ctx context.Context) (*models.Course, error)
	GetCourse(ctx context.Context, courseID int64) (*models.Course, error)

	GetProgress(ctx context.Context, learnerID, courseID int64) (*models.CourseProgress, error)
	// CreateProgress returns the existing record when one is already present
	CreateProgress(ctx context.Context, learnerID, courseID int64) (*models.CourseProgress, error)
	UpdateProgress(ctx context.Context, progress *models.CourseProgress) error
	// CompleteTest stores the result and the advanced progress atomically
	CompleteTest(ctx context.Context, result *models.TestResult, progress *models.CourseProgress) error

	ListStaleProgress(ctx context.Context, phase models.Phase, idleSince time.Time) ([]models.CourseProgress, error)
}
