package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/coursebot/pkg/models"
)

// CourseRepository handles database operations for course content
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new repository instance
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = "id, title, description, is_active, order_index, created_at, updated_at"

// GetActiveCourse returns the first active course with its content loaded
func (r *CourseRepository) GetActiveCourse(ctx context.Context) (*models.Course, error) {
	var id int64
	err := r.db.GetContext(ctx, &id,
		"SELECT id FROM courses WHERE is_active = TRUE ORDER BY order_index, id LIMIT 1")
	if err != nil {
		return nil, wrapErr(err, "get active course")
	}
	return r.GetCourse(ctx, id)
}

// GetCourse returns a course with lessons, tests and questions in order
func (r *CourseRepository) GetCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	var course models.Course
	err := r.db.GetContext(ctx, &course,
		r.db.Rebind("SELECT "+courseColumns+" FROM courses WHERE id = ?"), courseID)
	if err != nil {
		return nil, wrapErr(err, "get course")
	}

	err = r.db.SelectContext(ctx, &course.Lessons, r.db.Rebind(`
		SELECT id, course_id, title, order_index, media_kind, media_url, caption, button_text, button_url, created_at
		FROM lessons WHERE course_id = ? ORDER BY order_index, id`), courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get lessons: %w", err)
	}

	var tests []models.Test
	err = r.db.SelectContext(ctx, &tests, r.db.Rebind(`
		SELECT t.id, t.lesson_id, t.title, t.created_at
		FROM tests t JOIN lessons l ON l.id = t.lesson_id
		WHERE l.course_id = ?`), courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tests: %w", err)
	}

	var questions []models.Question
	err = r.db.SelectContext(ctx, &questions, r.db.Rebind(`
		SELECT q.id, q.test_id, q.order_index, q.question_text, q.options, q.correct_option
		FROM questions q
		JOIN tests t ON t.id = q.test_id
		JOIN lessons l ON l.id = t.lesson_id
		WHERE l.course_id = ?
		ORDER BY q.test_id, q.order_index, q.id`), courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	byTest := make(map[int64][]models.Question, len(tests))
	for _, q := range questions {
		byTest[q.TestID] = append(byTest[q.TestID], q)
	}
	byLesson := make(map[int64]*models.Test, len(tests))
	for i := range tests {
		tests[i].Questions = byTest[tests[i].ID]
		byLesson[tests[i].LessonID] = &tests[i]
	}
	for i := range course.Lessons {
		course.Lessons[i].Test = byLesson[course.Lessons[i].ID]
	}
	return &course, nil
}

// List returns all courses without their content
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	err := r.db.SelectContext(ctx, &courses, "SELECT "+courseColumns+" FROM courses ORDER BY order_index, id")
	if err != nil {
		return nil, fmt.Errorf("failed to get courses: %w", err)
	}
	return courses, nil
}

// ToggleActive flips the active flag of a course and returns the updated row
func (r *CourseRepository) ToggleActive(ctx context.Context, courseID int64) (*models.Course, error) {
	var course models.Course
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE courses SET is_active = NOT is_active, updated_at = ? WHERE id = ?"),
		utc(time.Now()), courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("failed to toggle course %d: %w", courseID, models.ErrNotFound)
	}
	err = r.db.GetContext(ctx, &course,
		r.db.Rebind("SELECT "+courseColumns+" FROM courses WHERE id = ?"), courseID)
	if err != nil {
		return nil, wrapErr(err, "get course")
	}
	return &course, nil
}

// Create inserts a course with all of its lessons, tests and questions in one transaction.
// IDs are written back into the passed value.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	for i := range course.Lessons {
		if err := validateLesson(&course.Lessons[i]); err != nil {
			return err
		}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := utc(time.Now())
	course.CreatedAt, course.UpdatedAt = now, now
	err = tx.QueryRowxContext(ctx, tx.Rebind(`
		INSERT INTO courses (title, description, is_active, order_index, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`),
		course.Title, course.Description, course.IsActive, course.OrderIndex, now, now,
	).Scan(&course.ID)
	if err != nil {
		return fmt.Errorf("failed to insert course: %w", err)
	}

	for i := range course.Lessons {
		l := &course.Lessons[i]
		l.CourseID = course.ID
		l.OrderIndex = i
		l.CreatedAt = now
		err = tx.QueryRowxContext(ctx, tx.Rebind(`
			INSERT INTO lessons (course_id, title, order_index, media_kind, media_url, caption, button_text, button_url, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`),
			l.CourseID, l.Title, l.OrderIndex, l.MediaKind, l.MediaURL, l.Caption, l.ButtonText, l.ButtonURL, now,
		).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("failed to insert lesson %d: %w", i, err)
		}
		if l.Test == nil {
			continue
		}

		t := l.Test
		t.LessonID = l.ID
		t.CreatedAt = now
		err = tx.QueryRowxContext(ctx, tx.Rebind(
			"INSERT INTO tests (lesson_id, title, created_at) VALUES (?, ?, ?) RETURNING id"),
			t.LessonID, t.Title, now,
		).Scan(&t.ID)
		if err != nil {
			return fmt.Errorf("failed to insert test for lesson %d: %w", i, err)
		}

		for j := range t.Questions {
			q := &t.Questions[j]
			q.TestID = t.ID
			q.OrderIndex = j
			err = tx.QueryRowxContext(ctx, tx.Rebind(`
				INSERT INTO questions (test_id, order_index, question_text, options, correct_option)
				VALUES (?, ?, ?, ?, ?)
				RETURNING id`),
				q.TestID, q.OrderIndex, q.Text, q.Options, q.CorrectOption,
			).Scan(&q.ID)
			if err != nil {
				return fmt.Errorf("failed to insert question %d of lesson %d: %w", j, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit course: %w", err)
	}
	return nil
}

func validateLesson(l *models.Lesson) error {
	if _, err := models.ParseMediaKind(string(l.MediaKind)); err != nil {
		return fmt.Errorf("lesson %q: %w", l.Title, err)
	}
	if l.MediaURL == "" {
		return fmt.Errorf("lesson %q has no media", l.Title)
	}
	if l.Test == nil {
		return nil
	}
	for i := range l.Test.Questions {
		if err := l.Test.Questions[i].Validate(); err != nil {
			return fmt.Errorf("lesson %q: %w", l.Title, err)
		}
	}
	return nil
}
