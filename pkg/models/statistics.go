package models

import "time"

// CourseStatistics summarises learner progress in a course
type CourseStatistics struct {
	CourseID      int64   `json:"course_id" db:"course_id"`
	CourseTitle   string  `json:"course_title" db:"course_title"`
	TotalLearners int     `json:"total_learners" db:"total_learners"`
	Watching      int     `json:"watching" db:"watching"`
	TakingTest    int     `json:"taking_test" db:"taking_test"`
	Completed     int     `json:"completed" db:"completed"`
	TestsTaken    int     `json:"tests_taken" db:"tests_taken"`
	AverageScore  float64 `json:"average_score" db:"average_score"`
}

// LearnerProgressRow is a flattened learner/progress view used for listings and exports
type LearnerProgressRow struct {
	UserID             int64      `json:"user_id" db:"user_id"`
	TelegramID         int64      `json:"telegram_id" db:"telegram_id"`
	Username           string     `json:"username" db:"username"`
	FirstName          string     `json:"first_name" db:"first_name"`
	LastName           string     `json:"last_name" db:"last_name"`
	PhoneNumber        string     `json:"phone_number" db:"phone_number"`
	CourseTitle        string     `json:"course_title" db:"course_title"`
	Phase              Phase      `json:"phase" db:"phase"`
	CurrentLessonIndex int        `json:"current_lesson_index" db:"current_lesson_index"`
	LastActivity       time.Time  `json:"last_activity" db:"last_activity"`
	CompletedAt        *time.Time `json:"completed_at" db:"completed_at"`
}
