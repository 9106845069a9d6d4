package models

import "time"

// Phase is the state of a learner inside a course
type Phase string

const (
	PhaseWatchingLesson Phase = "watching_lesson"
	PhaseTakingTest     Phase = "taking_test"
	PhaseCompleted      Phase = "completed"
)

// Terminal reports whether no further transitions are possible
func (p Phase) Terminal() bool {
	return p == PhaseCompleted
}

// Valid reports whether p is a known phase
func (p Phase) Valid() bool {
	switch p {
	case PhaseWatchingLesson, PhaseTakingTest, PhaseCompleted:
		return true
	}
	return false
}

// CourseProgress tracks one learner's position in one course
type CourseProgress struct {
	ID                 int64      `json:"id" db:"id"`
	UserID             int64      `json:"user_id" db:"user_id"`
	CourseID           int64      `json:"course_id" db:"course_id"`
	CurrentLessonIndex int        `json:"current_lesson_index" db:"current_lesson_index"`
	Phase              Phase      `json:"phase" db:"phase"`
	LastActivity       time.Time  `json:"last_activity" db:"last_activity"`
	CompletedAt        *time.Time `json:"completed_at" db:"completed_at"` // Set once on completion
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}
