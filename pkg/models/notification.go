package models

import "time"

// Notification is a reminder template sent to learners idling in a phase of a course
type Notification struct {
	ID         int64     `json:"id" db:"id"`
	CourseID   int64     `json:"course_id" db:"course_id"`
	Phase      Phase     `json:"phase" db:"phase"`
	MediaKind  MediaKind `json:"media_kind" db:"media_kind"`
	MediaURL   string    `json:"media_url" db:"media_url"`
	Caption    string    `json:"caption" db:"caption"`
	ButtonText string    `json:"button_text" db:"button_text"`
	ButtonURL  string    `json:"button_url" db:"button_url"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
