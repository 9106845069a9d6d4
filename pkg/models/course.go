package models

import "time"

// Course is an ordered curriculum of lessons. Course content is authored by
// operators and treated as read-only by the progression logic.
type Course struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	OrderIndex  int       `json:"order_index" db:"order_index"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
	Lessons     []Lesson  `json:"lessons,omitempty" db:"-"`
}

// LessonAt returns the lesson at a zero-based position
func (c *Course) LessonAt(index int) (*Lesson, bool) {
	if c == nil || index < 0 || index >= len(c.Lessons) {
		return nil, false
	}
	return &c.Lessons[index], true
}
