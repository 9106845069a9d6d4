package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Test is a quiz attached to a lesson
type Test struct {
	ID        int64      `json:"id" db:"id"`
	LessonID  int64      `json:"lesson_id" db:"lesson_id"`
	Title     string     `json:"title" db:"title"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	Questions []Question `json:"questions" db:"-"`
}

// QuestionByID finds a question of the test
func (t *Test) QuestionByID(id int64) (*Question, bool) {
	for i := range t.Questions {
		if t.Questions[i].ID == id {
			return &t.Questions[i], true
		}
	}
	return nil, false
}

// Question is a single multiple choice question
type Question struct {
	ID            int64      `json:"id" db:"id"`
	TestID        int64      `json:"test_id" db:"test_id"`
	OrderIndex    int        `json:"order_index" db:"order_index"`
	Text          string     `json:"question_text" db:"question_text"`
	Options       StringList `json:"options" db:"options"`
	CorrectOption int        `json:"correct_option" db:"correct_option"` // Zero-based index into Options
}

// Validate checks the option invariants of a question
func (q *Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("question %q needs at least 2 options, got %d", q.Text, len(q.Options))
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return fmt.Errorf("question %q: correct option %d out of range", q.Text, q.CorrectOption)
	}
	return nil
}

// StringList is stored as a JSON array in a text column
type StringList []string

// Value implements driver.Valuer
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (s *StringList) Scan(src interface{}) error {
	return scanJSON(src, s)
}

func scanJSON(src interface{}, dst interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T as JSON", src)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
