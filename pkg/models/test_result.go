package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Grade is a letter grade derived from a percentage score
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// TestAnswer is one submitted answer of an attempt
type TestAnswer struct {
	QuestionID     int64 `json:"question_id"`
	SelectedOption int   `json:"selected_option"`
}

// Answers is stored as a JSON array in a text column
type Answers []TestAnswer

// Value implements driver.Valuer
func (a Answers) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]TestAnswer(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *Answers) Scan(src interface{}) error {
	return scanJSON(src, a)
}

// TestResult is the append-only record of a finished attempt
type TestResult struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	TestID    int64     `json:"test_id" db:"test_id"`
	AttemptID string    `json:"attempt_id" db:"attempt_id"` // One result per attempt
	Score     int       `json:"score" db:"score"`           // 0-100
	Grade     Grade     `json:"grade" db:"grade"`
	Answers   Answers   `json:"answers" db:"answers"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
