package quiz

import (
	"time"

	"github.com/example/coursebot/pkg/models"
)

// QuestionRef is the part of a question an attempt needs to validate answers
type QuestionRef struct {
	ID      int64 `json:"id"`
	Options int   `json:"options"`
}

// Attempt is one learner's in-flight quiz
type Attempt struct {
	ID        string              `json:"id"`
	LearnerID int64               `json:"learner_id"`
	TestID    int64               `json:"test_id"`
	Questions []QuestionRef       `json:"questions"` // Presentation order, fixed at start
	Current   int                 `json:"current"`   // Index of the next question to answer
	Answers   []models.TestAnswer `json:"answers"`   // Submission order
	StartedAt time.Time           `json:"started_at"`
}

// Done reports whether every question has been answered
func (a *Attempt) Done() bool {
	return a.Current >= len(a.Questions)
}

// Remaining returns the number of unanswered questions
func (a *Attempt) Remaining() int {
	if a.Done() {
		return 0
	}
	return len(a.Questions) - a.Current
}

// Expected returns the question the next answer must belong to
func (a *Attempt) Expected() (QuestionRef, bool) {
	if a.Done() {
		return QuestionRef{}, false
	}
	return a.Questions[a.Current], true
}

func (a *Attempt) clone() *Attempt {
	c := *a
	c.Questions = append([]QuestionRef(nil), a.Questions...)
	c.Answers = append([]models.TestAnswer(nil), a.Answers...)
	return &c
}
