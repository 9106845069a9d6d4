package course

import (
	"github.com/example/coursebot/internal/quiz"
	"github.com/example/coursebot/pkg/models"
)

// OutcomeKind tells the channel what to send after an event
type OutcomeKind int

const (
	// OutcomeNextLesson: present Outcome.Lesson
	OutcomeNextLesson OutcomeKind = iota + 1
	// OutcomeTestStarted: announce Outcome.Test and present Outcome.Question
	OutcomeTestStarted
	// OutcomeNextQuestion: present Outcome.Question
	OutcomeNextQuestion
	// OutcomeCourseCompleted: the learner finished the course
	OutcomeCourseCompleted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNextLesson:
		return "next_lesson"
	case OutcomeTestStarted:
		return "test_started"
	case OutcomeNextQuestion:
		return "next_question"
	case OutcomeCourseCompleted:
		return "course_completed"
	}
	return "unknown"
}

// Outcome is the result of a learner event
type Outcome struct {
	Kind     OutcomeKind
	Course   *models.Course
	Progress *models.CourseProgress
	Lesson   *models.Lesson
	Test     *models.Test

	Question       *models.Question
	QuestionNumber int // 1-based
	QuestionCount  int

	// Result is set when the event finished a test. Kind then describes what follows the test.
	Result *quiz.Result
}

// StartResult is the learner's position after starting the course
type StartResult struct {
	Course   *models.Course
	Progress *models.CourseProgress
	Lesson   *models.Lesson // Current lesson; nil once the course is completed
	Created  bool
}
