package quiz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/example/coursebot/internal/grading"
	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/pkg/models"
)

var (
	// ErrNoActiveAttempt means the learner has no quiz in flight
	ErrNoActiveAttempt = fmt.Errorf("%w: no active test attempt", models.ErrNotFound)
	// ErrQuestionMismatch means the answer targets a question other than the current one
	ErrQuestionMismatch = errors.New("answer does not match the current question")
	// ErrInvalidOption means the selected option index is out of range
	ErrInvalidOption = errors.New("selected option out of range")
	// ErrAttemptComplete means every question of the attempt is already answered
	ErrAttemptComplete = errors.New("all questions already answered")
	// ErrTestMismatch means the attempt was started for another test
	ErrTestMismatch = errors.New("attempt belongs to a different test")
)

// ResultSaver persists a finished attempt
type ResultSaver interface {
	SaveTestResult(ctx context.Context, result *models.TestResult) error
}

// ResultSaverFunc adapts a function to ResultSaver
type ResultSaverFunc func(ctx context.Context, result *models.TestResult) error

func (f ResultSaverFunc) SaveTestResult(ctx context.Context, result *models.TestResult) error {
	return f(ctx, result)
}

// Result is the outcome of a finished attempt
type Result struct {
	Record     models.TestResult
	Correct    int
	Total      int
	Degenerate bool // The test had no questions; the score carries no meaning
}

// Engine runs quiz attempts, one per learner
type Engine struct {
	store AttemptStore
	log   *logger.Logger
	now   func() time.Time
	newID func() string
}

// NewEngine creates an engine backed by store
func NewEngine(store AttemptStore, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		store: store,
		log:   log.With("component", "quiz"),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// StartAttempt begins a fresh attempt, replacing any attempt the learner had
func (e *Engine) StartAttempt(ctx context.Context, learnerID int64, test *models.Test) (*Attempt, error) {
	refs := make([]QuestionRef, 0, len(test.Questions))
	for _, q := range test.Questions {
		refs = append(refs, QuestionRef{ID: q.ID, Options: len(q.Options)})
	}
	a := &Attempt{
		ID:        e.newID(),
		LearnerID: learnerID,
		TestID:    test.ID,
		Questions: refs,
		StartedAt: e.now(),
	}
	if err := e.store.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to start attempt: %w", err)
	}
	e.log.Debug("attempt started", "learner", learnerID, "test", test.ID, "attempt", a.ID, "questions", len(refs))
	return a, nil
}

// Attempt returns the learner's live attempt
func (e *Engine) Attempt(ctx context.Context, learnerID int64) (*Attempt, error) {
	return e.store.Get(ctx, learnerID)
}

// CurrentQuestionIndex returns the index of the next question to present.
// ok is false when the learner has no attempt.
func (e *Engine) CurrentQuestionIndex(ctx context.Context, learnerID int64) (index int, ok bool, err error) {
	a, err := e.store.Get(ctx, learnerID)
	if errors.Is(err, ErrNoActiveAttempt) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return a.Current, true, nil
}

// SubmitAnswer records an answer to the current question and advances.
// It returns how many questions are still unanswered.
func (e *Engine) SubmitAnswer(ctx context.Context, learnerID, questionID int64, option int) (int, error) {
	a, err := e.store.Get(ctx, learnerID)
	if err != nil {
		return 0, err
	}
	expected, ok := a.Expected()
	if !ok {
		return 0, ErrAttemptComplete
	}
	if expected.ID != questionID {
		return a.Remaining(), fmt.Errorf("%w: got %d, want %d", ErrQuestionMismatch, questionID, expected.ID)
	}
	if option < 0 || option >= expected.Options {
		return a.Remaining(), fmt.Errorf("%w: %d", ErrInvalidOption, option)
	}

	a.Answers = append(a.Answers, models.TestAnswer{QuestionID: questionID, SelectedOption: option})
	a.Current++
	if err := e.store.Save(ctx, a); err != nil {
		return 0, fmt.Errorf("failed to save answer: %w", err)
	}
	return a.Remaining(), nil
}

// Finish scores the attempt, persists the result through saver and discards
// the attempt. The attempt is discarded even when saving fails.
func (e *Engine) Finish(ctx context.Context, learnerID int64, test *models.Test, saver ResultSaver) (*Result, error) {
	a, err := e.store.Get(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if a.TestID != test.ID {
		return nil, fmt.Errorf("%w: attempt test %d, finishing %d", ErrTestMismatch, a.TestID, test.ID)
	}
	defer func() {
		if err := e.store.Delete(ctx, learnerID); err != nil {
			e.log.Error("failed to discard attempt", "learner", learnerID, "attempt", a.ID, "error", err)
		}
	}()

	res := Score(test, a.Answers)
	res.Record.UserID = learnerID
	res.Record.AttemptID = a.ID
	res.Record.CreatedAt = e.now()
	if res.Degenerate {
		e.log.Warn("test has no questions, scoring as zero", "test", test.ID, "learner", learnerID)
	}

	if err := saver.SaveTestResult(ctx, &res.Record); err != nil {
		return nil, fmt.Errorf("failed to save test result: %w", err)
	}
	e.log.Info("attempt finished", "learner", learnerID, "test", test.ID, "score", res.Record.Score, "grade", res.Record.Grade)
	return res, nil
}

// Score grades answers against the test. Unanswered questions count as wrong
// and only the first answer to a question is graded.
func Score(test *models.Test, answers []models.TestAnswer) *Result {
	correct := 0
	seen := make(map[int64]bool, len(answers))
	for _, ans := range answers {
		if seen[ans.QuestionID] {
			continue
		}
		seen[ans.QuestionID] = true
		q, ok := test.QuestionByID(ans.QuestionID)
		if ok && q.CorrectOption == ans.SelectedOption {
			correct++
		}
	}
	total := len(test.Questions)

	score := 0
	if total > 0 {
		score = int(math.Round(float64(correct) / float64(total) * 100))
	}

	return &Result{
		Record: models.TestResult{
			TestID:  test.ID,
			Score:   score,
			Grade:   grading.For(score),
			Answers: append(models.Answers(nil), answers...),
		},
		Correct:    correct,
		Total:      total,
		Degenerate: total == 0,
	}
}
