package course

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/internal/quiz"
	"github.com/example/coursebot/pkg/models"
)

// Service is the course progression state machine
type Service struct {
	repo Repository
	quiz *quiz.Engine
	log  *logger.Logger
	now  func() time.Time
}

// NewService creates a progression service
func NewService(repo Repository, engine *quiz.Engine, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo: repo,
		quiz: engine,
		log:  log.With("component", "course"),
		now:  time.Now,
	}
}

// OnStartCourse enrolls the learner in the active course. Starting again
// returns the existing progress unchanged.
func (s *Service) OnStartCourse(ctx context.Context, learnerID int64) (*StartResult, error) {
	course, err := s.activeCourse(ctx)
	if err != nil {
		return nil, err
	}
	if len(course.Lessons) == 0 {
		return nil, fmt.Errorf("%w: course %d is empty", ErrNoLesson, course.ID)
	}

	created := false
	progress, err := s.repo.GetProgress(ctx, learnerID, course.ID)
	if errors.Is(err, models.ErrNotFound) {
		progress, err = s.repo.CreateProgress(ctx, learnerID, course.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create progress: %w", err)
		}
		created = true
		s.log.Info("course started", "learner", learnerID, "course", course.ID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	res := &StartResult{Course: course, Progress: progress, Created: created}
	if !progress.Phase.Terminal() {
		lesson, ok := course.LessonAt(progress.CurrentLessonIndex)
		if !ok {
			return nil, fmt.Errorf("%w: index %d", ErrNoLesson, progress.CurrentLessonIndex)
		}
		res.Lesson = lesson
	}
	return res, nil
}

// OnLessonWatched handles the "watched" button. lessonIndex is the lesson the
// button was attached to.
func (s *Service) OnLessonWatched(ctx context.Context, learnerID int64, lessonIndex int) (*Outcome, error) {
	course, progress, err := s.load(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if progress.Phase != models.PhaseWatchingLesson {
		return nil, fmt.Errorf("%w (phase %s)", ErrNotWatching, progress.Phase)
	}
	if lessonIndex != progress.CurrentLessonIndex {
		return nil, fmt.Errorf("%w: watched lesson %d, current lesson %d", ErrStaleEvent, lessonIndex, progress.CurrentLessonIndex)
	}
	lesson, ok := course.LessonAt(progress.CurrentLessonIndex)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrNoLesson, progress.CurrentLessonIndex)
	}

	if !lesson.HasTest() {
		next := *progress
		kind := s.advance(course, &next)
		if err := s.repo.UpdateProgress(ctx, &next); err != nil {
			return nil, fmt.Errorf("failed to update progress: %w", err)
		}
		return s.outcome(kind, course, &next), nil
	}

	next := *progress
	next.Phase = models.PhaseTakingTest
	next.LastActivity = s.now()
	if err := s.repo.UpdateProgress(ctx, &next); err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}
	return s.beginTest(ctx, learnerID, course, &next, lesson)
}

// OnAnswerSubmitted records a quiz answer. When it was the last answer the
// test is graded and the learner moves past the lesson.
func (s *Service) OnAnswerSubmitted(ctx context.Context, learnerID, questionID int64, option int) (*Outcome, error) {
	course, progress, err := s.load(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if progress.Phase != models.PhaseTakingTest {
		return nil, fmt.Errorf("%w (phase %s)", ErrNotTakingTest, progress.Phase)
	}
	lesson, ok := course.LessonAt(progress.CurrentLessonIndex)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrNoLesson, progress.CurrentLessonIndex)
	}
	if !lesson.HasTest() {
		return nil, fmt.Errorf("%w: lesson %d", ErrNoTest, lesson.ID)
	}
	test := lesson.Test

	// An attempt left over from another course's test cannot take this answer
	attempt, err := s.quiz.Attempt(ctx, learnerID)
	if errors.Is(err, quiz.ErrNoActiveAttempt) {
		return nil, fmt.Errorf("%w: %w", ErrNoActiveTest, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	if attempt.TestID != test.ID {
		return nil, fmt.Errorf("%w: attempt is for test %d, lesson test is %d", ErrNoActiveTest, attempt.TestID, test.ID)
	}

	remaining, err := s.quiz.SubmitAnswer(ctx, learnerID, questionID, option)
	switch {
	case errors.Is(err, quiz.ErrNoActiveAttempt):
		return nil, fmt.Errorf("%w: %w", ErrNoActiveTest, err)
	case errors.Is(err, quiz.ErrQuestionMismatch):
		return nil, fmt.Errorf("%w: %w", ErrStaleEvent, err)
	case errors.Is(err, quiz.ErrAttemptComplete):
		remaining = 0
	case err != nil:
		return nil, err
	}

	if remaining > 0 {
		idx := len(test.Questions) - remaining
		if idx < 0 || idx >= len(test.Questions) {
			return nil, fmt.Errorf("%w: question %d of test %d", models.ErrNotFound, idx, test.ID)
		}
		return &Outcome{
			Kind:           OutcomeNextQuestion,
			Course:         course,
			Progress:       progress,
			Lesson:         lesson,
			Test:           test,
			Question:       &test.Questions[idx],
			QuestionNumber: idx + 1,
			QuestionCount:  len(test.Questions),
		}, nil
	}
	return s.finishTest(ctx, learnerID, course, progress, lesson)
}

// ResumeTest continues a test after the in-memory attempt was lost, for
// example after a restart. A live attempt is continued where it stopped,
// otherwise the test starts over.
func (s *Service) ResumeTest(ctx context.Context, learnerID int64) (*Outcome, error) {
	course, progress, err := s.load(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	if progress.Phase != models.PhaseTakingTest {
		return nil, fmt.Errorf("%w (phase %s)", ErrNotTakingTest, progress.Phase)
	}
	lesson, ok := course.LessonAt(progress.CurrentLessonIndex)
	if !ok {
		return nil, fmt.Errorf("%w: index %d", ErrNoLesson, progress.CurrentLessonIndex)
	}
	if !lesson.HasTest() {
		return nil, fmt.Errorf("%w: lesson %d", ErrNoTest, lesson.ID)
	}
	test := lesson.Test

	attempt, err := s.quiz.Attempt(ctx, learnerID)
	if errors.Is(err, quiz.ErrNoActiveAttempt) || (err == nil && attempt.TestID != test.ID) {
		s.log.Info("restarting test", "learner", learnerID, "test", test.ID)
		return s.beginTest(ctx, learnerID, course, progress, lesson)
	}
	if err != nil {
		return nil, err
	}
	if attempt.Done() || attempt.Current >= len(test.Questions) {
		return s.finishTest(ctx, learnerID, course, progress, lesson)
	}
	return &Outcome{
		Kind:           OutcomeNextQuestion,
		Course:         course,
		Progress:       progress,
		Lesson:         lesson,
		Test:           test,
		Question:       &test.Questions[attempt.Current],
		QuestionNumber: attempt.Current + 1,
		QuestionCount:  len(test.Questions),
	}, nil
}

// Progress returns the learner's progress in the active course
func (s *Service) Progress(ctx context.Context, learnerID int64) (*models.Course, *models.CourseProgress, error) {
	return s.load(ctx, learnerID)
}

func (s *Service) beginTest(ctx context.Context, learnerID int64, course *models.Course, progress *models.CourseProgress, lesson *models.Lesson) (*Outcome, error) {
	test := lesson.Test
	if _, err := s.quiz.StartAttempt(ctx, learnerID, test); err != nil {
		return nil, err
	}
	if len(test.Questions) == 0 {
		return s.finishTest(ctx, learnerID, course, progress, lesson)
	}
	return &Outcome{
		Kind:           OutcomeTestStarted,
		Course:         course,
		Progress:       progress,
		Lesson:         lesson,
		Test:           test,
		Question:       &test.Questions[0],
		QuestionNumber: 1,
		QuestionCount:  len(test.Questions),
	}, nil
}

// finishTest grades the attempt and advances past the lesson in one store transaction
func (s *Service) finishTest(ctx context.Context, learnerID int64, course *models.Course, progress *models.CourseProgress, lesson *models.Lesson) (*Outcome, error) {
	next := *progress
	var kind OutcomeKind
	saver := quiz.ResultSaverFunc(func(ctx context.Context, result *models.TestResult) error {
		kind = s.advance(course, &next)
		return s.repo.CompleteTest(ctx, result, &next)
	})

	res, err := s.quiz.Finish(ctx, learnerID, lesson.Test, saver)
	if errors.Is(err, quiz.ErrNoActiveAttempt) {
		return nil, fmt.Errorf("%w: %w", ErrNoActiveTest, err)
	}
	if err != nil {
		return nil, err
	}

	out := s.outcome(kind, course, &next)
	out.Test = lesson.Test
	out.Result = res
	return out, nil
}

// advance moves progress past its current lesson. The index never decreases.
func (s *Service) advance(course *models.Course, p *models.CourseProgress) OutcomeKind {
	now := s.now()
	p.LastActivity = now

	next := p.CurrentLessonIndex + 1
	if next >= len(course.Lessons) {
		p.Phase = models.PhaseCompleted
		if p.CompletedAt == nil {
			p.CompletedAt = &now
		}
		s.log.Info("course completed", "learner", p.UserID, "course", course.ID)
		return OutcomeCourseCompleted
	}
	p.CurrentLessonIndex = next
	p.Phase = models.PhaseWatchingLesson
	return OutcomeNextLesson
}

func (s *Service) outcome(kind OutcomeKind, course *models.Course, p *models.CourseProgress) *Outcome {
	out := &Outcome{Kind: kind, Course: course, Progress: p}
	if kind == OutcomeNextLesson {
		out.Lesson, _ = course.LessonAt(p.CurrentLessonIndex)
	}
	return out
}

func (s *Service) activeCourse(ctx context.Context) (*models.Course, error) {
	course, err := s.repo.GetActiveCourse(ctx)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrNoCourse
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active course: %w", err)
	}
	return course, nil
}

func (s *Service) load(ctx context.Context, learnerID int64) (*models.Course, *models.CourseProgress, error) {
	course, err := s.activeCourse(ctx)
	if err != nil {
		return nil, nil, err
	}
	progress, err := s.repo.GetProgress(ctx, learnerID, course.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil, ErrNoProgress
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return course, progress, nil
}
