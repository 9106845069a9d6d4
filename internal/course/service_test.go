package course

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coursebot/internal/quiz"
	"github.com/example/coursebot/pkg/models"
)

type fakeRepo struct {
	mu       sync.Mutex
	course   *models.Course
	progress map[int64]*models.CourseProgress
	results  []models.TestResult
	nextID   int64
	failSave error
}

func newFakeRepo(course *models.Course) *fakeRepo {
	return &fakeRepo{course: course, progress: make(map[int64]*models.CourseProgress)}
}

func (r *fakeRepo) GetActiveCourse(ctx context.Context) (*models.Course, error) {
	if r.course == nil {
		return nil, models.ErrNotFound
	}
	return r.course, nil
}

func (r *fakeRepo) GetCourse(ctx context.Context, courseID int64) (*models.Course, error) {
	if r.course == nil || r.course.ID != courseID {
		return nil, models.ErrNotFound
	}
	return r.course, nil
}

func (r *fakeRepo) GetProgress(ctx context.Context, learnerID, courseID int64) (*models.CourseProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.progress[learnerID]
	if !ok || p.CourseID != courseID {
		return nil, models.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) CreateProgress(ctx context.Context, learnerID, courseID int64) (*models.CourseProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.progress[learnerID]; ok {
		cp := *p
		return &cp, nil
	}
	r.nextID++
	p := &models.CourseProgress{
		ID:           r.nextID,
		UserID:       learnerID,
		CourseID:     courseID,
		Phase:        models.PhaseWatchingLesson,
		LastActivity: time.Now(),
	}
	r.progress[learnerID] = p
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) UpdateProgress(ctx context.Context, progress *models.CourseProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *progress
	r.progress[progress.UserID] = &cp
	return nil
}

func (r *fakeRepo) CompleteTest(ctx context.Context, result *models.TestResult, progress *models.CourseProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return r.failSave
	}
	r.results = append(r.results, *result)
	cp := *progress
	r.progress[progress.UserID] = &cp
	return nil
}

func (r *fakeRepo) ListStaleProgress(ctx context.Context, phase models.Phase, idleSince time.Time) ([]models.CourseProgress, error) {
	return nil, nil
}

func (r *fakeRepo) stored(learnerID int64) models.CourseProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.progress[learnerID]
}

func question(id int64, correct int) models.Question {
	return models.Question{
		ID:            id,
		Text:          "q",
		Options:       models.StringList{"a", "b", "c"},
		CorrectOption: correct,
	}
}

// lesson 0 has no test, lesson 1 a two question test, lesson 2 no test
func threeLessonCourse() *models.Course {
	return &models.Course{
		ID:       1,
		Title:    "Onboarding",
		IsActive: true,
		Lessons: []models.Lesson{
			{ID: 10, Title: "Intro", MediaKind: models.MediaVideo, MediaURL: "v1"},
			{ID: 11, Title: "Rules", MediaKind: models.MediaPhoto, MediaURL: "p1",
				Test: &models.Test{ID: 7, LessonID: 11, Questions: []models.Question{question(71, 0), question(72, 1)}}},
			{ID: 12, Title: "Outro", MediaKind: models.MediaVideo, MediaURL: "v2"},
		},
	}
}

func newTestService(repo *fakeRepo) *Service {
	return NewService(repo, quiz.NewEngine(quiz.NewMemoryStore(), nil), nil)
}

func TestFullCourseFlow(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(threeLessonCourse())
	svc := newTestService(repo)

	start, err := svc.OnStartCourse(ctx, 42)
	require.NoError(t, err)
	assert.True(t, start.Created)
	assert.Equal(t, int64(10), start.Lesson.ID)
	assert.Equal(t, models.PhaseWatchingLesson, start.Progress.Phase)

	out, err := svc.OnLessonWatched(ctx, 42, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNextLesson, out.Kind)
	assert.Equal(t, int64(11), out.Lesson.ID)
	assert.Equal(t, 1, out.Progress.CurrentLessonIndex)

	out, err = svc.OnLessonWatched(ctx, 42, 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTestStarted, out.Kind)
	assert.Equal(t, int64(71), out.Question.ID)
	assert.Equal(t, 1, out.QuestionNumber)
	assert.Equal(t, 2, out.QuestionCount)
	assert.Equal(t, models.PhaseTakingTest, repo.stored(42).Phase)

	out, err = svc.OnAnswerSubmitted(ctx, 42, 71, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNextQuestion, out.Kind)
	assert.Equal(t, int64(72), out.Question.ID)
	assert.Equal(t, 2, out.QuestionNumber)

	out, err = svc.OnAnswerSubmitted(ctx, 42, 72, 2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNextLesson, out.Kind)
	require.NotNil(t, out.Result)
	assert.Equal(t, 50, out.Result.Record.Score)
	assert.Equal(t, models.GradeF, out.Result.Record.Grade)
	assert.Equal(t, int64(12), out.Lesson.ID)
	require.Len(t, repo.results, 1)
	assert.Equal(t, int64(42), repo.results[0].UserID)
	assert.Equal(t, int64(7), repo.results[0].TestID)

	stored := repo.stored(42)
	assert.Equal(t, 2, stored.CurrentLessonIndex)
	assert.Equal(t, models.PhaseWatchingLesson, stored.Phase)

	out, err = svc.OnLessonWatched(ctx, 42, 2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCourseCompleted, out.Kind)
	assert.Nil(t, out.Lesson)

	stored = repo.stored(42)
	assert.Equal(t, models.PhaseCompleted, stored.Phase)
	assert.Equal(t, 2, stored.CurrentLessonIndex)
	require.NotNil(t, stored.CompletedAt)

	_, err = svc.OnLessonWatched(ctx, 42, 2)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStartCourseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(threeLessonCourse())
	svc := newTestService(repo)

	_, err := svc.OnStartCourse(ctx, 1)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 0)
	require.NoError(t, err)

	again, err := svc.OnStartCourse(ctx, 1)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, 1, again.Progress.CurrentLessonIndex)
	assert.Equal(t, int64(11), again.Lesson.ID)
}

func TestStartCourseErrors(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(newFakeRepo(nil))
	_, err := svc.OnStartCourse(ctx, 1)
	assert.ErrorIs(t, err, ErrNoCourse)
	assert.ErrorIs(t, err, models.ErrNotFound)

	svc = newTestService(newFakeRepo(&models.Course{ID: 3, IsActive: true}))
	_, err = svc.OnStartCourse(ctx, 1)
	assert.ErrorIs(t, err, ErrNoLesson)
}

func TestEventsWithoutProgress(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeRepo(threeLessonCourse()))

	_, err := svc.OnLessonWatched(ctx, 5, 0)
	assert.ErrorIs(t, err, ErrNoProgress)

	_, err = svc.OnAnswerSubmitted(ctx, 5, 71, 0)
	assert.ErrorIs(t, err, ErrNoProgress)
}

func TestPhaseGating(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(threeLessonCourse())
	svc := newTestService(repo)

	_, err := svc.OnStartCourse(ctx, 1)
	require.NoError(t, err)

	_, err = svc.OnAnswerSubmitted(ctx, 1, 71, 0)
	assert.ErrorIs(t, err, ErrNotTakingTest)
	assert.Empty(t, repo.results)

	_, err = svc.OnLessonWatched(ctx, 1, 0)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 1)
	require.NoError(t, err)

	_, err = svc.OnLessonWatched(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrNotWatching)
	assert.Equal(t, 1, repo.stored(1).CurrentLessonIndex)
}

func TestDuplicateWatchedIsRejected(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(threeLessonCourse())
	svc := newTestService(repo)

	_, err := svc.OnStartCourse(ctx, 1)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 0)
	require.NoError(t, err)

	// second press on the keyboard of lesson 0
	_, err = svc.OnLessonWatched(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrStaleEvent)
	assert.Equal(t, 1, repo.stored(1).CurrentLessonIndex)
	assert.Equal(t, models.PhaseWatchingLesson, repo.stored(1).Phase)
}

func TestDuplicateAnswerIsRejected(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(threeLessonCourse())
	svc := newTestService(repo)

	_, err := svc.OnStartCourse(ctx, 1)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 0)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 1)
	require.NoError(t, err)

	_, err = svc.OnAnswerSubmitted(ctx, 1, 71, 0)
	require.NoError(t, err)
	_, err = svc.OnAnswerSubmitted(ctx, 1, 71, 0)
	assert.ErrorIs(t, err, ErrStaleEvent)

	out, err := svc.OnAnswerSubmitted(ctx, 1, 72, 1)
	require.NoError(t, err)
	assert.Equal(t, 100, out.Result.Record.Score)
	assert.Equal(t, models.GradeA, out.Result.Record.Grade)

	_, err = svc.OnAnswerSubmitted(ctx, 1, 72, 1)
	assert.ErrorIs(t, err, ErrNotTakingTest)
	assert.Len(t, repo.results, 1)
}

func TestInvalidOptionKeepsQuestion(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(threeLessonCourse())
	svc := newTestService(repo)

	_, err := svc.OnStartCourse(ctx, 1)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 0)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 1)
	require.NoError(t, err)

	_, err = svc.OnAnswerSubmitted(ctx, 1, 71, 9)
	assert.ErrorIs(t, err, quiz.ErrInvalidOption)

	out, err := svc.OnAnswerSubmitted(ctx, 1, 71, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(72), out.Question.ID)
}

func TestZeroQuestionTestAdvancesImmediately(t *testing.T) {
	ctx := context.Background()
	c := threeLessonCourse()
	c.Lessons[0].Test = &models.Test{ID: 99, LessonID: 10}
	repo := newFakeRepo(c)
	svc := newTestService(repo)

	_, err := svc.OnStartCourse(ctx, 1)
	require.NoError(t, err)

	out, err := svc.OnLessonWatched(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNextLesson, out.Kind)
	require.NotNil(t, out.Result)
	assert.True(t, out.Result.Degenerate)
	assert.Equal(t, 0, out.Result.Record.Score)
	assert.Equal(t, models.GradeF, out.Result.Record.Grade)
	assert.Equal(t, 1, repo.stored(1).CurrentLessonIndex)
}

func TestTestOnLastLessonCompletesCourse(t *testing.T) {
	ctx := context.Background()
	c := threeLessonCourse()
	c.Lessons = c.Lessons[:2]
	repo := newFakeRepo(c)
	svc := newTestService(repo)

	_, err := svc.OnStartCourse(ctx, 1)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 0)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 1)
	require.NoError(t, err)
	_, err = svc.OnAnswerSubmitted(ctx, 1, 71, 0)
	require.NoError(t, err)

	out, err := svc.OnAnswerSubmitted(ctx, 1, 72, 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCourseCompleted, out.Kind)
	assert.Equal(t, models.PhaseCompleted, repo.stored(1).Phase)
	assert.Equal(t, 1, repo.stored(1).CurrentLessonIndex)

	again, err := svc.OnStartCourse(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, again.Lesson)
	assert.Equal(t, models.PhaseCompleted, again.Progress.Phase)
}

func TestFailedSaveLeavesProgress(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(threeLessonCourse())
	svc := newTestService(repo)

	_, err := svc.OnStartCourse(ctx, 1)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 0)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 1)
	require.NoError(t, err)
	_, err = svc.OnAnswerSubmitted(ctx, 1, 71, 0)
	require.NoError(t, err)

	repo.failSave = errors.New("disk full")
	_, err = svc.OnAnswerSubmitted(ctx, 1, 72, 1)
	require.Error(t, err)

	stored := repo.stored(1)
	assert.Equal(t, models.PhaseTakingTest, stored.Phase)
	assert.Equal(t, 1, stored.CurrentLessonIndex)

	// the attempt is gone, so the test starts over
	repo.failSave = nil
	_, err = svc.OnAnswerSubmitted(ctx, 1, 72, 1)
	assert.ErrorIs(t, err, ErrNoActiveTest)

	out, err := svc.ResumeTest(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTestStarted, out.Kind)
	assert.Equal(t, int64(71), out.Question.ID)
}

func TestAnswerForAnotherTestRestartsQuiz(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(threeLessonCourse())
	engine := quiz.NewEngine(quiz.NewMemoryStore(), nil)
	svc := NewService(repo, engine, nil)

	_, err := svc.OnStartCourse(ctx, 1)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 0)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 1)
	require.NoError(t, err)

	// the live attempt now belongs to a test of another course
	other := &models.Test{ID: 8, Questions: []models.Question{question(71, 0), question(81, 0)}}
	_, err = engine.StartAttempt(ctx, 1, other)
	require.NoError(t, err)

	_, err = svc.OnAnswerSubmitted(ctx, 1, 71, 0)
	assert.ErrorIs(t, err, ErrNoActiveTest)
	assert.NotErrorIs(t, err, ErrStaleEvent)
	assert.Equal(t, models.PhaseTakingTest, repo.stored(1).Phase)
	assert.Empty(t, repo.results)

	out, err := svc.ResumeTest(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTestStarted, out.Kind)
	assert.Equal(t, int64(71), out.Question.ID)

	out, err = svc.OnAnswerSubmitted(ctx, 1, 71, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(72), out.Question.ID)
}

func TestResumeContinuesLiveAttempt(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(threeLessonCourse())
	svc := newTestService(repo)

	_, err := svc.OnStartCourse(ctx, 1)
	require.NoError(t, err)
	_, err = svc.OnLessonWatched(ctx, 1, 0)
	require.NoError(t, err)

	_, err = svc.ResumeTest(ctx, 1)
	assert.ErrorIs(t, err, ErrNotTakingTest)

	_, err = svc.OnLessonWatched(ctx, 1, 1)
	require.NoError(t, err)
	_, err = svc.OnAnswerSubmitted(ctx, 1, 71, 0)
	require.NoError(t, err)

	out, err := svc.ResumeTest(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNextQuestion, out.Kind)
	assert.Equal(t, int64(72), out.Question.ID)
	assert.Equal(t, 2, out.QuestionNumber)
}

func TestLessonIndexNeverDecreases(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(threeLessonCourse())
	svc := newTestService(repo)

	_, err := svc.OnStartCourse(ctx, 1)
	require.NoError(t, err)

	last := 0
	events := []func() error{
		func() error { _, err := svc.OnLessonWatched(ctx, 1, 0); return err },
		func() error { _, err := svc.OnLessonWatched(ctx, 1, 0); return err },
		func() error { _, err := svc.OnAnswerSubmitted(ctx, 1, 71, 1); return err },
		func() error { _, err := svc.OnLessonWatched(ctx, 1, 1); return err },
		func() error { _, err := svc.OnAnswerSubmitted(ctx, 1, 71, 1); return err },
		func() error { _, err := svc.OnAnswerSubmitted(ctx, 1, 72, 0); return err },
		func() error { _, err := svc.OnLessonWatched(ctx, 1, 1); return err },
		func() error { _, err := svc.OnLessonWatched(ctx, 1, 2); return err },
		func() error { _, err := svc.OnLessonWatched(ctx, 1, 2); return err },
	}
	for _, ev := range events {
		_ = ev()
		idx := repo.stored(1).CurrentLessonIndex
		assert.GreaterOrEqual(t, idx, last)
		last = idx
	}
	assert.Equal(t, models.PhaseCompleted, repo.stored(1).Phase)
}
