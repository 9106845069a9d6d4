package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coursebot/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, InitSchema(db))
	t.Cleanup(func() { db.Close() })
	return NewStore(db)
}

func sampleCourse() *models.Course {
	return &models.Course{
		Title:    "Onboarding",
		IsActive: true,
		Lessons: []models.Lesson{
			{Title: "Intro", MediaKind: models.MediaVideo, MediaURL: "file-1", ButtonText: "Site", ButtonURL: "https://example.com"},
			{Title: "Rules", MediaKind: models.MediaPhoto, MediaURL: "file-2", Test: &models.Test{
				Title: "Rules quiz",
				Questions: []models.Question{
					{Text: "2+2?", Options: models.StringList{"3", "4"}, CorrectOption: 1},
					{Text: "Sky?", Options: models.StringList{"blue", "green", "red"}, CorrectOption: 0},
				},
			}},
		},
	}
}

func createLearner(t *testing.T, s *Store, telegramID int64) *models.User {
	t.Helper()
	u, err := s.Users.Upsert(context.Background(), &models.User{TelegramID: telegramID, FirstName: "Ann"})
	require.NoError(t, err)
	return u
}

func TestCreateAndLoadCourse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := sampleCourse()
	require.NoError(t, s.Create(ctx, c))
	assert.NotZero(t, c.ID)

	got, err := s.GetActiveCourse(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	require.Len(t, got.Lessons, 2)
	assert.Equal(t, models.MediaVideo, got.Lessons[0].MediaKind)
	assert.Nil(t, got.Lessons[0].Test)
	text, url, ok := got.Lessons[0].CallToAction()
	assert.True(t, ok)
	assert.Equal(t, "Site", text)
	assert.Equal(t, "https://example.com", url)

	test := got.Lessons[1].Test
	require.NotNil(t, test)
	require.Len(t, test.Questions, 2)
	assert.Equal(t, "2+2?", test.Questions[0].Text)
	assert.Equal(t, models.StringList{"3", "4"}, test.Questions[0].Options)
	assert.Equal(t, 1, test.Questions[0].CorrectOption)
	assert.Equal(t, c.Lessons[1].Test.Questions[1].ID, test.Questions[1].ID)
}

func TestCreateCourseRejectsBadContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := sampleCourse()
	c.Lessons[0].MediaKind = "audio"
	assert.Error(t, s.Create(ctx, c))

	c = sampleCourse()
	c.Lessons[1].Test.Questions[0].CorrectOption = 5
	assert.Error(t, s.Create(ctx, c))

	courses, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestActiveCourseSelection(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetActiveCourse(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	first := sampleCourse()
	require.NoError(t, s.Create(ctx, first))
	second := sampleCourse()
	second.OrderIndex = 1
	require.NoError(t, s.Create(ctx, second))

	toggled, err := s.ToggleActive(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	got, err := s.GetActiveCourse(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	_, err = s.ToggleActive(ctx, 999)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestProgressLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := sampleCourse()
	require.NoError(t, s.Create(ctx, c))
	u := createLearner(t, s, 100)

	_, err := s.GetProgress(ctx, u.ID, c.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	p, err := s.CreateProgress(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseWatchingLesson, p.Phase)
	assert.Equal(t, 0, p.CurrentLessonIndex)

	p.CurrentLessonIndex = 1
	p.Phase = models.PhaseTakingTest
	p.LastActivity = time.Now()
	require.NoError(t, s.UpdateProgress(ctx, p))

	again, err := s.CreateProgress(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	assert.Equal(t, 1, again.CurrentLessonIndex)
	assert.Equal(t, models.PhaseTakingTest, again.Phase)

	back := *again
	back.CurrentLessonIndex = 0
	assert.ErrorIs(t, s.UpdateProgress(ctx, &back), models.ErrNotFound)
}

func TestCompleteTestIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := sampleCourse()
	require.NoError(t, s.Create(ctx, c))
	u := createLearner(t, s, 100)
	testID := c.Lessons[1].Test.ID

	p, err := s.CreateProgress(ctx, u.ID, c.ID)
	require.NoError(t, err)
	p.CurrentLessonIndex = 1
	p.Phase = models.PhaseTakingTest
	require.NoError(t, s.UpdateProgress(ctx, p))

	now := time.Now()
	done := *p
	done.Phase = models.PhaseCompleted
	done.CompletedAt = &now
	result := &models.TestResult{
		UserID:    u.ID,
		TestID:    testID,
		AttemptID: "attempt-1",
		Score:     50,
		Grade:     models.GradeF,
		Answers:   models.Answers{{QuestionID: 1, SelectedOption: 1}},
	}
	require.NoError(t, s.CompleteTest(ctx, result, &done))
	assert.NotZero(t, result.ID)

	stored, err := s.GetProgress(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCompleted, stored.Phase)
	require.NotNil(t, stored.CompletedAt)

	saved, err := s.Results.GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "attempt-1", saved[0].AttemptID)
	assert.Equal(t, 50, saved[0].Score)
	assert.Equal(t, models.GradeF, saved[0].Grade)
	assert.Equal(t, models.Answers{{QuestionID: 1, SelectedOption: 1}}, saved[0].Answers)

	// replaying the same attempt must not write a second result or touch progress
	replay := *result
	replay.ID = 0
	rolledBack := *stored
	rolledBack.Phase = models.PhaseWatchingLesson
	assert.Error(t, s.CompleteTest(ctx, &replay, &rolledBack))

	stored, err = s.GetProgress(ctx, u.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseCompleted, stored.Phase)

	results, err := s.Results.GetByUserID(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestListStaleProgress(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := sampleCourse()
	require.NoError(t, s.Create(ctx, c))

	idle := createLearner(t, s, 1)
	busy := createLearner(t, s, 2)

	p1, err := s.CreateProgress(ctx, idle.ID, c.ID)
	require.NoError(t, err)
	p1.LastActivity = time.Now().Add(-2 * time.Hour)
	require.NoError(t, s.UpdateProgress(ctx, p1))

	p2, err := s.CreateProgress(ctx, busy.ID, c.ID)
	require.NoError(t, err)
	p2.LastActivity = time.Now()
	require.NoError(t, s.UpdateProgress(ctx, p2))

	stale, err := s.ListStaleProgress(ctx, models.PhaseWatchingLesson, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, idle.ID, stale[0].UserID)

	stale, err = s.ListStaleProgress(ctx, models.PhaseTakingTest, time.Now())
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestUsersAndAdmins(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	u, err := s.Users.Upsert(ctx, &models.User{TelegramID: 7, Username: "ann", FirstName: "Ann"})
	require.NoError(t, err)
	require.NoError(t, s.Users.UpdatePhone(ctx, u.ID, "+100"))

	u2, err := s.Users.Upsert(ctx, &models.User{TelegramID: 7, Username: "ann2", FirstName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, u2.ID)
	assert.Equal(t, "ann2", u2.Username)
	assert.Equal(t, "+100", u2.PhoneNumber)

	assert.ErrorIs(t, s.Users.UpdatePhone(ctx, 999, "+1"), models.ErrNotFound)

	ids, err := s.Users.TelegramIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, ids)

	require.NoError(t, s.Admins.Add(ctx, 55))
	require.NoError(t, s.Admins.Add(ctx, 55))
	ok, err := s.Admins.IsAdmin(ctx, 55)
	require.NoError(t, err)
	assert.True(t, ok)

	admins, err := s.Admins.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	require.NoError(t, s.Admins.Remove(ctx, 55))
	assert.ErrorIs(t, s.Admins.Remove(ctx, 55), models.ErrNotFound)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := sampleCourse()
	require.NoError(t, s.Create(ctx, c))

	n := &models.Notification{CourseID: c.ID, Phase: models.PhaseWatchingLesson, Caption: "Ждём вас!", IsActive: true}
	require.NoError(t, s.Notifications.Create(ctx, n))
	off := &models.Notification{CourseID: c.ID, Phase: models.PhaseWatchingLesson, Caption: "off"}
	require.NoError(t, s.Notifications.Create(ctx, off))

	assert.Error(t, s.Notifications.Create(ctx, &models.Notification{CourseID: c.ID, Phase: models.PhaseCompleted}))
	assert.Error(t, s.Notifications.Create(ctx, &models.Notification{CourseID: c.ID, Phase: models.PhaseTakingTest, MediaKind: "gif"}))

	active, err := s.Notifications.GetActive(ctx, c.ID, models.PhaseWatchingLesson)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Ждём вас!", active[0].Caption)

	all, err := s.Notifications.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	toggled, err := s.Notifications.SetActive(ctx, n.ID, false)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)
	active, err = s.Notifications.GetActive(ctx, c.ID, models.PhaseWatchingLesson)
	require.NoError(t, err)
	assert.Empty(t, active)

	off.IsActive = true
	off.Caption = "on again"
	off.Phase = models.PhaseTakingTest
	require.NoError(t, s.Notifications.Update(ctx, off))
	active, err = s.Notifications.GetActive(ctx, c.ID, models.PhaseTakingTest)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "on again", active[0].Caption)

	off.Phase = models.PhaseCompleted
	assert.ErrorIs(t, s.Notifications.Update(ctx, off), models.ErrInvalid)

	require.NoError(t, s.Notifications.Delete(ctx, n.ID))
	assert.ErrorIs(t, s.Notifications.Delete(ctx, n.ID), models.ErrNotFound)
	_, err = s.Notifications.SetActive(ctx, n.ID, true)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = s.Notifications.Get(ctx, n.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, s.Notifications.Update(ctx, &models.Notification{ID: n.ID, Phase: models.PhaseTakingTest}), models.ErrNotFound)
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := sampleCourse()
	require.NoError(t, s.Create(ctx, c))

	a := createLearner(t, s, 1)
	b := createLearner(t, s, 2)
	_, err := s.CreateProgress(ctx, a.ID, c.ID)
	require.NoError(t, err)
	pb, err := s.CreateProgress(ctx, b.ID, c.ID)
	require.NoError(t, err)

	now := time.Now()
	pb.CurrentLessonIndex = 1
	pb.Phase = models.PhaseCompleted
	pb.CompletedAt = &now
	require.NoError(t, s.CompleteTest(ctx, &models.TestResult{
		UserID: b.ID, TestID: c.Lessons[1].Test.ID, AttemptID: "x", Score: 80, Grade: models.GradeB,
	}, pb))

	stats, err := s.Statistics.CourseStatistics(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].TotalLearners)
	assert.Equal(t, 1, stats[0].Watching)
	assert.Equal(t, 1, stats[0].Completed)
	assert.Equal(t, 1, stats[0].TestsTaken)
	assert.InDelta(t, 80.0, stats[0].AverageScore, 0.001)

	rows, err := s.Statistics.LearnerProgress(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Onboarding", rows[0].CourseTitle)
}
