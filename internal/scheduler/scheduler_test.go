package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/coursebot/pkg/models"
)

type fakeProgress struct {
	records []models.CourseProgress
	err     error
}

func (f *fakeProgress) ListStaleProgress(ctx context.Context, phase models.Phase, idleSince time.Time) ([]models.CourseProgress, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.CourseProgress
	for _, p := range f.records {
		if p.Phase == phase && p.LastActivity.Before(idleSince) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeTemplates map[models.Phase][]models.Notification

func (f fakeTemplates) GetActive(ctx context.Context, courseID int64, phase models.Phase) ([]models.Notification, error) {
	return f[phase], nil
}

type sentNotification struct {
	learnerID int64
	caption   string
}

type fakeNotifier struct {
	notifications []sentNotification
	reminders     []int64
	fail          bool
}

func (f *fakeNotifier) SendNotification(ctx context.Context, learnerID int64, n models.Notification) error {
	if f.fail {
		return errors.New("blocked by user")
	}
	f.notifications = append(f.notifications, sentNotification{learnerID, n.Caption})
	return nil
}

func (f *fakeNotifier) SendTestReminder(ctx context.Context, learnerID int64) error {
	if f.fail {
		return errors.New("blocked by user")
	}
	f.reminders = append(f.reminders, learnerID)
	return nil
}

var noon = time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)

func newTestScheduler(progress *fakeProgress, notifier *fakeNotifier) *Scheduler {
	templates := fakeTemplates{
		models.PhaseWatchingLesson: {{Caption: "Вас ждёт новый урок"}},
		models.PhaseTakingTest:     {{Caption: "Вернитесь к тесту"}},
	}
	s := New(DefaultConfig(), progress, templates, notifier, nil)
	s.now = func() time.Time { return noon }
	return s
}

func TestSweepRules(t *testing.T) {
	progress := &fakeProgress{records: []models.CourseProgress{
		{ID: 1, UserID: 10, Phase: models.PhaseWatchingLesson, LastActivity: noon.Add(-31 * time.Minute)},
		{ID: 2, UserID: 20, Phase: models.PhaseWatchingLesson, LastActivity: noon.Add(-10 * time.Minute)},
		{ID: 3, UserID: 30, Phase: models.PhaseTakingTest, LastActivity: noon.Add(-50 * time.Minute)},
		{ID: 4, UserID: 40, Phase: models.PhaseTakingTest, LastActivity: noon.Add(-90 * time.Minute)},
		{ID: 5, UserID: 50, Phase: models.PhaseCompleted, LastActivity: noon.Add(-48 * time.Hour)},
	}}
	notifier := &fakeNotifier{}
	s := newTestScheduler(progress, notifier)

	sent := s.Sweep(context.Background())
	assert.Equal(t, 4, sent)
	assert.ElementsMatch(t, []sentNotification{
		{10, "Вас ждёт новый урок"},
		{40, "Вернитесь к тесту"},
	}, notifier.notifications)
	assert.ElementsMatch(t, []int64{30, 40}, notifier.reminders)
}

func TestSweepSendsOncePerIdleStretch(t *testing.T) {
	progress := &fakeProgress{records: []models.CourseProgress{
		{ID: 1, UserID: 10, Phase: models.PhaseWatchingLesson, LastActivity: noon.Add(-time.Hour)},
	}}
	notifier := &fakeNotifier{}
	s := newTestScheduler(progress, notifier)

	assert.Equal(t, 1, s.Sweep(context.Background()))
	assert.Equal(t, 0, s.Sweep(context.Background()))

	// learner acted and went idle again
	progress.records[0].LastActivity = noon.Add(-40 * time.Minute)
	assert.Equal(t, 1, s.Sweep(context.Background()))
	assert.Len(t, notifier.notifications, 2)
}

func TestSweepRetriesFailedSends(t *testing.T) {
	progress := &fakeProgress{records: []models.CourseProgress{
		{ID: 1, UserID: 10, Phase: models.PhaseWatchingLesson, LastActivity: noon.Add(-time.Hour)},
	}}
	notifier := &fakeNotifier{fail: true}
	s := newTestScheduler(progress, notifier)

	assert.Equal(t, 0, s.Sweep(context.Background()))
	notifier.fail = false
	assert.Equal(t, 1, s.Sweep(context.Background()))
}

func TestSweepQuietHours(t *testing.T) {
	progress := &fakeProgress{records: []models.CourseProgress{
		{ID: 1, UserID: 10, Phase: models.PhaseWatchingLesson, LastActivity: noon.Add(-time.Hour)},
	}}
	notifier := &fakeNotifier{}
	s := newTestScheduler(progress, notifier)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 3, 0, 0, 0, time.Local) }

	assert.Equal(t, 0, s.Sweep(context.Background()))
	assert.Empty(t, notifier.notifications)

	assert.True(t, s.inNotificationHours(8))
	assert.True(t, s.inNotificationHours(22))
	assert.False(t, s.inNotificationHours(23))
}

func TestSweepListError(t *testing.T) {
	progress := &fakeProgress{err: errors.New("db down")}
	notifier := &fakeNotifier{}
	s := newTestScheduler(progress, notifier)

	assert.Equal(t, 0, s.Sweep(context.Background()))
}

func TestStartStop(t *testing.T) {
	s := newTestScheduler(&fakeProgress{}, &fakeNotifier{})
	require.NoError(t, s.Start())
	s.Stop()
}
