package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/pkg/models"
)

// Default notification settings
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Config holds sweep intervals and idle thresholds
type Config struct {
	Interval           time.Duration
	LessonStartTimeout time.Duration // watching_lesson idle before course reminders
	WatchedTimeout     time.Duration // taking_test idle before course reminders
	TestTimeout        time.Duration // taking_test idle before the fixed test reminder
	StartHour          int           // Reminders are sent from StartHour to EndHour inclusive, by the process's local clock
	EndHour            int
}

// DefaultConfig returns the default sweep settings
func DefaultConfig() Config {
	return Config{
		Interval:           5 * time.Minute,
		LessonStartTimeout: 30 * time.Minute,
		WatchedTimeout:     60 * time.Minute,
		TestTimeout:        45 * time.Minute,
		StartHour:          DefaultNotificationStartHour,
		EndHour:            DefaultNotificationEndHour,
	}
}

// Notifier interface for sending notifications
type Notifier interface {
	SendNotification(ctx context.Context, learnerID int64, n models.Notification) error
	SendTestReminder(ctx context.Context, learnerID int64) error
}

// ProgressSource lists idle learners
type ProgressSource interface {
	ListStaleProgress(ctx context.Context, phase models.Phase, idleSince time.Time) ([]models.CourseProgress, error)
}

// NotificationSource returns reminder templates of a course
type NotificationSource interface {
	GetActive(ctx context.Context, courseID int64, phase models.Phase) ([]models.Notification, error)
}

type rule struct {
	name    string
	phase   models.Phase
	timeout time.Duration
	fixed   bool // Send the test reminder instead of course templates
}

type sentKey struct {
	progressID   int64
	rule         string
	lastActivity int64
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler     *gocron.Scheduler
	cfg           Config
	progress      ProgressSource
	notifications NotificationSource
	notifier      Notifier
	log           *logger.Logger
	now           func() time.Time

	mu   sync.Mutex
	sent map[sentKey]struct{}
}

// New creates a new scheduler instance
func New(cfg Config, progress ProgressSource, notifications NotificationSource, notifier Notifier, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Scheduler{
		scheduler:     gocron.NewScheduler(time.UTC),
		cfg:           cfg,
		progress:      progress,
		notifications: notifications,
		notifier:      notifier,
		log:           log.With("component", "scheduler"),
		now:           time.Now,
		sent:          make(map[sentKey]struct{}),
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() error {
	minutes := int(s.cfg.Interval / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Interval)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	s.log.Info("notification sweep scheduled", "every_minutes", minutes)
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) rules() []rule {
	return []rule{
		{name: "lesson_start", phase: models.PhaseWatchingLesson, timeout: s.cfg.LessonStartTimeout},
		{name: "watched", phase: models.PhaseTakingTest, timeout: s.cfg.WatchedTimeout},
		{name: "test_timeout", phase: models.PhaseTakingTest, timeout: s.cfg.TestTimeout, fixed: true},
	}
}

// inNotificationHours reports whether the hour is inside the sending window
func (s *Scheduler) inNotificationHours(hour int) bool {
	return hour >= s.cfg.StartHour && hour <= s.cfg.EndHour
}

// Sweep sends reminders to idle learners and returns how many were sent.
// Every learner gets each reminder once per idle stretch.
func (s *Scheduler) Sweep(ctx context.Context) int {
	now := s.now()
	if !s.inNotificationHours(now.Hour()) {
		s.log.Debug("outside notification hours, skipping reminders",
			"hour", now.Hour(), "start", s.cfg.StartHour, "end", s.cfg.EndHour)
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sent := 0
	failed := false
	seen := make(map[sentKey]struct{})
	for _, r := range s.rules() {
		if r.timeout <= 0 {
			continue
		}
		stale, err := s.progress.ListStaleProgress(ctx, r.phase, now.Add(-r.timeout))
		if err != nil {
			s.log.Error("failed to list idle learners", "rule", r.name, "error", err)
			failed = true
			continue
		}
		for _, p := range stale {
			key := sentKey{progressID: p.ID, rule: r.name, lastActivity: p.LastActivity.UnixNano()}
			seen[key] = struct{}{}
			if _, done := s.sent[key]; done {
				continue
			}
			n, err := s.remind(ctx, r, p)
			if err != nil {
				s.log.Warn("failed to send reminder", "rule", r.name, "learner", p.UserID, "error", err)
				continue
			}
			s.sent[key] = struct{}{}
			sent += n
		}
	}

	// forget learners that moved on
	if !failed {
		for key := range s.sent {
			if _, ok := seen[key]; !ok {
				delete(s.sent, key)
			}
		}
	}
	if sent > 0 {
		s.log.Info("reminders sent", "count", sent)
	}
	return sent
}

func (s *Scheduler) remind(ctx context.Context, r rule, p models.CourseProgress) (int, error) {
	if r.fixed {
		if err := s.notifier.SendTestReminder(ctx, p.UserID); err != nil {
			return 0, err
		}
		return 1, nil
	}

	templates, err := s.notifications.GetActive(ctx, p.CourseID, r.phase)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, n := range templates {
		if err := s.notifier.SendNotification(ctx, p.UserID, n); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
