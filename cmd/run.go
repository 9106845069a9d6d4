package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/coursebot/internal/admin"
	"github.com/example/coursebot/internal/bot"
	"github.com/example/coursebot/internal/config"
	"github.com/example/coursebot/internal/course"
	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/internal/quiz"
	"github.com/example/coursebot/internal/scheduler"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot, the reminder sweep and the admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd)
	},
}

func runBot(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open database", "error", err)
		return err
	}
	defer store.Close()

	attempts, closeAttempts, err := newAttemptStore(ctx, cfg)
	if err != nil {
		log.Error("failed to open attempt store", "error", err)
		return err
	}
	defer closeAttempts()

	engine := quiz.NewEngine(attempts, log)
	svc := course.NewService(store, engine, log)

	b, err := bot.New(cfg.TelegramToken, bot.Deps{
		Course:  svc,
		Users:   store.Users,
		Admins:  store.Admins,
		Stats:   store.Statistics,
		Courses: store,
	}, bot.DefaultConfig(), log)
	if err != nil {
		return err
	}

	if cfg.EnableScheduler {
		sweep := scheduler.New(scheduler.Config{
			Interval:           cfg.NotificationCheckInterval,
			LessonStartTimeout: cfg.LessonStartTimeout,
			WatchedTimeout:     cfg.WatchedTimeout,
			TestTimeout:        cfg.TestTimeout,
			StartHour:          cfg.NotificationStartHour,
			EndHour:            cfg.NotificationEndHour,
		}, store, store.Notifications, b, log)
		if err := sweep.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sweep.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Start(gctx)
	})
	if cfg.EnableAdminAPI {
		auth := admin.NewAuthService(cfg.JWTSecret, cfg.AdminLogin, cfg.AdminPassHash)
		srv := admin.NewServer(admin.Config{Addr: cfg.HTTPAddr, CORSOrigins: cfg.CORSOrigins}, admin.Deps{
			Courses:       store,
			Users:         store.Users,
			Results:       store.Results,
			Stats:         store.Statistics,
			Notifications: store.Notifications,
			Admins:        store.Admins,
			Broadcaster:   b,
		}, auth, log)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	log.Info("bot started, press Ctrl+C to stop")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped with error", "error", err)
		return err
	}
	log.Info("bot stopped")
	return nil
}

// newAttemptStore picks where live quiz attempts are kept
func newAttemptStore(ctx context.Context, cfg config.Config) (quiz.AttemptStore, func() error, error) {
	if cfg.AttemptStore == config.AttemptStoreRedis {
		rs, err := quiz.NewRedisStore(ctx, cfg.RedisAddr, cfg.AttemptTTL)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil
	}
	return quiz.NewMemoryStore(), func() error { return nil }, nil
}
