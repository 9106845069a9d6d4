package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/coursebot/internal/course"
	"github.com/example/coursebot/internal/excel"
	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/pkg/models"
)

// sender is the part of the Telegram API the bot talks through
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// UserStore stores learner profiles
type UserStore interface {
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdatePhone(ctx context.Context, userID int64, phone string) error
	TelegramIDs(ctx context.Context) ([]int64, error)
}

// AdminStore stores admin accounts
type AdminStore interface {
	Add(ctx context.Context, telegramID int64) error
	Remove(ctx context.Context, telegramID int64) error
	IsAdmin(ctx context.Context, telegramID int64) (bool, error)
	GetAll(ctx context.Context) ([]models.Admin, error)
}

// StatsStore serves reporting queries
type StatsStore interface {
	CourseStatistics(ctx context.Context) ([]models.CourseStatistics, error)
	LearnerProgress(ctx context.Context) ([]models.LearnerProgressRow, error)
}

// Deps are the services the bot runs on
type Deps struct {
	Course  *course.Service
	Users   UserStore
	Admins  AdminStore
	Stats   StatsStore
	Courses excel.CourseWriter
}

// Bot represents the Telegram bot application
type Bot struct {
	api    *tgbotapi.BotAPI
	tg     sender
	deps   Deps
	log    *logger.Logger
	config *BotConfig
	http   *http.Client
	now    func() time.Time

	queues []chan tgbotapi.Update
	wg     sync.WaitGroup

	mu                 sync.Mutex
	awaitingFileUpload map[int64]bool
}

// New creates a new bot instance
func New(token string, deps Deps, config *BotConfig, log *logger.Logger) (*Bot, error) {
	if token == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	b := newBot(api, deps, config, log)
	b.api = api
	b.log.Info("authorized on account", "username", api.Self.UserName)
	return b, nil
}

func newBot(tg sender, deps Deps, config *BotConfig, log *logger.Logger) *Bot {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Bot{
		tg:                 tg,
		deps:               deps,
		log:                log.With("component", "bot"),
		config:             config,
		http:               &http.Client{Timeout: time.Minute},
		now:                time.Now,
		awaitingFileUpload: make(map[int64]bool),
	}
}

// Start receives updates until ctx is cancelled. Updates of one chat are
// handled in arrival order.
func (b *Bot) Start(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot is not connected to Telegram")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = b.config.UpdateTimeout
	updates := b.api.GetUpdatesChan(updateConfig)

	b.startWorkers(ctx)
	defer b.stopWorkers()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(update)
		}
	}
}

func (b *Bot) startWorkers(ctx context.Context) {
	b.queues = make([]chan tgbotapi.Update, b.config.Workers)
	for i := range b.queues {
		ch := make(chan tgbotapi.Update, 64)
		b.queues[i] = ch
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for update := range ch {
				b.HandleUpdate(ctx, update)
			}
		}()
	}
}

func (b *Bot) stopWorkers() {
	for _, ch := range b.queues {
		close(ch)
	}
	b.wg.Wait()
}

// dispatch routes an update to the worker owning its chat
func (b *Bot) dispatch(update tgbotapi.Update) {
	var chatID int64
	if chat := update.FromChat(); chat != nil {
		chatID = chat.ID
	}
	idx := int(uint64(chatID) % uint64(len(b.queues)))
	b.queues[idx] <- update
}

// HandleUpdate processes a single update
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic while handling update", "update_id", update.UpdateID, "panic", r)
		}
	}()

	switch {
	case update.Message != nil:
		if err := b.handleMessage(ctx, update.Message); err != nil {
			b.log.Error("failed to handle message", "chat", update.Message.Chat.ID, "error", err)
			b.reply(update.Message.Chat.ID, msgError)
		}
	case update.CallbackQuery != nil:
		if err := b.HandleCallback(ctx, update.CallbackQuery); err != nil {
			b.log.Error("failed to handle callback", "data", update.CallbackQuery.Data, "error", err)
			if update.CallbackQuery.Message != nil {
				b.reply(update.CallbackQuery.Message.Chat.ID, msgError)
			}
		}
	}
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) error {
	if _, err := b.tg.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// reply sends plain text and only logs failures
func (b *Bot) reply(chatID int64, text string) {
	if err := b.sendMessage(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Warn("failed to reply", "chat", chatID, "error", err)
	}
}

func (b *Bot) isAdmin(ctx context.Context, telegramID int64) bool {
	ok, err := b.deps.Admins.IsAdmin(ctx, telegramID)
	if err != nil {
		b.log.Error("failed to check admin", "telegram_id", telegramID, "error", err)
		return false
	}
	return ok
}

// learner registers the sender and returns the stored profile
func (b *Bot) learner(ctx context.Context, from *tgbotapi.User) (*models.User, error) {
	if from == nil {
		return nil, errors.New("update has no sender")
	}
	return b.deps.Users.Upsert(ctx, &models.User{
		TelegramID: from.ID,
		Username:   from.UserName,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
	})
}

func (b *Bot) setAwaitingUpload(chatID int64, v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v {
		b.awaitingFileUpload[chatID] = true
	} else {
		delete(b.awaitingFileUpload, chatID)
	}
}

func (b *Bot) isAwaitingUpload(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.awaitingFileUpload[chatID]
}
