package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/coursebot/pkg/models"
)

// SendNotification delivers a reminder template to a learner
func (b *Bot) SendNotification(ctx context.Context, learnerID int64, n models.Notification) error {
	user, err := b.deps.Users.GetByID(ctx, learnerID)
	if err != nil {
		return fmt.Errorf("failed to get user %d: %w", learnerID, err)
	}

	markup := ctaKeyboard(n.ButtonText, n.ButtonURL)
	if n.MediaKind == "" || n.MediaURL == "" {
		msg := tgbotapi.NewMessage(user.TelegramID, n.Caption)
		if markup != nil {
			msg.ReplyMarkup = markup
		}
		return b.sendMessage(msg)
	}
	msg, err := mediaMessage(user.TelegramID, n.MediaKind, n.MediaURL, n.Caption, markup)
	if err != nil {
		return err
	}
	return b.sendMessage(msg)
}

// SendTestReminder nudges a learner who left a test unfinished
func (b *Bot) SendTestReminder(ctx context.Context, learnerID int64) error {
	user, err := b.deps.Users.GetByID(ctx, learnerID)
	if err != nil {
		return fmt.Errorf("failed to get user %d: %w", learnerID, err)
	}
	msg := tgbotapi.NewMessage(user.TelegramID, msgTestReminder)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return b.sendMessage(msg)
}

// Broadcast sends text to every registered user. Delivery failures are
// counted, not returned.
func (b *Bot) Broadcast(ctx context.Context, text string) (sent, failed int, err error) {
	ids, err := b.deps.Users.TelegramIDs(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list users: %w", err)
	}
	for i, id := range ids {
		if i > 0 && b.config.BroadcastDelay > 0 {
			select {
			case <-ctx.Done():
				return sent, failed, ctx.Err()
			case <-time.After(b.config.BroadcastDelay):
			}
		}
		if err := b.sendMessage(tgbotapi.NewMessage(id, text)); err != nil {
			b.log.Warn("broadcast delivery failed", "telegram_id", id, "error", err)
			failed++
			continue
		}
		sent++
	}
	b.log.Info("broadcast finished", "sent", sent, "failed", failed)
	return sent, failed, nil
}

// NotifyAdmins sends text to every admin and only logs failures
func (b *Bot) NotifyAdmins(ctx context.Context, text string) {
	admins, err := b.deps.Admins.GetAll(ctx)
	if err != nil {
		b.log.Error("failed to list admins", "error", err)
		return
	}
	for _, a := range admins {
		if err := b.sendMessage(tgbotapi.NewMessage(a.TelegramID, text)); err != nil {
			b.log.Warn("failed to notify admin", "telegram_id", a.TelegramID, "error", err)
		}
	}
}
