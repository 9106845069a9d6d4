package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/coursebot/internal/excel"
	"github.com/example/coursebot/pkg/models"
)

func adminHelpText() string {
	return "🔧 Команды администратора:\n" +
		"/admin_add <telegram_id> - добавить администратора\n" +
		"/admin_remove <telegram_id> - удалить администратора\n" +
		"/stats - статистика по курсам\n" +
		"/broadcast <текст> - рассылка всем пользователям\n" +
		"/import - загрузить курс из файла\n" +
		"/export - выгрузить прогресс пользователей\n" +
		"/cancel - отменить загрузку"
}

func (b *Bot) handleAdminCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	if !b.isAdmin(ctx, message.From.ID) {
		return b.sendMessage(tgbotapi.NewMessage(chatID, msgNotAdmin))
	}

	args := strings.TrimSpace(message.CommandArguments())
	switch message.Command() {
	case "admin_add":
		return b.handleAddAdmin(ctx, chatID, args)
	case "admin_remove":
		return b.handleRemoveAdmin(ctx, chatID, args)
	case "stats":
		return b.handleStats(ctx, chatID)
	case "broadcast":
		return b.handleBroadcast(ctx, chatID, args)
	case "import":
		b.setAwaitingUpload(chatID, true)
		return b.sendMessage(tgbotapi.NewMessage(chatID, msgImportPrompt))
	case "cancel":
		b.setAwaitingUpload(chatID, false)
		return b.sendMessage(tgbotapi.NewMessage(chatID, "❌ Загрузка отменена."))
	case "export":
		return b.handleExport(ctx, chatID)
	}
	return b.sendMessage(tgbotapi.NewMessage(chatID, msgUnknown))
}

func (b *Bot) handleAddAdmin(ctx context.Context, chatID int64, args string) error {
	telegramID, err := strconv.ParseInt(args, 10, 64)
	if err != nil || telegramID <= 0 {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "❌ Пожалуйста, укажите Telegram ID. Пример: /admin_add 123456789"))
	}
	if err := b.deps.Admins.Add(ctx, telegramID); err != nil {
		return fmt.Errorf("failed to add admin: %w", err)
	}
	b.log.Info("admin added", "telegram_id", telegramID, "by_chat", chatID)
	return b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Пользователь %d добавлен в администраторы.", telegramID)))
}

func (b *Bot) handleRemoveAdmin(ctx context.Context, chatID int64, args string) error {
	telegramID, err := strconv.ParseInt(args, 10, 64)
	if err != nil || telegramID <= 0 {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "❌ Пожалуйста, укажите Telegram ID. Пример: /admin_remove 123456789"))
	}
	err = b.deps.Admins.Remove(ctx, telegramID)
	if errors.Is(err, models.ErrNotFound) {
		return b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("❌ Пользователь %d не является администратором.", telegramID)))
	}
	if err != nil {
		return fmt.Errorf("failed to remove admin: %w", err)
	}
	b.log.Info("admin removed", "telegram_id", telegramID, "by_chat", chatID)
	return b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Пользователь %d удален из администраторов.", telegramID)))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) error {
	stats, err := b.deps.Stats.CourseStatistics(ctx)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}
	return b.sendMessage(tgbotapi.NewMessage(chatID, statsText(stats)))
}

func (b *Bot) handleBroadcast(ctx context.Context, chatID int64, text string) error {
	if text == "" {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "❌ Укажите текст рассылки. Пример: /broadcast Новый урок уже доступен!"))
	}
	sent, failed, err := b.Broadcast(ctx, text)
	if err != nil {
		return err
	}
	return b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("📨 Рассылка завершена.\n\nОтправлено: %d\nОшибок: %d", sent, failed)))
}

func (b *Bot) handleExport(ctx context.Context, chatID int64) error {
	rows, err := b.deps.Stats.LearnerProgress(ctx)
	if err != nil {
		return fmt.Errorf("failed to get progress: %w", err)
	}
	var buf bytes.Buffer
	if err := excel.ExportProgress(&buf, rows); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("progress_%s.xlsx", b.now().Format("2006-01-02")),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("📊 Прогресс пользователей: %d", len(rows))
	return b.sendMessage(doc)
}

// handleDocument imports an uploaded course file
func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	if !b.isAdmin(ctx, message.From.ID) {
		b.setAwaitingUpload(chatID, false)
		return b.sendMessage(tgbotapi.NewMessage(chatID, msgNotAdmin))
	}

	doc := message.Document
	ext := strings.ToLower(filepath.Ext(doc.FileName))
	if ext != ".xlsx" && ext != ".csv" {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "❌ Поддерживаются только файлы .xlsx и .csv"))
	}
	if int64(doc.FileSize) > b.config.MaxImportSize {
		return b.sendMessage(tgbotapi.NewMessage(chatID, "❌ Файл слишком большой."))
	}
	b.setAwaitingUpload(chatID, false)

	data, err := b.download(ctx, doc.FileID)
	if err != nil {
		return err
	}

	cfg := excel.DefaultImportConfig()
	cfg.CourseTitle = strings.TrimSuffix(doc.FileName, filepath.Ext(doc.FileName))
	result, err := excel.ImportCourse(ctx, bytes.NewReader(data), ext, cfg, b.deps.Courses)
	if err != nil {
		b.log.Warn("course import failed", "file", doc.FileName, "error", err)
		return b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("❌ Ошибка импорта: %v", err)))
	}
	b.log.Info("course imported", "file", doc.FileName, "course", result.CourseID, "lessons", result.Lessons)
	return b.sendMessage(tgbotapi.NewMessage(chatID, importReport(result)))
}

func (b *Bot) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.tg.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file url: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, b.config.MaxImportSize))
}

func importReport(r *excel.ImportResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Курс загружен (ID %d)\n\n", r.CourseID)
	fmt.Fprintf(&sb, "Строк обработано: %d\n", r.TotalProcessed)
	fmt.Fprintf(&sb, "Уроков: %d, тестов: %d, вопросов: %d\n", r.Lessons, r.Tests, r.Questions)
	if r.Skipped > 0 {
		fmt.Fprintf(&sb, "Пропущено строк: %d\n", r.Skipped)
		for i, e := range r.Errors {
			if i == 5 {
				fmt.Fprintf(&sb, "... и еще %d\n", len(r.Errors)-i)
				break
			}
			sb.WriteString("• " + e + "\n")
		}
	}
	return strings.TrimSpace(sb.String())
}
