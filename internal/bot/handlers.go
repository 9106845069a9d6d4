package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/coursebot/internal/course"
	"github.com/example/coursebot/internal/quiz"
	"github.com/example/coursebot/pkg/models"
)

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	if message.Chat == nil || message.From == nil {
		return nil
	}
	chatID := message.Chat.ID

	switch {
	case message.Contact != nil:
		return b.handleContact(ctx, message)
	case message.Document != nil && b.isAwaitingUpload(chatID):
		return b.handleDocument(ctx, message)
	case message.IsCommand():
		return b.HandleCommand(ctx, message)
	}

	switch strings.TrimSpace(message.Text) {
	case buttonStartCourse:
		user, err := b.learner(ctx, message.From)
		if err != nil {
			return err
		}
		return b.handleStartCourse(ctx, chatID, user)
	case buttonWatched:
		// Typed text carries no lesson index, so it only re-sends where the learner is
		user, err := b.learner(ctx, message.From)
		if err != nil {
			return err
		}
		_, _, err = b.deps.Course.Progress(ctx, user.ID)
		switch {
		case errors.Is(err, course.ErrNoCourse):
			return b.sendMessage(tgbotapi.NewMessage(chatID, msgNoCourse))
		case errors.Is(err, course.ErrNoProgress):
			return b.sendMessage(tgbotapi.NewMessage(chatID, msgNotStarted))
		case err != nil:
			return err
		}
		return b.handleStartCourse(ctx, chatID, user)
	}
	return b.sendMessage(tgbotapi.NewMessage(chatID, msgUnknown))
}

// HandleCommand handles bot commands
func (b *Bot) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		return b.handleStart(ctx, message)
	case "help":
		return b.handleHelp(ctx, message)
	case "course":
		user, err := b.learner(ctx, message.From)
		if err != nil {
			return err
		}
		return b.handleStartCourse(ctx, message.Chat.ID, user)
	case "admin_add", "admin_remove", "stats", "broadcast", "import", "export", "cancel":
		return b.handleAdminCommand(ctx, message)
	}
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, msgUnknown))
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	if _, err := b.learner(ctx, message.From); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	msg := tgbotapi.NewMessage(message.Chat.ID, msgWelcome)
	msg.ReplyMarkup = startKeyboard()
	return b.sendMessage(msg)
}

func (b *Bot) handleHelp(ctx context.Context, message *tgbotapi.Message) error {
	text := helpText()
	if b.isAdmin(ctx, message.From.ID) {
		text += "\n\n" + adminHelpText()
	}
	return b.sendMessage(tgbotapi.NewMessage(message.Chat.ID, text))
}

// HandleCallback handles inline keyboard presses
func (b *Bot) HandleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback == nil || callback.Message == nil || callback.From == nil {
		return fmt.Errorf("invalid callback data: required fields are missing")
	}

	var notice string
	defer func() {
		// The callback must always be answered to clear the loading state
		if _, err := b.tg.Request(tgbotapi.NewCallback(callback.ID, notice)); err != nil {
			b.log.Warn("failed to answer callback", "error", err)
		}
	}()

	chatID := callback.Message.Chat.ID
	user, err := b.learner(ctx, callback.From)
	if err != nil {
		return err
	}

	switch data := callback.Data; {
	case data == callbackStartCourse:
		return b.handleStartCourse(ctx, chatID, user)
	case strings.HasPrefix(data, callbackWatchedPrefix):
		index, err := parseWatched(data)
		if err != nil {
			return err
		}
		notice, err = b.handleWatched(ctx, chatID, user, index)
		if err == nil && notice == "" {
			b.clearKeyboard(callback.Message)
		}
		return err
	case strings.HasPrefix(data, callbackAnswerPrefix):
		questionID, option, err := parseAnswer(data)
		if err != nil {
			return err
		}
		notice, err = b.handleAnswer(ctx, chatID, user, questionID, option)
		if err == nil && notice == msgAnswerSaved {
			b.clearKeyboard(callback.Message)
		}
		return err
	}
	notice = msgUnknown
	return nil
}

func (b *Bot) handleStartCourse(ctx context.Context, chatID int64, user *models.User) error {
	res, err := b.deps.Course.OnStartCourse(ctx, user.ID)
	if errors.Is(err, course.ErrNoCourse) || errors.Is(err, course.ErrNoLesson) {
		return b.sendMessage(tgbotapi.NewMessage(chatID, msgNoCourse))
	}
	if err != nil {
		return err
	}

	switch res.Progress.Phase {
	case models.PhaseCompleted:
		msg := tgbotapi.NewMessage(chatID, alreadyCompletedText(res.Course))
		msg.ReplyMarkup = removeKeyboard()
		return b.sendMessage(msg)
	case models.PhaseTakingTest:
		out, err := b.deps.Course.ResumeTest(ctx, user.ID)
		if err != nil {
			return err
		}
		return b.presentOutcome(ctx, chatID, user, out)
	}

	if res.Created {
		msg := tgbotapi.NewMessage(chatID, courseIntroText(res.Course))
		msg.ReplyMarkup = removeKeyboard()
		if err := b.sendMessage(msg); err != nil {
			return err
		}
	}
	return b.sendLesson(chatID, res.Lesson, res.Progress.CurrentLessonIndex)
}

// handleWatched returns a notice for the user when the press was not applied
func (b *Bot) handleWatched(ctx context.Context, chatID int64, user *models.User, index int) (string, error) {
	out, err := b.deps.Course.OnLessonWatched(ctx, user.ID, index)
	switch {
	case errors.Is(err, course.ErrNoCourse):
		return msgNoCourse, nil
	case errors.Is(err, course.ErrNoProgress):
		return msgNotStarted, nil
	case errors.Is(err, course.ErrStaleEvent):
		return msgLessonDone, nil
	case errors.Is(err, course.ErrNotWatching):
		return msgNotWatching, nil
	case err != nil:
		return "", err
	}
	return "", b.presentOutcome(ctx, chatID, user, out)
}

// handleAnswer returns msgAnswerSaved when the answer was recorded and a
// warning notice otherwise
func (b *Bot) handleAnswer(ctx context.Context, chatID int64, user *models.User, questionID int64, option int) (string, error) {
	out, err := b.deps.Course.OnAnswerSubmitted(ctx, user.ID, questionID, option)
	switch {
	case errors.Is(err, course.ErrNoCourse):
		return msgNoCourse, nil
	case errors.Is(err, course.ErrNoProgress):
		return msgNotStarted, nil
	case errors.Is(err, course.ErrStaleEvent), errors.Is(err, course.ErrNotTakingTest):
		return msgAlreadyAnswered, nil
	case errors.Is(err, quiz.ErrInvalidOption):
		return msgInvalidOption, nil
	case errors.Is(err, course.ErrNoActiveTest):
		b.log.Warn("test attempt lost, restarting", "learner", user.ID)
		if err := b.sendMessage(tgbotapi.NewMessage(chatID, msgTestRestarted)); err != nil {
			return "", err
		}
		out, err := b.deps.Course.ResumeTest(ctx, user.ID)
		if err != nil {
			return "", err
		}
		return msgTestRestarted, b.presentOutcome(ctx, chatID, user, out)
	case err != nil:
		return "", err
	}
	return msgAnswerSaved, b.presentOutcome(ctx, chatID, user, out)
}

// presentOutcome sends whatever the learner should see after an event
func (b *Bot) presentOutcome(ctx context.Context, chatID int64, user *models.User, out *course.Outcome) error {
	if out.Result != nil {
		if err := b.sendMessage(tgbotapi.NewMessage(chatID, testResultText(out))); err != nil {
			return err
		}
	}

	switch out.Kind {
	case course.OutcomeNextLesson:
		return b.sendLesson(chatID, out.Lesson, out.Progress.CurrentLessonIndex)
	case course.OutcomeTestStarted:
		if err := b.sendMessage(tgbotapi.NewMessage(chatID, testStartedText(out.Test))); err != nil {
			return err
		}
		return b.sendQuestion(chatID, out)
	case course.OutcomeNextQuestion:
		return b.sendQuestion(chatID, out)
	case course.OutcomeCourseCompleted:
		return b.completeCourse(ctx, chatID, user, out.Course)
	}
	return fmt.Errorf("unknown outcome %s", out.Kind)
}

func (b *Bot) sendLesson(chatID int64, lesson *models.Lesson, index int) error {
	if lesson == nil {
		return fmt.Errorf("%w: lesson %d", models.ErrNotFound, index)
	}
	msg, err := mediaMessage(chatID, lesson.MediaKind, lesson.MediaURL, lesson.DisplayCaption(), lessonKeyboard(lesson, index))
	if err != nil {
		return err
	}
	return b.sendMessage(msg)
}

func (b *Bot) sendQuestion(chatID int64, out *course.Outcome) error {
	msg := tgbotapi.NewMessage(chatID, questionText(out))
	msg.ReplyMarkup = questionKeyboard(out.Question)
	return b.sendMessage(msg)
}

// completeCourse congratulates the learner and reports to the admins once the
// learner's phone number is known
func (b *Bot) completeCourse(ctx context.Context, chatID int64, user *models.User, c *models.Course) error {
	msg := tgbotapi.NewMessage(chatID, completedText(c))
	msg.ReplyMarkup = removeKeyboard()
	if err := b.sendMessage(msg); err != nil {
		return err
	}

	if user.PhoneNumber == "" {
		ask := tgbotapi.NewMessage(chatID, msgAskPhone)
		ask.ReplyMarkup = phoneKeyboard()
		return b.sendMessage(ask)
	}
	b.NotifyAdmins(ctx, adminCompletionText(user, c, b.completedAt(ctx, user)))
	return nil
}

func (b *Bot) handleContact(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	contact := message.Contact
	if contact.UserID != 0 && contact.UserID != message.From.ID {
		msg := tgbotapi.NewMessage(chatID, msgForeignContact)
		msg.ReplyMarkup = phoneKeyboard()
		return b.sendMessage(msg)
	}

	user, err := b.learner(ctx, message.From)
	if err != nil {
		return err
	}
	if err := b.deps.Users.UpdatePhone(ctx, user.ID, contact.PhoneNumber); err != nil {
		return fmt.Errorf("failed to save phone: %w", err)
	}
	user.PhoneNumber = contact.PhoneNumber

	msg := tgbotapi.NewMessage(chatID, msgPhoneSaved)
	msg.ReplyMarkup = removeKeyboard()
	if err := b.sendMessage(msg); err != nil {
		return err
	}

	c, progress, err := b.deps.Course.Progress(ctx, user.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	}
	if progress.Phase == models.PhaseCompleted {
		at := b.now()
		if progress.CompletedAt != nil {
			at = *progress.CompletedAt
		}
		b.NotifyAdmins(ctx, adminCompletionText(user, c, at))
	}
	return nil
}

func (b *Bot) completedAt(ctx context.Context, user *models.User) time.Time {
	if _, progress, err := b.deps.Course.Progress(ctx, user.ID); err == nil && progress.CompletedAt != nil {
		return *progress.CompletedAt
	}
	return b.now()
}

// clearKeyboard drops the callback buttons of an answered message and keeps its links
func (b *Bot) clearKeyboard(message *tgbotapi.Message) {
	edit := tgbotapi.NewEditMessageReplyMarkup(message.Chat.ID, message.MessageID, linksOnly(message.ReplyMarkup))
	if _, err := b.tg.Request(edit); err != nil {
		b.log.Debug("failed to clear keyboard", "chat", message.Chat.ID, "error", err)
	}
}
