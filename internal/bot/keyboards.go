package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/coursebot/pkg/models"
)

// Reply keyboard labels
const (
	buttonStartCourse  = "📚 Начать курс"
	buttonWatched      = "✅ Посмотрел!"
	buttonShareContact = "📞 Поделиться номером"
)

// Callback data
const (
	callbackStartCourse   = "start_course"
	callbackWatchedPrefix = "watched:"
	callbackAnswerPrefix  = "answer:"
)

// MenuButton represents a button in an inline menu. URL buttons open a link
// instead of sending callback data.
type MenuButton struct {
	Text         string
	CallbackData string
	URL          string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			if button.URL != "" {
				keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonURL(button.Text, button.URL))
				continue
			}
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// linksOnly keeps the URL buttons of markup
func linksOnly(markup *tgbotapi.InlineKeyboardMarkup) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{}
	if markup == nil {
		return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
	}
	for _, row := range markup.InlineKeyboard {
		var kept []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			if button.URL != nil {
				kept = append(kept, button)
			}
		}
		if len(kept) > 0 {
			rows = append(rows, kept)
		}
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func startKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonStartCourse)))
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func phoneKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(buttonShareContact)))
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func removeKeyboard() tgbotapi.ReplyKeyboardRemove {
	return tgbotapi.NewRemoveKeyboard(false)
}

// lessonKeyboard carries the optional call-to-action link and the watched
// button bound to the lesson position
func lessonKeyboard(lesson *models.Lesson, index int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]MenuButton
	if text, url, ok := lesson.CallToAction(); ok {
		rows = append(rows, []MenuButton{{Text: text, URL: url}})
	}
	rows = append(rows, []MenuButton{{Text: buttonWatched, CallbackData: watchedData(index)}})
	return createKeyboard(rows)
}

// ctaKeyboard returns nil when there is no call-to-action
func ctaKeyboard(text, url string) interface{} {
	if text == "" || url == "" {
		return nil
	}
	return createKeyboard([][]MenuButton{{{Text: text, URL: url}}})
}

func questionKeyboard(q *models.Question) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]MenuButton, 0, len(q.Options))
	for i, opt := range q.Options {
		rows = append(rows, []MenuButton{{
			Text:         fmt.Sprintf("%d. %s", i+1, opt),
			CallbackData: answerData(q.ID, i),
		}})
	}
	return createKeyboard(rows)
}

func watchedData(index int) string {
	return callbackWatchedPrefix + strconv.Itoa(index)
}

func parseWatched(data string) (int, error) {
	index, err := strconv.Atoi(strings.TrimPrefix(data, callbackWatchedPrefix))
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid watched callback %q", data)
	}
	return index, nil
}

func answerData(questionID int64, option int) string {
	return fmt.Sprintf("%s%d:%d", callbackAnswerPrefix, questionID, option)
}

func parseAnswer(data string) (int64, int, error) {
	parts := strings.Split(strings.TrimPrefix(data, callbackAnswerPrefix), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid answer callback %q", data)
	}
	questionID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid question in callback %q", data)
	}
	option, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid option in callback %q", data)
	}
	return questionID, option, nil
}

// fileRef treats http(s) links as URLs and anything else as a Telegram file ID
func fileRef(ref string) tgbotapi.RequestFileData {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return tgbotapi.FileURL(ref)
	}
	return tgbotapi.FileID(ref)
}

// mediaMessage builds a photo or video message
func mediaMessage(chatID int64, kind models.MediaKind, ref, caption string, markup interface{}) (tgbotapi.Chattable, error) {
	switch kind {
	case models.MediaPhoto:
		msg := tgbotapi.NewPhoto(chatID, fileRef(ref))
		msg.Caption = caption
		msg.ReplyMarkup = markup
		return msg, nil
	case models.MediaVideo:
		msg := tgbotapi.NewVideo(chatID, fileRef(ref))
		msg.Caption = caption
		msg.ReplyMarkup = markup
		return msg, nil
	}
	return nil, fmt.Errorf("unsupported media kind %q", kind)
}
