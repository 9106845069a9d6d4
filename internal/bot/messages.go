package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/coursebot/internal/course"
	"github.com/example/coursebot/internal/grading"
	"github.com/example/coursebot/pkg/models"
)

const (
	msgWelcome = "🎓 Добро пожаловать в систему онлайн обучения!\n\n" +
		"Здесь вы сможете пройти обучающий курс с интерактивными уроками и тестами.\n\n" +
		"📚 Нажмите кнопку ниже, чтобы начать обучение."
	msgNoCourse        = "❌ В данный момент нет доступных курсов."
	msgNotStarted      = "📚 Сначала начните курс."
	msgNotWatching     = "❌ Вы не просматриваете урок в данный момент."
	msgAlreadyAnswered = "Ответ уже записан"
	msgAnswerSaved     = "Ответ записан!"
	msgLessonDone      = "Урок уже отмечен"
	msgInvalidOption   = "Такого варианта ответа нет"
	msgTestRestarted   = "⚠️ Прогресс теста был потерян, начинаем тест заново."
	msgError           = "❌ Произошла ошибка. Пожалуйста, попробуйте позже."
	msgNotAdmin        = "❌ У вас нет прав администратора."
	msgUnknown         = "Я вас не понимаю. Используйте /help, чтобы увидеть справку."
	msgAskPhone        = "📞 Пожалуйста, поделитесь своим номером телефона для завершения регистрации:"
	msgPhoneSaved      = "✅ Спасибо! Ваш номер телефона сохранен."
	msgForeignContact  = "❌ Пожалуйста, отправьте свой номер с помощью кнопки ниже."
	msgDegenerateTest  = "⚠️ В этом тесте нет вопросов, он засчитан автоматически."
	msgImportPrompt    = "📥 Отправьте файл .xlsx или .csv с курсом.\n\n" +
		"Одна строка на вопрос: урок, тип медиа (photo/video), ссылка или file_id, подпись, " +
		"текст кнопки, ссылка кнопки, название теста, вопрос, номер правильного ответа, варианты ответов."

	msgTestReminder = "⏰ *Напоминание о тесте*\n\n" +
		"Вы начали проходить тест, но не завершили его.\n\n" +
		"Пожалуйста, завершите тест, чтобы продолжить обучение.\n\n" +
		"Нажмите /start для продолжения."
)

func helpText() string {
	return "📚 Справка по использованию бота\n\n" +
		"Как использовать:\n" +
		"1. Нажмите «Начать курс» для старта обучения\n" +
		"2. Просматривайте уроки и нажимайте «Посмотрел!» после изучения\n" +
		"3. Проходите тесты, выбирая правильные ответы\n" +
		"4. Получайте оценки и продолжайте обучение\n\n" +
		"Команды:\n" +
		"/start - начать работу с ботом\n" +
		"/help - показать эту справку\n\n" +
		"Оценки:\n" + grading.Scale()
}

func courseIntroText(c *models.Course) string {
	text := fmt.Sprintf("📚 Курс «%s»", c.Title)
	if c.Description != "" {
		text += "\n\n" + c.Description
	}
	return text
}

func testStartedText(t *models.Test) string {
	return fmt.Sprintf("📝 Тест: %s\n\nОтветьте на все вопросы, чтобы продолжить.", t.Title)
}

func questionText(out *course.Outcome) string {
	return fmt.Sprintf("❓ Вопрос %d из %d\n\n%s", out.QuestionNumber, out.QuestionCount, out.Question.Text)
}

func testResultText(out *course.Outcome) string {
	r := out.Result
	text := fmt.Sprintf("🎯 Тест завершен!\n\n%s\nПравильных ответов: %d из %d",
		grading.FormatScore(r.Record.Score, r.Record.Grade), r.Correct, r.Total)
	if r.Degenerate {
		text = msgDegenerateTest
	}
	return text
}

func completedText(c *models.Course) string {
	return fmt.Sprintf("🎉 Поздравляем! Вы успешно завершили курс «%s»!\n\n"+
		"Спасибо за ваше участие и усердие в обучении.", c.Title)
}

func alreadyCompletedText(c *models.Course) string {
	return fmt.Sprintf("✅ Вы уже завершили курс «%s».", c.Title)
}

func orDash(s string) string {
	if s == "" {
		return "Не указан"
	}
	return s
}

func adminCompletionText(u *models.User, c *models.Course, at time.Time) string {
	return "🎓 Пользователь завершил курс!\n\n" +
		fmt.Sprintf("👤 Пользователь: %s\n", orDash(u.FullName())) +
		fmt.Sprintf("📞 Телефон: %s\n", orDash(u.PhoneNumber)) +
		fmt.Sprintf("👤 Username: @%s\n", orDash(u.Username)) +
		fmt.Sprintf("📚 Курс: %s\n", c.Title) +
		fmt.Sprintf("🆔 Telegram ID: %d\n", u.TelegramID) +
		fmt.Sprintf("📅 Дата завершения: %s", at.Format("02.01.2006 15:04"))
}

func statsText(stats []models.CourseStatistics) string {
	if len(stats) == 0 {
		return "❌ Курсы не найдены."
	}
	var sb strings.Builder
	for i, s := range stats {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "📊 Статистика курса «%s»\n\n", s.CourseTitle)
		fmt.Fprintf(&sb, "👥 Всего пользователей: %d\n", s.TotalLearners)
		fmt.Fprintf(&sb, "✅ Завершили курс: %d\n", s.Completed)
		fmt.Fprintf(&sb, "📚 В процессе обучения: %d (уроки: %d, тесты: %d)\n", s.Watching+s.TakingTest, s.Watching, s.TakingTest)
		fmt.Fprintf(&sb, "📝 Пройдено тестов: %d, средний балл: %.1f%%", s.TestsTaken, s.AverageScore)
	}
	return sb.String()
}
