package grading

import (
	"fmt"

	"github.com/example/coursebot/pkg/models"
)

// Grade thresholds in percent
const (
	ThresholdA = 90
	ThresholdB = 80
	ThresholdC = 70
	ThresholdD = 60
)

// For maps a percentage score to a letter grade
func For(score int) models.Grade {
	switch {
	case score >= ThresholdA:
		return models.GradeA
	case score >= ThresholdB:
		return models.GradeB
	case score >= ThresholdC:
		return models.GradeC
	case score >= ThresholdD:
		return models.GradeD
	default:
		return models.GradeF
	}
}

// Emoji returns the medal shown next to a grade
func Emoji(g models.Grade) string {
	switch g {
	case models.GradeA:
		return "🏆"
	case models.GradeB:
		return "🥈"
	case models.GradeC:
		return "🥉"
	case models.GradeD:
		return "📚"
	default:
		return "📖"
	}
}

// Label returns the human-readable name of a grade
func Label(g models.Grade) string {
	switch g {
	case models.GradeA:
		return "Отлично"
	case models.GradeB:
		return "Хорошо"
	case models.GradeC:
		return "Удовлетворительно"
	case models.GradeD:
		return "Слабо"
	default:
		return "Неудовлетворительно"
	}
}

// FormatScore renders a score line for outbound messages
func FormatScore(score int, g models.Grade) string {
	return fmt.Sprintf("%s Оценка: %s (%d%%) - %s", Emoji(g), g, score, Label(g))
}

// Scale renders the grade legend used in /help
func Scale() string {
	return fmt.Sprintf(
		"%s A (%d-100%%) - %s\n%s B (%d-%d%%) - %s\n%s C (%d-%d%%) - %s\n%s D (%d-%d%%) - %s\n%s F (0-%d%%) - %s",
		Emoji(models.GradeA), ThresholdA, Label(models.GradeA),
		Emoji(models.GradeB), ThresholdB, ThresholdA-1, Label(models.GradeB),
		Emoji(models.GradeC), ThresholdC, ThresholdB-1, Label(models.GradeC),
		Emoji(models.GradeD), ThresholdD, ThresholdC-1, Label(models.GradeD),
		Emoji(models.GradeF), ThresholdD-1, Label(models.GradeF),
	)
}
