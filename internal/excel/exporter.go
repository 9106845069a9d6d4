package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/example/coursebot/pkg/models"
)

// NewFile always starts with this sheet
const progressSheet = "Sheet1"

var progressHeader = []interface{}{
	"Telegram ID", "Username", "Имя", "Фамилия", "Телефон", "Курс", "Статус", "Урок", "Последняя активность", "Завершён",
}

var phaseNames = map[models.Phase]string{
	models.PhaseWatchingLesson: "Смотрит урок",
	models.PhaseTakingTest:     "Проходит тест",
	models.PhaseCompleted:      "Завершил",
}

// ExportProgress writes learner progress as an .xlsx workbook
func ExportProgress(w io.Writer, rows []models.LearnerProgressRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(progressSheet, "A1", &progressHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if err := f.SetRowStyle(progressSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range rows {
		completed := ""
		if r.CompletedAt != nil {
			completed = r.CompletedAt.Format("2006-01-02 15:04")
		}
		phase, ok := phaseNames[r.Phase]
		if !ok {
			phase = string(r.Phase)
		}
		values := []interface{}{
			r.TelegramID, r.Username, r.FirstName, r.LastName, r.PhoneNumber, r.CourseTitle,
			phase, r.CurrentLessonIndex + 1, r.LastActivity.Format("2006-01-02 15:04"), completed,
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(progressSheet, axis, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(progressSheet, "A", "J", 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
