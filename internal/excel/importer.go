package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/coursebot/pkg/models"
)

// ImportConfig defines the import configuration.
//
// Each row describes one question. Lesson columns are repeated on every row
// of a lesson; a row with an empty lesson title continues the previous lesson.
// A lesson without a test is a single row with an empty question column.
type ImportConfig struct {
	CourseTitle       string
	Activate          bool   // Import the course as active
	SheetName         string // Sheet to import, the first sheet when empty
	StartRow          int    // The row to start importing from (1-based index)
	LessonColumn      string
	MediaKindColumn   string
	MediaURLColumn    string
	CaptionColumn     string
	ButtonTextColumn  string
	ButtonURLColumn   string
	TestTitleColumn   string
	QuestionColumn    string
	CorrectColumn     string // 1-based number of the correct option
	FirstOptionColumn string // Options run from here to the end of the row
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		Activate:          true,
		StartRow:          2, // By default, start from the second row (skip header)
		LessonColumn:      "A",
		MediaKindColumn:   "B",
		MediaURLColumn:    "C",
		CaptionColumn:     "D",
		ButtonTextColumn:  "E",
		ButtonURLColumn:   "F",
		TestTitleColumn:   "G",
		QuestionColumn:    "H",
		CorrectColumn:     "I",
		FirstOptionColumn: "J",
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	CourseID       int64
	TotalProcessed int
	Lessons        int
	Tests          int
	Questions      int
	Skipped        int
	Errors         []string
}

// CourseWriter stores an imported course
type CourseWriter interface {
	Create(ctx context.Context, course *models.Course) error
}

// ImportCourseFile reads an .xlsx or .csv file and stores it as a new course
func ImportCourseFile(ctx context.Context, path string, config ImportConfig, w CourseWriter) (*ImportResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if config.CourseTitle == "" {
		config.CourseTitle = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return ImportCourse(ctx, file, filepath.Ext(path), config, w)
}

// ImportCourse parses r and stores the course. Rows with errors are skipped and reported;
// nothing is stored when no lesson could be parsed.
func ImportCourse(ctx context.Context, r io.Reader, ext string, config ImportConfig, w CourseWriter) (*ImportResult, error) {
	course, result, err := ParseCourse(r, ext, config)
	if err != nil {
		return nil, err
	}
	if err := w.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("failed to save course: %w", err)
	}
	result.CourseID = course.ID
	return result, nil
}

// ParseCourse reads course content from an Excel or CSV stream
func ParseCourse(r io.Reader, ext string, config ImportConfig) (*models.Course, *ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.EqualFold(ext, ".csv") {
		rows, err = readCSV(r)
	} else {
		rows, err = readExcel(r, config.SheetName)
	}
	if err != nil {
		return nil, nil, err
	}
	return ParseRows(rows, config)
}

func readExcel(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

type columns struct {
	lesson, kind, url, caption, btnText, btnURL, testTitle, question, correct, firstOption int
}

func (c ImportConfig) columns() (columns, error) {
	var cols columns
	for _, m := range []struct {
		name string
		dst  *int
	}{
		{c.LessonColumn, &cols.lesson},
		{c.MediaKindColumn, &cols.kind},
		{c.MediaURLColumn, &cols.url},
		{c.CaptionColumn, &cols.caption},
		{c.ButtonTextColumn, &cols.btnText},
		{c.ButtonURLColumn, &cols.btnURL},
		{c.TestTitleColumn, &cols.testTitle},
		{c.QuestionColumn, &cols.question},
		{c.CorrectColumn, &cols.correct},
		{c.FirstOptionColumn, &cols.firstOption},
	} {
		n, err := excelize.ColumnNameToNumber(m.name)
		if err != nil {
			return cols, fmt.Errorf("invalid column %q: %w", m.name, err)
		}
		*m.dst = n - 1
	}
	return cols, nil
}

// ParseRows builds a course from spreadsheet rows
func ParseRows(rows [][]string, config ImportConfig) (*models.Course, *ImportResult, error) {
	cols, err := config.columns()
	if err != nil {
		return nil, nil, err
	}
	start := config.StartRow
	if start < 1 {
		start = 1
	}

	title := config.CourseTitle
	if title == "" {
		title = "Imported course"
	}
	course := &models.Course{Title: title, IsActive: config.Activate}
	result := &ImportResult{Errors: make([]string, 0)}

	var current *models.Lesson
	for i, row := range rows {
		if i < start-1 || blank(row) {
			continue
		}
		result.TotalProcessed++

		if name := cell(row, cols.lesson); name != "" {
			lesson, err := parseLesson(row, cols)
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
				current = nil
				continue
			}
			course.Lessons = append(course.Lessons, *lesson)
			current = &course.Lessons[len(course.Lessons)-1]
		} else if current == nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: question without a lesson", i+1))
			continue
		}

		if cell(row, cols.question) == "" {
			continue
		}
		q, err := parseQuestion(row, cols)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		if current.Test == nil {
			current.Test = &models.Test{Title: cell(row, cols.testTitle)}
			if current.Test.Title == "" {
				current.Test.Title = current.Title
			}
		}
		current.Test.Questions = append(current.Test.Questions, *q)
	}

	if len(course.Lessons) == 0 {
		return nil, result, fmt.Errorf("no lessons found")
	}
	for _, l := range course.Lessons {
		result.Lessons++
		if l.Test != nil {
			result.Tests++
			result.Questions += len(l.Test.Questions)
		}
	}
	return course, result, nil
}

func parseLesson(row []string, cols columns) (*models.Lesson, error) {
	kind, err := models.ParseMediaKind(cell(row, cols.kind))
	if err != nil {
		return nil, err
	}
	lesson := &models.Lesson{
		Title:      cell(row, cols.lesson),
		MediaKind:  kind,
		MediaURL:   cell(row, cols.url),
		Caption:    cell(row, cols.caption),
		ButtonText: cell(row, cols.btnText),
		ButtonURL:  cell(row, cols.btnURL),
	}
	if lesson.MediaURL == "" {
		return nil, fmt.Errorf("lesson %q has no media", lesson.Title)
	}
	return lesson, nil
}

func parseQuestion(row []string, cols columns) (*models.Question, error) {
	q := &models.Question{Text: cell(row, cols.question)}
	for i := cols.firstOption; i < len(row); i++ {
		if opt := strings.TrimSpace(row[i]); opt != "" {
			q.Options = append(q.Options, opt)
		}
	}
	n, err := strconv.Atoi(cell(row, cols.correct))
	if err != nil {
		return nil, fmt.Errorf("question %q: invalid correct option %q", q.Text, cell(row, cols.correct))
	}
	q.CorrectOption = n - 1
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
