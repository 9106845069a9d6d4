package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/coursebot/internal/excel"
	"github.com/example/coursebot/internal/logger"
	"github.com/example/coursebot/pkg/models"
)

// Handlers only; routes live in server.go

// CourseStore serves course content
type CourseStore interface {
	List(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, courseID int64) (*models.Course, error)
	ToggleActive(ctx context.Context, courseID int64) (*models.Course, error)
}

// UserStore lists learners
type UserStore interface {
	GetAll(ctx context.Context) ([]models.User, error)
}

// ResultStore lists test results of a learner
type ResultStore interface {
	GetByUserID(ctx context.Context, userID int64) ([]models.TestResult, error)
}

// StatsStore serves reporting queries
type StatsStore interface {
	CourseStatistics(ctx context.Context) ([]models.CourseStatistics, error)
	LearnerProgress(ctx context.Context) ([]models.LearnerProgressRow, error)
}

// NotificationStore manages reminder templates
type NotificationStore interface {
	GetAll(ctx context.Context) ([]models.Notification, error)
	Get(ctx context.Context, id int64) (*models.Notification, error)
	Create(ctx context.Context, n *models.Notification) error
	Update(ctx context.Context, n *models.Notification) error
	SetActive(ctx context.Context, id int64, active bool) (*models.Notification, error)
	Delete(ctx context.Context, id int64) error
}

// AdminStore lists bot admins
type AdminStore interface {
	GetAll(ctx context.Context) ([]models.Admin, error)
}

// Broadcaster sends a message to every learner
type Broadcaster interface {
	Broadcast(ctx context.Context, text string) (sent, failed int, err error)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps store errors to status codes
func writeError(w http.ResponseWriter, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, models.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error("admin api request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func idParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// GET /api/courses
func ListCoursesHandler(store CourseStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courses, err := store.List(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, courses)
	}
}

// GET /api/courses/{id}
func GetCourseHandler(store CourseStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		c, err := store.GetCourse(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// PUT /api/courses/{id}/toggle
func ToggleCourseHandler(store CourseStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		c, err := store.ToggleActive(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		log.Info("course toggled", "course", c.ID, "active", c.IsActive)
		writeJSON(w, http.StatusOK, c)
	}
}

// GET /api/users
func ListUsersHandler(store UserStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := store.GetAll(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

// GET /api/users/{id}/results
func UserResultsHandler(store ResultStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		results, err := store.GetByUserID(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

// GET /api/stats
func StatsHandler(store StatsStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := store.CourseStatistics(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// GET /api/notifications
func ListNotificationsHandler(store NotificationStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.GetAll(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// POST /api/notifications
func CreateNotificationHandler(store NotificationStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var n models.Notification
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil || n.CourseID <= 0 {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		n.ID = 0
		if err := store.Create(r.Context(), &n); err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, n)
	}
}

// PUT /api/notifications/{id}
func UpdateNotificationHandler(store NotificationStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		current, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		n := *current
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		n.ID, n.CourseID, n.CreatedAt = current.ID, current.CourseID, current.CreatedAt
		if err := store.Update(r.Context(), &n); err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, n)
	}
}

// PUT /api/notifications/{id}/toggle
func ToggleNotificationHandler(store NotificationStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		current, err := store.Get(r.Context(), id)
		if err != nil {
			writeError(w, log, err)
			return
		}
		n, err := store.SetActive(r.Context(), id, !current.IsActive)
		if err != nil {
			writeError(w, log, err)
			return
		}
		log.Info("notification toggled", "notification", n.ID, "active", n.IsActive)
		writeJSON(w, http.StatusOK, n)
	}
}

// DELETE /api/notifications/{id}
func DeleteNotificationHandler(store NotificationStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		if err := store.Delete(r.Context(), id); err != nil {
			writeError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /api/admins
func ListAdminsHandler(store AdminStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admins, err := store.GetAll(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, admins)
	}
}

// POST /api/broadcast  { "text": "..." }
func BroadcastHandler(b Broadcaster, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sent, failed, err := b.Broadcast(r.Context(), req.Text)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"sent": sent, "failed": failed})
	}
}

// GET /api/export/progress.xlsx
func ExportProgressHandler(store StatsStore, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := store.LearnerProgress(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}
		var buf bytes.Buffer
		if err := excel.ExportProgress(&buf, rows); err != nil {
			writeError(w, log, err)
			return
		}
		name := fmt.Sprintf("progress_%s.xlsx", time.Now().Format("2006-01-02"))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		_, _ = w.Write(buf.Bytes())
	}
}
