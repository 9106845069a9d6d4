package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/example/coursebot/internal/logger"
)

// Deps are the stores and services behind the admin API
type Deps struct {
	Courses       CourseStore
	Users         UserStore
	Results       ResultStore
	Stats         StatsStore
	Notifications NotificationStore
	Admins        AdminStore
	Broadcaster   Broadcaster
}

// Config configures the admin HTTP server
type Config struct {
	Addr        string
	CORSOrigins []string
}

// NewRouter builds the admin API routes
func NewRouter(deps Deps, auth *AuthService, origins []string, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(ar chi.Router) {
		ar.Post("/auth/login", LoginHandler(auth))

		ar.Group(func(pr chi.Router) {
			pr.Use(JWTMiddleware(auth))
			pr.Get("/courses", ListCoursesHandler(deps.Courses, log))
			pr.Get("/courses/{id}", GetCourseHandler(deps.Courses, log))
			pr.Put("/courses/{id}/toggle", ToggleCourseHandler(deps.Courses, log))
			pr.Get("/users", ListUsersHandler(deps.Users, log))
			pr.Get("/users/{id}/results", UserResultsHandler(deps.Results, log))
			pr.Get("/stats", StatsHandler(deps.Stats, log))
			pr.Get("/notifications", ListNotificationsHandler(deps.Notifications, log))
			pr.Post("/notifications", CreateNotificationHandler(deps.Notifications, log))
			pr.Put("/notifications/{id}", UpdateNotificationHandler(deps.Notifications, log))
			pr.Put("/notifications/{id}/toggle", ToggleNotificationHandler(deps.Notifications, log))
			pr.Delete("/notifications/{id}", DeleteNotificationHandler(deps.Notifications, log))
			pr.Get("/admins", ListAdminsHandler(deps.Admins, log))
			pr.Post("/broadcast", BroadcastHandler(deps.Broadcaster, log))
			pr.Get("/export/progress.xlsx", ExportProgressHandler(deps.Stats, log))
		})
	})
	return r
}

// Server runs the admin API until its context ends
type Server struct {
	srv *http.Server
	log *logger.Logger
}

// NewServer creates an admin API server
func NewServer(cfg Config, deps Deps, auth *AuthService, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "admin_api")
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(deps, auth, cfg.CORSOrigins, log),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("admin api listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
