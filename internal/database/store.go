package database

import (
	"github.com/jmoiron/sqlx"

	"github.com/example/coursebot/internal/course"
)

// Store bundles the repositories the bot runs on
type Store struct {
	*CourseRepository
	*ProgressRepository

	Users         *UserRepository
	Admins        *AdminRepository
	Results       *TestResultRepository
	Notifications *NotificationRepository
	Statistics    *StatisticsRepository

	DB *sqlx.DB
}

var _ course.Repository = (*Store)(nil)

// NewStore creates all repositories over one connection
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		CourseRepository:   NewCourseRepository(db),
		ProgressRepository: NewProgressRepository(db),
		Users:              NewUserRepository(db),
		Admins:             NewAdminRepository(db),
		Results:            NewTestResultRepository(db),
		Notifications:      NewNotificationRepository(db),
		Statistics:         NewStatisticsRepository(db),
		DB:                 db,
	}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.DB.Close()
}
