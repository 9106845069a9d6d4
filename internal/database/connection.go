package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Config selects the database backend
type Config struct {
	Type    string // sqlite or postgres
	DSN     string // Postgres connection string, or sqlite file path
	DataDir string // Directory for the default sqlite file
}

// Connect opens the database and bootstraps the schema
func Connect(cfg Config) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	switch strings.ToLower(cfg.Type) {
	case TypePostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("DB_DSN is required for postgres")
		}
		db, err = sqlx.Connect("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	case TypeSQLite, "":
		path := cfg.DSN
		if path == "" {
			dataDir := cfg.DataDir
			if dataDir == "" {
				dataDir = "data"
			}
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
			path = filepath.Join(dataDir, "coursebot.db")
		}
		db, err = OpenSQLite(path)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", cfg.Type)
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens a sqlite database file, or ":memory:"
func OpenSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

var tables = []struct {
	name string
	ddl  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id {{serial}},
			telegram_id BIGINT UNIQUE NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			phone_number TEXT NOT NULL DEFAULT '',
			created_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
			updated_at {{ts}} DEFAULT CURRENT_TIMESTAMP
		)`},
	{"admins", `
		CREATE TABLE IF NOT EXISTS admins (
			id {{serial}},
			telegram_id BIGINT UNIQUE NOT NULL,
			created_at {{ts}} DEFAULT CURRENT_TIMESTAMP
		)`},
	{"courses", `
		CREATE TABLE IF NOT EXISTS courses (
			id {{serial}},
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			order_index INTEGER NOT NULL DEFAULT 0,
			created_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
			updated_at {{ts}} DEFAULT CURRENT_TIMESTAMP
		)`},
	{"lessons", `
		CREATE TABLE IF NOT EXISTS lessons (
			id {{serial}},
			course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
			title TEXT NOT NULL DEFAULT '',
			order_index INTEGER NOT NULL,
			media_kind TEXT NOT NULL CHECK (media_kind IN ('photo', 'video')),
			media_url TEXT NOT NULL,
			caption TEXT NOT NULL DEFAULT '',
			button_text TEXT NOT NULL DEFAULT '',
			button_url TEXT NOT NULL DEFAULT '',
			created_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(course_id, order_index)
		)`},
	{"tests", `
		CREATE TABLE IF NOT EXISTS tests (
			id {{serial}},
			lesson_id BIGINT UNIQUE NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
			title TEXT NOT NULL DEFAULT '',
			created_at {{ts}} DEFAULT CURRENT_TIMESTAMP
		)`},
	{"questions", `
		CREATE TABLE IF NOT EXISTS questions (
			id {{serial}},
			test_id BIGINT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
			order_index INTEGER NOT NULL,
			question_text TEXT NOT NULL,
			options TEXT NOT NULL,
			correct_option INTEGER NOT NULL
		)`},
	{"course_progress", `
		CREATE TABLE IF NOT EXISTS course_progress (
			id {{serial}},
			user_id BIGINT NOT NULL REFERENCES users(id),
			course_id BIGINT NOT NULL REFERENCES courses(id),
			current_lesson_index INTEGER NOT NULL DEFAULT 0,
			phase TEXT NOT NULL DEFAULT 'watching_lesson',
			last_activity {{ts}} NOT NULL,
			completed_at {{ts}},
			created_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
			updated_at {{ts}} DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(user_id, course_id)
		)`},
	{"test_results", `
		CREATE TABLE IF NOT EXISTS test_results (
			id {{serial}},
			user_id BIGINT NOT NULL REFERENCES users(id),
			test_id BIGINT NOT NULL REFERENCES tests(id),
			attempt_id TEXT UNIQUE NOT NULL,
			score INTEGER NOT NULL,
			grade TEXT NOT NULL,
			answers TEXT NOT NULL,
			created_at {{ts}} DEFAULT CURRENT_TIMESTAMP
		)`},
	{"notifications", `
		CREATE TABLE IF NOT EXISTS notifications (
			id {{serial}},
			course_id BIGINT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
			phase TEXT NOT NULL,
			media_kind TEXT NOT NULL DEFAULT '',
			media_url TEXT NOT NULL DEFAULT '',
			caption TEXT NOT NULL DEFAULT '',
			button_text TEXT NOT NULL DEFAULT '',
			button_url TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at {{ts}} DEFAULT CURRENT_TIMESTAMP
		)`},
}

// InitSchema creates necessary tables if they don't exist
func InitSchema(db *sqlx.DB) error {
	serial, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "TIMESTAMP"
	if db.DriverName() == "postgres" {
		serial, ts = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}
	r := strings.NewReplacer("{{serial}}", serial, "{{ts}}", ts)

	for _, t := range tables {
		if _, err := db.Exec(r.Replace(t.ddl)); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	return nil
}
