package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Attempt store backends
const (
	AttemptStoreMemory = "memory"
	AttemptStoreRedis  = "redis"
)

type Config struct {
	TelegramToken string
	AdminUserIDs  []int64 // Seeded into the admins table on start
	LogMode       string  // dev|prod

	DBType  string // sqlite|postgres
	DBDSN   string
	DataDir string

	LessonStartTimeout        time.Duration
	WatchedTimeout            time.Duration
	TestTimeout               time.Duration
	NotificationCheckInterval time.Duration
	NotificationStartHour     int
	NotificationEndHour       int
	EnableScheduler           bool

	AttemptStore string // memory|redis
	RedisAddr    string
	AttemptTTL   time.Duration

	EnableAdminAPI bool
	HTTPAddr       string
	JWTSecret      string
	AdminLogin     string
	AdminPassHash  string // bcrypt
	CORSOrigins    []string
}

// Load reads .env when present and then the environment
func Load() (Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadEnv is Load without validation, for tools that do not talk to Telegram
func LoadEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables
func FromEnv() (Config, error) {
	admins, err := csvInt64("ADMIN_USER_IDS")
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdminUserIDs:  admins,
		LogMode:       envOr("LOG_MODE", "dev"),

		DBType:  envOr("DB_TYPE", "sqlite"),
		DBDSN:   os.Getenv("DB_DSN"),
		DataDir: envOr("DATA_DIR", "data"),

		LessonStartTimeout:        envMinutes("LESSON_START_TIMEOUT", 30),
		WatchedTimeout:            envMinutes("WATCHED_TIMEOUT", 60),
		TestTimeout:               envMinutes("TEST_TIMEOUT", 45),
		NotificationCheckInterval: envMinutes("NOTIFICATION_CHECK_INTERVAL", 5),
		NotificationStartHour:     envHour("NOTIFICATION_START_HOUR", 8),
		NotificationEndHour:       envHour("NOTIFICATION_END_HOUR", 22),
		EnableScheduler:           envBool("ENABLE_SCHEDULER", true),

		AttemptStore: strings.ToLower(envOr("ATTEMPT_STORE", AttemptStoreMemory)),
		RedisAddr:    envOr("REDIS_ADDR", "localhost:6379"),
		AttemptTTL:   envDuration("ATTEMPT_TTL", 24*time.Hour),

		EnableAdminAPI: envBool("ENABLE_ADMIN_API", false),
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		AdminLogin:     envOr("ADMIN_LOGIN", "admin"),
		AdminPassHash:  os.Getenv("ADMIN_PASS_HASH"),
		CORSOrigins:    csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late
func (c Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	switch c.AttemptStore {
	case AttemptStoreMemory, AttemptStoreRedis:
	default:
		return fmt.Errorf("unknown ATTEMPT_STORE %q", c.AttemptStore)
	}
	if c.NotificationStartHour > c.NotificationEndHour {
		return fmt.Errorf("NOTIFICATION_START_HOUR %d is after NOTIFICATION_END_HOUR %d",
			c.NotificationStartHour, c.NotificationEndHour)
	}
	if c.EnableAdminAPI && (c.JWTSecret == "" || c.AdminPassHash == "") {
		return errors.New("JWT_SECRET and ADMIN_PASS_HASH are required for the admin API")
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envMinutes(k string, def int) time.Duration {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil && n > 0 {
		return time.Duration(n) * time.Minute
	}
	return time.Duration(def) * time.Minute
}

func envHour(k string, def int) int {
	if h, err := strconv.Atoi(os.Getenv(k)); err == nil && h >= 0 && h <= 23 {
		return h
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil && d > 0 {
		return d
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func csvInt64(k string) ([]int64, error) {
	var out []int64
	for _, s := range csvOr(k, "") {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", k, s, err)
		}
		out = append(out, id)
	}
	return out, nil
}
