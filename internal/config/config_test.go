package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"LESSON_START_TIMEOUT", "WATCHED_TIMEOUT", "TEST_TIMEOUT",
		"NOTIFICATION_CHECK_INTERVAL", "NOTIFICATION_START_HOUR", "NOTIFICATION_END_HOUR",
		"ATTEMPT_STORE", "ATTEMPT_TTL", "DB_TYPE", "ADMIN_USER_IDS", "ENABLE_SCHEDULER"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, cfg.LessonStartTimeout)
	assert.Equal(t, 60*time.Minute, cfg.WatchedTimeout)
	assert.Equal(t, 45*time.Minute, cfg.TestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.NotificationCheckInterval)
	assert.Equal(t, 8, cfg.NotificationStartHour)
	assert.Equal(t, 22, cfg.NotificationEndHour)
	assert.Equal(t, AttemptStoreMemory, cfg.AttemptStore)
	assert.Equal(t, 24*time.Hour, cfg.AttemptTTL)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.True(t, cfg.EnableScheduler)
	assert.Empty(t, cfg.AdminUserIDs)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", "10")
	t.Setenv("NOTIFICATION_END_HOUR", "99")
	t.Setenv("ATTEMPT_STORE", "Redis")
	t.Setenv("ATTEMPT_TTL", "2h")
	t.Setenv("ADMIN_USER_IDS", "1, 22 ,333")
	t.Setenv("ENABLE_SCHEDULER", "no")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.TestTimeout)
	assert.Equal(t, 22, cfg.NotificationEndHour)
	assert.Equal(t, AttemptStoreRedis, cfg.AttemptStore)
	assert.Equal(t, 2*time.Hour, cfg.AttemptTTL)
	assert.Equal(t, []int64{1, 22, 333}, cfg.AdminUserIDs)
	assert.False(t, cfg.EnableScheduler)
}

func TestFromEnvBadAdminID(t *testing.T) {
	t.Setenv("ADMIN_USER_IDS", "1,abc")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{TelegramToken: "x", AttemptStore: AttemptStoreMemory, NotificationStartHour: 8, NotificationEndHour: 22}
	assert.NoError(t, cfg.Validate())

	noToken := cfg
	noToken.TelegramToken = ""
	assert.Error(t, noToken.Validate())

	badStore := cfg
	badStore.AttemptStore = "etcd"
	assert.Error(t, badStore.Validate())

	badHours := cfg
	badHours.NotificationStartHour = 23
	assert.Error(t, badHours.Validate())

	api := cfg
	api.EnableAdminAPI = true
	assert.Error(t, api.Validate())
	api.JWTSecret, api.AdminPassHash = "s", "h"
	assert.NoError(t, api.Validate())
}
