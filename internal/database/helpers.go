package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/coursebot/pkg/models"
)

// wrapErr maps sql.ErrNoRows to models.ErrNotFound
func wrapErr(err error, action string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to %s: %w", action, models.ErrNotFound)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// Timestamps are stored in UTC so sqlite text comparisons stay ordered
func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
