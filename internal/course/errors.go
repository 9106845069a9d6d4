package course

import (
	"errors"
	"fmt"

	"github.com/example/coursebot/pkg/models"
)

var (
	ErrNoCourse     = fmt.Errorf("%w: no active course", models.ErrNotFound)
	ErrNoProgress   = fmt.Errorf("%w: no progress record", models.ErrNotFound)
	ErrNoLesson     = fmt.Errorf("%w: no lesson at current position", models.ErrNotFound)
	ErrNoTest       = fmt.Errorf("%w: lesson has no test", models.ErrNotFound)
	ErrNoActiveTest = fmt.Errorf("%w: no active test attempt", models.ErrNotFound)

	// ErrInvalidTransition means the event is not allowed in the current phase.
	// It usually points at a stale keyboard or a duplicate button press.
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrNotWatching       = fmt.Errorf("%w: not watching a lesson", ErrInvalidTransition)
	ErrNotTakingTest     = fmt.Errorf("%w: not taking a test", ErrInvalidTransition)

	// ErrStaleEvent means the event was produced for a position the learner has already left
	ErrStaleEvent = errors.New("stale or duplicate event")
)
