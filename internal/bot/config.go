package bot

import (
	"time"
)

// BotConfig represents the configuration for the bot
type BotConfig struct {
	// Long polling timeout in seconds
	UpdateTimeout int
	// Number of update workers. Updates of one chat always go to the same worker.
	Workers int
	// Pause between messages of a broadcast
	BroadcastDelay time.Duration
	// Largest accepted course import file
	MaxImportSize int64
}

// DefaultConfig returns the default bot configuration
func DefaultConfig() *BotConfig {
	return &BotConfig{
		UpdateTimeout:  60,
		Workers:        8,
		BroadcastDelay: 100 * time.Millisecond,
		MaxImportSize:  10 << 20,
	}
}
