package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/coursebot/internal/config"
	"github.com/example/coursebot/internal/database"
	"github.com/example/coursebot/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "coursebot",
	Short:         "Telegram bot for video courses with quizzes",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db-type", "", "Database backend, sqlite or postgres (overrides DB_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "Database DSN or sqlite path (overrides DB_DSN)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(migrateCmd)
}

// applyFlags lets command line flags win over the environment
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("db-type"); v != "" {
		cfg.DBType = v
	}
	if v, _ := cmd.Flags().GetString("db-dsn"); v != "" {
		cfg.DBDSN = v
	}
}

// openStore connects to the database and seeds the configured admins
func openStore(ctx context.Context, cfg config.Config, log *logger.Logger) (*database.Store, error) {
	db, err := database.Connect(database.Config{
		Type:    cfg.DBType,
		DSN:     cfg.DBDSN,
		DataDir: cfg.DataDir,
	})
	if err != nil {
		return nil, err
	}
	store := database.NewStore(db)

	for _, id := range cfg.AdminUserIDs {
		if err := store.Admins.Add(ctx, id); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to seed admin %d: %w", id, err)
		}
	}
	log.Info("database ready", "type", db.DriverName(), "seeded_admins", len(cfg.AdminUserIDs))
	return store, nil
}

// toolEnv loads configuration without requiring a bot token
func toolEnv(cmd *cobra.Command) (config.Config, *logger.Logger, error) {
	cfg, err := config.LoadEnv()
	if err != nil {
		return config.Config{}, nil, err
	}
	applyFlags(cmd, &cfg)
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}
