// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// Command fastodigama runs the FASTODIGAMA admin server and its
// maintenance tasks.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"fastodigama/internal/config"
	"fastodigama/internal/database"
)

var rootCmd = &cobra.Command{
	Use:   "fastodigama",
	Short: "FASTODIGAMA news admin and public JSON API",
	// Running the binary without a subcommand starts the server.
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the default logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())
	return cfg, nil
}

// openDB connects and applies pending migrations.
func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
