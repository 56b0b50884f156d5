// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"fastodigama/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		db, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("migrations applied")
		return nil
	},
}

var seedAdmin struct {
	username string
	password string
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert default categories, menu links and optionally a first account",
	Long: `Seed fills empty tables with the default categories and menu links.
With --admin-user and --admin-password it also creates a first account
when no user exists yet. Tables that already hold rows are left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (seedAdmin.username == "") != (seedAdmin.password == "") {
			return errors.New("--admin-user and --admin-password must be given together")
		}
		cfg, err := setup()
		if err != nil {
			return err
		}
		db, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		return database.Seed(cmd.Context(), db, database.SeedOptions{
			AdminUsername: seedAdmin.username,
			AdminPassword: seedAdmin.password,
			BcryptCost:    cfg.BcryptCost,
		})
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAdmin.username, "admin-user", "", "username of the first account")
	seedCmd.Flags().StringVar(&seedAdmin.password, "admin-password", "", "password of the first account")
}
