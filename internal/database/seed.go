// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCategories are inserted when the categories table is empty.
var DefaultCategories = []string{"Latest", "World", "Cars", "Wellness"}

// DefaultMenuLink is a navigation entry inserted when menu_links is empty.
type DefaultMenuLink struct {
	Weight int
	Name   string
	Path   string
}

// DefaultMenuLinks are inserted when the menu_links table is empty.
var DefaultMenuLinks = []DefaultMenuLink{
	{Weight: 1, Name: "Home", Path: "/"},
	{Weight: 2, Name: "Articles Admin", Path: "/articles"},
}

// SeedOptions controls the optional parts of Seed.
type SeedOptions struct {
	// AdminUsername and AdminPassword create a first account when the
	// users table is empty. Leave AdminUsername blank to skip.
	AdminUsername string
	AdminPassword string
	BcryptCost    int
}

// Seed inserts default categories, menu links and optionally an admin
// account. Each table is only touched when it is empty, so Seed can run
// on every start.
func Seed(ctx context.Context, db *sql.DB, opts SeedOptions) error {
	if err := seedCategories(ctx, db); err != nil {
		return err
	}
	if err := seedMenuLinks(ctx, db); err != nil {
		return err
	}
	if opts.AdminUsername != "" {
		if err := seedAdmin(ctx, db, opts); err != nil {
			return err
		}
	}
	return nil
}

func tableEmpty(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+`)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("seed check %s: %w", table, err)
	}
	return !exists, nil
}

func seedCategories(ctx context.Context, db *sql.DB) error {
	empty, err := tableEmpty(ctx, db, "categories")
	if err != nil || !empty {
		return err
	}

	for _, name := range DefaultCategories {
		if _, err := db.ExecContext(ctx, `INSERT INTO categories (name) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	slog.Info("seeded default categories", "count", len(DefaultCategories))
	return nil
}

func seedMenuLinks(ctx context.Context, db *sql.DB) error {
	empty, err := tableEmpty(ctx, db, "menu_links")
	if err != nil || !empty {
		return err
	}

	for _, l := range DefaultMenuLinks {
		_, err := db.ExecContext(ctx,
			`INSERT INTO menu_links (weight, name, path) VALUES ($1, $2, $3)`,
			l.Weight, l.Name, l.Path,
		)
		if err != nil {
			return fmt.Errorf("seed menu link %q: %w", l.Name, err)
		}
	}
	slog.Info("seeded default menu links", "count", len(DefaultMenuLinks))
	return nil
}

func seedAdmin(ctx context.Context, db *sql.DB, opts SeedOptions) error {
	empty, err := tableEmpty(ctx, db, "users")
	if err != nil || !empty {
		return err
	}

	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), cost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2)`,
		opts.AdminUsername, string(hash),
	)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	slog.Info("seeded default admin user", "username", opts.AdminUsername)
	return nil
}
