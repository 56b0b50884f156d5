// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned by mutations whose target row does not exist.
	// Lookups return (nil, nil) instead.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken is returned when a username is already in use.
	ErrUsernameTaken = errors.New("User already exists with that username")

	// ErrCategoryInUse is returned when deleting a category that still has articles.
	ErrCategoryInUse = errors.New("category still has articles")

	// ErrCategoryMissing is returned when an article references a category
	// that does not exist.
	ErrCategoryMissing = errors.New("category does not exist")
)

// PostgreSQL error codes checked by the stores.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
