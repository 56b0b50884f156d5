// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// Package store provides database access for all entities. Each store
// wraps a *sql.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fastodigama/internal/models"
)

// UserStore handles all user-related database operations.
type UserStore struct {
	db   *sql.DB
	cost int

	// dummyHash is compared against when the username is unknown so both
	// failure modes cost one bcrypt comparison.
	dummyHash []byte
}

// NewUserStore creates a UserStore hashing new passwords with the given
// bcrypt cost. A zero cost selects bcrypt.DefaultCost.
func NewUserStore(db *sql.DB, cost int) *UserStore {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("fastodigama-dummy"), cost)
	if err != nil {
		// Only fails for an out-of-range cost.
		dummy, _ = bcrypt.GenerateFromPassword([]byte("fastodigama-dummy"), bcrypt.DefaultCost)
		cost = bcrypt.DefaultCost
	}
	return &UserStore{db: db, cost: cost, dummyHash: dummy}
}

const userColumns = `id, username, password_hash, totp_secret, totp_enabled, created_at, updated_at`

func scanUser(scanner interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := scanner.Scan(
		&u.ID, &u.Username, &u.PasswordHash,
		&u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByUsername retrieves a user by exact username. Returns nil if not found.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return u, nil
}

// FindByID retrieves a user by UUID. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

// List returns all users ordered by username. PasswordHash is not loaded.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, totp_enabled, created_at, updated_at
		FROM users ORDER BY username ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Count returns the number of user accounts.
func (s *UserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Create inserts a new user with a bcrypt-hashed password. Returns
// ErrUsernameTaken if the username exists.
func (s *UserStore) Create(ctx context.Context, username, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING `+userColumns,
		username, string(hash),
	)
	u, err := scanUser(row)
	if pgCode(err) == pgUniqueViolation {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when username and password match. An
// unknown username and a wrong password both yield (nil, nil).
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	u, err := s.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, nil
	}
	if !CheckPassword(u, password) {
		return nil, nil
	}
	return u, nil
}

// CheckPassword verifies a plaintext password against the user's stored hash.
func CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// ResetPassword replaces the password of the named user.
func (s *UserStore) ResetPassword(ctx context.Context, username, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1, updated_at = NOW() WHERE username = $2
	`, string(hash), username)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return requireAffected(res, "reset password")
}

// UpdateUsername renames a user. Returns ErrNotFound if oldName does not
// exist and ErrUsernameTaken if newName is in use by someone else.
func (s *UserStore) UpdateUsername(ctx context.Context, oldName, newName string) error {
	if oldName == newName {
		u, err := s.FindByUsername(ctx, oldName)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrNotFound
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET username = $1, updated_at = NOW() WHERE username = $2
	`, newName, oldName)
	if pgCode(err) == pgUniqueViolation {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("update username: %w", err)
	}
	return requireAffected(res, "update username")
}

// Delete removes a user by username.
func (s *UserStore) Delete(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res, "delete user")
}

// SetTOTPSecret stores a pending TOTP secret during 2FA enrollment.
func (s *UserStore) SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = $1, updated_at = NOW() WHERE id = $2
	`, secret, userID)
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	return nil
}

// EnableTOTP marks 2FA as active after a successful code verification.
func (s *UserStore) EnableTOTP(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_enabled = TRUE, updated_at = NOW() WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	return nil
}

// DisableTOTP clears the TOTP secret and turns 2FA off.
func (s *UserStore) DisableTOTP(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = NULL, totp_enabled = FALSE, updated_at = NOW() WHERE id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("disable totp: %w", err)
	}
	return nil
}

// requireAffected maps a zero-row UPDATE or DELETE to ErrNotFound.
func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
