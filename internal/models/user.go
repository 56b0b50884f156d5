// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// MinPasswordLength is the shortest password accepted on register and reset.
const MinPasswordLength = 4

// User is an administrator account. Usernames are unique and compared
// case-sensitively.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	TOTPSecret   *string   `json:"-"`
	TOTPEnabled  bool      `json:"totpEnabled"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Requires2FA reports whether login must be completed with a TOTP code.
func (u *User) Requires2FA() bool {
	return u.TOTPEnabled && u.TOTPSecret != nil && *u.TOTPSecret != ""
}
