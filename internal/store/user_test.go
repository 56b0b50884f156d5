// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestUserStoreCreate(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db, 4)
	ctx := context.Background()

	name := "store-test-create"
	t.Cleanup(func() { cleanUsers(db, name) })

	user, err := s.Create(ctx, name, "testpass123")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID == uuid.Nil {
		t.Error("expected non-nil UUID")
	}
	if user.Username != name {
		t.Errorf("username: got %q, want %q", user.Username, name)
	}
	if user.PasswordHash == "" || user.PasswordHash == "testpass123" {
		t.Errorf("password hash not set correctly: %q", user.PasswordHash)
	}
	if user.TOTPEnabled {
		t.Error("expected totp_enabled=false for new user")
	}
}

func TestUserStoreCreateDuplicate(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db, 4)
	ctx := context.Background()

	name := "store-test-dup"
	t.Cleanup(func() { cleanUsers(db, name, "Store-Test-Dup") })

	if _, err := s.Create(ctx, name, "pass1"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	before, _ := s.Count(ctx)

	_, err := s.Create(ctx, name, "pass2")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("second Create: got %v, want ErrUsernameTaken", err)
	}
	after, _ := s.Count(ctx)
	if after != before {
		t.Errorf("user count changed on conflict: %d -> %d", before, after)
	}

	// Matching is case-sensitive.
	if _, err := s.Create(ctx, "Store-Test-Dup", "pass3"); err != nil {
		t.Errorf("Create with different case: %v", err)
	}
}

func TestUserStoreAuthenticate(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db, 4)
	ctx := context.Background()

	name := "store-test-auth"
	t.Cleanup(func() { cleanUsers(db, name) })

	if _, err := s.Create(ctx, name, "correct"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		wantOK   bool
	}{
		{"correct credentials", name, "correct", true},
		{"wrong password", name, "wrong", false},
		{"unknown user", "store-test-nobody", "correct", false},
		{"empty password", name, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := s.Authenticate(ctx, tt.username, tt.password)
			if err != nil {
				t.Fatalf("Authenticate: %v", err)
			}
			if (u != nil) != tt.wantOK {
				t.Errorf("Authenticate(%q, %q) ok=%v, want %v", tt.username, tt.password, u != nil, tt.wantOK)
			}
		})
	}
}

func TestUserStoreResetPassword(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db, 4)
	ctx := context.Background()

	name := "store-test-reset"
	t.Cleanup(func() { cleanUsers(db, name) })

	if _, err := s.Create(ctx, name, "old-pass"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.ResetPassword(ctx, name, "new-pass"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	if u, _ := s.Authenticate(ctx, name, "old-pass"); u != nil {
		t.Error("old password still accepted")
	}
	if u, _ := s.Authenticate(ctx, name, "new-pass"); u == nil {
		t.Error("new password rejected")
	}

	if err := s.ResetPassword(ctx, "store-test-missing", "x1234"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ResetPassword unknown: got %v, want ErrNotFound", err)
	}
}

func TestUserStoreUpdateUsername(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db, 4)
	ctx := context.Background()

	a, b, renamed := "store-test-rename-a", "store-test-rename-b", "store-test-rename-c"
	t.Cleanup(func() { cleanUsers(db, a, b, renamed) })

	if _, err := s.Create(ctx, a, "pass"); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if _, err := s.Create(ctx, b, "pass"); err != nil {
		t.Fatalf("Create b: %v", err)
	}

	if err := s.UpdateUsername(ctx, a, b); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("rename onto existing: got %v, want ErrUsernameTaken", err)
	}
	if err := s.UpdateUsername(ctx, a, a); err != nil {
		t.Errorf("rename to same name: %v", err)
	}
	if err := s.UpdateUsername(ctx, a, renamed); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if u, _ := s.FindByUsername(ctx, renamed); u == nil {
		t.Error("renamed user not found")
	}
	if err := s.UpdateUsername(ctx, a, "store-test-whatever"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rename missing: got %v, want ErrNotFound", err)
	}
}

func TestUserStoreListHidesHash(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db, 4)
	ctx := context.Background()

	name := "store-test-list"
	t.Cleanup(func() { cleanUsers(db, name) })
	if _, err := s.Create(ctx, name, "pass"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	users, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	found := false
	for _, u := range users {
		if u.PasswordHash != "" {
			t.Errorf("List leaked password hash for %q", u.Username)
		}
		if u.Username == name {
			found = true
		}
	}
	if !found {
		t.Errorf("List did not include %q", name)
	}
}

func TestUserStoreDeleteAndTOTP(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db, 4)
	ctx := context.Background()

	name := "store-test-delete"
	t.Cleanup(func() { cleanUsers(db, name) })
	u, err := s.Create(ctx, name, "pass")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.SetTOTPSecret(ctx, u.ID, "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("SetTOTPSecret: %v", err)
	}
	if err := s.EnableTOTP(ctx, u.ID); err != nil {
		t.Fatalf("EnableTOTP: %v", err)
	}
	got, _ := s.FindByID(ctx, u.ID)
	if got == nil || !got.Requires2FA() {
		t.Fatal("expected 2FA to be required after enable")
	}
	if err := s.DisableTOTP(ctx, u.ID); err != nil {
		t.Fatalf("DisableTOTP: %v", err)
	}
	got, _ = s.FindByID(ctx, u.ID)
	if got.Requires2FA() || got.TOTPSecret != nil {
		t.Error("expected 2FA cleared after disable")
	}

	if err := s.Delete(ctx, name); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, name); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: got %v, want ErrNotFound", err)
	}
}
