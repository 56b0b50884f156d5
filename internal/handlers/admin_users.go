// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"fastodigama/internal/middleware"
	"fastodigama/internal/render"
	"fastodigama/internal/store"
)

const usersPath = "/admin/users"

// UsersList renders all accounts.
func (a *Admin) UsersList(w http.ResponseWriter, r *http.Request) {
	a.renderUsers(w, r, http.StatusOK, "")
}

func (a *Admin) renderUsers(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	users, err := a.stores.Users.List(r.Context())
	if err != nil {
		slog.Error("list users failed", "error", err)
		errMsg = "Could not load users."
	}
	a.renderer.PageStatus(w, r, status, "users_list", &render.PageData{
		Title:   "Manage Users",
		Section: "users",
		Error:   errMsg,
		Data:    map[string]any{"Users": users},
	})
}

// targetUser reads ?username= and checks the account exists, redirecting
// to the list otherwise.
func (a *Admin) targetUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	username := formValue(r, "username")
	if username == "" {
		seeOther(w, r, usersPath)
		return "", false
	}
	user, err := a.stores.Users.FindByUsername(r.Context(), username)
	if err != nil {
		slog.Error("user lookup failed", "error", err)
	}
	if user == nil {
		seeOther(w, r, usersPath)
		return "", false
	}
	return user.Username, true
}

// UserResetPage renders the password reset form.
func (a *Admin) UserResetPage(w http.ResponseWriter, r *http.Request) {
	username, ok := a.targetUser(w, r)
	if !ok {
		return
	}
	a.renderReset(w, r, username, "")
}

func (a *Admin) renderReset(w http.ResponseWriter, r *http.Request, username, errMsg string) {
	a.renderer.Page(w, r, "users_reset", &render.PageData{
		Title:   "Reset Password",
		Section: "users",
		Error:   errMsg,
		Data:    map[string]any{"Target": username},
	})
}

// UserResetSubmit sets a new password once it is confirmed.
func (a *Admin) UserResetSubmit(w http.ResponseWriter, r *http.Request) {
	form := resetPasswordForm{
		Username: formValue(r, "username"),
		Password: r.FormValue("password"),
		Confirm:  r.FormValue("confirm"),
	}
	if form.Username == "" {
		seeOther(w, r, usersPath)
		return
	}
	if msg := checkForm(form); msg != "" {
		a.renderReset(w, r, form.Username, msg)
		return
	}

	err := a.stores.Users.ResetPassword(r.Context(), form.Username, form.Password)
	if errors.Is(err, store.ErrNotFound) {
		seeOther(w, r, usersPath)
		return
	}
	if err != nil {
		slog.Error("reset password failed", "error", err)
		a.renderReset(w, r, form.Username, "Error resetting password")
		return
	}

	slog.Info("password reset", "username", form.Username, "by", middleware.CurrentUsername(r.Context()))
	seeOther(w, r, usersPath)
}

// UserEditPage renders the rename form.
func (a *Admin) UserEditPage(w http.ResponseWriter, r *http.Request) {
	username, ok := a.targetUser(w, r)
	if !ok {
		return
	}
	a.renderRename(w, r, username, username, "")
}

func (a *Admin) renderRename(w http.ResponseWriter, r *http.Request, username, newUsername, errMsg string) {
	a.renderer.Page(w, r, "users_edit", &render.PageData{
		Title:   "Edit User",
		Section: "users",
		Error:   errMsg,
		Data: map[string]any{
			"Target":      username,
			"NewUsername": newUsername,
		},
	})
}

// UserEditSubmit renames an account. Renaming yourself also updates the
// session so you stay logged in under the new name.
func (a *Admin) UserEditSubmit(w http.ResponseWriter, r *http.Request) {
	form := renameForm{
		Username:    formValue(r, "username"),
		NewUsername: formValue(r, "new_username"),
	}
	if form.Username == "" {
		seeOther(w, r, usersPath)
		return
	}
	if msg := checkForm(form); msg != "" {
		a.renderRename(w, r, form.Username, form.NewUsername, msg)
		return
	}

	err := a.stores.Users.UpdateUsername(r.Context(), form.Username, form.NewUsername)
	switch {
	case errors.Is(err, store.ErrNotFound):
		seeOther(w, r, usersPath)
		return
	case errors.Is(err, store.ErrUsernameTaken):
		a.renderRename(w, r, form.Username, form.NewUsername, err.Error())
		return
	case err != nil:
		slog.Error("rename user failed", "error", err)
		a.renderRename(w, r, form.Username, form.NewUsername, "Error updating username")
		return
	}

	if sess := middleware.SessionFromCtx(r.Context()); sess.Authenticated() && sess.Username == form.Username {
		renamed := *sess
		renamed.Username = form.NewUsername
		if err := a.sessions.Update(r.Context(), r, &renamed); err != nil {
			slog.Error("session update after rename failed", "error", err)
		}
	}

	slog.Info("user renamed", "from", form.Username, "to", form.NewUsername)
	seeOther(w, r, usersPath)
}

// UserDelete removes an account. Deleting your own account is refused.
func (a *Admin) UserDelete(w http.ResponseWriter, r *http.Request) {
	username := formValue(r, "username")
	if username == "" {
		seeOther(w, r, usersPath)
		return
	}
	if username == middleware.CurrentUsername(r.Context()) {
		a.renderUsers(w, r, http.StatusBadRequest, "You cannot delete your own account.")
		return
	}

	err := a.stores.Users.Delete(r.Context(), username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("delete user failed", "error", err)
		a.renderUsers(w, r, http.StatusInternalServerError, "Error deleting user")
		return
	}
	if err == nil {
		slog.Info("user deleted", "username", username, "by", middleware.CurrentUsername(r.Context()))
	}
	seeOther(w, r, usersPath)
}
