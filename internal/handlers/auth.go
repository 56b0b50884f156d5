// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"fastodigama/internal/middleware"
	"fastodigama/internal/models"
	"fastodigama/internal/render"
	"fastodigama/internal/session"
	"fastodigama/internal/store"
)

const (
	totpIssuer = "FASTODIGAMA"

	// defaultLoginRedirect is used when no protected page was requested
	// before login.
	defaultLoginRedirect = "/user"

	msgLoginFailed   = "Invalid username or password."
	msgUnexpected    = "An unexpected error occurred."
	msgInvalidCode   = "Invalid code. Please try again."
	msgRegisterClose = "Registration is closed."
)

// Auth groups the authentication and account handlers.
type Auth struct {
	renderer         *render.Renderer
	sessions         *session.Store
	users            *store.UserStore
	registrationOpen bool
}

// NewAuth creates a new Auth handler group.
func NewAuth(renderer *render.Renderer, sessions *session.Store, users *store.UserStore, registrationOpen bool) *Auth {
	return &Auth{
		renderer:         renderer,
		sessions:         sessions,
		users:            users,
		registrationOpen: registrationOpen,
	}
}

// LoginPage renders the login form.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromCtx(r.Context()).Authenticated() {
		seeOther(w, r, defaultLoginRedirect)
		return
	}
	a.renderLogin(w, r, "", "")
}

func (a *Auth) renderLogin(w http.ResponseWriter, r *http.Request, username, errMsg string) {
	a.renderer.Page(w, r, "login", &render.PageData{
		Title: "Login",
		Error: errMsg,
		Data: map[string]any{
			"Username":         username,
			"RegistrationOpen": a.registrationOpen,
		},
	})
}

// LoginSubmit checks the credentials. Accounts with two-factor login
// enabled continue at /login/2fa; everyone else is logged in directly.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	form := loginForm{
		Username: formValue(r, "username"),
		Password: r.FormValue("password"),
	}
	if msg := checkForm(form); msg != "" {
		a.renderLogin(w, r, form.Username, msg)
		return
	}

	user, err := a.users.Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		slog.Error("login lookup failed", "error", err)
		a.renderLogin(w, r, form.Username, msgUnexpected)
		return
	}
	if user == nil {
		slog.Info("login failed", "username", form.Username)
		a.renderLogin(w, r, form.Username, msgLoginFailed)
		return
	}

	if user.Requires2FA() {
		pending := &session.Data{PendingUserID: user.ID}
		if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
			pending.RedirectURL = sess.RedirectURL
		}
		if err := a.sessions.Save(r.Context(), w, r, pending); err != nil {
			slog.Error("session save failed", "error", err)
			a.renderLogin(w, r, form.Username, msgUnexpected)
			return
		}
		seeOther(w, r, "/login/2fa")
		return
	}

	a.completeLogin(w, r, user)
}

// completeLogin replaces the session with a logged-in one and sends the
// user to the page they originally asked for. The stored target is not
// copied into the new session, so it is used exactly once.
func (a *Auth) completeLogin(w http.ResponseWriter, r *http.Request, user *models.User) {
	target := defaultLoginRedirect
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil && middleware.SafeRedirect(sess.RedirectURL) {
		target = sess.RedirectURL
	}

	_, err := a.sessions.Regenerate(r.Context(), w, r, &session.Data{
		LoggedIn: true,
		UserID:   user.ID,
		Username: user.Username,
	})
	if err != nil {
		slog.Error("session create failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	slog.Info("user logged in", "username", user.Username)
	seeOther(w, r, target)
}

// pendingUser returns the account waiting for its second factor.
func (a *Auth) pendingUser(ctx context.Context) (*models.User, error) {
	sess := middleware.SessionFromCtx(ctx)
	if sess == nil || sess.PendingUserID == uuid.Nil {
		return nil, nil
	}
	return a.users.FindByID(ctx, sess.PendingUserID)
}

// Login2FAPage renders the code form for a login waiting on its second
// factor.
func (a *Auth) Login2FAPage(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil || sess.PendingUserID == uuid.Nil {
		seeOther(w, r, "/login")
		return
	}
	a.renderer.Page(w, r, "login_2fa", &render.PageData{Title: "Two-Factor Login"})
}

// Login2FASubmit validates the TOTP code and completes the login.
func (a *Auth) Login2FASubmit(w http.ResponseWriter, r *http.Request) {
	user, err := a.pendingUser(r.Context())
	if err != nil {
		slog.Error("pending user lookup failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if user == nil || !user.Requires2FA() {
		seeOther(w, r, "/login")
		return
	}

	form := codeForm{Code: formValue(r, "code")}
	msg := checkForm(form)
	if msg == "" && !totp.Validate(form.Code, *user.TOTPSecret) {
		msg = msgInvalidCode
	}
	if msg != "" {
		slog.Info("2fa code rejected", "username", user.Username)
		a.renderer.Page(w, r, "login_2fa", &render.PageData{Title: "Two-Factor Login", Error: msg})
		return
	}

	a.completeLogin(w, r, user)
}

// RegisterPage renders the registration form.
func (a *Auth) RegisterPage(w http.ResponseWriter, r *http.Request) {
	a.renderRegister(w, r, http.StatusOK, "", "")
}

func (a *Auth) renderRegister(w http.ResponseWriter, r *http.Request, status int, username, errMsg string) {
	a.renderer.PageStatus(w, r, status, "register", &render.PageData{
		Title: "Register",
		Error: errMsg,
		Data: map[string]any{
			"Username":         username,
			"RegistrationOpen": a.registrationOpen,
		},
	})
}

// RegisterSubmit creates an account and sends the user to the login form.
func (a *Auth) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if !a.registrationOpen {
		a.renderRegister(w, r, http.StatusForbidden, "", msgRegisterClose)
		return
	}

	form := registerForm{
		Username: formValue(r, "username"),
		Password: r.FormValue("password"),
	}
	if msg := checkForm(form); msg != "" {
		a.renderRegister(w, r, http.StatusOK, form.Username, msg)
		return
	}

	user, err := a.users.Create(r.Context(), form.Username, form.Password)
	if errors.Is(err, store.ErrUsernameTaken) {
		a.renderRegister(w, r, http.StatusOK, form.Username, err.Error())
		return
	}
	if err != nil {
		slog.Error("register failed", "error", err)
		a.renderRegister(w, r, http.StatusOK, form.Username, msgUnexpected)
		return
	}

	slog.Info("user registered", "username", user.Username)
	seeOther(w, r, "/login")
}

// Logout destroys the session and returns to the landing page.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}
	seeOther(w, r, "/")
}

// currentUser loads the account of the logged-in user. A session whose
// account was deleted is destroyed and the user sent to /login; ok is
// false whenever a response has already been written.
func (a *Auth) currentUser(w http.ResponseWriter, r *http.Request) (user *models.User, ok bool) {
	username := middleware.CurrentUsername(r.Context())
	user, err := a.users.FindByUsername(r.Context(), username)
	if err != nil {
		slog.Error("current user lookup failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}
	if user == nil {
		_ = a.sessions.Destroy(r.Context(), w, r)
		seeOther(w, r, "/login")
		return nil, false
	}
	return user, true
}

// UserPage renders the account page of the logged-in user.
func (a *Auth) UserPage(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	a.renderUser(w, r, user, "")
}

func (a *Auth) renderUser(w http.ResponseWriter, r *http.Request, user *models.User, errMsg string) {
	a.renderer.Page(w, r, "user", &render.PageData{
		Title:   "My Account",
		Section: "user",
		Error:   errMsg,
		Data:    map[string]any{"User": user},
	})
}

// TwoFASetupPage generates a fresh TOTP secret and displays its QR code.
func (a *Auth) TwoFASetupPage(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	if user.Requires2FA() {
		seeOther(w, r, "/user")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Username,
	})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := a.users.SetTOTPSecret(r.Context(), user.ID, key.Secret()); err != nil {
		slog.Error("save totp secret failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	a.renderSetup(w, r, key, "")
}

func (a *Auth) renderSetup(w http.ResponseWriter, r *http.Request, key *otp.Key, errMsg string) {
	qr, err := qrDataURI(key.URL())
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	a.renderer.Page(w, r, "twofa_setup", &render.PageData{
		Title:   "Set Up Two-Factor Login",
		Section: "user",
		Error:   errMsg,
		Data: map[string]any{
			"QRCode": qr,
			"Secret": key.Secret(),
		},
	})
}

// TwoFASetupSubmit confirms enrollment with a code from the app.
func (a *Auth) TwoFASetupSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		seeOther(w, r, "/user/2fa/setup")
		return
	}

	form := codeForm{Code: formValue(r, "code")}
	msg := checkForm(form)
	if msg == "" && !totp.Validate(form.Code, *user.TOTPSecret) {
		msg = msgInvalidCode
	}
	if msg != "" {
		key, err := totpKey(user.Username, *user.TOTPSecret)
		if err != nil {
			slog.Error("rebuild totp key failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		a.renderSetup(w, r, key, msg)
		return
	}

	if err := a.users.EnableTOTP(r.Context(), user.ID); err != nil {
		slog.Error("enable totp failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	slog.Info("2fa enabled", "username", user.Username)
	seeOther(w, r, "/user")
}

// TwoFADisable turns two-factor login off after checking a current code.
func (a *Auth) TwoFADisable(w http.ResponseWriter, r *http.Request) {
	user, ok := a.currentUser(w, r)
	if !ok {
		return
	}
	if !user.Requires2FA() {
		seeOther(w, r, "/user")
		return
	}

	form := codeForm{Code: formValue(r, "code")}
	msg := checkForm(form)
	if msg == "" && !totp.Validate(form.Code, *user.TOTPSecret) {
		msg = msgInvalidCode
	}
	if msg != "" {
		a.renderUser(w, r, user, msg)
		return
	}

	if err := a.users.DisableTOTP(r.Context(), user.ID); err != nil {
		slog.Error("disable totp failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	slog.Info("2fa disabled", "username", user.Username)
	seeOther(w, r, "/user")
}

// totpKey rebuilds the provisioning key for a stored base32 secret so
// the QR code can be shown again while enrollment is pending.
func totpKey(account, secret string) (*otp.Key, error) {
	raw, err := base32.StdEncoding.WithPadding(base32.NoPadding).
		DecodeString(strings.ToUpper(strings.TrimRight(secret, "=")))
	if err != nil {
		return nil, fmt.Errorf("decode totp secret: %w", err)
	}
	return totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: account,
		Secret:      raw,
	})
}

// qrDataURI renders content as a PNG QR code inside a data: URI.
func qrDataURI(content string) (template.URL, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)), nil
}
