// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"fastodigama/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// SessionKey is the context key for the session data.
	SessionKey contextKey = "session"

	// LoginPath is where unauthenticated requests are sent.
	LoginPath = "/login"
)

// SessionLoader reads the session attached to a request.
type SessionLoader interface {
	Get(ctx context.Context, r *http.Request) (*session.Data, error)
}

// SessionSaver persists session data, creating a session when needed.
type SessionSaver interface {
	Save(ctx context.Context, w http.ResponseWriter, r *http.Request, data *session.Data) error
}

// LoadSession retrieves the session from Valkey and stores it in the
// request context. It does not enforce authentication.
func LoadSession(store SessionLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				slog.Warn("session load failed", "error", err, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			if data != nil {
				noteUser(r.Context(), data)
				r = r.WithContext(context.WithValue(r.Context(), SessionKey, data))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth sends requests without a logged-in session to the login
// page. The page the user was after is remembered in the session so the
// login handler can return there: the request URI for GET, the Referer
// for anything else when one is sent. Must run after LoadSession.
func RequireAuth(store SessionSaver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromCtx(r.Context())
			if sess.Authenticated() {
				next.ServeHTTP(w, r)
				return
			}

			if sess == nil {
				sess = &session.Data{}
			}
			target := r.URL.RequestURI()
			if r.Method != http.MethodGet {
				if ref := refererPath(r.Referer()); ref != "" {
					target = ref
				}
			}
			if SafeRedirect(target) {
				sess.RedirectURL = target
				if err := store.Save(r.Context(), w, r, sess); err != nil {
					slog.Error("save redirect target failed", "error", err)
				}
			}

			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		})
	}
}

// SessionFromCtx extracts the session data from the request context.
// Returns nil if no session is loaded.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}

// CurrentUsername returns the logged-in username, or "" for anonymous
// requests.
func CurrentUsername(ctx context.Context) string {
	if sess := SessionFromCtx(ctx); sess.Authenticated() {
		return sess.Username
	}
	return ""
}

// SafeRedirect reports whether target is a same-site relative path.
func SafeRedirect(target string) bool {
	if target == "" || target[0] != '/' {
		return false
	}
	if len(target) > 1 && (target[1] == '/' || target[1] == '\\') {
		return false
	}
	return !strings.ContainsAny(target, "\r\n")
}

// refererPath reduces a Referer header to its path and query.
func refererPath(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return u.RequestURI()
}
