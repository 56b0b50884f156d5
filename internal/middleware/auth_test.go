// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fastodigama/internal/session"

	"github.com/google/uuid"
)

// fakeSessions stands in for the Valkey-backed session store.
type fakeSessions struct {
	data   *session.Data
	err    error
	saved  *session.Data
	saveFn func() error
}

func (f *fakeSessions) Get(ctx context.Context, r *http.Request) (*session.Data, error) {
	return f.data, f.err
}

func (f *fakeSessions) Save(ctx context.Context, w http.ResponseWriter, r *http.Request, data *session.Data) error {
	copied := *data
	f.saved = &copied
	if f.saveFn != nil {
		return f.saveFn()
	}
	return nil
}

func loggedIn(username string) *session.Data {
	return &session.Data{LoggedIn: true, UserID: uuid.New(), Username: username}
}

func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, SessionKey, data)
}

// okHandler is a simple handler that records whether it was invoked.
func okHandler() (http.Handler, *bool) {
	var called bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	return h, &called
}

func TestSessionFromCtx(t *testing.T) {
	sess := loggedIn("alice")
	if got := SessionFromCtx(ctxWithSession(context.Background(), sess)); got != sess {
		t.Errorf("got %+v, want %+v", got, sess)
	}
	if got := SessionFromCtx(context.Background()); got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
	if got := SessionFromCtx(context.WithValue(context.Background(), SessionKey, "nope")); got != nil {
		t.Errorf("expected nil for wrong type, got %+v", got)
	}
}

func TestCurrentUsername(t *testing.T) {
	if got := CurrentUsername(ctxWithSession(context.Background(), loggedIn("bob"))); got != "bob" {
		t.Errorf("got %q, want bob", got)
	}
	pending := &session.Data{PendingUserID: uuid.New()}
	if got := CurrentUsername(ctxWithSession(context.Background(), pending)); got != "" {
		t.Errorf("pending 2FA session should be anonymous, got %q", got)
	}
}

func TestLoadSession(t *testing.T) {
	t.Run("stores session on context", func(t *testing.T) {
		store := &fakeSessions{data: loggedIn("alice")}
		var got *session.Data
		h := LoadSession(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = SessionFromCtx(r.Context())
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/user", nil))
		if got == nil || got.Username != "alice" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("store error continues anonymously", func(t *testing.T) {
		store := &fakeSessions{err: errors.New("valkey down")}
		inner, called := okHandler()
		var got *session.Data
		h := LoadSession(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = SessionFromCtx(r.Context())
			inner.ServeHTTP(w, r)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		if !*called {
			t.Error("next handler should run")
		}
		if got != nil {
			t.Errorf("expected no session, got %+v", got)
		}
	})
}

func TestRequireAuth(t *testing.T) {
	t.Run("passes through when logged in", func(t *testing.T) {
		store := &fakeSessions{}
		inner, called := okHandler()
		req := httptest.NewRequest(http.MethodGet, "/admin/article", nil)
		req = req.WithContext(ctxWithSession(req.Context(), loggedIn("alice")))
		rr := httptest.NewRecorder()
		RequireAuth(store)(inner).ServeHTTP(rr, req)

		if !*called || rr.Code != http.StatusOK {
			t.Errorf("called=%v status=%d", *called, rr.Code)
		}
		if store.saved != nil {
			t.Error("session should not be written for authenticated requests")
		}
	})

	t.Run("GET remembers request uri", func(t *testing.T) {
		store := &fakeSessions{}
		inner, called := okHandler()
		rr := httptest.NewRecorder()
		RequireAuth(store)(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/article?page=2", nil))

		if *called {
			t.Error("next handler should not run")
		}
		if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != LoginPath {
			t.Errorf("got %d -> %q", rr.Code, rr.Header().Get("Location"))
		}
		if store.saved == nil || store.saved.RedirectURL != "/admin/article?page=2" {
			t.Errorf("saved: %+v", store.saved)
		}
	})

	t.Run("POST remembers referer path", func(t *testing.T) {
		store := &fakeSessions{}
		inner, _ := okHandler()
		req := httptest.NewRequest(http.MethodPost, "/admin/category/add/submit", strings.NewReader(""))
		req.Header.Set("Referer", "http://localhost:8888/admin/category/add")
		RequireAuth(store)(inner).ServeHTTP(httptest.NewRecorder(), req)

		if store.saved == nil || store.saved.RedirectURL != "/admin/category/add" {
			t.Errorf("saved: %+v", store.saved)
		}
	})

	t.Run("POST without referer falls back to request uri", func(t *testing.T) {
		store := &fakeSessions{}
		inner, _ := okHandler()
		rr := httptest.NewRecorder()
		RequireAuth(store)(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/menu/edit/submit", nil))

		if store.saved == nil || store.saved.RedirectURL != "/admin/menu/edit/submit" {
			t.Errorf("saved: %+v", store.saved)
		}
		if rr.Code != http.StatusSeeOther {
			t.Errorf("status: got %d", rr.Code)
		}
	})

	t.Run("pending 2FA session is not authenticated", func(t *testing.T) {
		store := &fakeSessions{}
		inner, called := okHandler()
		pending := &session.Data{PendingUserID: uuid.New()}
		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		req = req.WithContext(ctxWithSession(req.Context(), pending))
		RequireAuth(store)(inner).ServeHTTP(httptest.NewRecorder(), req)

		if *called {
			t.Error("next handler should not run")
		}
		if store.saved == nil || store.saved.PendingUserID != pending.PendingUserID {
			t.Errorf("existing session fields should be kept: %+v", store.saved)
		}
	})

	t.Run("save failure still redirects", func(t *testing.T) {
		store := &fakeSessions{saveFn: func() error { return errors.New("boom") }}
		inner, _ := okHandler()
		rr := httptest.NewRecorder()
		RequireAuth(store)(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/user", nil))
		if rr.Code != http.StatusSeeOther {
			t.Errorf("status: got %d", rr.Code)
		}
	})
}

func TestSafeRedirect(t *testing.T) {
	tests := []struct {
		target string
		want   bool
	}{
		{"/admin/article", true},
		{"/", true},
		{"/user?tab=2fa", true},
		{"", false},
		{"admin", false},
		{"//evil.example", false},
		{"/\\evil.example", false},
		{"https://evil.example/", false},
		{"/ok\r\nSet-Cookie: x", false},
	}
	for _, tt := range tests {
		if got := SafeRedirect(tt.target); got != tt.want {
			t.Errorf("SafeRedirect(%q) = %v, want %v", tt.target, got, tt.want)
		}
	}
}
