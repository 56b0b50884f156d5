// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"fastodigama/internal/cache"
	"fastodigama/internal/database"
	"fastodigama/internal/imaging"
	"fastodigama/internal/middleware"
	"fastodigama/internal/render"
	"fastodigama/internal/session"
	"fastodigama/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "fastodigama")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "fastodigama")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		for _, pattern := range []string{"session:*", "api:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// memObjects is an in-memory object store for image uploads.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func (m *memObjects) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memObjects) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memObjects) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB       *sql.DB
	Valkey   *redis.Client
	Renderer *render.Renderer
	Sessions *session.Store
	Stores   Stores
	APICache *cache.APICache
	Objects  *memObjects
	Admin    *Admin
	Auth     *Auth
	Public   *Public
}

// newTestEnv creates a complete test environment with all handler dependencies.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	renderer, err := render.New()
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	sessions := session.NewStore(vk, "test-secret", false)
	stores := Stores{
		Users:      store.NewUserStore(db, bcrypt.MinCost),
		Categories: store.NewCategoryStore(db),
		Articles:   store.NewArticleStore(db),
		MenuLinks:  store.NewMenuLinkStore(db),
		CacheLog:   store.NewCacheLogStore(db),
	}
	apiCache := cache.NewAPICache(vk, time.Minute)
	objects := newMemObjects()
	pipeline := imaging.NewPipeline(objects, imaging.NewGoProcessor(), 400)

	return &testEnv{
		DB:       db,
		Valkey:   vk,
		Renderer: renderer,
		Sessions: sessions,
		Stores:   stores,
		APICache: apiCache,
		Objects:  objects,
		Admin:    NewAdmin(renderer, sessions, stores, pipeline, apiCache),
		Auth:     NewAuth(renderer, sessions, stores.Users, true),
		Public:   NewPublic(renderer, stores, apiCache),
	}
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// loggedIn returns a logged-in session for username.
func loggedIn(userID uuid.UUID, username string) *session.Data {
	return &session.Data{LoggedIn: true, UserID: userID, Username: username}
}

// uniqueName returns a name that will not collide between test runs.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// postForm builds a urlencoded POST request, optionally carrying a session.
func postForm(target string, form url.Values, sess *session.Data) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sess != nil {
		req = req.WithContext(ctxWithSession(req.Context(), sess))
	}
	return req
}

// getWith builds a GET request, optionally carrying a session.
func getWith(target string, sess *session.Data) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if sess != nil {
		req = req.WithContext(ctxWithSession(req.Context(), sess))
	}
	return req
}

// multipartFile is one file part of a multipart request.
type multipartFile struct {
	field, name string
	data        []byte
}

// postMultipart builds a multipart/form-data POST request.
func postMultipart(t *testing.T, target string, fields url.Values, files []multipartFile, sess *session.Data) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for key, values := range fields {
		for _, v := range values {
			if err := mw.WriteField(key, v); err != nil {
				t.Fatalf("write field: %v", err)
			}
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(f.data)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if sess != nil {
		req = req.WithContext(ctxWithSession(req.Context(), sess))
	}
	return req
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// createUser inserts a user and removes it when the test ends.
func createUser(t *testing.T, env *testEnv, username, password string) uuid.UUID {
	t.Helper()
	u, err := env.Stores.Users.Create(context.Background(), username, password)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() { cleanUsers(env.DB, username) })
	return u.ID
}

// cleanUsers removes test users by username.
func cleanUsers(db *sql.DB, usernames ...string) {
	for _, u := range usernames {
		db.Exec("DELETE FROM users WHERE username = $1", u)
	}
}

// createCategory inserts a category and removes it, with any articles
// referencing it, when the test ends.
func createCategory(t *testing.T, env *testEnv, name string) uuid.UUID {
	t.Helper()
	c, err := env.Stores.Categories.Create(context.Background(), name)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	t.Cleanup(func() {
		env.DB.Exec("DELETE FROM articles WHERE category_id = $1", c.ID)
		env.DB.Exec("DELETE FROM categories WHERE id = $1", c.ID)
	})
	return c.ID
}

// assertRedirect checks for a 303 to want.
func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want 303; body: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != want {
		t.Errorf("Location: got %q, want %q", loc, want)
	}
}
