// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// Package session provides Valkey-backed HTTP session management.
// Sessions are identified by a signed cookie and stored as JSON in Valkey
// with automatic TTL expiry.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the name of the session cookie sent to the browser.
	CookieName = "fastodigama_session"

	// DefaultTTL is how long a session lives in Valkey before expiry.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "session:"

	// idLength is the byte length of the random session ID (64 hex chars).
	idLength = 32
)

// ErrNoSession is returned by Update when the request carries no valid
// session cookie.
var ErrNoSession = errors.New("session: no valid session cookie")

// Data is the session payload stored in Valkey.
type Data struct {
	LoggedIn bool      `json:"logged_in"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"user"`

	// RedirectURL is where login sends the user; consumed once.
	RedirectURL string `json:"redirect_url,omitempty"`

	// PendingUserID is set between a correct password and a correct TOTP
	// code for accounts with 2FA enabled.
	PendingUserID uuid.UUID `json:"pending_user_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Authenticated reports whether the session belongs to a logged-in user.
func (d *Data) Authenticated() bool {
	return d != nil && d.LoggedIn && d.Username != ""
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client *redis.Client
	secret []byte
	secure bool
	ttl    time.Duration
}

// NewStore creates a session store backed by the given Valkey client.
// Cookie values are signed with secret; secure marks cookies HTTPS-only.
func NewStore(client *redis.Client, secret string, secure bool) *Store {
	return &Store{
		client: client,
		secret: []byte(secret),
		secure: secure,
		ttl:    DefaultTTL,
	}
}

// Create stores data under a fresh session ID and sets the cookie.
// Returns the session ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	if err := s.put(ctx, id, data); err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.sign(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
	return id, nil
}

// Regenerate discards the request's current session, if any, and stores
// data under a new ID. Used on login so a pre-login ID is never reused.
func (s *Store) Regenerate(ctx context.Context, w http.ResponseWriter, r *http.Request, data *Data) (string, error) {
	if id, ok := s.idFromRequest(r); ok {
		if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
			return "", fmt.Errorf("session regenerate: %w", err)
		}
	}
	data.CreatedAt = time.Time{}
	return s.Create(ctx, w, data)
}

// Get loads the session for the request. Returns nil when there is no
// cookie, the signature is invalid, or the session expired.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	id, ok := s.idFromRequest(r)
	if !ok {
		return nil, nil
	}

	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &data, nil
}

// Update replaces the session data without changing the ID. Resets the TTL.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	id, ok := s.idFromRequest(r)
	if !ok {
		return ErrNoSession
	}
	return s.put(ctx, id, data)
}

// Save writes data to the request's session, creating one if the request
// has none or its session has expired.
func (s *Store) Save(ctx context.Context, w http.ResponseWriter, r *http.Request, data *Data) error {
	if id, ok := s.idFromRequest(r); ok {
		n, err := s.client.Exists(ctx, keyPrefix+id).Result()
		if err != nil {
			return fmt.Errorf("session save: %w", err)
		}
		if n == 1 {
			return s.put(ctx, id, data)
		}
	}
	_, err := s.Create(ctx, w, data)
	return err
}

// Destroy removes the session from Valkey and expires the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, ok := s.idFromRequest(r)
	if !ok {
		return nil
	}

	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		MaxAge:   -1,
	})
	return nil
}

func (s *Store) put(ctx context.Context, id string, data *Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+id, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

// idFromRequest returns the session ID from a correctly signed cookie.
func (s *Store) idFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return s.verify(cookie.Value)
}

// sign returns "<id>.<base64url(hmac-sha256(id))>".
func (s *Store) sign(id string) string {
	return id + "." + s.mac(id)
}

func (s *Store) verify(value string) (string, bool) {
	idx := strings.LastIndexByte(value, '.')
	if idx <= 0 {
		return "", false
	}
	id, sig := value[:idx], value[idx+1:]
	if !hmac.Equal([]byte(sig), []byte(s.mac(id))) {
		return "", false
	}
	return id, true
}

func (s *Store) mac(id string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
