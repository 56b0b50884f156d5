// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the FASTODIGAMA admin
// and its public API. Handlers are grouped by concern (auth, admin,
// public) and receive their dependencies through the handler struct.
package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"fastodigama/internal/cache"
	"fastodigama/internal/imaging"
	"fastodigama/internal/render"
	"fastodigama/internal/session"
	"fastodigama/internal/store"
)

// Stores bundles the database stores shared by the handler groups.
type Stores struct {
	Users      *store.UserStore
	Categories *store.CategoryStore
	Articles   *store.ArticleStore
	MenuLinks  *store.MenuLinkStore
	CacheLog   *store.CacheLogStore
}

// Admin groups the admin panel handlers: users, categories, articles and
// menu links.
type Admin struct {
	renderer *render.Renderer
	sessions *session.Store
	stores   Stores
	images   *imaging.Pipeline
	apiCache *cache.APICache
}

// NewAdmin creates the admin handler group. images may be a pipeline
// without storage and apiCache may be nil.
func NewAdmin(renderer *render.Renderer, sessions *session.Store, stores Stores, images *imaging.Pipeline, apiCache *cache.APICache) *Admin {
	return &Admin{
		renderer: renderer,
		sessions: sessions,
		stores:   stores,
		images:   images,
		apiCache: apiCache,
	}
}

// invalidateAPICache drops every cached API response and records why.
func (a *Admin) invalidateAPICache(ctx context.Context, entityType string, entityID uuid.UUID, action string) {
	ctx = context.WithoutCancel(ctx)
	if a.apiCache != nil {
		a.apiCache.InvalidateAll(ctx)
	}
	if a.stores.CacheLog != nil {
		a.stores.CacheLog.Log(ctx, entityType, entityID, action)
	}
}

// idParam parses a uuid from the query string or form field key.
func idParam(r *http.Request, key string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// seeOther redirects with 303 so a POST is followed by a GET.
func seeOther(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}
