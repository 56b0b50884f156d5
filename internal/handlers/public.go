// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fastodigama/internal/cache"
	"fastodigama/internal/markdown"
	"fastodigama/internal/middleware"
	"fastodigama/internal/models"
	"fastodigama/internal/render"
	"fastodigama/internal/store"
)

// Public groups the unauthenticated handlers: the landing page, the
// health check and the JSON API consumed by the frontend. API responses
// are served from the Valkey cache when present and stored on a miss.
type Public struct {
	renderer *render.Renderer
	stores   Stores
	apiCache *cache.APICache
}

// NewPublic creates a new Public handler group. apiCache may be nil.
func NewPublic(renderer *render.Renderer, stores Stores, apiCache *cache.APICache) *Public {
	return &Public{
		renderer: renderer,
		stores:   stores,
		apiCache: apiCache,
	}
}

// recentInvalidations is how many cache log entries the home page lists.
const recentInvalidations = 10

// Home renders the landing page. Logged-in users also see content counts
// and the latest API cache invalidations.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{}
	if middleware.CurrentUsername(r.Context()) != "" {
		var (
			articles, categories, links, users int
			invalidations                      []store.CacheLogEntry
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() (err error) { articles, err = p.stores.Articles.Count(ctx); return })
		g.Go(func() (err error) { categories, err = p.stores.Categories.Count(ctx); return })
		g.Go(func() (err error) { links, err = p.stores.MenuLinks.Count(ctx); return })
		g.Go(func() (err error) { users, err = p.stores.Users.Count(ctx); return })
		g.Go(func() (err error) {
			invalidations, err = p.stores.CacheLog.RecentEntries(ctx, recentInvalidations)
			return
		})
		if err := g.Wait(); err != nil {
			slog.Error("load home summary failed", "error", err)
		}
		data["ArticleCount"] = articles
		data["CategoryCount"] = categories
		data["MenuLinkCount"] = links
		data["UserCount"] = users
		data["Invalidations"] = invalidations
	}

	p.renderer.Page(w, r, "home", &render.PageData{
		Title:   "FASTODIGAMA",
		Section: "home",
		Data:    data,
	})
}

// Health reports that the process is serving requests.
func (p *Public) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// APIMenuLinks returns every menu link ordered by weight.
func (p *Public) APIMenuLinks(w http.ResponseWriter, r *http.Request) {
	if p.serveCached(w, r) {
		return
	}
	links, err := p.stores.MenuLinks.List(r.Context())
	if err != nil {
		slog.Error("api list menu links failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Could not load menu links")
		return
	}
	if links == nil {
		links = []models.MenuLink{}
	}
	p.writeCached(w, r, links)
}

// APIArticles returns one page of articles. Query parameters: page,
// limit, search and category (a category id).
func (p *Public) APIArticles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := models.ArticleQuery{
		Page:     atoiOr(query.Get("page"), 1),
		PageSize: atoiOr(query.Get("limit"), models.DefaultPageSize),
		Search:   strings.TrimSpace(query.Get("search")),
	}
	if !utf8.ValidString(q.Search) {
		writeMessage(w, http.StatusBadRequest, "Invalid search")
		return
	}
	if raw := strings.TrimSpace(query.Get("category")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid category id")
			return
		}
		q.CategoryID = &id
	}

	if p.serveCached(w, r) {
		return
	}
	page, err := p.stores.Articles.List(r.Context(), q)
	if err != nil {
		slog.Error("api list articles failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Could not load articles")
		return
	}
	if page.Items == nil {
		page.Items = []models.Article{}
	}
	p.writeCached(w, r, page)
}

// articleResponse is an article with its markdown rendered to HTML.
type articleResponse struct {
	*models.Article
	HTML string `json:"html"`
}

// APIArticle returns a single article by id with its category populated.
func (p *Public) APIArticle(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Article not found")
		return
	}

	if p.serveCached(w, r) {
		return
	}
	art, err := p.stores.Articles.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("api article lookup failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Could not load article")
		return
	}
	if art == nil {
		writeMessage(w, http.StatusNotFound, "Article not found")
		return
	}

	html, err := markdown.ToHTML(art.Text)
	if err != nil {
		slog.Warn("markdown render failed", "id", art.ID, "error", err)
	}
	p.writeCached(w, r, articleResponse{Article: art, HTML: html})
}

// serveCached writes the cached body for the request URI, if any.
func (p *Public) serveCached(w http.ResponseWriter, r *http.Request) bool {
	if p.apiCache == nil {
		return false
	}
	body, ok := p.apiCache.Get(r.Context(), r.URL.RequestURI())
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "HIT")
	_, _ = w.Write(body)
	return true
}

// writeCached encodes v, stores it in the cache and writes it.
func (p *Public) writeCached(w http.ResponseWriter, r *http.Request, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("api encode failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if p.apiCache != nil {
		p.apiCache.Set(r.Context(), r.URL.RequestURI(), body)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json response write failed", "error", err)
	}
}

// writeMessage writes the API error shape {"message": ...}.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
