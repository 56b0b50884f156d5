// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// public_test.go covers the landing page, health check and JSON API.
// Tests that need data use real database and Valkey connections and are
// skipped when those services are unavailable.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"fastodigama/internal/models"
	"fastodigama/internal/store"
)

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	(&Public{}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("got %v", body)
	}
}

func TestAPIArticles_InvalidCategory(t *testing.T) {
	rec := httptest.NewRecorder()
	(&Public{}).APIArticles(rec, httptest.NewRequest(http.MethodGet, "/api/articles?category=abc", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["message"] == "" {
		t.Errorf("expected a message, got %v", body)
	}
}

func TestAPIArticles_InvalidUTF8Search(t *testing.T) {
	rec := httptest.NewRecorder()
	(&Public{}).APIArticles(rec, httptest.NewRequest(http.MethodGet, "/api/articles?search=%FF", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["message"] != "Invalid search" {
		t.Errorf("got %v", body)
	}
}

func TestAPIArticle_InvalidID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := withChiURLParam(httptest.NewRequest(http.MethodGet, "/api/article/nope", nil), "id", "nope")
	(&Public{}).APIArticle(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
	var body map[string]string
	decodeJSON(t, rec, &body)
	if body["message"] != "Article not found" {
		t.Errorf("got %v", body)
	}
}

func TestAPIArticle_UnknownID(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.NewString()
	rec := httptest.NewRecorder()
	env.Public.APIArticle(rec, withChiURLParam(httptest.NewRequest(http.MethodGet, "/api/article/"+id, nil), "id", id))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", rec.Code)
	}
}

func TestAPIArticle_Found(t *testing.T) {
	env := newTestEnv(t)
	catName := uniqueName("api-cat")
	catID := createCategory(t, env, catName)
	art, err := env.Stores.Articles.Create(context.Background(), &models.Article{
		Title: "API article", Text: "# Heading\n\nSome *text*.", CategoryID: catID,
		Images: models.ArticleImages{{URL: "https://cdn.test/a.jpg", Key: "a.jpg", Alt: "A"}},
	})
	if err != nil {
		t.Fatalf("create article: %v", err)
	}

	target := "/api/article/" + art.ID.String()
	rec := httptest.NewRecorder()
	env.Public.APIArticle(rec, withChiURLParam(httptest.NewRequest(http.MethodGet, target, nil), "id", art.ID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d; body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		ID       uuid.UUID `json:"id"`
		Title    string    `json:"title"`
		HTML     string    `json:"html"`
		Category struct {
			Name string `json:"name"`
		} `json:"category"`
		Images []struct {
			Alt string `json:"alt"`
		} `json:"images"`
	}
	decodeJSON(t, rec, &body)
	if body.ID != art.ID || body.Title != "API article" {
		t.Errorf("got %+v", body)
	}
	if body.Category.Name != catName {
		t.Errorf("category not populated: %+v", body.Category)
	}
	if !strings.Contains(body.HTML, "<em>text</em>") {
		t.Errorf("html: got %q", body.HTML)
	}
	if len(body.Images) != 1 || body.Images[0].Alt != "A" {
		t.Errorf("images: got %+v", body.Images)
	}

	// Second request is served from Valkey.
	rec = httptest.NewRecorder()
	env.Public.APIArticle(rec, withChiURLParam(httptest.NewRequest(http.MethodGet, target, nil), "id", art.ID.String()))
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Errorf("X-Cache: got %q, want HIT", rec.Header().Get("X-Cache"))
	}
}

func TestAPIArticles_FilterAndPaginate(t *testing.T) {
	env := newTestEnv(t)
	catID := createCategory(t, env, uniqueName("api-list"))
	for i := range 3 {
		_, err := env.Stores.Articles.Create(context.Background(), &models.Article{
			Title: "Listed " + string(rune('A'+i)), Text: "100% organic", CategoryID: catID,
		})
		if err != nil {
			t.Fatalf("create article: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	env.Public.APIArticles(rec, httptest.NewRequest(http.MethodGet,
		"/api/articles?limit=2&page=2&category="+catID.String(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d; body %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Articles   []models.Article `json:"articles"`
		Page       int              `json:"page"`
		Limit      int              `json:"limit"`
		TotalCount int              `json:"totalCount"`
		TotalPages int              `json:"totalPages"`
	}
	decodeJSON(t, rec, &page)
	if page.TotalCount != 3 || page.TotalPages != 2 || page.Page != 2 || page.Limit != 2 {
		t.Errorf("got %+v", page)
	}
	if len(page.Articles) != 1 {
		t.Errorf("articles on page 2: got %d, want 1", len(page.Articles))
	}

	rec = httptest.NewRecorder()
	env.Public.APIArticles(rec, httptest.NewRequest(http.MethodGet,
		"/api/articles?search=zzz-no-match&category="+catID.String(), nil))
	decodeJSON(t, rec, &page)
	if page.TotalCount != 0 || page.Articles == nil {
		t.Errorf("empty result should be an empty array: %s", rec.Body.String())
	}
}

func TestAPIArticles_HugePageIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	catID := createCategory(t, env, uniqueName("api-huge"))
	if _, err := env.Stores.Articles.Create(context.Background(), &models.Article{
		Title: "Only one", Text: "x", CategoryID: catID,
	}); err != nil {
		t.Fatalf("create article: %v", err)
	}

	rec := httptest.NewRecorder()
	env.Public.APIArticles(rec, httptest.NewRequest(http.MethodGet,
		"/api/articles?page=1000000000000000000&category="+catID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d; body %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Articles   []models.Article `json:"articles"`
		TotalCount int              `json:"totalCount"`
	}
	decodeJSON(t, rec, &page)
	if len(page.Articles) != 0 || page.TotalCount != 1 {
		t.Errorf("got %s", rec.Body.String())
	}
}

func TestAPIMenuLinks_SortedByWeight(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	heavy, err := env.Stores.MenuLinks.Create(ctx, &models.MenuLink{Weight: 9000, Name: uniqueName("last"), Path: "/last"})
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	light, err := env.Stores.MenuLinks.Create(ctx, &models.MenuLink{Weight: -9000, Name: uniqueName("first"), Path: "/first"})
	if err != nil {
		t.Fatalf("create link: %v", err)
	}
	t.Cleanup(func() {
		env.DB.Exec("DELETE FROM menu_links WHERE id IN ($1, $2)", heavy.ID, light.ID)
	})

	rec := httptest.NewRecorder()
	env.Public.APIMenuLinks(rec, httptest.NewRequest(http.MethodGet, "/api/menulinks", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var links []models.MenuLink
	decodeJSON(t, rec, &links)
	if len(links) < 2 {
		t.Fatalf("got %d links", len(links))
	}
	if links[0].ID != light.ID || links[len(links)-1].ID != heavy.ID {
		t.Errorf("order: first %q last %q", links[0].Name, links[len(links)-1].Name)
	}
}

func TestHome(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Public.Home(rec, getWith("/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "/admin/users") {
		t.Error("anonymous landing page should not link to user management")
	}

	entityID := uuid.New()
	env.Stores.CacheLog.Log(context.Background(), store.EntityArticle, entityID, store.ActionUpdate)
	t.Cleanup(func() { env.DB.Exec("DELETE FROM cache_invalidation_log WHERE entity_id = $1", entityID) })

	rec = httptest.NewRecorder()
	env.Public.Home(rec, getWith("/", loggedIn(uuid.New(), "alice")))
	body := rec.Body.String()
	if !strings.Contains(body, "/admin/users") {
		t.Error("logged-in landing page should link to the admin sections")
	}
	if !strings.Contains(body, entityID.String()) {
		t.Error("logged-in landing page should list recent cache invalidations")
	}
}
