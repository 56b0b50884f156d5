// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"

	"fastodigama/internal/imaging"
	"fastodigama/internal/models"
	"fastodigama/internal/render"
	"fastodigama/internal/store"
)

const (
	articlesPath = "/admin/article"

	// adminPageSize is the number of articles per admin list page.
	adminPageSize = 10

	// maxMemory is the part of a multipart body kept in memory; the rest
	// spills to temporary files.
	maxMemory = 32 << 20

	// altSlots is the number of caption inputs offered for new uploads.
	altSlots = 3
)

// ArticleList renders one page of articles, optionally filtered by
// ?category= and ?search=.
func (a *Admin) ArticleList(w http.ResponseWriter, r *http.Request) {
	q := models.ArticleQuery{
		Page:     atoiOr(r.URL.Query().Get("page"), 1),
		PageSize: adminPageSize,
		Search:   formValue(r, "search"),
	}
	var categoryParam string
	if id, ok := idParam(r, "category"); ok {
		q.CategoryID = &id
		categoryParam = id.String()
	}

	var errMsg string
	if !utf8.ValidString(q.Search) {
		errMsg = "Invalid search text."
		q.Search = ""
	}
	page, err := a.stores.Articles.List(r.Context(), q)
	if err != nil {
		slog.Error("list articles failed", "error", err)
		errMsg = "Could not load articles."
		page = &models.ArticlePage{Page: 1, PageSize: adminPageSize}
	}
	categories, err := a.stores.Categories.List(r.Context())
	if err != nil {
		slog.Error("list categories failed", "error", err)
	}

	a.renderer.Page(w, r, "article_list", &render.PageData{
		Title:   "Articles",
		Section: "article",
		Error:   errMsg,
		Data: map[string]any{
			"Page":          page,
			"Categories":    categories,
			"CategoryID":    q.CategoryID,
			"CategoryParam": categoryParam,
			"Search":        q.Search,
		},
	})
}

// findArticle loads the article named by the articleId parameter,
// redirecting to the list when it is missing or malformed.
func (a *Admin) findArticle(w http.ResponseWriter, r *http.Request) (*models.Article, bool) {
	id, ok := idParam(r, "articleId")
	if !ok {
		seeOther(w, r, articlesPath)
		return nil, false
	}
	art, err := a.stores.Articles.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("article lookup failed", "error", err)
	}
	if art == nil {
		seeOther(w, r, articlesPath)
		return nil, false
	}
	return art, true
}

// ArticleView renders one article with its markdown text as HTML.
func (a *Admin) ArticleView(w http.ResponseWriter, r *http.Request) {
	art, ok := a.findArticle(w, r)
	if !ok {
		return
	}
	a.renderer.Page(w, r, "article_view", &render.PageData{
		Title:   art.Title,
		Section: "article",
		Data:    map[string]any{"Article": art},
	})
}

// articleFormState is what the article form shows: the article being
// edited (nil when adding) and the submitted or stored values.
type articleFormState struct {
	article    *models.Article
	title      string
	text       string
	categoryID *uuid.UUID
}

func (a *Admin) renderArticleForm(w http.ResponseWriter, r *http.Request, status int, st articleFormState, errMsg string) {
	categories, err := a.stores.Categories.List(r.Context())
	if err != nil {
		slog.Error("list categories failed", "error", err)
	}
	title := "Add Article"
	if st.article != nil {
		title = "Edit Article"
	}
	a.renderer.PageStatus(w, r, status, "article_form", &render.PageData{
		Title:   title,
		Section: "article",
		Error:   errMsg,
		Data: map[string]any{
			"Article":        st.article,
			"Title":          st.title,
			"Text":           st.text,
			"CategoryID":     st.categoryID,
			"Categories":     categories,
			"StorageEnabled": a.images.Enabled(),
			"MaxFiles":       imaging.MaxFiles,
			"MaxFileMB":      imaging.MaxFileSize >> 20,
			"AltSlots":       make([]struct{}, altSlots),
		},
	})
}

// submittedState echoes the posted values back into the form.
func submittedState(art *models.Article, form articleForm) articleFormState {
	st := articleFormState{article: art, title: form.Title, text: form.Text}
	if id, err := uuid.Parse(form.CategoryID); err == nil {
		st.categoryID = &id
	}
	return st
}

// ArticleAdd renders the empty article form.
func (a *Admin) ArticleAdd(w http.ResponseWriter, r *http.Request) {
	a.renderArticleForm(w, r, http.StatusOK, articleFormState{}, "")
}

// parseArticleForm parses the multipart body and collects the uploads.
// A plain urlencoded body is accepted and simply carries no files.
func parseArticleForm(r *http.Request) (articleForm, []imaging.Upload, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return articleForm{}, nil, err
	}
	form := articleForm{
		Title:      formValue(r, "title"),
		Text:       formValue(r, "text"),
		CategoryID: formValue(r, "categoryId"),
	}
	uploads, err := imaging.ReadUploads(r.MultipartForm)
	return form, uploads, err
}

// uploadMessage turns an upload failure into a form error.
func uploadMessage(err error) string {
	if imaging.IsUserError(err) || errors.Is(err, imaging.ErrNoStorage) {
		return err.Error()
	}
	return "Error uploading images"
}

// ArticleAddSubmit validates the form, uploads the images and inserts
// the article. The uploaded objects are deleted again if the insert
// fails.
func (a *Admin) ArticleAddSubmit(w http.ResponseWriter, r *http.Request) {
	form, uploads, err := parseArticleForm(r)
	if err != nil && !imaging.IsUserError(err) {
		slog.Error("parse article form failed", "error", err)
		a.renderArticleForm(w, r, http.StatusBadRequest, submittedState(nil, form), "Could not read the submitted form.")
		return
	}
	if err != nil {
		a.renderArticleForm(w, r, http.StatusOK, submittedState(nil, form), uploadMessage(err))
		return
	}

	categoryID, msg := validateArticle(form)
	if msg != "" {
		a.renderArticleForm(w, r, http.StatusOK, submittedState(nil, form), msg)
		return
	}

	images, err := a.images.Process(r.Context(), form.Title, uploads)
	if err != nil {
		slog.Error("process images failed", "error", err)
		a.renderArticleForm(w, r, http.StatusOK, submittedState(nil, form), uploadMessage(err))
		return
	}

	created, err := a.stores.Articles.Create(r.Context(), &models.Article{
		Title:      form.Title,
		Text:       form.Text,
		CategoryID: categoryID,
		Images:     images,
	})
	if err != nil {
		a.images.Discard(r.Context(), images)
		msg := "Error adding article"
		if errors.Is(err, store.ErrCategoryMissing) {
			msg = "The selected category no longer exists."
		} else {
			slog.Error("create article failed", "error", err)
		}
		a.renderArticleForm(w, r, http.StatusOK, submittedState(nil, form), msg)
		return
	}

	slog.Info("article created", "id", created.ID, "images", len(images))
	a.invalidateAPICache(r.Context(), store.EntityArticle, created.ID, store.ActionCreate)
	seeOther(w, r, articlesPath)
}

// ArticleEdit renders the form for ?articleId=.
func (a *Admin) ArticleEdit(w http.ResponseWriter, r *http.Request) {
	art, ok := a.findArticle(w, r)
	if !ok {
		return
	}
	categoryID := art.CategoryID
	a.renderArticleForm(w, r, http.StatusOK, articleFormState{
		article:    art,
		title:      art.Title,
		text:       art.Text,
		categoryID: &categoryID,
	}, "")
}

// keptImages reads the existing images the edit form kept. keepKeys holds
// the ticked checkboxes; altKeys and keepAlts are submitted for every
// existing image and pair up by position.
func keptImages(values url.Values) []imaging.Kept {
	alts := make(map[string]string)
	altKeys, keepAlts := values["altKeys"], values["keepAlts"]
	for i, key := range altKeys {
		if i < len(keepAlts) {
			alts[key] = keepAlts[i]
		}
	}

	keys := values["keepKeys"]
	kept := make([]imaging.Kept, 0, len(keys))
	for _, key := range keys {
		kept = append(kept, imaging.Kept{Key: key, Alt: alts[key]})
	}
	return kept
}

// ArticleEditSubmit updates an article. New uploads are processed first;
// the row is then updated and only after that succeeds are the images
// that were unticked deleted from storage.
func (a *Admin) ArticleEditSubmit(w http.ResponseWriter, r *http.Request) {
	form, uploads, err := parseArticleForm(r)
	if err != nil && !imaging.IsUserError(err) {
		slog.Error("parse article form failed", "error", err)
		seeOther(w, r, articlesPath)
		return
	}
	old, ok := a.findArticle(w, r)
	if !ok {
		return
	}
	if err != nil {
		a.renderArticleForm(w, r, http.StatusOK, submittedState(old, form), uploadMessage(err))
		return
	}

	categoryID, msg := validateArticle(form)
	if msg != "" {
		a.renderArticleForm(w, r, http.StatusOK, submittedState(old, form), msg)
		return
	}

	added, err := a.images.Process(r.Context(), form.Title, uploads)
	if err != nil {
		slog.Error("process images failed", "error", err)
		a.renderArticleForm(w, r, http.StatusOK, submittedState(old, form), uploadMessage(err))
		return
	}

	err = a.images.CommitEdit(r.Context(), form.Title, old.Images, keptImages(r.PostForm), added,
		func(ctx context.Context, images models.ArticleImages) error {
			return a.stores.Articles.Update(ctx, &models.Article{
				ID:         old.ID,
				Title:      form.Title,
				Text:       form.Text,
				CategoryID: categoryID,
				Images:     images,
			})
		})
	switch {
	case errors.Is(err, store.ErrNotFound):
		seeOther(w, r, articlesPath)
		return
	case errors.Is(err, store.ErrCategoryMissing):
		a.renderArticleForm(w, r, http.StatusOK, submittedState(old, form), "The selected category no longer exists.")
		return
	case err != nil:
		slog.Error("update article failed", "error", err)
		a.renderArticleForm(w, r, http.StatusOK, submittedState(old, form), "Error updating article")
		return
	}

	a.invalidateAPICache(r.Context(), store.EntityArticle, old.ID, store.ActionUpdate)
	seeOther(w, r, articlesPath+"/view?articleId="+old.ID.String())
}

// ArticleDelete removes the article named by ?articleId= and then its
// image objects.
func (a *Admin) ArticleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "articleId")
	if !ok {
		seeOther(w, r, articlesPath)
		return
	}

	art, err := a.stores.Articles.Delete(r.Context(), id)
	if err != nil {
		slog.Error("delete article failed", "error", err)
		seeOther(w, r, articlesPath)
		return
	}
	if art != nil {
		a.images.Discard(r.Context(), art.Images)
		a.invalidateAPICache(r.Context(), store.EntityArticle, id, store.ActionDelete)
	}
	seeOther(w, r, articlesPath)
}

// ArticleDeleteImage removes one image from an article and deletes its
// object.
func (a *Admin) ArticleDeleteImage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "articleId")
	if !ok {
		seeOther(w, r, articlesPath)
		return
	}
	key := formValue(r, "key")
	viewPath := articlesPath + "/view?articleId=" + id.String()
	if key == "" {
		seeOther(w, r, viewPath)
		return
	}

	img, err := a.stores.Articles.RemoveImage(r.Context(), id, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		seeOther(w, r, articlesPath)
		return
	case err != nil:
		slog.Error("remove article image failed", "error", err)
		seeOther(w, r, viewPath)
		return
	}
	if img != nil {
		a.images.Discard(r.Context(), models.ArticleImages{*img})
		a.invalidateAPICache(r.Context(), store.EntityArticle, id, store.ActionUpdate)
	}
	seeOther(w, r, viewPath)
}

// atoiOr parses s as a positive int, returning fallback otherwise.
func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
