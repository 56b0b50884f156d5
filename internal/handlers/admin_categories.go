// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"fastodigama/internal/models"
	"fastodigama/internal/render"
	"fastodigama/internal/store"
)

const (
	categoriesPath = "/admin/category"

	msgCategoryExists = "A category with that name already exists."
)

// CategoryList renders all categories with their article counts.
func (a *Admin) CategoryList(w http.ResponseWriter, r *http.Request) {
	a.renderCategories(w, r, http.StatusOK, "")
}

func (a *Admin) renderCategories(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	categories, err := a.stores.Categories.List(r.Context())
	if err != nil {
		slog.Error("list categories failed", "error", err)
		errMsg = "Could not load categories."
	}
	a.renderer.PageStatus(w, r, status, "category_list", &render.PageData{
		Title:   "Category List",
		Section: "category",
		Error:   errMsg,
		Data:    map[string]any{"Categories": categories},
	})
}

func (a *Admin) renderCategoryForm(w http.ResponseWriter, r *http.Request, cat *models.Category, name, errMsg string) {
	title := "Add Category"
	if cat != nil {
		title = "Edit Category"
	}
	a.renderer.Page(w, r, "category_form", &render.PageData{
		Title:   title,
		Section: "category",
		Error:   errMsg,
		Data: map[string]any{
			"Category": cat,
			"Name":     name,
		},
	})
}

// CategoryAdd renders the empty category form.
func (a *Admin) CategoryAdd(w http.ResponseWriter, r *http.Request) {
	a.renderCategoryForm(w, r, nil, "", "")
}

// CategoryAddSubmit creates a category.
func (a *Admin) CategoryAddSubmit(w http.ResponseWriter, r *http.Request) {
	form := categoryForm{Name: formValue(r, "name")}
	if msg := checkForm(form); msg != "" {
		a.renderCategoryForm(w, r, nil, form.Name, msg)
		return
	}

	if taken, ok := a.categoryNameTaken(w, r, nil, form.Name); !ok || taken {
		return
	}

	cat, err := a.stores.Categories.Create(r.Context(), form.Name)
	if err != nil {
		slog.Error("create category failed", "error", err)
		a.renderCategoryForm(w, r, nil, form.Name, "Error adding category")
		return
	}

	a.invalidateAPICache(r.Context(), store.EntityCategory, cat.ID, store.ActionCreate)
	seeOther(w, r, categoriesPath)
}

// categoryNameTaken re-renders the form when another category already
// uses name. ok is false when the lookup failed and the form was shown
// with an error.
func (a *Admin) categoryNameTaken(w http.ResponseWriter, r *http.Request, cat *models.Category, name string) (taken, ok bool) {
	existing, err := a.stores.Categories.FindByName(r.Context(), name)
	if err != nil {
		slog.Error("category lookup failed", "error", err)
		a.renderCategoryForm(w, r, cat, name, "Error saving category")
		return false, false
	}
	if existing != nil && (cat == nil || existing.ID != cat.ID) {
		a.renderCategoryForm(w, r, cat, name, msgCategoryExists)
		return true, true
	}
	return false, true
}

// CategoryEdit renders the form for ?categoryId=.
func (a *Admin) CategoryEdit(w http.ResponseWriter, r *http.Request) {
	cat, ok := a.findCategory(w, r)
	if !ok {
		return
	}
	a.renderCategoryForm(w, r, cat, cat.Name, "")
}

// findCategory loads the category named by the categoryId parameter,
// redirecting to the list when it is missing or malformed.
func (a *Admin) findCategory(w http.ResponseWriter, r *http.Request) (*models.Category, bool) {
	id, ok := idParam(r, "categoryId")
	if !ok {
		seeOther(w, r, categoriesPath)
		return nil, false
	}
	cat, err := a.stores.Categories.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("category lookup failed", "error", err)
	}
	if cat == nil {
		seeOther(w, r, categoriesPath)
		return nil, false
	}
	return cat, true
}

// CategoryEditSubmit renames a category.
func (a *Admin) CategoryEditSubmit(w http.ResponseWriter, r *http.Request) {
	cat, ok := a.findCategory(w, r)
	if !ok {
		return
	}

	form := categoryForm{Name: formValue(r, "name")}
	if msg := checkForm(form); msg != "" {
		a.renderCategoryForm(w, r, cat, form.Name, msg)
		return
	}

	if taken, ok := a.categoryNameTaken(w, r, cat, form.Name); !ok || taken {
		return
	}

	err := a.stores.Categories.Update(r.Context(), cat.ID, form.Name)
	if errors.Is(err, store.ErrNotFound) {
		seeOther(w, r, categoriesPath)
		return
	}
	if err != nil {
		slog.Error("update category failed", "error", err)
		a.renderCategoryForm(w, r, cat, form.Name, "Error updating category")
		return
	}

	a.invalidateAPICache(r.Context(), store.EntityCategory, cat.ID, store.ActionUpdate)
	seeOther(w, r, categoriesPath)
}

// CategoryDelete removes the category named by ?categoryId=. Categories
// that still have articles are kept and the list shows why.
func (a *Admin) CategoryDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "categoryId")
	if !ok {
		seeOther(w, r, categoriesPath)
		return
	}

	err := a.stores.Categories.Delete(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		seeOther(w, r, categoriesPath)
		return
	case errors.Is(err, store.ErrCategoryInUse):
		a.renderCategories(w, r, http.StatusConflict, "This category still has articles. Move or delete them first.")
		return
	case err != nil:
		slog.Error("delete category failed", "error", err)
		a.renderCategories(w, r, http.StatusInternalServerError, "Error deleting category")
		return
	}

	a.invalidateAPICache(r.Context(), store.EntityCategory, id, store.ActionDelete)
	seeOther(w, r, categoriesPath)
}
