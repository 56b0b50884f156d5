// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"fastodigama/internal/models"
	"fastodigama/internal/render"
	"fastodigama/internal/store"
)

const menuPath = "/admin/menu"

// MenuList renders the menu links in display order.
func (a *Admin) MenuList(w http.ResponseWriter, r *http.Request) {
	links, err := a.stores.MenuLinks.List(r.Context())
	var errMsg string
	if err != nil {
		slog.Error("list menu links failed", "error", err)
		errMsg = "Could not load menu links."
	}
	a.renderer.Page(w, r, "menu_list", &render.PageData{
		Title:   "Menu Links",
		Section: "menu",
		Error:   errMsg,
		Data:    map[string]any{"Links": links},
	})
}

// renderMenuForm shows the add or edit form. The edit form also lists
// every link so the new weight can be chosen relative to the others.
func (a *Admin) renderMenuForm(w http.ResponseWriter, r *http.Request, link *models.MenuLink, weight, name, path, errMsg string) {
	title := "Add Menu Link"
	var links []models.MenuLink
	if link != nil {
		title = "Edit Menu Link"
		var err error
		if links, err = a.stores.MenuLinks.List(r.Context()); err != nil {
			slog.Error("list menu links failed", "error", err)
		}
	}
	a.renderer.Page(w, r, "menu_form", &render.PageData{
		Title:   title,
		Section: "menu",
		Error:   errMsg,
		Data: map[string]any{
			"Link":   link,
			"Weight": weight,
			"Name":   name,
			"Path":   path,
			"Links":  links,
		},
	})
}

func menuLinkFormFrom(r *http.Request) menuLinkForm {
	return menuLinkForm{
		Weight: formValue(r, "weight"),
		Name:   formValue(r, "name"),
		Path:   formValue(r, "path"),
	}
}

// MenuAdd renders the empty menu link form.
func (a *Admin) MenuAdd(w http.ResponseWriter, r *http.Request) {
	a.renderMenuForm(w, r, nil, "0", "", "", "")
}

// MenuAddSubmit creates a menu link.
func (a *Admin) MenuAddSubmit(w http.ResponseWriter, r *http.Request) {
	form := menuLinkFormFrom(r)
	link, msg := validateMenuLink(form)
	if msg != "" {
		a.renderMenuForm(w, r, nil, form.Weight, form.Name, form.Path, msg)
		return
	}

	created, err := a.stores.MenuLinks.Create(r.Context(), link)
	if err != nil {
		slog.Error("create menu link failed", "error", err)
		a.renderMenuForm(w, r, nil, form.Weight, form.Name, form.Path, "Error adding menu link")
		return
	}

	a.invalidateAPICache(r.Context(), store.EntityMenuLink, created.ID, store.ActionCreate)
	seeOther(w, r, menuPath)
}

// findMenuLink loads the link named by the linkId parameter, redirecting
// to the list when it is missing or malformed.
func (a *Admin) findMenuLink(w http.ResponseWriter, r *http.Request) (*models.MenuLink, bool) {
	id, ok := idParam(r, "linkId")
	if !ok {
		seeOther(w, r, menuPath)
		return nil, false
	}
	link, err := a.stores.MenuLinks.FindByID(r.Context(), id)
	if err != nil {
		slog.Error("menu link lookup failed", "error", err)
	}
	if link == nil {
		seeOther(w, r, menuPath)
		return nil, false
	}
	return link, true
}

// MenuEdit renders the form for ?linkId=.
func (a *Admin) MenuEdit(w http.ResponseWriter, r *http.Request) {
	link, ok := a.findMenuLink(w, r)
	if !ok {
		return
	}
	a.renderMenuForm(w, r, link, strconv.Itoa(link.Weight), link.Name, link.Path, "")
}

// MenuEditSubmit updates a menu link.
func (a *Admin) MenuEditSubmit(w http.ResponseWriter, r *http.Request) {
	existing, ok := a.findMenuLink(w, r)
	if !ok {
		return
	}

	form := menuLinkFormFrom(r)
	link, msg := validateMenuLink(form)
	if msg != "" {
		a.renderMenuForm(w, r, existing, form.Weight, form.Name, form.Path, msg)
		return
	}
	link.ID = existing.ID

	err := a.stores.MenuLinks.Update(r.Context(), link)
	if errors.Is(err, store.ErrNotFound) {
		seeOther(w, r, menuPath)
		return
	}
	if err != nil {
		slog.Error("update menu link failed", "error", err)
		a.renderMenuForm(w, r, existing, form.Weight, form.Name, form.Path, "Error updating menu link")
		return
	}

	a.invalidateAPICache(r.Context(), store.EntityMenuLink, link.ID, store.ActionUpdate)
	seeOther(w, r, menuPath)
}

// MenuDelete removes the link named by ?linkId=.
func (a *Admin) MenuDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "linkId")
	if !ok {
		seeOther(w, r, menuPath)
		return
	}

	err := a.stores.MenuLinks.Delete(r.Context(), id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		slog.Error("delete menu link failed", "error", err)
	}
	if err == nil {
		a.invalidateAPICache(r.Context(), store.EntityMenuLink, id, store.ActionDelete)
	}
	seeOther(w, r, menuPath)
}
