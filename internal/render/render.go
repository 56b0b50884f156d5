// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the admin interface.
// Page templates are paired with a shared base layout; the login and
// registration screens are standalone pages.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fastodigama/internal/markdown"
	"fastodigama/internal/middleware"
	"fastodigama/internal/session"
)

//go:embed templates/admin/*.html
var adminFS embed.FS

// PageData holds all data passed to admin templates.
type PageData struct {
	Title     string         // Page title for <title> tag
	Section   string         // Active navigation section (e.g., "article", "menu")
	Session   *session.Data  // Current session (nil if anonymous)
	Username  string         // Logged-in username, "" when anonymous
	CSRFToken string         // CSRF token for the hidden form field
	Error     string         // Inline form error
	Notice    string         // Inline success message
	Data      map[string]any // Page-specific data
}

// Renderer handles template parsing and execution for admin pages.
type Renderer struct {
	templates map[string]*template.Template
}

// standaloneTemplates render as full HTML pages without the base layout.
var standaloneTemplates = map[string]bool{
	"login":     true,
	"login_2fa": true,
	"register":  true,
}

// Funcs returns the template helpers shared by all admin pages.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"activeClass": func(current, target string) string {
			if current == target {
				return "active"
			}
			return ""
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"uuidEq": func(ptr *uuid.UUID, val uuid.UUID) bool {
			return ptr != nil && *ptr == val
		},
		"markdown": markdown.Render,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02 15:04")
		},
		"excerpt": func(s string, n int) string {
			s = strings.Join(strings.Fields(s), " ")
			r := []rune(s)
			if len(r) <= n {
				return s
			}
			return string(r[:n]) + "…"
		},
		// pageURL rebuilds the article list URL for another page,
		// keeping the active filters.
		"pageURL": func(page int, category, search string) string {
			q := url.Values{}
			q.Set("page", strconv.Itoa(page))
			if category != "" {
				q.Set("category", category)
			}
			if search != "" {
				q.Set("search", search)
			}
			return "/admin/article?" + q.Encode()
		},
		"add": func(a, b int) int { return a + b },
	}
}

// New parses every page template from the embedded filesystem, pairing
// each with the base layout.
func New() (*Renderer, error) {
	return newFromFS(adminFS)
}

func newFromFS(fsys fs.FS) (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template)}

	entries, err := fs.ReadDir(fsys, "templates/admin")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == "base.html" || !strings.HasSuffix(name, ".html") {
			continue
		}
		tmplName := strings.TrimSuffix(name, ".html")

		var tmpl *template.Template
		if standaloneTemplates[tmplName] {
			tmpl, err = template.New(name).Funcs(Funcs()).ParseFS(fsys, "templates/admin/"+name)
		} else {
			tmpl, err = template.New("base.html").Funcs(Funcs()).ParseFS(
				fsys, "templates/admin/base.html", "templates/admin/"+name,
			)
		}
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[tmplName] = tmpl
	}

	return r, nil
}

// Has reports whether a page template exists.
func (rn *Renderer) Has(name string) bool {
	_, ok := rn.templates[name]
	return ok
}

// Page renders a page with status 200.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus renders a page with the given status. Output is buffered so
// a template error never leaves a half-written page.
func (rn *Renderer) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	tmpl, ok := rn.templates[name]
	if !ok {
		http.Error(w, fmt.Sprintf("template %q not found", name), http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = &PageData{}
	}

	data.CSRFToken = middleware.CSRFTokenFromCtx(r.Context())
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(r.Context())
	}
	data.Username = middleware.CurrentUsername(r.Context())

	execName := "base.html"
	if standaloneTemplates[name] {
		execName = name + ".html"
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, execName, data); err != nil {
		slog.Error("template render failed", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
