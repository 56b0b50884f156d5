// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains. HTML
// routes share session loading and CSRF protection; the JSON API is
// session-free and open to any origin.
package router

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"fastodigama/internal/handlers"
	"fastodigama/internal/imaging"
	"fastodigama/internal/middleware"
	"fastodigama/internal/session"
	"fastodigama/web"
)

// maxBodySize caps request bodies: a full upload batch plus the form.
const maxBodySize = imaging.MaxFiles*imaging.MaxFileSize + 1<<20

// Deps are the collaborators the router wires together.
type Deps struct {
	Sessions      *session.Store
	Admin         *handlers.Admin
	Auth          *handlers.Auth
	Public        *handlers.Public
	AuthLimiter   *middleware.RateLimiter // nil disables rate limiting
	SecureCookies bool
	TrustProxy    bool // take the client address from forwarding headers
}

// New creates the chi router with all middleware and route groups.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(chimw.RequestSize(maxBodySize))

	r.Get("/health", d.Public.Health)
	r.Handle("/static/*", staticHandler())

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         int((12 * time.Hour).Seconds()),
		}))
		r.Get("/menulinks", d.Public.APIMenuLinks)
		r.Get("/articles", d.Public.APIArticles)
		r.Get("/article/{id}", d.Public.APIArticle)
	})

	// HTML routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.LoadSession(d.Sessions))
		r.Use(middleware.NewCSRF(d.SecureCookies))

		r.Get("/", d.Public.Home)

		r.Get("/login", d.Auth.LoginPage)
		r.Get("/login/2fa", d.Auth.Login2FAPage)
		r.Get("/register", d.Auth.RegisterPage)
		r.Get("/logout", d.Auth.Logout)
		r.Group(func(r chi.Router) {
			if d.AuthLimiter != nil {
				r.Use(d.AuthLimiter.Middleware)
			}
			r.Post("/login", d.Auth.LoginSubmit)
			r.Post("/login/2fa", d.Auth.Login2FASubmit)
			r.Post("/register", d.Auth.RegisterSubmit)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.Sessions))
			r.Get("/", d.Auth.UserPage)
			r.Get("/2fa/setup", d.Auth.TwoFASetupPage)
			r.Post("/2fa/setup", d.Auth.TwoFASetupSubmit)
			r.Post("/2fa/disable", d.Auth.TwoFADisable)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth(d.Sessions))
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/admin/article", http.StatusSeeOther)
			})
			adminRoutes(r, d.Admin)
		})
	})

	return r
}

func adminRoutes(r chi.Router, admin *handlers.Admin) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", admin.UsersList)
		r.Get("/reset", admin.UserResetPage)
		r.Post("/reset", admin.UserResetSubmit)
		r.Get("/edit", admin.UserEditPage)
		r.Post("/edit", admin.UserEditSubmit)
		r.Get("/delete", admin.UserDelete)
	})

	r.Route("/category", func(r chi.Router) {
		r.Get("/", admin.CategoryList)
		r.Get("/add", admin.CategoryAdd)
		r.Post("/add/submit", admin.CategoryAddSubmit)
		r.Get("/edit", admin.CategoryEdit)
		r.Post("/edit/submit", admin.CategoryEditSubmit)
		r.Get("/delete", admin.CategoryDelete)
	})

	r.Route("/article", func(r chi.Router) {
		r.Get("/", admin.ArticleList)
		r.Get("/view", admin.ArticleView)
		r.Get("/add", admin.ArticleAdd)
		r.Post("/add/submit", admin.ArticleAddSubmit)
		r.Get("/edit", admin.ArticleEdit)
		r.Post("/edit/submit", admin.ArticleEditSubmit)
		r.Get("/delete", admin.ArticleDelete)
		r.Post("/delete-image", admin.ArticleDeleteImage)
	})

	r.Route("/menu", func(r chi.Router) {
		r.Get("/", admin.MenuList)
		r.Get("/add", admin.MenuAdd)
		r.Post("/add/submit", admin.MenuAddSubmit)
		r.Get("/edit", admin.MenuEdit)
		r.Post("/edit/submit", admin.MenuEditSubmit)
		r.Get("/delete", admin.MenuDelete)
	})
}

// staticHandler serves the embedded web/static tree under /static/.
func staticHandler() http.Handler {
	sub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("router: embedded static assets missing: " + err.Error())
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}
