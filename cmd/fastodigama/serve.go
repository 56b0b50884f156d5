// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fastodigama/internal/cache"
	"fastodigama/internal/config"
	"fastodigama/internal/database"
	"fastodigama/internal/handlers"
	"fastodigama/internal/imaging"
	"fastodigama/internal/imaging/vips"
	"fastodigama/internal/middleware"
	"fastodigama/internal/render"
	"fastodigama/internal/router"
	"fastodigama/internal/session"
	"fastodigama/internal/storage"
	"fastodigama/internal/store"
)

const (
	shutdownTimeout = 30 * time.Second

	// Login and registration submits allowed per client per minute.
	authRateLimit = 10
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (the default command)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.IsDev() {
		if err := database.Seed(ctx, db, database.SeedOptions{BcryptCost: cfg.BcryptCost}); err != nil {
			return err
		}
	}

	valkey, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return err
	}
	defer valkey.Close()

	bucket, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	var objects imaging.ObjectStore
	if bucket != nil {
		defer bucket.Close()
		objects = bucket
		slog.Info("object storage ready", "driver", cfg.StorageDriver)
	} else {
		slog.Warn("object storage not configured, image uploads disabled")
	}

	proc, closeProc := newProcessor(cfg)
	defer closeProc()

	renderer, err := render.New()
	if err != nil {
		return err
	}

	secureCookies := !cfg.IsDev()
	sessions := session.NewStore(valkey, cfg.SessionSecret, secureCookies)
	apiCache := cache.NewAPICache(valkey, cache.DefaultAPITTL)
	stores := handlers.Stores{
		Users:      store.NewUserStore(db, cfg.BcryptCost),
		Categories: store.NewCategoryStore(db),
		Articles:   store.NewArticleStore(db),
		MenuLinks:  store.NewMenuLinkStore(db),
		CacheLog:   store.NewCacheLogStore(db),
	}
	pipeline := imaging.NewPipeline(objects, proc, cfg.ImageMaxWidth)

	limiter := middleware.NewRateLimiter(authRateLimit, time.Minute)
	defer limiter.Stop()

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: router.New(router.Deps{
			Sessions:      sessions,
			Admin:         handlers.NewAdmin(renderer, sessions, stores, pipeline, apiCache),
			Auth:          handlers.NewAuth(renderer, sessions, stores.Users, cfg.RegistrationOpen),
			Public:        handlers.NewPublic(renderer, stores, apiCache),
			AuthLimiter:   limiter,
			SecureCookies: secureCookies,
			TrustProxy:    cfg.TrustProxy,
		}),
		ReadTimeout:  60 * time.Second, // multipart uploads
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped gracefully")
	return nil
}

// newProcessor selects the image processor named by IMAGE_PROCESSOR. The
// returned func releases it.
func newProcessor(cfg *config.Config) (imaging.Processor, func()) {
	if cfg.ImageProcessor == "go" {
		return imaging.NewGoProcessor(), func() {}
	}
	vips.Startup(0)
	return vips.New(), vips.Shutdown
}
