// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package imaging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fastodigama/internal/models"
	"fastodigama/internal/slug"
)

// ObjectStore is the part of a storage driver the pipeline needs.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

// Kept is an existing image the edit form chose to keep, with its
// possibly edited caption.
type Kept struct {
	Key string
	Alt string
}

// Pipeline processes uploads and reconciles stored objects with article
// rows.
type Pipeline struct {
	store    ObjectStore
	proc     Processor
	maxWidth int
	workers  int
	now      func() time.Time
}

// NewPipeline wires a pipeline. store may be nil when storage is not
// configured; Process then fails with ErrNoStorage for non-empty input.
func NewPipeline(store ObjectStore, proc Processor, maxWidth int) *Pipeline {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	return &Pipeline{
		store:    store,
		proc:     proc,
		maxWidth: maxWidth,
		workers:  Workers,
		now:      time.Now,
	}
}

// Enabled reports whether uploads can be stored.
func (p *Pipeline) Enabled() bool {
	return p != nil && p.store != nil
}

// Process resizes and uploads every file concurrently and returns the
// resulting images in submission order. Keys are
// articles/<slug>-<unixmillis>-<index><ext>; a missing caption becomes
// the title. If any file fails, the ones already uploaded are deleted.
func (p *Pipeline) Process(ctx context.Context, title string, uploads []Upload) (models.ArticleImages, error) {
	if len(uploads) == 0 {
		return models.ArticleImages{}, nil
	}
	if !p.Enabled() {
		return nil, ErrNoStorage
	}
	if len(uploads) > MaxFiles {
		return nil, ErrTooManyFiles
	}

	prefix := fmt.Sprintf("articles/%s-%d", slug.ForKey(title), p.now().UnixMilli())
	results := make(models.ArticleImages, len(uploads))

	var (
		mu       sync.Mutex
		uploaded []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, up := range uploads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := p.proc.Process(up.Data, p.maxWidth)
			if err != nil {
				return fmt.Errorf("%s: %w", up.Name, err)
			}

			key := fmt.Sprintf("%s-%d%s", prefix, i, out.Ext)
			url, err := p.store.Upload(gctx, key, out.ContentType, bytes.NewReader(out.Data), int64(len(out.Data)))
			if err != nil {
				return fmt.Errorf("upload %s: %w", up.Name, err)
			}

			mu.Lock()
			uploaded = append(uploaded, key)
			mu.Unlock()

			results[i] = models.ArticleImage{URL: url, Key: key, Alt: altOr(up.Alt, title)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.deleteKeys(context.WithoutCancel(ctx), uploaded)
		return nil, err
	}
	return results, nil
}

// Reconcile computes the image list after an edit. Old images whose key
// is in keep stay, in their original order, with the caption from keep
// (empty means the title); added images follow. Old images not kept are
// returned as removed.
func Reconcile(title string, old models.ArticleImages, keep []Kept, added models.ArticleImages) (final, removed models.ArticleImages) {
	alts := make(map[string]string, len(keep))
	for _, k := range keep {
		alts[k.Key] = k.Alt
	}

	final = make(models.ArticleImages, 0, len(old)+len(added))
	removed = models.ArticleImages{}
	for _, img := range old {
		alt, ok := alts[img.Key]
		if !ok {
			removed = append(removed, img)
			continue
		}
		img.Alt = altOr(alt, title)
		final = append(final, img)
	}
	final = append(final, added...)
	return final, removed
}

// CommitEdit saves the reconciled image list through update and only
// then deletes the objects that are no longer referenced. When update
// fails the freshly uploaded objects are deleted and the old ones kept.
func (p *Pipeline) CommitEdit(
	ctx context.Context,
	title string,
	old models.ArticleImages,
	keep []Kept,
	added models.ArticleImages,
	update func(ctx context.Context, images models.ArticleImages) error,
) error {
	final, removed := Reconcile(title, old, keep, added)
	if err := update(ctx, final); err != nil {
		p.Discard(ctx, added)
		return err
	}
	p.Discard(ctx, removed)
	return nil
}

// Discard deletes the images' objects. Failures are logged, never
// returned; an orphaned object is preferable to a failed request.
func (p *Pipeline) Discard(ctx context.Context, images models.ArticleImages) {
	if len(images) == 0 || !p.Enabled() {
		return
	}
	p.deleteKeys(context.WithoutCancel(ctx), images.Keys())
}

func (p *Pipeline) deleteKeys(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := p.store.Delete(ctx, key); err != nil {
			slog.Warn("image cleanup failed", "key", key, "error", err)
		}
	}
}

func altOr(alt, title string) string {
	if alt = strings.TrimSpace(alt); alt != "" {
		return alt
	}
	return title
}
