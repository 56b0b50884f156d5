// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// Package vips is the libvips-backed image processor. Every upload is
// auto-rotated, stripped of metadata and exported as WebP.
package vips

import (
	"fmt"
	"log/slog"

	govips "github.com/davidbyttow/govips/v2/vips"

	"fastodigama/internal/imaging"
)

// Startup initialises libvips. Call once at application start;
// concurrency 0 lets libvips pick.
func Startup(concurrency int) {
	govips.LoggingSettings(nil, govips.LogLevelWarning)
	govips.Startup(&govips.Config{
		ConcurrencyLevel: concurrency,
		MaxCacheSize:     100,
		MaxCacheMem:      50 * 1024 * 1024,
	})
	slog.Info("libvips started", "version", govips.Version)
}

// Shutdown releases libvips resources.
func Shutdown() {
	govips.Shutdown()
}

// maxCoord is the largest dimension libvips accepts.
const maxCoord = 10_000_000

// Processor implements imaging.Processor with libvips.
type Processor struct {
	Quality int // WebP quality 1-100
}

// New returns a Processor exporting WebP at quality 80.
func New() *Processor {
	return &Processor{Quality: 80}
}

var _ imaging.Processor = (*Processor)(nil)

func (p *Processor) Process(data []byte, maxWidth int) (*imaging.Output, error) {
	header, err := govips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("vips: read header: %w", err)
	}
	width, height := header.Width(), header.Height()
	header.Close()

	if int64(width)*int64(height) > imaging.MaxPixels {
		return nil, fmt.Errorf("%dx%d: %w", width, height, imaging.ErrTooManyPixels)
	}

	if maxWidth <= 0 {
		maxWidth = maxCoord
	}

	// Thumbnailing applies the EXIF orientation, so the width limit holds
	// for the image as displayed. SizeDown never enlarges.
	img, err := govips.NewThumbnailWithSizeFromBuffer(data, maxWidth, maxCoord, govips.InterestingNone, govips.SizeDown)
	if err != nil {
		return nil, fmt.Errorf("vips: thumbnail %dpx: %w", maxWidth, err)
	}
	defer img.Close()

	params := govips.NewWebpExportParams()
	params.Quality = p.Quality
	params.StripMetadata = true

	buf, meta, err := img.ExportWebp(params)
	if err != nil {
		return nil, fmt.Errorf("vips: export webp: %w", err)
	}

	return &imaging.Output{
		Data:        buf,
		ContentType: "image/webp",
		Ext:         ".webp",
		Width:       meta.Width,
		Height:      meta.Height,
	}, nil
}
