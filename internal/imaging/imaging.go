// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// Package imaging turns uploaded article pictures into stored images:
// it validates, resizes and re-encodes each file, uploads the results
// concurrently and keeps object storage in step with the article row.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"net/http"

	_ "golang.org/x/image/webp" // register WebP decoder
)

// Upload limits.
const (
	MaxFiles        = 10
	MaxFileSize     = 10 << 20
	DefaultMaxWidth = 1200

	// MaxPixels rejects decompression bombs before a full decode.
	MaxPixels = 50_000_000

	// Workers bounds concurrent process+upload jobs per request.
	Workers = 4
)

var (
	ErrTooManyFiles    = fmt.Errorf("at most %d images can be uploaded at once", MaxFiles)
	ErrFileTooLarge    = fmt.Errorf("images must be smaller than %d MB", MaxFileSize>>20)
	ErrUnsupportedType = errors.New("only JPEG, PNG, GIF and WebP images are accepted")
	ErrTooManyPixels   = errors.New("image dimensions are too large")
	ErrNoStorage       = errors.New("image storage is not configured")
)

// allowedTypes are the sniffed content types accepted for upload.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Output is one processed image ready for upload.
type Output struct {
	Data        []byte
	ContentType string
	Ext         string // with leading dot
	Width       int
	Height      int
}

// Processor resizes an image to at most maxWidth pixels wide, never
// upscaling, and re-encodes it.
type Processor interface {
	Process(data []byte, maxWidth int) (*Output, error)
}

// Sniff returns the content type of data if it is an accepted image.
func Sniff(data []byte) (string, error) {
	ct := http.DetectContentType(data)
	if !allowedTypes[ct] {
		return "", ErrUnsupportedType
	}
	return ct, nil
}

// CheckDimensions reads the image header and enforces MaxPixels.
func CheckDimensions(data []byte) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, fmt.Errorf("decode image header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return image.Config{}, fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrTooManyPixels)
	}
	return cfg, nil
}

// ScaledHeight keeps the aspect ratio when width w becomes target.
func ScaledHeight(w, h, target int) int {
	if w <= 0 {
		return h
	}
	out := int(float64(h) * float64(target) / float64(w))
	return max(out, 1)
}

// IsUserError reports whether err describes a bad upload rather than an
// infrastructure failure, so handlers can show it on the form.
func IsUserError(err error) bool {
	return errors.Is(err, ErrTooManyFiles) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrTooManyPixels)
}
