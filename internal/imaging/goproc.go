// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// GoProcessor is the pure-Go Processor. Opaque images become JPEG,
// images with transparency become PNG. Animated GIFs keep only their
// first frame.
type GoProcessor struct {
	Quality int // JPEG quality, 1-100
}

// NewGoProcessor returns a GoProcessor with JPEG quality 82.
func NewGoProcessor() *GoProcessor {
	return &GoProcessor{Quality: 82}
}

func (p *GoProcessor) Process(data []byte, maxWidth int) (*Output, error) {
	if _, err := CheckDimensions(data); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var img image.Image = src
	bounds := src.Bounds()
	if maxWidth > 0 && bounds.Dx() > maxWidth {
		h := ScaledHeight(bounds.Dx(), bounds.Dy(), maxWidth)
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	out := &Output{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	if opaque(img) {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality()}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		out.ContentType, out.Ext = "image/jpeg", ".jpg"
	} else {
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		out.ContentType, out.Ext = "image/png", ".png"
	}
	out.Data = buf.Bytes()
	return out, nil
}

func (p *GoProcessor) quality() int {
	if p.Quality < 1 || p.Quality > 100 {
		return jpeg.DefaultQuality
	}
	return p.Quality
}

func opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}
