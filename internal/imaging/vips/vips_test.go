// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package vips

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	Startup(1)
	code := m.Run()
	Shutdown()
	os.Exit(code)
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessorResizesToWebP(t *testing.T) {
	out, err := New().Process(encodePNG(t, 400, 200), 100)
	require.NoError(t, err)

	assert.Equal(t, "image/webp", out.ContentType)
	assert.Equal(t, ".webp", out.Ext)
	assert.Equal(t, 100, out.Width)
	assert.Equal(t, 50, out.Height)
	assert.Equal(t, "RIFF", string(out.Data[:4]))
}

func TestProcessorNeverUpscales(t *testing.T) {
	out, err := New().Process(encodePNG(t, 60, 30), 1200)
	require.NoError(t, err)
	assert.Equal(t, 60, out.Width)
	assert.Equal(t, 30, out.Height)
}

func TestProcessorRejectsGarbage(t *testing.T) {
	_, err := New().Process([]byte("definitely not an image"), 1200)
	assert.Error(t, err)
}
