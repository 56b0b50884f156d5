// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// Package slug derives URL-safe identifiers from titles.
package slug

import (
	"strings"

	gosimple "github.com/gosimple/slug"
)

const (
	// MaxKeyLength caps slugs used inside storage object keys.
	MaxKeyLength = 60

	// Fallback is used when a title has no sluggable characters.
	Fallback = "article"
)

// Generate creates a lowercase, hyphen-separated slug. Non-ASCII letters
// are transliterated ("Crème" -> "creme").
func Generate(s string) string {
	return gosimple.Make(strings.TrimSpace(s))
}

// ForKey returns a slug suitable as an object key prefix. The result is
// never empty and never longer than MaxKeyLength; long slugs are cut at
// the last hyphen that fits.
func ForKey(title string) string {
	s := Generate(title)
	if s == "" {
		return Fallback
	}
	if len(s) <= MaxKeyLength {
		return s
	}
	s = s[:MaxKeyLength]
	if i := strings.LastIndexByte(s, '-'); i > 0 {
		s = s[:i]
	}
	return strings.Trim(s, "-")
}
