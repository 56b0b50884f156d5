// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ArticleImage is one uploaded picture attached to an article. Key is the
// object storage key and identifies the image across edits.
type ArticleImage struct {
	URL string `json:"url"`
	Key string `json:"key"`
	Alt string `json:"alt"`
}

// ArticleImages is stored as a JSONB array on the articles row.
type ArticleImages []ArticleImage

// Value implements driver.Valuer.
func (im ArticleImages) Value() (driver.Value, error) {
	if im == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(im)
	if err != nil {
		return nil, fmt.Errorf("marshal article images: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner.
func (im *ArticleImages) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*im = ArticleImages{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan article images: unsupported type %T", src)
	}
	out := ArticleImages{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal article images: %w", err)
	}
	*im = out
	return nil
}

// Keys returns the storage keys of all images, in order.
func (im ArticleImages) Keys() []string {
	keys := make([]string, 0, len(im))
	for _, img := range im {
		keys = append(keys, img.Key)
	}
	return keys
}

// Find returns the image with the given key, or nil.
func (im ArticleImages) Find(key string) *ArticleImage {
	for i := range im {
		if im[i].Key == key {
			return &im[i]
		}
	}
	return nil
}

// Without returns a copy of the list with the image keyed key removed,
// and the removed image if there was one.
func (im ArticleImages) Without(key string) (ArticleImages, *ArticleImage) {
	out := make(ArticleImages, 0, len(im))
	var removed *ArticleImage
	for _, img := range im {
		if img.Key == key && removed == nil {
			img := img
			removed = &img
			continue
		}
		out = append(out, img)
	}
	return out, removed
}

// Article is a content record with markdown text, one category and zero
// or more images.
type Article struct {
	ID         uuid.UUID     `json:"id"`
	Title      string        `json:"title"`
	Text       string        `json:"text"`
	CategoryID uuid.UUID     `json:"categoryId"`
	Images     ArticleImages `json:"images"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`

	// Category is resolved at read time by a join; nil if the row was
	// loaded without it.
	Category *Category `json:"category,omitempty"`
}

// CategoryName returns the populated category name or "".
func (a *Article) CategoryName() string {
	if a.Category == nil {
		return ""
	}
	return a.Category.Name
}

// ArticleQuery selects one page of articles. CategoryID and Search are
// optional and combine conjunctively.
type ArticleQuery struct {
	Page       int
	PageSize   int
	CategoryID *uuid.UUID
	Search     string
}

// Page size bounds applied by Normalize.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxPage keeps (Page-1)*PageSize within int range.
	MaxPage = math.MaxInt / MaxPageSize
)

// Normalize clamps Page to [1, MaxPage] and PageSize to [1, MaxPageSize],
// substituting DefaultPageSize for non-positive sizes. Invalid UTF-8 is
// dropped from Search.
func (q ArticleQuery) Normalize() ArticleQuery {
	q.Search = strings.ToValidUTF8(q.Search, "")
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// Offset returns the number of rows to skip for the query's page.
func (q ArticleQuery) Offset() int {
	return Offset(q.Page, q.PageSize)
}

// ArticlePage is one page of a filtered article listing.
type ArticlePage struct {
	Items      []Article `json:"articles"`
	TotalCount int       `json:"totalCount"`
	Page       int       `json:"page"`
	PageSize   int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}

// HasPrev reports whether a previous page exists.
func (p *ArticlePage) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a following page exists.
func (p *ArticlePage) HasNext() bool { return p.Page < p.TotalPages }

// Offset returns (page-1)*pageSize.
func Offset(page, pageSize int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * pageSize
}

// TotalPages returns ceil(total/pageSize).
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
