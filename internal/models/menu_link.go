// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// MenuLink is a navigation entry. Lists are ordered by Weight, with ties
// broken by insertion order.
type MenuLink struct {
	ID        uuid.UUID `json:"id"`
	Weight    int       `json:"weight"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
