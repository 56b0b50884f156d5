// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fastodigama/internal/models"
)

// MenuLinkStore manages navigation links.
type MenuLinkStore struct {
	db *sql.DB
}

// NewMenuLinkStore returns a new MenuLinkStore.
func NewMenuLinkStore(db *sql.DB) *MenuLinkStore {
	return &MenuLinkStore{db: db}
}

const menuLinkColumns = `id, weight, name, path, created_at, updated_at`

func scanMenuLink(scanner interface{ Scan(...any) error }) (*models.MenuLink, error) {
	var l models.MenuLink
	if err := scanner.Scan(&l.ID, &l.Weight, &l.Name, &l.Path, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// List returns all links by ascending weight; equal weights keep
// insertion order.
func (s *MenuLinkStore) List(ctx context.Context) ([]models.MenuLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+menuLinkColumns+` FROM menu_links ORDER BY weight ASC, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list menu links: %w", err)
	}
	defer rows.Close()

	links := []models.MenuLink{}
	for rows.Next() {
		l, err := scanMenuLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu link: %w", err)
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

// FindByID retrieves a link by ID. Returns nil if not found.
func (s *MenuLinkStore) FindByID(ctx context.Context, id uuid.UUID) (*models.MenuLink, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+menuLinkColumns+` FROM menu_links WHERE id = $1`, id)
	l, err := scanMenuLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find menu link by id: %w", err)
	}
	return l, nil
}

// Count returns the number of links.
func (s *MenuLinkStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM menu_links`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count menu links: %w", err)
	}
	return n, nil
}

// Create inserts a link and returns it.
func (s *MenuLinkStore) Create(ctx context.Context, l *models.MenuLink) (*models.MenuLink, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO menu_links (weight, name, path) VALUES ($1, $2, $3)
		RETURNING `+menuLinkColumns,
		l.Weight, l.Name, l.Path,
	)
	out, err := scanMenuLink(row)
	if err != nil {
		return nil, fmt.Errorf("create menu link: %w", err)
	}
	return out, nil
}

// Update replaces weight, name and path of an existing link.
func (s *MenuLinkStore) Update(ctx context.Context, l *models.MenuLink) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE menu_links SET weight = $1, name = $2, path = $3, updated_at = NOW()
		WHERE id = $4
	`, l.Weight, l.Name, l.Path, l.ID)
	if err != nil {
		return fmt.Errorf("update menu link: %w", err)
	}
	return requireAffected(res, "update menu link")
}

// Delete removes a link by ID.
func (s *MenuLinkStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM menu_links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete menu link: %w", err)
	}
	return requireAffected(res, "delete menu link")
}
