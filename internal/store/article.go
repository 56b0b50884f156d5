// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"fastodigama/internal/models"
)

// ArticleStore handles article persistence. Reads always join the
// category so callers get Article.Category populated.
type ArticleStore struct {
	db *sql.DB
}

// NewArticleStore creates a new ArticleStore.
func NewArticleStore(db *sql.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

const articleSelect = `
	SELECT a.id, a.title, a.text, a.category_id, a.images, a.created_at, a.updated_at,
	       c.id, c.name, c.created_at, c.updated_at
	FROM articles a
	LEFT JOIN categories c ON c.id = a.category_id`

const articleOrder = ` ORDER BY a.created_at DESC, a.id DESC`

func scanArticle(scanner interface{ Scan(...any) error }) (*models.Article, error) {
	var (
		a        models.Article
		catID    uuid.NullUUID
		catName  sql.NullString
		catCreat sql.NullTime
		catUpd   sql.NullTime
	)
	err := scanner.Scan(
		&a.ID, &a.Title, &a.Text, &a.CategoryID, &a.Images, &a.CreatedAt, &a.UpdatedAt,
		&catID, &catName, &catCreat, &catUpd,
	)
	if err != nil {
		return nil, err
	}
	if catID.Valid {
		a.Category = &models.Category{
			ID:        catID.UUID,
			Name:      catName.String,
			CreatedAt: catCreat.Time,
			UpdatedAt: catUpd.Time,
		}
	}
	return &a, nil
}

// EscapeLike escapes the LIKE metacharacters in s so it matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// articleFilter builds the WHERE clause for an ArticleQuery. Placeholders
// are numbered from 1; the returned args line up with them.
func articleFilter(q models.ArticleQuery) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if q.CategoryID != nil {
		args = append(args, *q.CategoryID)
		clauses = append(clauses, "a.category_id = $"+strconv.Itoa(len(args)))
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		args = append(args, "%"+EscapeLike(search)+"%")
		n := strconv.Itoa(len(args))
		clauses = append(clauses, "(a.title ILIKE $"+n+" OR a.text ILIKE $"+n+")")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns one page of articles, newest first, filtered by category
// and a case-insensitive substring match on title or text.
func (s *ArticleStore) List(ctx context.Context, q models.ArticleQuery) (*models.ArticlePage, error) {
	q = q.Normalize()
	where, args := articleFilter(q)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles a`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}

	page := &models.ArticlePage{
		Items:      []models.Article{},
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: models.TotalPages(total, q.PageSize),
	}
	if q.Page > page.TotalPages {
		return page, nil
	}

	n := len(args)
	query := articleSelect + where + articleOrder +
		` LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, q.PageSize, q.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		page.Items = append(page.Items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return page, nil
}

// FindByID retrieves an article with its category. Returns nil if not found.
func (s *ArticleStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	row := s.db.QueryRowContext(ctx, articleSelect+` WHERE a.id = $1`, id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find article by id: %w", err)
	}
	return a, nil
}

// Count returns the total number of articles.
func (s *ArticleStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// Create inserts an article. Returns ErrCategoryMissing if CategoryID
// does not reference an existing category.
func (s *ArticleStore) Create(ctx context.Context, a *models.Article) (*models.Article, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO articles (title, text, category_id, images)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, a.Title, a.Text, a.CategoryID, a.Images).Scan(&id)
	if pgCode(err) == pgForeignKeyViolation {
		return nil, ErrCategoryMissing
	}
	if err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Update replaces title, text, category and images of an article.
func (s *ArticleStore) Update(ctx context.Context, a *models.Article) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE articles SET title = $1, text = $2, category_id = $3, images = $4, updated_at = NOW()
		WHERE id = $5
	`, a.Title, a.Text, a.CategoryID, a.Images, a.ID)
	if pgCode(err) == pgForeignKeyViolation {
		return ErrCategoryMissing
	}
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	return requireAffected(res, "update article")
}

// Delete removes an article and returns the deleted row so the caller can
// clean up its images. Returns nil if no article had that ID.
func (s *ArticleStore) Delete(ctx context.Context, id uuid.UUID) (*models.Article, error) {
	var a models.Article
	err := s.db.QueryRowContext(ctx, `
		DELETE FROM articles WHERE id = $1
		RETURNING id, title, text, category_id, images, created_at, updated_at
	`, id).Scan(&a.ID, &a.Title, &a.Text, &a.CategoryID, &a.Images, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delete article: %w", err)
	}
	return &a, nil
}

// RemoveImage drops the image with the given key from an article and
// returns it. Returns (nil, nil) if the article has no such image and
// ErrNotFound if the article does not exist.
func (s *ArticleStore) RemoveImage(ctx context.Context, id uuid.UUID, key string) (*models.ArticleImage, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var images models.ArticleImages
	err = tx.QueryRowContext(ctx, `SELECT images FROM articles WHERE id = $1 FOR UPDATE`, id).Scan(&images)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load article images: %w", err)
	}

	rest, removed := images.Without(key)
	if removed == nil {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE articles SET images = $1, updated_at = NOW() WHERE id = $2
	`, rest, id); err != nil {
		return nil, fmt.Errorf("remove article image: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit remove image: %w", err)
	}
	return removed, nil
}
