package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaxonomyService manages the category/subcategory taxonomy. Rows are never
// deleted; deactivation hides them from default listings and cascades
// logically (active-only queries) but never physically.
type TaxonomyService interface {
	CreateCategory(ctx context.Context, cat Category) (*Category, error)
	CreateSubcategory(ctx context.Context, sub Subcategory) (*Subcategory, error)
	DeactivateCategory(ctx context.Context, code string) error
	DeactivateSubcategory(ctx context.Context, code string) error
	ListCategories(ctx context.Context, includeInactive bool) ([]Category, error)
	ListSubcategories(ctx context.Context, categoryCode string, includeInactive bool) ([]Subcategory, error)
}

type taxonomyService struct {
	pool *pgxpool.Pool
}

func NewTaxonomyService(pool *pgxpool.Pool) TaxonomyService {
	return &taxonomyService{pool: pool}
}

func (s *taxonomyService) CreateCategory(ctx context.Context, cat Category) (*Category, error) {
	if err := validateCode(cat.Code, KindCategory); err != nil {
		return nil, err
	}
	if cat.Name == "" {
		return nil, fmt.Errorf("category name is required: %w", ErrValidation)
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO categories (code, name, description, sort_order, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (code) DO NOTHING
		RETURNING created_at
	`, cat.Code, cat.Name, cat.Description, cat.SortOrder).Scan(&cat.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("category %s: %w", cat.Code, ErrCodeConflict)
		}
		return nil, fmt.Errorf("failed to insert category: %w", err)
	}
	cat.IsActive = true
	return &cat, nil
}

func (s *taxonomyService) CreateSubcategory(ctx context.Context, sub Subcategory) (*Subcategory, error) {
	if err := validateCode(sub.Code, KindSubcategory); err != nil {
		return nil, err
	}
	if sub.Name == "" {
		return nil, fmt.Errorf("subcategory name is required: %w", ErrValidation)
	}

	var parentCode string
	err := s.pool.QueryRow(ctx, "SELECT code FROM categories WHERE code = $1", sub.CategoryCode).Scan(&parentCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("parent category %s: %w", sub.CategoryCode, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch parent category: %w", err)
	}
	if err := validateChildCode(sub.Code, parentCode); err != nil {
		return nil, err
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO subcategories (code, category_code, name, sort_order, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (code) DO NOTHING
		RETURNING created_at
	`, sub.Code, sub.CategoryCode, sub.Name, sub.SortOrder).Scan(&sub.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("subcategory %s: %w", sub.Code, ErrCodeConflict)
		}
		return nil, fmt.Errorf("failed to insert subcategory: %w", err)
	}
	sub.IsActive = true
	return &sub, nil
}

func (s *taxonomyService) DeactivateCategory(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, "UPDATE categories SET is_active = FALSE WHERE code = $1", code)
	if err != nil {
		return fmt.Errorf("failed to deactivate category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %s: %w", code, ErrNotFound)
	}
	return nil
}

func (s *taxonomyService) DeactivateSubcategory(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, "UPDATE subcategories SET is_active = FALSE WHERE code = $1", code)
	if err != nil {
		return fmt.Errorf("failed to deactivate subcategory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subcategory %s: %w", code, ErrNotFound)
	}
	return nil
}

func (s *taxonomyService) ListCategories(ctx context.Context, includeInactive bool) ([]Category, error) {
	query := "SELECT code, name, description, sort_order, is_active, created_at FROM categories"
	if !includeInactive {
		query += " WHERE is_active"
	}
	query += " ORDER BY sort_order, code"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.Code, &c.Name, &c.Description, &c.SortOrder, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (s *taxonomyService) ListSubcategories(ctx context.Context, categoryCode string, includeInactive bool) ([]Subcategory, error) {
	query := `
		SELECT s.code, s.category_code, s.name, s.sort_order, s.is_active, s.created_at
		FROM subcategories s
		JOIN categories c ON c.code = s.category_code
		WHERE s.category_code = $1`
	if !includeInactive {
		// Logical cascade: a deactivated parent hides its children too.
		query += " AND s.is_active AND c.is_active"
	}
	query += " ORDER BY s.sort_order, s.code"

	rows, err := s.pool.Query(ctx, query, categoryCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query subcategories: %w", err)
	}
	defer rows.Close()

	var subs []Subcategory
	for rows.Next() {
		var sub Subcategory
		if err := rows.Scan(&sub.Code, &sub.CategoryCode, &sub.Name, &sub.SortOrder, &sub.IsActive, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subcategory: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
