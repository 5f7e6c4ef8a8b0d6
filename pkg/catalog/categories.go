package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/RAXITGAJERA/product-management/pkg/rbac"
	"github.com/RAXITGAJERA/product-management/pkg/storage"
)

var categorySorts = map[string]string{
	"name":     "c.name ASC",
	"-name":    "c.name DESC",
	"created":  "c.created_on ASC",
	"-created": "c.created_on DESC",
}

func (s *Service) validateCategoryInput(in CategoryInput) (CategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	fields := fieldErrors{}
	if in.Name == "" {
		fields["name"] = "name is required"
	} else if len(in.Name) > 100 {
		fields["name"] = "name must be at most 100 characters"
	}
	return in, fields.err()
}

// categoryNameTaken reports whether another category already uses the
// name, ignoring case. excludeID skips the row being updated.
func (s *Service) categoryNameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM categories WHERE LOWER(name) = LOWER($1) AND id != $2
		)
	`, name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check category name: %w", err)
	}
	return exists, nil
}

// ListCategories returns one page of categories with their
// subcategory and product counts.
func (s *Service) ListCategories(ctx context.Context, params ListParams) (*CategoryPage, error) {
	conds := []string{"1=1"}
	args := []interface{}{}
	if !params.IncludeInactive {
		conds = append(conds, "c.is_active = TRUE")
	}
	if params.Query != "" {
		args = append(args, likePattern(params.Query))
		conds = append(conds, fmt.Sprintf(
			`(LOWER(c.name) LIKE $%d ESCAPE '\' OR LOWER(COALESCE(c.description, '')) LIKE $%d ESCAPE '\')`,
			len(args), len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM categories c WHERE " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	page := newPagination(params.Page, CategoryPageSize, total)
	offset := (page.Page - 1) * page.PageSize

	query := fmt.Sprintf(`
		SELECT c.id, c.name, COALESCE(c.description, ''), c.is_active, c.created_on, c.created_by,
			(SELECT COUNT(*) FROM subcategories sc WHERE sc.category_id = c.id),
			(SELECT COUNT(*) FROM products p WHERE p.category_id = c.id)
		FROM categories c
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, where, orderClause(params.Sort, categorySorts, "-created"), len(args)+1, len(args)+2)
	args = append(args, page.PageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	items := make([]Category, 0, page.PageSize)
	for rows.Next() {
		var c Category
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedOn, &c.CreatedBy,
			&c.SubCategoryCount, &c.ProductCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read categories: %w", err)
	}

	return &CategoryPage{Items: items, Pagination: page}, nil
}

// GetCategory fetches one category with its counts.
func (s *Service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, c.name, COALESCE(c.description, ''), c.is_active, c.created_on, c.created_by,
			(SELECT COUNT(*) FROM subcategories sc WHERE sc.category_id = c.id),
			(SELECT COUNT(*) FROM products p WHERE p.category_id = c.id)
		FROM categories c
		WHERE c.id = $1
	`, id).Scan(
		&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedOn, &c.CreatedBy,
		&c.SubCategoryCount, &c.ProductCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// CreateCategory creates a category. Only admins and sellers may
// create; names are unique ignoring case.
func (s *Service) CreateCategory(ctx context.Context, actor Actor, in CategoryInput) (*Category, error) {
	if !rbac.CanMutate(actor.Role) {
		return nil, ErrDenied
	}
	in, err := s.validateCategoryInput(in)
	if err != nil {
		return nil, err
	}
	taken, err := s.categoryNameTaken(ctx, in.Name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &ValidationError{Fields: map[string]string{"name": "a category with this name already exists"}}
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, description, is_active, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, in.Name, in.Description, in.IsActive, actor.ID).Scan(&id)
	if err != nil {
		// The unique index backstops the pre-check under races.
		if storage.IsUniqueViolation(err) {
			return nil, &ValidationError{Fields: map[string]string{"name": "a category with this name already exists"}}
		}
		return nil, fmt.Errorf("failed to insert category: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"category_id": id,
		"name":        in.Name,
		"actor_id":    actor.ID,
	}).Info("created category")
	return s.GetCategory(ctx, id)
}

// UpdateCategory updates a category. The uniqueness check excludes the
// row being updated so saving without renaming succeeds.
func (s *Service) UpdateCategory(ctx context.Context, actor Actor, id int64, in CategoryInput) (*Category, error) {
	if !rbac.CanMutate(actor.Role) {
		return nil, ErrDenied
	}
	in, err := s.validateCategoryInput(in)
	if err != nil {
		return nil, err
	}
	taken, err := s.categoryNameTaken(ctx, in.Name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &ValidationError{Fields: map[string]string{"name": "a category with this name already exists"}}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET name = $1, description = $2, is_active = $3 WHERE id = $4
	`, in.Name, in.Description, in.IsActive, id)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, &ValidationError{Fields: map[string]string{"name": "a category with this name already exists"}}
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetCategory(ctx, id)
}

// DeleteCategory deletes a category and, through the schema's cascade
// rules, its subcategories and products.
func (s *Service) DeleteCategory(ctx context.Context, actor Actor, id int64) error {
	if !rbac.CanMutate(actor.Role) {
		return ErrDenied
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		if storage.IsForeignKeyViolation(err) {
			return fmt.Errorf("delete category: %w", ErrIntegrity)
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.WithFields(map[string]interface{}{
		"category_id": id,
		"actor_id":    actor.ID,
	}).Info("deleted category")
	return nil
}
