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

var subCategorySorts = map[string]string{
	"name":     "sc.name ASC",
	"-name":    "sc.name DESC",
	"created":  "sc.created_on ASC",
	"-created": "sc.created_on DESC",
	"category": "c.name ASC, sc.name ASC",
}

func (s *Service) validateSubCategoryInput(ctx context.Context, in SubCategoryInput) (SubCategoryInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	fields := fieldErrors{}
	if in.Name == "" {
		fields["name"] = "name is required"
	} else if len(in.Name) > 100 {
		fields["name"] = "name must be at most 100 characters"
	}
	if in.CategoryID <= 0 {
		fields["category_id"] = "category is required"
	} else if _, err := s.GetCategory(ctx, in.CategoryID); err != nil {
		if errors.Is(err, ErrNotFound) {
			fields["category_id"] = "category does not exist"
		} else {
			return in, err
		}
	}
	return in, fields.err()
}

// subCategoryNameTaken reports whether the category already has a
// subcategory with the name, ignoring case. The same name may appear
// under different categories.
func (s *Service) subCategoryNameTaken(ctx context.Context, categoryID int64, name string, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subcategories
			WHERE category_id = $1 AND LOWER(name) = LOWER($2) AND id != $3
		)
	`, categoryID, name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check subcategory name: %w", err)
	}
	return exists, nil
}

// ListSubCategories returns one page of subcategories, optionally
// restricted to a category.
func (s *Service) ListSubCategories(ctx context.Context, params ListParams) (*SubCategoryPage, error) {
	conds := []string{"1=1"}
	args := []interface{}{}
	if !params.IncludeInactive {
		conds = append(conds, "sc.is_active = TRUE")
	}
	if params.Query != "" {
		args = append(args, likePattern(params.Query))
		conds = append(conds, fmt.Sprintf(
			`(LOWER(sc.name) LIKE $%d ESCAPE '\' OR LOWER(COALESCE(sc.description, '')) LIKE $%d ESCAPE '\')`,
			len(args), len(args)))
	}
	if params.CategoryID > 0 {
		args = append(args, params.CategoryID)
		conds = append(conds, fmt.Sprintf("sc.category_id = $%d", len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM subcategories sc WHERE " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count subcategories: %w", err)
	}

	page := newPagination(params.Page, SubCategoryPageSize, total)
	offset := (page.Page - 1) * page.PageSize

	query := fmt.Sprintf(`
		SELECT sc.id, sc.category_id, c.name, sc.name, COALESCE(sc.description, ''),
			sc.is_active, sc.created_on, sc.created_by,
			(SELECT COUNT(*) FROM products p WHERE p.subcategory_id = sc.id)
		FROM subcategories sc
		JOIN categories c ON c.id = sc.category_id
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, where, orderClause(params.Sort, subCategorySorts, "-created"), len(args)+1, len(args)+2)
	args = append(args, page.PageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	defer rows.Close()

	items := make([]SubCategory, 0, page.PageSize)
	for rows.Next() {
		var sc SubCategory
		if err := rows.Scan(
			&sc.ID, &sc.CategoryID, &sc.CategoryName, &sc.Name, &sc.Description,
			&sc.IsActive, &sc.CreatedOn, &sc.CreatedBy, &sc.ProductCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subcategory: %w", err)
		}
		items = append(items, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read subcategories: %w", err)
	}

	return &SubCategoryPage{Items: items, Pagination: page}, nil
}

// GetSubCategory fetches one subcategory with its product count.
func (s *Service) GetSubCategory(ctx context.Context, id int64) (*SubCategory, error) {
	var sc SubCategory
	err := s.db.QueryRowContext(ctx, `
		SELECT sc.id, sc.category_id, c.name, sc.name, COALESCE(sc.description, ''),
			sc.is_active, sc.created_on, sc.created_by,
			(SELECT COUNT(*) FROM products p WHERE p.subcategory_id = sc.id)
		FROM subcategories sc
		JOIN categories c ON c.id = sc.category_id
		WHERE sc.id = $1
	`, id).Scan(
		&sc.ID, &sc.CategoryID, &sc.CategoryName, &sc.Name, &sc.Description,
		&sc.IsActive, &sc.CreatedOn, &sc.CreatedBy, &sc.ProductCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subcategory: %w", err)
	}
	return &sc, nil
}

// CreateSubCategory creates a subcategory under an existing category.
func (s *Service) CreateSubCategory(ctx context.Context, actor Actor, in SubCategoryInput) (*SubCategory, error) {
	if !rbac.CanMutate(actor.Role) {
		return nil, ErrDenied
	}
	in, err := s.validateSubCategoryInput(ctx, in)
	if err != nil {
		return nil, err
	}
	taken, err := s.subCategoryNameTaken(ctx, in.CategoryID, in.Name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &ValidationError{Fields: map[string]string{"name": "this category already has a subcategory with this name"}}
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO subcategories (category_id, name, description, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, in.CategoryID, in.Name, in.Description, in.IsActive, actor.ID).Scan(&id)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, &ValidationError{Fields: map[string]string{"name": "this category already has a subcategory with this name"}}
		}
		if storage.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("insert subcategory: %w", ErrIntegrity)
		}
		return nil, fmt.Errorf("failed to insert subcategory: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"subcategory_id": id,
		"category_id":    in.CategoryID,
		"name":           in.Name,
		"actor_id":       actor.ID,
	}).Info("created subcategory")
	return s.GetSubCategory(ctx, id)
}

// UpdateSubCategory updates a subcategory, allowing it to move to a
// different category.
func (s *Service) UpdateSubCategory(ctx context.Context, actor Actor, id int64, in SubCategoryInput) (*SubCategory, error) {
	if !rbac.CanMutate(actor.Role) {
		return nil, ErrDenied
	}
	in, err := s.validateSubCategoryInput(ctx, in)
	if err != nil {
		return nil, err
	}
	taken, err := s.subCategoryNameTaken(ctx, in.CategoryID, in.Name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &ValidationError{Fields: map[string]string{"name": "this category already has a subcategory with this name"}}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE subcategories SET category_id = $1, name = $2, description = $3, is_active = $4
		WHERE id = $5
	`, in.CategoryID, in.Name, in.Description, in.IsActive, id)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, &ValidationError{Fields: map[string]string{"name": "this category already has a subcategory with this name"}}
		}
		if storage.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("update subcategory: %w", ErrIntegrity)
		}
		return nil, fmt.Errorf("failed to update subcategory: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetSubCategory(ctx, id)
}

// DeleteSubCategory deletes a subcategory and, through the schema's
// cascade rules, its products.
func (s *Service) DeleteSubCategory(ctx context.Context, actor Actor, id int64) error {
	if !rbac.CanMutate(actor.Role) {
		return ErrDenied
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM subcategories WHERE id = $1", id)
	if err != nil {
		if storage.IsForeignKeyViolation(err) {
			return fmt.Errorf("delete subcategory: %w", ErrIntegrity)
		}
		return fmt.Errorf("failed to delete subcategory: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.WithFields(map[string]interface{}{
		"subcategory_id": id,
		"actor_id":       actor.ID,
	}).Info("deleted subcategory")
	return nil
}
