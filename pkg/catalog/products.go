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

var productSorts = map[string]string{
	"name":     "p.name ASC",
	"-name":    "p.name DESC",
	"price":    "p.price ASC",
	"-price":   "p.price DESC",
	"stock":    "p.stock ASC",
	"-stock":   "p.stock DESC",
	"created":  "p.created_at ASC",
	"-created": "p.created_at DESC",
}

// validateProductInput checks field bounds and that the subcategory
// belongs to the chosen category.
func (s *Service) validateProductInput(ctx context.Context, in ProductInput) (ProductInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	fields := fieldErrors{}
	if in.Name == "" {
		fields["name"] = "name is required"
	} else if len(in.Name) > 200 {
		fields["name"] = "name must be at most 200 characters"
	}
	if in.Price < 0 {
		fields["price"] = "price must be zero or greater"
	}
	if in.Stock < 0 {
		fields["stock"] = "stock must be zero or greater"
	}
	if in.CategoryID <= 0 {
		fields["category_id"] = "category is required"
	}
	if in.SubCategoryID <= 0 {
		fields["subcategory_id"] = "subcategory is required"
	}

	if in.CategoryID > 0 && in.SubCategoryID > 0 {
		sc, err := s.GetSubCategory(ctx, in.SubCategoryID)
		switch {
		case errors.Is(err, ErrNotFound):
			fields["subcategory_id"] = "subcategory does not exist"
		case err != nil:
			return in, err
		case sc.CategoryID != in.CategoryID:
			fields["subcategory_id"] = "subcategory does not belong to the selected category"
		}
	}
	return in, fields.err()
}

const productSelect = `
	SELECT p.id, p.name, p.category_id, c.name, p.subcategory_id, sc.name,
		COALESCE(p.description, ''), p.price, p.stock, p.created_at, p.created_by, u.username
	FROM products p
	JOIN categories c ON c.id = p.category_id
	JOIN subcategories sc ON sc.id = p.subcategory_id
	JOIN users u ON u.id = p.created_by
`

func scanProduct(row *sql.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.CategoryID, &p.CategoryName, &p.SubCategoryID, &p.SubCategoryName,
		&p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.CreatedBy, &p.CreatedByName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return &p, nil
}

// ListProducts returns one page of products, optionally filtered by
// category, subcategory, and a search query over name and description.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (*ProductPage, error) {
	conds := []string{"1=1"}
	args := []interface{}{}
	if params.Query != "" {
		args = append(args, likePattern(params.Query))
		conds = append(conds, fmt.Sprintf(
			`(LOWER(p.name) LIKE $%d ESCAPE '\' OR LOWER(COALESCE(p.description, '')) LIKE $%d ESCAPE '\')`,
			len(args), len(args)))
	}
	if params.CategoryID > 0 {
		args = append(args, params.CategoryID)
		conds = append(conds, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if params.SubCategoryID > 0 {
		args = append(args, params.SubCategoryID)
		conds = append(conds, fmt.Sprintf("p.subcategory_id = $%d", len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM products p WHERE " + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	page := newPagination(params.Page, ProductPageSize, total)
	offset := (page.Page - 1) * page.PageSize

	query := fmt.Sprintf(`%s
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, productSelect, where, orderClause(params.Sort, productSorts, "-created"), len(args)+1, len(args)+2)
	args = append(args, page.PageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	items := make([]Product, 0, page.PageSize)
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.CategoryID, &p.CategoryName, &p.SubCategoryID, &p.SubCategoryName,
			&p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.CreatedBy, &p.CreatedByName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	return &ProductPage{Items: items, Pagination: page}, nil
}

// GetProduct fetches one product with its category, subcategory, and
// creator names.
func (s *Service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	row := s.db.QueryRowContext(ctx, productSelect+" WHERE p.id = $1", id)
	return scanProduct(row)
}

// CreateProduct creates a product owned by the actor.
func (s *Service) CreateProduct(ctx context.Context, actor Actor, in ProductInput) (*Product, error) {
	if !rbac.CanMutate(actor.Role) {
		return nil, ErrDenied
	}
	in, err := s.validateProductInput(ctx, in)
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, category_id, subcategory_id, description, price, stock, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, in.Name, in.CategoryID, in.SubCategoryID, in.Description, in.Price, in.Stock, actor.ID).Scan(&id)
	if err != nil {
		if storage.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("insert product: %w", ErrIntegrity)
		}
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
		"name":       in.Name,
		"actor_id":   actor.ID,
	}).Info("created product")
	return s.GetProduct(ctx, id)
}

// UpdateProduct updates a product. Beyond the mutating roles, the
// product's creator may update it regardless of role.
func (s *Service) UpdateProduct(ctx context.Context, actor Actor, id int64, in ProductInput) (*Product, error) {
	existing, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanMutateProduct(actor.Role, actor.ID, existing.CreatedBy) {
		return nil, ErrDenied
	}
	in, err = s.validateProductInput(ctx, in)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $1, category_id = $2, subcategory_id = $3, description = $4, price = $5, stock = $6
		WHERE id = $7
	`, in.Name, in.CategoryID, in.SubCategoryID, in.Description, in.Price, in.Stock, id); err != nil {
		if storage.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("update product: %w", ErrIntegrity)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct deletes a product. The ownership override applies as
// for updates.
func (s *Service) DeleteProduct(ctx context.Context, actor Actor, id int64) error {
	existing, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if !rbac.CanMutateProduct(actor.Role, actor.ID, existing.CreatedBy) {
		return ErrDenied
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
		"actor_id":   actor.ID,
	}).Info("deleted product")
	return nil
}
