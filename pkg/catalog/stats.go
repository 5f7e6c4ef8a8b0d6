package catalog

import (
	"context"
	"fmt"
)

// LowStockThreshold marks products that are close to running out.
const LowStockThreshold = 10

// HomeStats summarizes the catalog for the landing view. Low stock
// counts every product at or under the threshold, including those at
// zero.
type HomeStats struct {
	Categories       int64 `json:"categories"`
	SubCategories    int64 `json:"subcategories"`
	Products         int64 `json:"products"`
	LowStockProducts int64 `json:"low_stock_products"`
}

// ProductStats summarizes the product table.
type ProductStats struct {
	Total           int64   `json:"total"`
	InStock         int64   `json:"in_stock"`
	OutOfStock      int64   `json:"out_of_stock"`
	LowStock        int64   `json:"low_stock"`
	TotalStockValue float64 `json:"total_stock_value"`
	AveragePrice    float64 `json:"average_price"`
}

// SubCategoryStats summarizes the products under one subcategory.
type SubCategoryStats struct {
	SubCategoryID int64   `json:"subcategory_id"`
	ProductCount  int64   `json:"product_count"`
	StockValue    float64 `json:"stock_value"`
	AveragePrice  float64 `json:"average_price"`
}

// ProfileStats summarizes one user's contribution to the catalog.
type ProfileStats struct {
	UserID          int64     `json:"user_id"`
	ProductsCreated int64     `json:"products_created"`
	RecentProducts  []Product `json:"recent_products"`
}

// recentProductLimit caps the recent-products strip on the profile view.
const recentProductLimit = 5

// GetHomeStats returns the landing view counts.
func (s *Service) GetHomeStats(ctx context.Context) (*HomeStats, error) {
	var stats HomeStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM subcategories),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM products WHERE stock <= $1)
	`, LowStockThreshold).Scan(&stats.Categories, &stats.SubCategories, &stats.Products, &stats.LowStockProducts)
	if err != nil {
		return nil, fmt.Errorf("failed to query home stats: %w", err)
	}
	return &stats, nil
}

// GetProductStats returns stock and price aggregates over all
// products. Stock value is the sum of price times stock; average price
// is a plain mean over products.
func (s *Service) GetProductStats(ctx context.Context) (*ProductStats, error) {
	var stats ProductStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE stock > 0),
			COUNT(*) FILTER (WHERE stock = 0),
			COUNT(*) FILTER (WHERE stock <= $1),
			COALESCE(SUM(price * stock), 0),
			COALESCE(AVG(price), 0)
		FROM products
	`, LowStockThreshold).Scan(
		&stats.Total, &stats.InStock, &stats.OutOfStock, &stats.LowStock,
		&stats.TotalStockValue, &stats.AveragePrice,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query product stats: %w", err)
	}
	return &stats, nil
}

// GetSubCategoryStats returns product aggregates for one subcategory.
func (s *Service) GetSubCategoryStats(ctx context.Context, subCategoryID int64) (*SubCategoryStats, error) {
	if _, err := s.GetSubCategory(ctx, subCategoryID); err != nil {
		return nil, err
	}

	stats := &SubCategoryStats{SubCategoryID: subCategoryID}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(price * stock), 0), COALESCE(AVG(price), 0)
		FROM products
		WHERE subcategory_id = $1
	`, subCategoryID).Scan(&stats.ProductCount, &stats.StockValue, &stats.AveragePrice)
	if err != nil {
		return nil, fmt.Errorf("failed to query subcategory stats: %w", err)
	}
	return stats, nil
}

// GetProfileStats returns the products a user has created: the total
// count and the most recent few for the profile view.
func (s *Service) GetProfileStats(ctx context.Context, userID int64) (*ProfileStats, error) {
	stats := &ProfileStats{UserID: userID, RecentProducts: []Product{}}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE created_by = $1", userID,
	).Scan(&stats.ProductsCreated); err != nil {
		return nil, fmt.Errorf("failed to count user products: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		productSelect+" WHERE p.created_by = $1 ORDER BY p.created_at DESC LIMIT $2",
		userID, recentProductLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.CategoryID, &p.CategoryName, &p.SubCategoryID, &p.SubCategoryName,
			&p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.CreatedBy, &p.CreatedByName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recent product: %w", err)
		}
		stats.RecentProducts = append(stats.RecentProducts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recent products: %w", err)
	}
	return stats, nil
}

// UpdateGauges refreshes the catalog size gauges from the current
// table counts. No-op when metrics are disabled.
func (s *Service) UpdateGauges(ctx context.Context) error {
	if s.metrics == nil {
		return nil
	}

	home, err := s.GetHomeStats(ctx)
	if err != nil {
		return err
	}

	s.metrics.CategoriesTotal.Set(float64(home.Categories))
	s.metrics.SubCategoriesTotal.Set(float64(home.SubCategories))
	s.metrics.ProductsTotal.Set(float64(home.Products))
	s.metrics.LowStockProducts.Set(float64(home.LowStockProducts))
	return nil
}
