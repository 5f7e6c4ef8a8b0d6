package catalog

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHomeStats(t *testing.T) {
	service, mock := testService(t)

	mock.ExpectQuery(`SELECT.+stock <= \$1`).
		WithArgs(LowStockThreshold).
		WillReturnRows(sqlmock.NewRows([]string{"categories", "subcategories", "products", "low_stock"}).
			AddRow(int64(3), int64(9), int64(40), int64(6)))

	stats, err := service.GetHomeStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Categories)
	assert.Equal(t, int64(9), stats.SubCategories)
	assert.Equal(t, int64(40), stats.Products)
	assert.Equal(t, int64(6), stats.LowStockProducts)
}

func TestGetProductStats(t *testing.T) {
	service, mock := testService(t)

	// The low-stock filter must not carry a stock > 0 qualifier, so
	// out-of-stock rows count as low stock too.
	mock.ExpectQuery(`FILTER \(WHERE stock <= \$1\)`).
		WithArgs(LowStockThreshold).
		WillReturnRows(sqlmock.NewRows([]string{
			"total", "in_stock", "out_of_stock", "low_stock", "stock_value", "avg_price",
		}).AddRow(int64(40), int64(35), int64(5), int64(9), 12345.50, 99.75))

	stats, err := service.GetProductStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(40), stats.Total)
	assert.Equal(t, int64(5), stats.OutOfStock)
	assert.Equal(t, int64(9), stats.LowStock)
	assert.Equal(t, 12345.50, stats.TotalStockValue)
	assert.Equal(t, 99.75, stats.AveragePrice)
}

func TestGetSubCategoryStats(t *testing.T) {
	service, mock := testService(t)

	mock.ExpectQuery("FROM subcategories sc").
		WithArgs(int64(2)).
		WillReturnRows(subCategoryRow(2, 1))
	mock.ExpectQuery("FROM products").
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "stock_value", "avg_price"}).
			AddRow(int64(6), 600.0, 100.0))

	stats, err := service.GetSubCategoryStats(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.ProductCount)
	// Stock value is price times stock summed; average price is a plain mean.
	assert.Equal(t, 600.0, stats.StockValue)
	assert.Equal(t, 100.0, stats.AveragePrice)
}

func TestGetSubCategoryStatsUnknownSubCategory(t *testing.T) {
	service, mock := testService(t)

	mock.ExpectQuery("FROM subcategories sc").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := service.GetSubCategoryStats(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetProfileStats(t *testing.T) {
	service, mock := testService(t)

	mock.ExpectQuery("COUNT").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectQuery("FROM products p").
		WithArgs(int64(5), recentProductLimit).
		WillReturnRows(productRow(30, 5))

	stats, err := service.GetProfileStats(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.UserID)
	assert.Equal(t, int64(7), stats.ProductsCreated)
	require.Len(t, stats.RecentProducts, 1)
	assert.Equal(t, int64(30), stats.RecentProducts[0].ID)
}
