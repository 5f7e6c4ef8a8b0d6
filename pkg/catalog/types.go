package catalog

import (
	"time"

	"github.com/RAXITGAJERA/product-management/pkg/rbac"
)

// Page sizes match the classic catalog views: ten rows for taxonomy
// tables, twelve cards for the product grid.
const (
	CategoryPageSize    = 10
	SubCategoryPageSize = 10
	ProductPageSize     = 12
)

// Actor identifies who is performing an operation. Mutations re-check
// the actor's role here even though the request gatekeeper already
// screened the path.
type Actor struct {
	ID   int64
	Role rbac.Role
}

// Category is a top-level product grouping.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedOn   time.Time `json:"created_on"`
	CreatedBy   int64     `json:"created_by"`

	// Derived counts, populated on reads.
	SubCategoryCount int64 `json:"subcategory_count"`
	ProductCount     int64 `json:"product_count"`
}

// SubCategory is a grouping inside a category.
type SubCategory struct {
	ID           int64     `json:"id"`
	CategoryID   int64     `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	IsActive     bool      `json:"is_active"`
	CreatedOn    time.Time `json:"created_on"`
	CreatedBy    int64     `json:"created_by"`

	ProductCount int64 `json:"product_count"`
}

// Product is a sellable item placed in a category and subcategory.
type Product struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	CategoryID      int64     `json:"category_id"`
	CategoryName    string    `json:"category_name"`
	SubCategoryID   int64     `json:"subcategory_id"`
	SubCategoryName string    `json:"subcategory_name"`
	Description     string    `json:"description"`
	Price           float64   `json:"price"`
	Stock           int       `json:"stock"`
	CreatedAt       time.Time `json:"created_at"`
	CreatedBy       int64     `json:"created_by"`
	CreatedByName   string    `json:"created_by_name"`
}

// InStock reports whether the product has stock left.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// CategoryInput carries the writable category fields.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// SubCategoryInput carries the writable subcategory fields.
type SubCategoryInput struct {
	CategoryID  int64  `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// ProductInput carries the writable product fields.
type ProductInput struct {
	Name          string  `json:"name"`
	CategoryID    int64   `json:"category_id"`
	SubCategoryID int64   `json:"subcategory_id"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	Stock         int     `json:"stock"`
}

// ListParams selects, filters, and orders a listing. IncludeInactive
// widens category and subcategory listings to disabled rows; admin
// screens are the only callers that set it.
type ListParams struct {
	Query           string
	Sort            string
	Page            int
	CategoryID      int64
	SubCategoryID   int64
	IncludeInactive bool
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// newPagination clamps page into range and derives the page metadata.
func newPagination(page, pageSize int, totalItems int64) Pagination {
	totalPages := int((totalItems + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// CategoryPage is one page of categories.
type CategoryPage struct {
	Items []Category `json:"items"`
	Pagination
}

// SubCategoryPage is one page of subcategories.
type SubCategoryPage struct {
	Items []SubCategory `json:"items"`
	Pagination
}

// ProductPage is one page of products.
type ProductPage struct {
	Items []Product `json:"items"`
	Pagination
}
