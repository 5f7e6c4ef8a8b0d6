package catalog

import (
	"database/sql"
	"strings"

	"github.com/RAXITGAJERA/product-management/pkg/observability"
)

// Service implements the catalog operations over the relational store.
type Service struct {
	db      *sql.DB
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService creates a catalog service. metrics may be nil.
func NewService(db *sql.DB, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{db: db, logger: logger, metrics: metrics}
}

// likePattern builds a case-insensitive contains pattern. LIKE
// metacharacters in the query are matched literally.
func likePattern(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	q = strings.ReplaceAll(q, `\`, `\\`)
	q = strings.ReplaceAll(q, "%", `\%`)
	q = strings.ReplaceAll(q, "_", `\_`)
	return "%" + q + "%"
}

// orderClause maps a user-facing sort key to a SQL ORDER BY through a
// whitelist. Unknown keys fall back to the default.
func orderClause(sort string, allowed map[string]string, fallback string) string {
	if clause, ok := allowed[sort]; ok {
		return clause
	}
	return allowed[fallback]
}
