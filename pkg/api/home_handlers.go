package api

import (
	"net/http"

	"github.com/RAXITGAJERA/product-management/pkg/httputil"
	"github.com/RAXITGAJERA/product-management/pkg/rbac"
)

// handleHome is the landing view: catalog counts plus the subject's
// identity and permission flags.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	stats, err := s.catalog.GetHomeStats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	subject := rbac.SubjectFromRequest(r)
	resp := map[string]interface{}{
		"stats":       stats,
		"permissions": subject.Permissions(),
	}
	if subject != nil {
		resp["username"] = subject.Username
		resp["role"] = subject.Role
	}
	if flash, ok := httputil.PopFlash(w, r); ok {
		resp["flash"] = flash
	}
	httputil.WriteSuccess(w, resp)
}
