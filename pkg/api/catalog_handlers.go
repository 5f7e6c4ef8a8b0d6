package api

import (
	"net/http"

	"github.com/RAXITGAJERA/product-management/pkg/catalog"
	"github.com/RAXITGAJERA/product-management/pkg/httputil"
	"github.com/RAXITGAJERA/product-management/pkg/rbac"
)

// listParams reads the shared listing query parameters.
func listParams(w http.ResponseWriter, r *http.Request) (catalog.ListParams, bool) {
	params := catalog.ListParams{
		Query: r.URL.Query().Get("q"),
		Sort:  r.URL.Query().Get("sort"),
		Page:  httputil.QueryPage(r),
	}
	// Disabled rows stay hidden unless an admin asks for them.
	if r.URL.Query().Get("include_inactive") != "" && permissions(r).IsAdmin {
		params.IncludeInactive = true
	}

	categoryID, err := httputil.QueryInt64(r, "category")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return params, false
	}
	params.CategoryID = categoryID

	subCategoryID, err := httputil.QueryInt64(r, "subcategory")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return params, false
	}
	params.SubCategoryID = subCategoryID
	return params, true
}

// permissions returns the subject's permission set for list and detail
// responses so clients can decide which controls to show.
func permissions(r *http.Request) rbac.PermissionSet {
	return rbac.SubjectFromRequest(r).Permissions()
}

// Categories

func (s *Server) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	params, ok := listParams(w, r)
	if !ok {
		return
	}
	page, err := s.catalog.ListCategories(r.Context(), params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := map[string]interface{}{
		"categories":  page,
		"permissions": permissions(r),
	}
	if flash, ok := httputil.PopFlash(w, r); ok {
		resp["flash"] = flash
	}
	httputil.WriteSuccess(w, resp)
}

func (s *Server) handleCategoryDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	category, err := s.catalog.GetCategory(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	// A detail view shows the category's subcategories alongside it.
	subcategories, err := s.catalog.ListSubCategories(r.Context(), catalog.ListParams{
		CategoryID: id,
		Page:       httputil.QueryPage(r),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"category":      category,
		"subcategories": subcategories,
		"permissions":   permissions(r),
	})
}

func (s *Server) handleCategoryCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var in catalog.CategoryInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	category, err := s.catalog.CreateCategory(r.Context(), actor, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, category)
}

func (s *Server) handleCategoryUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var in catalog.CategoryInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	category, err := s.catalog.UpdateCategory(r.Context(), actor, id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, category)
}

func (s *Server) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.catalog.DeleteCategory(r.Context(), actor, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// SubCategories

func (s *Server) handleSubCategoryList(w http.ResponseWriter, r *http.Request) {
	params, ok := listParams(w, r)
	if !ok {
		return
	}
	page, err := s.catalog.ListSubCategories(r.Context(), params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := map[string]interface{}{
		"subcategories": page,
		"permissions":   permissions(r),
	}
	if flash, ok := httputil.PopFlash(w, r); ok {
		resp["flash"] = flash
	}
	httputil.WriteSuccess(w, resp)
}

func (s *Server) handleSubCategoryDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	subcategory, err := s.catalog.GetSubCategory(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	stats, err := s.catalog.GetSubCategoryStats(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	products, err := s.catalog.ListProducts(r.Context(), catalog.ListParams{
		SubCategoryID: id,
		Page:          httputil.QueryPage(r),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"subcategory": subcategory,
		"stats":       stats,
		"products":    products,
		"permissions": permissions(r),
	})
}

func (s *Server) handleSubCategoryCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var in catalog.SubCategoryInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	subcategory, err := s.catalog.CreateSubCategory(r.Context(), actor, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, subcategory)
}

func (s *Server) handleSubCategoryUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var in catalog.SubCategoryInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	subcategory, err := s.catalog.UpdateSubCategory(r.Context(), actor, id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, subcategory)
}

func (s *Server) handleSubCategoryDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.catalog.DeleteSubCategory(r.Context(), actor, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

// Products

func (s *Server) handleProductList(w http.ResponseWriter, r *http.Request) {
	params, ok := listParams(w, r)
	if !ok {
		return
	}
	page, err := s.catalog.ListProducts(r.Context(), params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	stats, err := s.catalog.GetProductStats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := map[string]interface{}{
		"products":    page,
		"stats":       stats,
		"permissions": permissions(r),
	}
	if flash, ok := httputil.PopFlash(w, r); ok {
		resp["flash"] = flash
	}
	httputil.WriteSuccess(w, resp)
}

func (s *Server) handleProductDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	product, err := s.catalog.GetProduct(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	// The ownership override means edit rights differ per product.
	subject := rbac.SubjectFromRequest(r)
	canEdit := false
	if subject != nil {
		canEdit = rbac.CanMutateProduct(subject.Role, subject.UserID, product.CreatedBy)
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"product":     product,
		"in_stock":    product.InStock(),
		"can_edit":    canEdit,
		"permissions": permissions(r),
	})
}

func (s *Server) handleProductCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var in catalog.ProductInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	product, err := s.catalog.CreateProduct(r.Context(), actor, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteCreated(w, product)
}

func (s *Server) handleProductUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var in catalog.ProductInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	product, err := s.catalog.UpdateProduct(r.Context(), actor, id, in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, product)
}

func (s *Server) handleProductDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	if err := s.catalog.DeleteProduct(r.Context(), actor, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
