package rbac

import (
	"regexp"
	"strings"
)

// Resource represents a resource type in the catalog
type Resource string

const (
	ResourceCategory    Resource = "category"
	ResourceSubCategory Resource = "subcategory"
	ResourceProduct     Resource = "product"
)

// Action represents an action that can be performed on a resource
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Route path templates for mutation endpoints. The API server registers
// its routes from these same constants, so the gatekeeper's pattern table
// and the actual mutation routes cannot drift apart.
const (
	PathCategoryCreate    = "/categories/create/"
	PathCategoryUpdate    = "/categories/{id:[0-9]+}/update/"
	PathCategoryDelete    = "/categories/{id:[0-9]+}/delete/"
	PathSubCategoryCreate = "/subcategories/create/"
	PathSubCategoryUpdate = "/subcategories/{id:[0-9]+}/update/"
	PathSubCategoryDelete = "/subcategories/{id:[0-9]+}/delete/"
	PathProductCreate     = "/products/create/"
	PathProductUpdate     = "/products/{id:[0-9]+}/update/"
	PathProductDelete     = "/products/{id:[0-9]+}/delete/"
)

// MutationRule declares one mutation endpoint with the permission it
// requires. The gatekeeper evaluates rules in order and the first match
// short-circuits further checks.
type MutationRule struct {
	Path     string
	Resource Resource
	Action   Action

	pattern *regexp.Regexp
}

// Matches reports whether the request path matches this rule
func (r MutationRule) Matches(path string) bool {
	return r.pattern.MatchString(path)
}

func compileRule(path string, resource Resource, action Action) MutationRule {
	quoted := regexp.QuoteMeta(path)
	expr := "^" + strings.ReplaceAll(quoted, regexp.QuoteMeta("{id:[0-9]+}"), "[0-9]+") + "$"
	return MutationRule{
		Path:     path,
		Resource: resource,
		Action:   action,
		pattern:  regexp.MustCompile(expr),
	}
}

// mutationRules is the single declared permission table for mutation
// endpoints. Both enforcement layers derive from it.
var mutationRules = []MutationRule{
	compileRule(PathProductCreate, ResourceProduct, ActionCreate),
	compileRule(PathProductUpdate, ResourceProduct, ActionUpdate),
	compileRule(PathProductDelete, ResourceProduct, ActionDelete),
	compileRule(PathCategoryCreate, ResourceCategory, ActionCreate),
	compileRule(PathCategoryUpdate, ResourceCategory, ActionUpdate),
	compileRule(PathCategoryDelete, ResourceCategory, ActionDelete),
	compileRule(PathSubCategoryCreate, ResourceSubCategory, ActionCreate),
	compileRule(PathSubCategoryUpdate, ResourceSubCategory, ActionUpdate),
	compileRule(PathSubCategoryDelete, ResourceSubCategory, ActionDelete),
}

// MutationRules returns the declared mutation permission table in
// evaluation order.
func MutationRules() []MutationRule {
	rules := make([]MutationRule, len(mutationRules))
	copy(rules, mutationRules)
	return rules
}

// MatchMutation returns the first rule matching the path, if any
func MatchMutation(path string) (MutationRule, bool) {
	for _, rule := range mutationRules {
		if rule.Matches(path) {
			return rule, true
		}
	}
	return MutationRule{}, false
}
