package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchMutation(t *testing.T) {
	tests := []struct {
		path     string
		resource Resource
		action   Action
	}{
		{"/categories/create/", ResourceCategory, ActionCreate},
		{"/categories/42/update/", ResourceCategory, ActionUpdate},
		{"/categories/1/delete/", ResourceCategory, ActionDelete},
		{"/subcategories/create/", ResourceSubCategory, ActionCreate},
		{"/subcategories/9000/update/", ResourceSubCategory, ActionUpdate},
		{"/subcategories/3/delete/", ResourceSubCategory, ActionDelete},
		{"/products/create/", ResourceProduct, ActionCreate},
		{"/products/17/update/", ResourceProduct, ActionUpdate},
		{"/products/17/delete/", ResourceProduct, ActionDelete},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rule, ok := MatchMutation(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.resource, rule.Resource)
			assert.Equal(t, tt.action, rule.Action)
		})
	}
}

func TestMatchMutationIgnoresReadPaths(t *testing.T) {
	for _, path := range []string{
		"/",
		"/categories/",
		"/categories/42/",
		"/subcategories/",
		"/products/",
		"/products/17/",
		"/login/",
		"/profile/",
	} {
		t.Run(path, func(t *testing.T) {
			_, ok := MatchMutation(path)
			assert.False(t, ok)
		})
	}
}

func TestMatchMutationRequiresExactShape(t *testing.T) {
	// Non-numeric IDs and nested suffixes must not match.
	for _, path := range []string{
		"/categories/abc/update/",
		"/categories/42/update/extra/",
		"/products/create",
		"/prefix/products/create/",
	} {
		t.Run(path, func(t *testing.T) {
			_, ok := MatchMutation(path)
			assert.False(t, ok)
		})
	}
}

func TestMutationRulesCoversAllResources(t *testing.T) {
	rules := MutationRules()
	require.Len(t, rules, 9)

	seen := make(map[Resource]map[Action]bool)
	for _, rule := range rules {
		if seen[rule.Resource] == nil {
			seen[rule.Resource] = make(map[Action]bool)
		}
		seen[rule.Resource][rule.Action] = true
	}
	for _, resource := range []Resource{ResourceCategory, ResourceSubCategory, ResourceProduct} {
		for _, action := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
			assert.True(t, seen[resource][action], "missing rule for %s %s", resource, action)
		}
	}
}
