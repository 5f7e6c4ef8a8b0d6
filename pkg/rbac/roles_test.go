package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleSeller.Valid())
	assert.True(t, RoleCustomer.Valid())
	assert.False(t, Role("").Valid())
	assert.False(t, Role("manager").Valid())
}

func TestCanMutate(t *testing.T) {
	assert.True(t, CanMutate(RoleAdmin))
	assert.True(t, CanMutate(RoleSeller))
	assert.False(t, CanMutate(RoleCustomer))
	assert.False(t, CanMutate(Role("")))
}

func TestCanMutateProductOwnershipOverride(t *testing.T) {
	t.Run("mutating roles may mutate any product", func(t *testing.T) {
		assert.True(t, CanMutateProduct(RoleAdmin, 1, 99))
		assert.True(t, CanMutateProduct(RoleSeller, 1, 99))
	})

	t.Run("customer may mutate own product", func(t *testing.T) {
		assert.True(t, CanMutateProduct(RoleCustomer, 7, 7))
	})

	t.Run("customer may not mutate another user's product", func(t *testing.T) {
		assert.False(t, CanMutateProduct(RoleCustomer, 7, 8))
	})
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want PermissionSet
	}{
		{
			name: "admin",
			role: RoleAdmin,
			want: PermissionSet{Role: RoleAdmin, IsAdmin: true, CanAdd: true, CanEdit: true, CanDelete: true},
		},
		{
			name: "seller",
			role: RoleSeller,
			want: PermissionSet{Role: RoleSeller, IsSeller: true, CanAdd: true, CanEdit: true, CanDelete: true},
		},
		{
			name: "customer",
			role: RoleCustomer,
			want: PermissionSet{Role: RoleCustomer, IsCustomer: true},
		},
		{
			name: "invalid role derives the zero set",
			role: Role("superuser"),
			want: PermissionSet{},
		},
		{
			name: "missing role derives the zero set",
			role: Role(""),
			want: PermissionSet{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(tt.role))
		})
	}
}

func TestSubjectPermissions(t *testing.T) {
	var nilSubject *Subject
	assert.Equal(t, PermissionSet{}, nilSubject.Permissions())

	subject := &Subject{UserID: 1, Role: RoleSeller}
	assert.True(t, subject.Permissions().CanAdd)
}
