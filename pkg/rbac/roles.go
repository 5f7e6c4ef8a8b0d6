package rbac

// Role represents a user's role in the catalog
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSeller   Role = "seller"
	RoleCustomer Role = "customer"
)

// Roles returns all valid roles
func Roles() []Role {
	return []Role{RoleAdmin, RoleSeller, RoleCustomer}
}

// Valid reports whether the role is one of the closed enum values.
// Any other value is invalid input, not a new role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSeller, RoleCustomer:
		return true
	}
	return false
}

// CanMutate reports whether the role may create, update, or delete
// catalog records.
func CanMutate(role Role) bool {
	return role == RoleAdmin || role == RoleSeller
}

// CanView reports whether the role may read catalog records. All
// authenticated roles may read; a missing role means no access.
func CanView(role Role) bool {
	return role.Valid()
}

// CanMutateProduct reports whether the actor may mutate a specific product.
// A product's creator may mutate it even without a mutating role.
func CanMutateProduct(role Role, actorID, createdBy int64) bool {
	return CanMutate(role) || actorID == createdBy
}

// PermissionSet holds the derived permission flags for a role. It is
// computed per call wherever needed, never held as ambient state.
type PermissionSet struct {
	Role       Role `json:"role"`
	IsAdmin    bool `json:"is_admin"`
	IsSeller   bool `json:"is_seller"`
	IsCustomer bool `json:"is_customer"`
	CanAdd     bool `json:"can_add"`
	CanEdit    bool `json:"can_edit"`
	CanDelete  bool `json:"can_delete"`
}

// Derive computes the permission set for a role. An invalid or missing
// role derives the zero set.
func Derive(role Role) PermissionSet {
	if !role.Valid() {
		return PermissionSet{}
	}
	mutate := CanMutate(role)
	return PermissionSet{
		Role:       role,
		IsAdmin:    role == RoleAdmin,
		IsSeller:   role == RoleSeller,
		IsCustomer: role == RoleCustomer,
		CanAdd:     mutate,
		CanEdit:    mutate,
		CanDelete:  mutate,
	}
}
