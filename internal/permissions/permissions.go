// Package permissions computes effective permissions and ownership-scope
// filtering. Everything here is pure and stateless; role lookups for unknown
// roles yield the empty set rather than an error.
package permissions

import (
	"github.com/google/uuid"

	"github.com/craftlane/backend/internal/models"
)

// Permission identifies a single grantable action. The set is closed; the
// per-user override layer may carry any of these but nothing else survives
// Normalize.
type Permission string

const (
	ProductsRead  Permission = "products:read"
	ProductsWrite Permission = "products:write"
	OrdersRead    Permission = "orders:read"
	OrdersWrite   Permission = "orders:write"
	UsersRead     Permission = "users:read"
	UsersManage   Permission = "users:manage"
	TenantManage  Permission = "tenant:manage"
	BillingManage Permission = "billing:manage"
	AuditRead     Permission = "audit:read"
)

var allPermissions = map[Permission]struct{}{
	ProductsRead:  {},
	ProductsWrite: {},
	OrdersRead:    {},
	OrdersWrite:   {},
	UsersRead:     {},
	UsersManage:   {},
	TenantManage:  {},
	BillingManage: {},
	AuditRead:     {},
}

// Set is an immutable-by-convention permission set.
type Set map[Permission]struct{}

// Contains reports whether p is in the set.
func (s Set) Contains(p Permission) bool {
	_, ok := s[p]
	return ok
}

var rolePermissions = map[models.Role]Set{
	models.RoleOwner: {
		ProductsRead: {}, ProductsWrite: {},
		OrdersRead: {}, OrdersWrite: {},
		UsersRead: {}, UsersManage: {},
		TenantManage: {}, BillingManage: {}, AuditRead: {},
	},
	models.RoleAdmin: {
		ProductsRead: {}, ProductsWrite: {},
		OrdersRead: {}, OrdersWrite: {},
		UsersRead: {}, UsersManage: {},
		TenantManage: {}, AuditRead: {},
	},
	models.RoleStaff: {
		ProductsRead: {}, ProductsWrite: {},
		OrdersRead: {}, OrdersWrite: {},
		UsersRead: {},
	},
	models.RoleCustomer: {
		ProductsRead: {}, OrdersRead: {},
	},
}

// ForRole returns the default permission set for a role. Unknown roles get
// the empty set.
func ForRole(role models.Role) Set {
	base, ok := rolePermissions[role]
	if !ok {
		return Set{}
	}
	out := make(Set, len(base))
	for p := range base {
		out[p] = struct{}{}
	}
	return out
}

// Normalize filters raw override strings down to known permissions.
func Normalize(overrides []string) []Permission {
	var out []Permission
	for _, o := range overrides {
		p := Permission(o)
		if _, ok := allPermissions[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Effective returns role defaults unioned with per-user overrides.
func Effective(role models.Role, overrides []string) Set {
	set := ForRole(role)
	for _, p := range Normalize(overrides) {
		set[p] = struct{}{}
	}
	return set
}

// Has reports whether the role plus overrides grant p.
func Has(role models.Role, overrides []string, p Permission) bool {
	return Effective(role, overrides).Contains(p)
}

// HasAny reports whether at least one of perms is granted.
func HasAny(role models.Role, overrides []string, perms ...Permission) bool {
	set := Effective(role, overrides)
	for _, p := range perms {
		if set.Contains(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of perms is granted.
func HasAll(role models.Role, overrides []string, perms ...Permission) bool {
	set := Effective(role, overrides)
	for _, p := range perms {
		if !set.Contains(p) {
			return false
		}
	}
	return true
}

// Scope is the breadth of records a permission applies to.
type Scope string

const (
	// ScopeAll applies to every record; platform-level roles only.
	ScopeAll Scope = "all"
	// ScopeTenant applies to records of the acting user's tenant.
	ScopeTenant Scope = "tenant"
	// ScopeOwn applies only to records owned by the acting user.
	ScopeOwn Scope = "own"
)

// ListScope returns the breadth of directory listings a role may see.
// Customers see only their own record; staff tiers see the whole tenant.
// Unknown roles get no scope, which FilterByScope turns into an empty
// result.
func ListScope(role models.Role) Scope {
	switch role {
	case models.RoleOwner, models.RoleAdmin, models.RoleStaff:
		return ScopeTenant
	case models.RoleCustomer:
		return ScopeOwn
	default:
		return ""
	}
}

// Record is anything that can be narrowed by ownership scope.
type Record interface {
	RecordTenantID() uuid.UUID
	RecordOwnerID() uuid.UUID
}

// FilterByScope narrows items to the given scope. Every list-style operation
// applies this before results reach the caller. An unknown scope yields an
// empty result (fail closed).
func FilterByScope[T Record](items []T, scope Scope, tenantID, userID uuid.UUID) []T {
	switch scope {
	case ScopeAll:
		return items
	case ScopeTenant:
		out := make([]T, 0, len(items))
		for _, it := range items {
			if it.RecordTenantID() == tenantID {
				out = append(out, it)
			}
		}
		return out
	case ScopeOwn:
		out := make([]T, 0, len(items))
		for _, it := range items {
			if it.RecordOwnerID() == userID {
				out = append(out, it)
			}
		}
		return out
	default:
		return nil
	}
}

// roleRank orders roles for assignment checks. Unknown roles rank below
// customer so they can never grant anything.
var roleRank = map[models.Role]int{
	models.RoleCustomer: 1,
	models.RoleStaff:    2,
	models.RoleAdmin:    3,
	models.RoleOwner:    4,
}

// Rank returns the ordering position of a role; unknown roles return 0.
func Rank(role models.Role) int { return roleRank[role] }

// CanAssign reports whether an actor may grant target to another user. An
// actor may only assign roles strictly below its own, and only an existing
// owner may create or promote to owner.
func CanAssign(actor, target models.Role) bool {
	if target == models.RoleOwner {
		return actor == models.RoleOwner
	}
	return Rank(actor) > Rank(target) && Rank(target) > 0
}
