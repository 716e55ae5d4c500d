package permissions

import (
	"testing"

	"github.com/google/uuid"

	"github.com/craftlane/backend/internal/models"
)

func TestEffectiveSupersetOfRoleAndOverrides(t *testing.T) {
	roles := []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleStaff, models.RoleCustomer}
	overrides := []string{string(AuditRead), string(BillingManage)}

	for _, role := range roles {
		eff := Effective(role, overrides)
		for p := range ForRole(role) {
			if !eff.Contains(p) {
				t.Errorf("role %s: effective set missing role default %s", role, p)
			}
		}
		for _, p := range Normalize(overrides) {
			if !eff.Contains(p) {
				t.Errorf("role %s: effective set missing override %s", role, p)
			}
		}
	}
}

func TestUnknownRoleYieldsEmptySet(t *testing.T) {
	if got := ForRole(models.Role("superuser")); len(got) != 0 {
		t.Fatalf("unknown role permissions = %v, want empty", got)
	}
	if Has(models.Role("superuser"), nil, ProductsRead) {
		t.Fatal("unknown role must not have any permission")
	}
}

func TestNormalizeDropsUnknownOverrides(t *testing.T) {
	got := Normalize([]string{"products:read", "cluster:admin", ""})
	if len(got) != 1 || got[0] != ProductsRead {
		t.Fatalf("Normalize = %v, want [products:read]", got)
	}
}

func TestHasAnyHasAll(t *testing.T) {
	if !HasAny(models.RoleCustomer, nil, UsersManage, OrdersRead) {
		t.Error("customer should have orders:read")
	}
	if HasAll(models.RoleCustomer, nil, OrdersRead, OrdersWrite) {
		t.Error("customer should not have orders:write")
	}
	if !HasAll(models.RoleCustomer, []string{string(OrdersWrite)}, OrdersRead, OrdersWrite) {
		t.Error("override should grant orders:write")
	}
}

type rec struct {
	tenant uuid.UUID
	owner  uuid.UUID
}

func (r rec) RecordTenantID() uuid.UUID { return r.tenant }
func (r rec) RecordOwnerID() uuid.UUID  { return r.owner }

func TestFilterByScope(t *testing.T) {
	tenantA, tenantB := uuid.New(), uuid.New()
	me, other := uuid.New(), uuid.New()
	items := []rec{
		{tenant: tenantA, owner: me},
		{tenant: tenantA, owner: other},
		{tenant: tenantB, owner: me},
	}

	tests := []struct {
		name  string
		scope Scope
		want  int
	}{
		{"all", ScopeAll, 3},
		{"tenant", ScopeTenant, 2},
		{"own", ScopeOwn, 2},
		{"unknown fails closed", Scope("galaxy"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterByScope(items, tt.scope, tenantA, me)
			if len(got) != tt.want {
				t.Fatalf("FilterByScope(%s) len = %d, want %d", tt.scope, len(got), tt.want)
			}
		})
	}
}

func TestListScope(t *testing.T) {
	tests := []struct {
		role models.Role
		want Scope
	}{
		{models.RoleOwner, ScopeTenant},
		{models.RoleAdmin, ScopeTenant},
		{models.RoleStaff, ScopeTenant},
		{models.RoleCustomer, ScopeOwn},
		{models.Role("superuser"), Scope("")},
	}
	for _, tt := range tests {
		if got := ListScope(tt.role); got != tt.want {
			t.Fatalf("ListScope(%s) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestCanAssign(t *testing.T) {
	tests := []struct {
		actor, target models.Role
		want          bool
	}{
		{models.RoleOwner, models.RoleOwner, true},
		{models.RoleOwner, models.RoleAdmin, true},
		{models.RoleAdmin, models.RoleOwner, false},
		{models.RoleAdmin, models.RoleAdmin, false},
		{models.RoleAdmin, models.RoleStaff, true},
		{models.RoleStaff, models.RoleAdmin, false},
		{models.RoleStaff, models.RoleStaff, false},
		{models.RoleStaff, models.RoleCustomer, true},
		{models.RoleCustomer, models.RoleCustomer, false},
		{models.RoleAdmin, models.Role("ghost"), false},
	}
	for _, tt := range tests {
		if got := CanAssign(tt.actor, tt.target); got != tt.want {
			t.Errorf("CanAssign(%s, %s) = %v, want %v", tt.actor, tt.target, got, tt.want)
		}
	}
}
