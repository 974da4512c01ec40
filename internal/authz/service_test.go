package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceAdminWithRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", "/admin/coupons/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetAdminRoles(1, []string{"ops"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	allow, err := svc.EnforceAdmin(1, "/api/admin/coupons/42", "get")
	if err != nil || !allow {
		t.Fatalf("expected allow, got %v %v", allow, err)
	}
	allow, err = svc.EnforceAdmin(1, "/api/admin/coupons/42", "DELETE")
	if err != nil || allow {
		t.Fatalf("expected deny, got %v %v", allow, err)
	}
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", "/admin/orders", "GET"); err != nil {
		t.Fatalf("grant ops policy failed: %v", err)
	}
	if err := svc.GrantRolePolicy("finance", "/admin/dispatches", "GET"); err != nil {
		t.Fatalf("grant finance policy failed: %v", err)
	}

	if err := svc.SetAdminRoles(2, []string{"ops"}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	if err := svc.SetAdminRoles(2, []string{"finance"}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	roles, err := svc.GetAdminRoles(2)
	if err != nil || len(roles) != 1 || roles[0] != "role:finance" {
		t.Fatalf("roles want [role:finance], got=%v err=%v", roles, err)
	}

	if allow, _ := svc.EnforceAdmin(2, "/admin/orders", "GET"); allow {
		t.Fatalf("expected old role permission removed")
	}
	if allow, _ := svc.EnforceAdmin(2, "/admin/dispatches", "GET"); !allow {
		t.Fatalf("expected new role permission granted")
	}
}

func TestDeleteRoleRemovesAccess(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("temp", "/admin/banners", "*"); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if err := svc.SetAdminRoles(4, []string{"temp"}); err != nil {
		t.Fatalf("set roles failed: %v", err)
	}
	if err := svc.DeleteRole("temp"); err != nil {
		t.Fatalf("delete role failed: %v", err)
	}
	if allow, _ := svc.EnforceAdmin(4, "/admin/banners", "POST"); allow {
		t.Fatalf("deleted role should not grant access")
	}
	roles, _ := svc.ListRoles()
	for _, role := range roles {
		if role == "role:temp" {
			t.Fatalf("deleted role still listed")
		}
	}
}

func TestNormalizeObjectAndRole(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/admin/orders/:id", want: "/admin/orders/:id"},
		{in: "/api/order/:id/payment", want: "/order/:id/payment"},
		{in: "admin/orders", want: "/admin/orders"},
		{in: "/api", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		if got := NormalizeObject(item.in); got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}

	if got, err := NormalizeRole(" role:read only "); err != nil || got != "role:read_only" {
		t.Fatalf("normalize role failed: %q %v", got, err)
	}
	if _, err := NormalizeRole("__anchor__"); err == nil {
		t.Fatalf("reserved role should be rejected")
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	for i := 0; i < 2; i++ {
		if err := svc.BootstrapBuiltinRoles(); err != nil {
			t.Fatalf("bootstrap builtin roles failed: %v", err)
		}
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	want := map[string]bool{
		"role:readonly_auditor": true,
		"role:operations":       true,
		"role:support":          true,
		"role:finance":          true,
	}
	for _, role := range roles {
		delete(want, role)
	}
	if len(want) != 0 {
		t.Fatalf("builtin roles missing: %v", want)
	}

	if err := svc.SetAdminRoles(3, []string{"operations"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}
	checks := []struct {
		obj   string
		act   string
		allow bool
	}{
		{"/api/admin/orders", "GET", true},
		{"/api/admin/coupons/:id", "PUT", true},
		{"/api/admin/coupons/generate", "POST", true},
		{"/api/admin/orders/:id/status", "PATCH", false},
		{"/api/order/:id/payment", "PATCH", false},
	}
	for _, check := range checks {
		allow, err := svc.EnforceAdmin(3, check.obj, check.act)
		if err != nil || allow != check.allow {
			t.Fatalf("operations %s %s want %v got %v (%v)", check.act, check.obj, check.allow, allow, err)
		}
	}

	if err := svc.SetAdminRoles(5, []string{"finance"}); err != nil {
		t.Fatalf("set finance role failed: %v", err)
	}
	if allow, _ := svc.EnforceAdmin(5, "/api/order/:id/payment", "PATCH"); !allow {
		t.Fatalf("finance should update payment status")
	}
	policies, err := svc.GetAdminPolicies(5)
	if err != nil || len(policies) == 0 {
		t.Fatalf("implicit policies missing: %v %v", policies, err)
	}
}
