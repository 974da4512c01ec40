package authz

import "fmt"

// RoleSeed 预置角色
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

func crud(collection string) []Policy {
	return []Policy{
		{Object: collection, Action: "*"},
		{Object: collection + "/:id", Action: "*"},
	}
}

// BuiltinRoleSeeds 预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	operations := []Policy{{Object: "/admin/coupons/generate", Action: "POST"}}
	for _, collection := range []string{
		"/admin/coupons",
		"/admin/bank-accounts",
		"/admin/banners",
		"/admin/partners",
		"/admin/footers",
		"/admin/gift-settings",
	} {
		operations = append(operations, crud(collection)...)
	}

	return []RoleSeed{
		{
			Role:     "readonly_auditor",
			Policies: []Policy{{Object: "/admin/*", Action: "GET"}},
		},
		{
			Role:     "operations",
			Inherits: []string{"readonly_auditor"},
			Policies: operations,
		},
		{
			Role:     "support",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/orders/:id/status", Action: "PATCH"},
				{Object: "/admin/dispatches/:id/retry", Action: "POST"},
			},
		},
		{
			Role:     "finance",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/orders/:id/payment", Action: "PATCH"},
				{Object: "/order/:id/payment", Action: "PATCH"},
				{Object: "/admin/bank-accounts", Action: "*"},
				{Object: "/admin/bank-accounts/:id", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色、继承关系与策略，重复执行无副作用
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), NormalizeAction(policy.Action)); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
