package database

import (
	"fmt"

	"office-chat/config"
	"office-chat/model"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

type policy struct {
	Role    string
	Path    string
	Methods string
}

var defaultPolicies = []policy{
	{model.RoleEmployee, "/v1/chat/*", "(GET)|(POST)"},
	{model.RoleAdmin, "/v1/admin/*", "(GET)|(POST)|(PUT)|(DELETE)"},
}

// Role inheritance: superadmin > admin > employee.
var defaultRoles = [][2]string{
	{model.RoleAdmin, model.RoleEmployee},
	{model.RoleSuperAdmin, model.RoleAdmin},
}

func Casbin(db *gorm.DB) (*casbin.Enforcer, error) {
	// Initialize casbin adapter
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize casbin adapter: %w", err)
	}

	m, err := casbinmodel.NewModelFromString(config.RBACModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	// Add default policy
	for _, p := range defaultPolicies {
		if _, err := e.AddPolicy(p.Role, p.Path, p.Methods); err != nil {
			return nil, fmt.Errorf("failed to add policy %s %s: %w", p.Role, p.Path, err)
		}
	}
	for _, g := range defaultRoles {
		if _, err := e.AddGroupingPolicy(g[0], g[1]); err != nil {
			return nil, fmt.Errorf("failed to add role %s: %w", g[0], err)
		}
	}

	return e, nil
}
