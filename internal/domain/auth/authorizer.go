package auth

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const policyModel = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// Authorizer answers role/permission checks from the static RolePermissions table.
type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("auth: load policy model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("auth: create enforcer: %w", err)
	}
	for role, perms := range RolePermissions {
		for _, perm := range perms {
			obj, act := splitPermission(perm)
			if _, err := e.AddPolicy(role, obj, act); err != nil {
				return nil, fmt.Errorf("auth: add policy %s %s: %w", role, perm, err)
			}
		}
	}
	return &Authorizer{enforcer: e}, nil
}

func (a *Authorizer) Allowed(role, permission string) (bool, error) {
	obj, act := splitPermission(permission)
	return a.enforcer.Enforce(role, obj, act)
}

func splitPermission(permission string) (string, string) {
	idx := strings.LastIndex(permission, ".")
	if idx < 0 {
		return permission, "*"
	}
	return permission[:idx], permission[idx+1:]
}
