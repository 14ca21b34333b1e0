package auth

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/voip8pbx/ShieldHire-sub000/internal/db/models"
)

//go:embed model.conf
var casbinModelContent string

// rolePrefix keeps role subjects apart from any future principal subjects.
const rolePrefix = "role:"

// RoleSubject returns the Casbin subject for a role.
func RoleSubject(r models.Role) string {
	return rolePrefix + string(r)
}

// defaultPolicies grants the base permissions every role inherits from USER.
var defaultPolicies = [][]string{
	{RoleSubject(models.RoleUser), ObjectTypeAlert, AlertCreate},
	{RoleSubject(models.RoleUser), ObjectTypeAlert, AlertRead},
	{RoleSubject(models.RoleUser), ObjectTypeSession, SessionReadSelf},
	{RoleSubject(models.RoleAdmin), ObjectTypeAlert, AllWildcard},
	{RoleSubject(models.RoleAdmin), ObjectTypeProfile, AllWildcard},
}

// defaultGroupings is the role hierarchy: staff and admins are also users.
var defaultGroupings = [][]string{
	{RoleSubject(models.RoleBouncer), RoleSubject(models.RoleUser)},
	{RoleSubject(models.RoleGunman), RoleSubject(models.RoleBouncer)},
	{RoleSubject(models.RoleAdmin), RoleSubject(models.RoleUser)},
}

// InitEnforcer creates a Casbin enforcer from the embedded RBAC model with
// the role policies loaded in memory. Policies are fixed at startup;
// authorization never mutates them.
func InitEnforcer() (casbin.IEnforcer, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if _, err := enforcer.AddPolicies(defaultPolicies); err != nil {
		return nil, fmt.Errorf("load casbin policies: %w", err)
	}
	if _, err := enforcer.AddGroupingPolicies(defaultGroupings); err != nil {
		return nil, fmt.Errorf("load casbin role hierarchy: %w", err)
	}

	return enforcer, nil
}

// Authorize reports whether role may perform action on objType.
func Authorize(enforcer casbin.IEnforcer, role models.Role, objType, action string) (bool, error) {
	allowed, err := enforcer.Enforce(RoleSubject(role), objType, action)
	if err != nil {
		return false, fmt.Errorf("evaluate policy: %w", err)
	}
	return allowed, nil
}
