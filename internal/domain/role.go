package domain

import (
	"fmt"
	"strings"
)

// Role is the coarse grant stored on a user.
type Role string

const (
	RoleUser    Role = "USER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// Permission is a fine-grained authority derived from a role.
type Permission string

const (
	PermissionAdminRead        Permission = "admin:read"
	PermissionAdminCreate      Permission = "admin:create"
	PermissionAdminUpdate      Permission = "admin:update"
	PermissionAdminDelete      Permission = "admin:delete"
	PermissionManagementRead   Permission = "management:read"
	PermissionManagementCreate Permission = "management:create"
	PermissionManagementUpdate Permission = "management:update"
	PermissionManagementDelete Permission = "management:delete"
)

const rolePrefix = "ROLE_"

var rolePermissions = map[Role][]Permission{
	RoleUser: nil,
	RoleManager: {
		PermissionManagementRead,
		PermissionManagementCreate,
		PermissionManagementUpdate,
		PermissionManagementDelete,
	},
	RoleAdmin: {
		PermissionAdminRead,
		PermissionAdminCreate,
		PermissionAdminUpdate,
		PermissionAdminDelete,
		PermissionManagementRead,
		PermissionManagementCreate,
		PermissionManagementUpdate,
		PermissionManagementDelete,
	},
}

// ParseRole normalizes a role name. Empty input yields RoleUser.
func ParseRole(raw string) (Role, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return RoleUser, nil
	}
	role := Role(raw)
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permissions returns the permissions granted by the role.
func (r Role) Permissions() []Permission {
	perms := rolePermissions[r]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// Authorities lists the role permissions followed by the ROLE_ authority.
func (r Role) Authorities() []string {
	perms := r.Permissions()
	out := make([]string, 0, len(perms)+1)
	for _, p := range perms {
		out = append(out, string(p))
	}
	return append(out, RoleAuthority(r))
}

// RoleAuthority returns the authority string for a role.
func RoleAuthority(r Role) string {
	return rolePrefix + string(r)
}
