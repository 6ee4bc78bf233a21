package models

// Role is a named grant bundle. The catalog is static and seeded by
// migration; IDs are stable.
type Role struct {
	ID          int          `gorm:"primaryKey"`
	Name        string       `gorm:"type:text;not null;uniqueIndex:ux_roles_name"`
	Permissions []Permission `gorm:"many2many:role_permissions;"`
}

// Permission names an allowed operation, checked by the authorization
// middleware against the flattened per-user set.
type Permission struct {
	ID   int    `gorm:"primaryKey"`
	Name string `gorm:"type:text;not null;uniqueIndex:ux_permissions_name"`
}

// Static role catalog, mirrored by the seed migration.
var (
	RoleRegistered = Role{ID: 1, Name: "Registered"}
	RoleSuperAdmin = Role{ID: 2, Name: "SuperAdmin"}
)

// Permission names, mirrored by the seed migration.
const (
	PermissionUsersReadSelf   = "users:read-self"
	PermissionUsersRead       = "users:read"
	PermissionUsersReadSingle = "users:read-single"
	PermissionUsersUpdate     = "users:update"
	PermissionUsersDelete     = "users:delete"
	PermissionBlogsRead       = "blogs:read"
	PermissionBlogsWrite      = "blogs:write"
	PermissionTagsRead        = "tags:read"
	PermissionTagsWrite       = "tags:write"
)
