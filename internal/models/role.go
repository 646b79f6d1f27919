package models

// Role is the membership role of a user within a project.
//
// The four roles carry explicit, partly disjoint capability sets (see
// core.CheckPermission): ADMIN has full CRUD but sees secrets masked by
// default, while DEVELOPER may only view non-secret values. Because the
// capabilities do not nest, Role must never be compared numerically.
type Role string

const (
	RoleOwner     Role = "OWNER"
	RoleAdmin     Role = "ADMIN"
	RoleDeveloper Role = "DEVELOPER"
	RoleReadOnly  Role = "READ_ONLY"
)

// IsValid reports whether r is one of the four known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleDeveloper, RoleReadOnly:
		return true
	}
	return false
}
