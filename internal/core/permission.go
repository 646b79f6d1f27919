package core

import "envvault-backend-go/internal/models"

// Action is a capability gate name used by the permission check.
type Action string

const (
	// ActionView gates reading a variable (list or single).
	ActionView Action = "view"
	// ActionCopy gates copying/downloading values out of an environment.
	ActionCopy Action = "copy"
	// ActionEdit gates create, update and delete uniformly.
	ActionEdit Action = "edit"
)

// CheckPermission reports whether a role may perform an action on a value of
// the given secrecy. It is pure and total over every (role, action, secrecy)
// combination.
//
// The roles hold explicit capability sets, not a privilege ladder:
//
//	OWNER      everything
//	ADMIN      everything (secret views come back masked unless revealed)
//	DEVELOPER  view non-secret values only
//	READ_ONLY  nothing
//
// Whether an allowed secret view is masked or revealed is decided separately
// by PresentValue; this check only answers allow/deny.
func CheckPermission(role models.Role, action Action, isSecret bool) bool {
	switch role {
	case models.RoleOwner:
		return true
	case models.RoleAdmin:
		return action == ActionView || action == ActionCopy || action == ActionEdit
	case models.RoleDeveloper:
		return action == ActionView && !isSecret
	case models.RoleReadOnly:
		return false
	}
	return false
}
