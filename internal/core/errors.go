package core

import "errors"

// Sentinel errors shared across the core services. Handlers map these onto
// HTTP statuses; anything not in this taxonomy is treated as an internal
// fault.
var (
	// ErrPermissionDenied means the caller's role lacks the capability for
	// this action/secrecy combination.
	ErrPermissionDenied = errors.New("insufficient permissions")

	// ErrForbiddenAccess means the caller has no membership in the project
	// at all.
	ErrForbiddenAccess = errors.New("access denied to this project")

	ErrProjectNotFound     = errors.New("project not found")
	ErrEnvironmentNotFound = errors.New("environment not found")
	ErrEnvVarNotFound      = errors.New("environment variable not found")
	ErrShareNotFound       = errors.New("share link not found")
	ErrUserNotFound        = errors.New("user not found")

	// ErrShareInvalidOrInactive covers both an unknown token and a latched
	// inactive link. The two are deliberately indistinguishable so a caller
	// probing tokens learns nothing about which ones ever existed.
	ErrShareInvalidOrInactive = errors.New("share link is invalid or inactive")

	ErrShareExpired         = errors.New("share link has expired")
	ErrShareIPNotAllowed    = errors.New("ip address is not allowed for this share link")
	ErrShareInvalidPassword = errors.New("invalid password for share link")
	ErrShareQuotaExceeded   = errors.New("access limit exceeded for this share link")

	// ErrEncryptionFailed / ErrDecryptionFailed are server-side faults, not
	// access-control refusals. A decryption failure almost always means the
	// value was written under a different master key.
	ErrEncryptionFailed = errors.New("failed to encrypt secret value")
	ErrDecryptionFailed = errors.New("failed to decrypt secret value")

	// ErrOwnerImmutable guards the owner membership: it is created with the
	// project and can never be reassigned or removed.
	ErrOwnerImmutable = errors.New("project owner membership cannot be changed")

	ErrInvalidRole = errors.New("invalid role")
)
