package db

import "errors"

// Sentinel errors returned by repositories. Services wrap or translate these
// into their own error taxonomy.
var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrShareInactive indicates a share access transaction found the share
	// already latched inactive (revoked, expired or exhausted by a
	// concurrent access).
	ErrShareInactive = errors.New("share link is inactive")

	// ErrShareQuotaExhausted indicates a share access transaction found the
	// relevant counter at its limit; the transaction latches the share
	// inactive before returning this error.
	ErrShareQuotaExhausted = errors.New("share link quota exhausted")
)
