package models

import "time"

// AuditLog records the outcome of an access decision. Writing it is
// fire-and-forget from the caller's point of view: a failed write must never
// fail the request that produced it.
type AuditLog struct {
	ID         string    `json:"id" firestore:"-"` // Document ID, auto-generated
	UserID     string    `json:"userId" firestore:"userId"`         // Who the action is attributed to
	Action     string    `json:"action" firestore:"action"`         // e.g. "view", "copy", "edit", "delete", "create", "revoke"
	Resource   string    `json:"resource" firestore:"resource"`     // e.g. "env_var", "env_share", "project", "environment"
	ResourceID string    `json:"resourceId,omitempty" firestore:"resourceId,omitempty"`
	Details    string    `json:"details,omitempty" firestore:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp" firestore:"timestamp,serverTimestamp"`
}
