package models

import "time"

// Project groups environments and their variables under a single owner.
//
// Members maps user IDs to their project role. The map holds at most one
// entry per user, so "exactly one membership per (project, user)" is true by
// construction. The owner's entry is written in the same document create as
// the project itself and is never reassigned or removed afterwards.
type Project struct {
	ID      string          `json:"id" firestore:"-"` // Document ID, auto-generated
	Name    string          `json:"name" firestore:"name"`
	OwnerID string          `json:"ownerId" firestore:"ownerId"`
	Members map[string]Role `json:"members" firestore:"members"`
	// MemberIDs mirrors the keys of Members; Firestore cannot query map keys,
	// so membership lookups use array-contains on this field.
	MemberIDs []string  `json:"-" firestore:"memberIds"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}
