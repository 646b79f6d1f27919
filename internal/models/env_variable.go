package models

import "time"

// EnvVariable is a single key/value entry inside an environment.
//
// Invariant: when IsSecret is true, Value holds ciphertext produced by the
// crypto.Codec under the current master key; when false, Value is the plain
// text verbatim. The two fields are always written together so no persisted
// state can contradict the flag.
type EnvVariable struct {
	ID            string    `json:"id" firestore:"-"` // Document ID, auto-generated
	Key           string    `json:"key" firestore:"key"`
	Value         string    `json:"-" firestore:"value"` // Never serialized to API responses as stored
	IsSecret      bool      `json:"is_secret" firestore:"isSecret"`
	EnvironmentID string    `json:"environment_id" firestore:"environmentId"`
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt,serverTimestamp"`
	UpdatedAt     time.Time `json:"updated_at" firestore:"updatedAt,serverTimestamp"`
}

// EnvVariableView is a variable as presented to an authorized caller: Value
// carries the plaintext, the masked rendering, or the stored plain value
// depending on the caller's role and reveal request. It is never persisted.
type EnvVariableView struct {
	ID            string    `json:"id"`
	Key           string    `json:"key"`
	Value         string    `json:"value"`
	IsSecret      bool      `json:"is_secret"`
	EnvironmentID string    `json:"environment_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
