package models

import "time"

// Environment is a named variable set within a project (e.g. DEV, QA, PROD).
type Environment struct {
	ID        string    `json:"id" firestore:"-"` // Document ID, auto-generated
	Name      string    `json:"name" firestore:"name"`
	ProjectID string    `json:"projectId" firestore:"projectId"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}
