package models

import "time"

// EnvShare is a password-protected public share link for an environment's
// variables.
//
// IsActive is a one-way latch: it starts true and, once set to false (by
// expiry, revocation or quota exhaustion), never returns to true. The share
// protocol itself never deletes a share; deletion only cascades from the
// owning environment.
type EnvShare struct {
	ID             string     `json:"id" firestore:"-"` // Document ID, auto-generated
	EnvironmentID  string     `json:"environment_id" firestore:"environmentId"`
	Token          string     `json:"-" firestore:"token"` // High-entropy URL-safe token; only exposed inside ShareURL
	PasswordHash   string     `json:"-" firestore:"passwordHash"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty" firestore:"expiresAt,omitempty"`
	MaxViews       int        `json:"max_views" firestore:"maxViews"`
	MaxDownloads   int        `json:"max_downloads" firestore:"maxDownloads"`
	ViewCount      int        `json:"view_count" firestore:"viewCount"`
	DownloadCount  int        `json:"download_count" firestore:"downloadCount"`
	OneTime        bool       `json:"one_time" firestore:"oneTime"`
	IsActive       bool       `json:"is_active" firestore:"isActive"`
	WhitelistedIPs []string   `json:"whitelisted_ips,omitempty" firestore:"whitelistedIps,omitempty"`
	CreatedBy      string     `json:"created_by" firestore:"createdBy"`
	CreatedAt      time.Time  `json:"created_at" firestore:"createdAt,serverTimestamp"`
}

// SharedVariable is a single decrypted variable as delivered to a validated
// share consumer.
type SharedVariable struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	IsSecret bool   `json:"is_secret"`
}
