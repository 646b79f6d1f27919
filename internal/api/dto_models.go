package api

import "time"

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`             // A high-level error message or code
	Details string `json:"details,omitempty"` // More specific details about the error, if available
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// EnvShareResponse is the share link as returned to its creator. The raw
// token never appears on its own; it is only embedded in ShareURL, and only
// on creation.
type EnvShareResponse struct {
	ID             string     `json:"id"`
	EnvironmentID  string     `json:"environment_id"`
	ShareURL       string     `json:"share_url,omitempty"` // Populated on creation only
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	MaxViews       int        `json:"max_views"`
	MaxDownloads   int        `json:"max_downloads"`
	ViewCount      int        `json:"view_count"`
	DownloadCount  int        `json:"download_count"`
	OneTime        bool       `json:"one_time"`
	IsActive       bool       `json:"is_active"`
	WhitelistedIPs []string   `json:"whitelisted_ips,omitempty"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SharedEnvResponse is the payload delivered to a validated share consumer on
// a view access.
type SharedEnvResponse struct {
	EnvironmentID  string              `json:"environment_id"`
	Variables      []SharedVariableDTO `json:"variables"`
	RemainingViews int                 `json:"remaining_views"`
}

// SharedVariableDTO is a single decrypted variable in a share view payload.
type SharedVariableDTO struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	IsSecret bool   `json:"is_secret"`
}
