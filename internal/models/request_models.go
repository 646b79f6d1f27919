package models

import "time"

// CreateProjectRequest represents the request body for creating a project.
type CreateProjectRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddMemberRequest represents the request body for adding a project member.
type AddMemberRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   Role   `json:"role" binding:"required"`
}

// UpdateMemberRequest represents the request body for changing a member's role.
type UpdateMemberRequest struct {
	Role Role `json:"role" binding:"required"`
}

// CreateEnvironmentRequest represents the request body for creating an environment.
type CreateEnvironmentRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateEnvironmentRequest represents the request body for updating an environment.
// Pointers distinguish "not provided" from an explicit empty value.
type UpdateEnvironmentRequest struct {
	Name *string `json:"name,omitempty"`
}

// CreateEnvVariableRequest represents the request body for creating an
// environment variable. Value arrives in plain text; the service encrypts it
// before persisting when IsSecret is set.
type CreateEnvVariableRequest struct {
	Key           string `json:"key" binding:"required"`
	Value         string `json:"value"`
	IsSecret      bool   `json:"is_secret"`
	EnvironmentID string `json:"environment_id" binding:"required"`
}

// UpdateEnvVariableRequest represents the request body for updating an
// environment variable. Pointers distinguish "not provided" from explicit
// empty values, which matters for the is_secret toggle.
type UpdateEnvVariableRequest struct {
	Key      *string `json:"key,omitempty"`
	Value    *string `json:"value,omitempty"`
	IsSecret *bool   `json:"is_secret,omitempty"`
}

// CreateEnvShareRequest represents the request body for creating a share link.
type CreateEnvShareRequest struct {
	Password       string     `json:"password" binding:"required,min=6"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	MaxViews       *int       `json:"max_views,omitempty"`     // Defaults to 5 when absent; must be >= 0
	MaxDownloads   *int       `json:"max_downloads,omitempty"` // Defaults to 1 when absent; must be >= 0
	OneTime        bool       `json:"one_time"`
	WhitelistedIPs []string   `json:"whitelisted_ips,omitempty"`
}

// EnvShareAccessRequest represents the request body for accessing a share
// link (view or download).
type EnvShareAccessRequest struct {
	Password string `json:"password" binding:"required"`
}
