package db

import (
	"context"

	"envvault-backend-go/internal/models"
)

// ShareAccessKind distinguishes the two consumable access types of a share
// link. Each kind draws from its own counter/limit pair.
type ShareAccessKind string

const (
	ShareAccessView     ShareAccessKind = "view"
	ShareAccessDownload ShareAccessKind = "download"
)

// UserRepository defines the interface for user profile storage.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// ProjectRepository defines the interface for project and membership storage.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) (string, error) // Returns new project ID
	GetByID(ctx context.Context, projectID string) (*models.Project, error)
	GetByMemberID(ctx context.Context, userID string) ([]*models.Project, error)
	// SetMember adds or updates a single membership entry. At most one entry
	// per (project, user) exists because memberships live in a keyed map.
	SetMember(ctx context.Context, projectID, userID string, role models.Role) error
	RemoveMember(ctx context.Context, projectID, userID string) error
	Delete(ctx context.Context, projectID string) error
}

// EnvironmentRepository defines the interface for environment storage.
type EnvironmentRepository interface {
	Create(ctx context.Context, env *models.Environment) (string, error) // Returns new environment ID
	GetByID(ctx context.Context, environmentID string) (*models.Environment, error)
	GetByProjectID(ctx context.Context, projectID string) ([]*models.Environment, error)
	Update(ctx context.Context, env *models.Environment) error
	Delete(ctx context.Context, environmentID string) error
}

// EnvVariableRepository defines the interface for environment variable storage.
type EnvVariableRepository interface {
	Create(ctx context.Context, envVar *models.EnvVariable) (string, error) // Returns new variable ID
	GetByID(ctx context.Context, envVarID string) (*models.EnvVariable, error)
	GetByEnvironmentID(ctx context.Context, environmentID string) ([]*models.EnvVariable, error)
	// Update persists key, value and isSecret together in a single write so
	// the stored value can never disagree with its secrecy flag.
	Update(ctx context.Context, envVar *models.EnvVariable) error
	Delete(ctx context.Context, envVarID string) error
	DeleteByEnvironmentID(ctx context.Context, environmentID string) error
}

// EnvShareRepository defines the interface for share link storage.
type EnvShareRepository interface {
	Create(ctx context.Context, share *models.EnvShare) (string, error) // Returns new share ID
	GetByID(ctx context.Context, shareID string) (*models.EnvShare, error)
	// GetByToken returns ErrNotFound for an unknown token. Callers must not
	// distinguish that from an inactive share in anything user-visible.
	GetByToken(ctx context.Context, token string) (*models.EnvShare, error)
	GetByEnvironmentID(ctx context.Context, environmentID string) ([]*models.EnvShare, error)
	// Deactivate latches isActive to false. Idempotent; there is no path back.
	Deactivate(ctx context.Context, shareID string) error
	// ConsumeAccess atomically re-checks the quota for the given access kind,
	// increments the matching counter and applies any latch that follows from
	// the increment (downloads always latch; views latch on one_time or on
	// reaching max_views). The check and increment run in one transaction so
	// two concurrent accesses can never both pass a quota with a single slot
	// left. Returns the share as committed, or ErrShareInactive /
	// ErrShareQuotaExhausted.
	ConsumeAccess(ctx context.Context, shareID string, kind ShareAccessKind) (*models.EnvShare, error)
	DeleteByEnvironmentID(ctx context.Context, environmentID string) error
}

// AuditRepository defines the interface for audit log storage.
type AuditRepository interface {
	Create(ctx context.Context, logEntry models.AuditLog) error
}
