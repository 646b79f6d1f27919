package core

import (
	"context"

	"envvault-backend-go/internal/models"
)

// UserService defines the interface for user profile operations.
type UserService interface {
	// GetOrCreate retrieves a user by ID, creating the profile on first
	// authenticated call. The bool reports whether a profile was created.
	GetOrCreate(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// ProjectService defines the interface for project, membership and
// environment operations. It is also the membership resolver the other
// services consult for access decisions.
type ProjectService interface {
	CreateProject(ctx context.Context, userID string, req models.CreateProjectRequest) (*models.Project, error)
	ListProjects(ctx context.Context, userID string) ([]*models.Project, error)
	GetProject(ctx context.Context, userID, projectID string) (*models.Project, error)
	DeleteProject(ctx context.Context, userID, projectID string) error

	AddMember(ctx context.Context, callerID, projectID string, req models.AddMemberRequest) error
	UpdateMember(ctx context.Context, callerID, projectID, targetUserID string, role models.Role) error
	RemoveMember(ctx context.Context, callerID, projectID, targetUserID string) error

	// CheckProjectAccess returns the caller's role in the project, or
	// ErrForbiddenAccess when no membership exists.
	CheckProjectAccess(ctx context.Context, projectID, userID string) (models.Role, error)
	// RoleForEnvironment resolves an environment to its project and returns
	// the caller's role there, plus the environment itself.
	RoleForEnvironment(ctx context.Context, environmentID, userID string) (models.Role, *models.Environment, error)

	CreateEnvironment(ctx context.Context, userID, projectID string, req models.CreateEnvironmentRequest) (*models.Environment, error)
	ListEnvironments(ctx context.Context, userID, projectID string) ([]*models.Environment, error)
	UpdateEnvironment(ctx context.Context, userID, environmentID string, req models.UpdateEnvironmentRequest) (*models.Environment, error)
	DeleteEnvironment(ctx context.Context, userID, environmentID string) error
}

// EnvVariableService defines the interface for variable operations. All
// reads present values through the masking policy; all writes keep the
// stored value consistent with its secrecy flag.
type EnvVariableService interface {
	Create(ctx context.Context, userID string, req models.CreateEnvVariableRequest) (*models.EnvVariable, error)
	List(ctx context.Context, userID, environmentID string, revealSecrets bool) ([]models.EnvVariableView, error)
	Get(ctx context.Context, userID, envVarID string, revealSecret bool) (*models.EnvVariable, *models.EnvVariableView, error)
	Update(ctx context.Context, userID, envVarID string, req models.UpdateEnvVariableRequest) (*models.EnvVariable, error)
	Delete(ctx context.Context, userID, envVarID string) error
	// EnvFileContent renders the environment as .env lines with secrets
	// decrypted; restricted to OWNER and ADMIN.
	EnvFileContent(ctx context.Context, userID, environmentID string) (string, error)
}

// EnvShareService defines the interface for the share link lifecycle and the
// anonymous access protocol.
type EnvShareService interface {
	CreateShare(ctx context.Context, userID, environmentID string, req models.CreateEnvShareRequest) (*models.EnvShare, string, error)
	ListShares(ctx context.Context, userID, environmentID string) ([]*models.EnvShare, error)
	RevokeShare(ctx context.Context, userID, shareID string) error

	// AccessView and AccessDownload run the anonymous access protocol:
	// token, expiry, IP allowlist, password, then atomic quota consumption.
	AccessView(ctx context.Context, token, password, clientIP string) (*models.EnvShare, []models.SharedVariable, error)
	AccessDownload(ctx context.Context, token, password, clientIP string) (*models.EnvShare, string, error)
}

// AuditService defines the fire-and-forget audit sink. Log never fails the
// calling request; storage errors are logged and swallowed.
type AuditService interface {
	Log(ctx context.Context, userID, action, resource, resourceID, details string)
}
