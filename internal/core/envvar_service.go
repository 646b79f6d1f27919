package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"envvault-backend-go/internal/crypto"
	"envvault-backend-go/internal/db"
	"envvault-backend-go/internal/models"
)

// envVariableService implements the EnvVariableService interface. Every
// operation resolves the caller's role through the project service and checks
// it against the action/secrecy matrix before touching storage.
type envVariableService struct {
	envVarRepo     db.EnvVariableRepository
	projectService ProjectService
	auditService   AuditService
	codec          *crypto.Codec
}

// NewEnvVariableService creates a new EnvVariableService instance.
func NewEnvVariableService(
	envVarRepo db.EnvVariableRepository,
	projectService ProjectService,
	auditService AuditService,
	codec *crypto.Codec,
) EnvVariableService {
	return &envVariableService{
		envVarRepo:     envVarRepo,
		projectService: projectService,
		auditService:   auditService,
		codec:          codec,
	}
}

// Create stores a new variable. The value is encrypted if and only if the
// variable is flagged secret.
func (s *envVariableService) Create(ctx context.Context, userID string, req models.CreateEnvVariableRequest) (*models.EnvVariable, error) {
	role, _, err := s.projectService.RoleForEnvironment(ctx, req.EnvironmentID, userID)
	if err != nil {
		return nil, err
	}
	if !CheckPermission(role, ActionEdit, req.IsSecret) {
		return nil, ErrPermissionDenied
	}

	storedValue := req.Value
	if req.IsSecret {
		storedValue, err = s.codec.Encrypt(req.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
		}
	}

	envVar := &models.EnvVariable{
		Key:           req.Key,
		Value:         storedValue,
		IsSecret:      req.IsSecret,
		EnvironmentID: req.EnvironmentID,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	envVarID, err := s.envVarRepo.Create(ctx, envVar)
	if err != nil {
		return nil, fmt.Errorf("failed to create variable '%s': %w", req.Key, err)
	}
	envVar.ID = envVarID

	s.auditService.Log(ctx, userID, "create", "env_variable", envVarID, fmt.Sprintf("key=%s secret=%t", req.Key, req.IsSecret))
	return envVar, nil
}

// List returns the environment's variables as the caller is allowed to see
// them. DEVELOPER gets non-secret entries only; ADMIN sees secrets masked
// unless revealSecrets is set; OWNER always sees plaintext.
func (s *envVariableService) List(ctx context.Context, userID, environmentID string, revealSecrets bool) ([]models.EnvVariableView, error) {
	role, _, err := s.projectService.RoleForEnvironment(ctx, environmentID, userID)
	if err != nil {
		return nil, err
	}

	envVars, err := s.envVarRepo.GetByEnvironmentID(ctx, environmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variables for environment '%s': %w", environmentID, err)
	}

	views := make([]models.EnvVariableView, 0, len(envVars))
	for _, envVar := range envVars {
		if !CheckPermission(role, ActionView, envVar.IsSecret) {
			continue
		}
		value, err := PresentValue(s.codec, envVar.Value, envVar.IsSecret, role, revealSecrets)
		if err != nil {
			return nil, err
		}
		views = append(views, viewOf(envVar, value))
	}

	if revealSecrets && role == models.RoleAdmin {
		s.auditService.Log(ctx, userID, "reveal", "environment", environmentID, "listed secrets in plain text")
	}
	return views, nil
}

// Get returns a single variable presented for the caller. The raw record is
// returned alongside the view for handlers that need the environment ID.
func (s *envVariableService) Get(ctx context.Context, userID, envVarID string, revealSecret bool) (*models.EnvVariable, *models.EnvVariableView, error) {
	envVar, role, err := s.loadWithRole(ctx, userID, envVarID)
	if err != nil {
		return nil, nil, err
	}
	if !CheckPermission(role, ActionView, envVar.IsSecret) {
		return nil, nil, ErrPermissionDenied
	}

	value, err := PresentValue(s.codec, envVar.Value, envVar.IsSecret, role, revealSecret)
	if err != nil {
		return nil, nil, err
	}
	view := viewOf(envVar, value)

	if envVar.IsSecret && revealSecret && role == models.RoleAdmin {
		s.auditService.Log(ctx, userID, "reveal", "env_variable", envVarID, fmt.Sprintf("key=%s", envVar.Key))
	}
	return envVar, &view, nil
}

// Update modifies a variable. The secrecy flag that applies is the FINAL one:
// when the flag toggles, the stored value is re-encrypted or re-plained to
// match before the single combined write, so storage can never hold a value
// that contradicts its flag.
func (s *envVariableService) Update(ctx context.Context, userID, envVarID string, req models.UpdateEnvVariableRequest) (*models.EnvVariable, error) {
	envVar, role, err := s.loadWithRole(ctx, userID, envVarID)
	if err != nil {
		return nil, err
	}

	finalSecret := envVar.IsSecret
	if req.IsSecret != nil {
		finalSecret = *req.IsSecret
	}
	// Touching a variable that is (or becomes) secret requires the secret
	// edit permission on both the old and the new state.
	if !CheckPermission(role, ActionEdit, envVar.IsSecret) || !CheckPermission(role, ActionEdit, finalSecret) {
		return nil, ErrPermissionDenied
	}

	// Establish the plaintext the final value derives from: the incoming
	// value if provided, otherwise the current one (decrypted if stored
	// encrypted).
	plainValue := envVar.Value
	if envVar.IsSecret {
		plainValue, err = s.codec.Decrypt(envVar.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
		}
	}
	if req.Value != nil {
		plainValue = *req.Value
	}

	storedValue := plainValue
	if finalSecret {
		storedValue, err = s.codec.Encrypt(plainValue)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
		}
	}

	if req.Key != nil {
		envVar.Key = *req.Key
	}
	envVar.Value = storedValue
	envVar.IsSecret = finalSecret

	if err := s.envVarRepo.Update(ctx, envVar); err != nil {
		return nil, fmt.Errorf("failed to update variable '%s': %w", envVarID, err)
	}

	s.auditService.Log(ctx, userID, "update", "env_variable", envVarID, fmt.Sprintf("key=%s secret=%t", envVar.Key, envVar.IsSecret))
	return envVar, nil
}

// Delete removes a variable. Deleting is an edit on the variable's current
// secrecy state.
func (s *envVariableService) Delete(ctx context.Context, userID, envVarID string) error {
	envVar, role, err := s.loadWithRole(ctx, userID, envVarID)
	if err != nil {
		return err
	}
	if !CheckPermission(role, ActionEdit, envVar.IsSecret) {
		return ErrPermissionDenied
	}

	if err := s.envVarRepo.Delete(ctx, envVarID); err != nil {
		return fmt.Errorf("failed to delete variable '%s': %w", envVarID, err)
	}

	s.auditService.Log(ctx, userID, "delete", "env_variable", envVarID, fmt.Sprintf("key=%s", envVar.Key))
	return nil
}

// EnvFileContent renders every variable of the environment as KEY=value
// lines with secrets decrypted, sorted by key for a stable file. Only OWNER
// and ADMIN may export, since the file always contains plaintext secrets.
func (s *envVariableService) EnvFileContent(ctx context.Context, userID, environmentID string) (string, error) {
	role, _, err := s.projectService.RoleForEnvironment(ctx, environmentID, userID)
	if err != nil {
		return "", err
	}
	// Exporting is the copy capability over the whole environment, secrets
	// included.
	if !CheckPermission(role, ActionCopy, true) {
		return "", ErrPermissionDenied
	}

	envVars, err := s.envVarRepo.GetByEnvironmentID(ctx, environmentID)
	if err != nil {
		return "", fmt.Errorf("failed to list variables for environment '%s': %w", environmentID, err)
	}

	sort.Slice(envVars, func(i, j int) bool { return envVars[i].Key < envVars[j].Key })

	var sb strings.Builder
	for _, envVar := range envVars {
		value := envVar.Value
		if envVar.IsSecret {
			value, err = s.codec.Decrypt(envVar.Value)
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
			}
		}
		sb.WriteString(envVar.Key)
		sb.WriteString("=")
		sb.WriteString(value)
		sb.WriteString("\n")
	}

	s.auditService.Log(ctx, userID, "download", "environment", environmentID, "exported .env file")
	return sb.String(), nil
}

func (s *envVariableService) loadWithRole(ctx context.Context, userID, envVarID string) (*models.EnvVariable, models.Role, error) {
	envVar, err := s.envVarRepo.GetByID(ctx, envVarID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, "", ErrEnvVarNotFound
		}
		return nil, "", fmt.Errorf("failed to get variable '%s': %w", envVarID, err)
	}
	role, _, err := s.projectService.RoleForEnvironment(ctx, envVar.EnvironmentID, userID)
	if err != nil {
		return nil, "", err
	}
	return envVar, role, nil
}

func viewOf(envVar *models.EnvVariable, value string) models.EnvVariableView {
	return models.EnvVariableView{
		ID:            envVar.ID,
		Key:           envVar.Key,
		Value:         value,
		IsSecret:      envVar.IsSecret,
		EnvironmentID: envVar.EnvironmentID,
		CreatedAt:     envVar.CreatedAt,
		UpdatedAt:     envVar.UpdatedAt,
	}
}
