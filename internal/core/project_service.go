package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"envvault-backend-go/internal/db"
	"envvault-backend-go/internal/models"
)

// projectService implements the ProjectService interface. Besides project and
// environment CRUD it is the membership resolver: every permission decision
// in the system starts with CheckProjectAccess or RoleForEnvironment.
type projectService struct {
	projectRepo db.ProjectRepository
	envRepo     db.EnvironmentRepository
	envVarRepo  db.EnvVariableRepository
	shareRepo   db.EnvShareRepository
}

// NewProjectService creates a new ProjectService instance. The variable and
// share repositories are needed for cascading deletes.
func NewProjectService(
	pr db.ProjectRepository,
	er db.EnvironmentRepository,
	vr db.EnvVariableRepository,
	sr db.EnvShareRepository,
) ProjectService {
	return &projectService{
		projectRepo: pr,
		envRepo:     er,
		envVarRepo:  vr,
		shareRepo:   sr,
	}
}

// CreateProject creates a project and its owner membership in one write, so
// there is no moment where the project exists without its OWNER entry.
func (s *projectService) CreateProject(ctx context.Context, userID string, req models.CreateProjectRequest) (*models.Project, error) {
	project := &models.Project{
		Name:    req.Name,
		OwnerID: userID,
		Members: map[string]models.Role{
			userID: models.RoleOwner,
		},
		CreatedAt: time.Now().UTC(),
	}

	projectID, err := s.projectRepo.Create(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	project.ID = projectID
	return project, nil
}

// ListProjects returns all projects where the user holds a membership.
func (s *projectService) ListProjects(ctx context.Context, userID string) ([]*models.Project, error) {
	projects, err := s.projectRepo.GetByMemberID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects for user '%s': %w", userID, err)
	}
	return projects, nil
}

// GetProject returns a project the caller is a member of.
func (s *projectService) GetProject(ctx context.Context, userID, projectID string) (*models.Project, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, ok := project.Members[userID]; !ok {
		return nil, ErrForbiddenAccess
	}
	return project, nil
}

// DeleteProject deletes a project and cascades through its environments,
// variables and share links. Only the owner may delete a project.
func (s *projectService) DeleteProject(ctx context.Context, userID, projectID string) error {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project.OwnerID != userID {
		return ErrForbiddenAccess
	}

	environments, err := s.envRepo.GetByProjectID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to list environments for project '%s': %w", projectID, err)
	}
	for _, env := range environments {
		if err := s.deleteEnvironmentCascade(ctx, env.ID); err != nil {
			return err
		}
	}

	if err := s.projectRepo.Delete(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project '%s': %w", projectID, err)
	}
	return nil
}

// AddMember adds a membership. Member management requires OWNER or ADMIN;
// the owner's own entry can never be granted again or overwritten.
func (s *projectService) AddMember(ctx context.Context, callerID, projectID string, req models.AddMemberRequest) error {
	if !req.Role.IsValid() {
		return ErrInvalidRole
	}
	if req.Role == models.RoleOwner {
		return ErrOwnerImmutable
	}

	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.requireManager(project, callerID); err != nil {
		return err
	}
	if req.UserID == project.OwnerID {
		return ErrOwnerImmutable
	}

	if err := s.projectRepo.SetMember(ctx, projectID, req.UserID, req.Role); err != nil {
		return fmt.Errorf("failed to add member '%s' to project '%s': %w", req.UserID, projectID, err)
	}
	return nil
}

// UpdateMember changes an existing member's role, with the same guards as
// AddMember.
func (s *projectService) UpdateMember(ctx context.Context, callerID, projectID, targetUserID string, role models.Role) error {
	if !role.IsValid() {
		return ErrInvalidRole
	}
	if role == models.RoleOwner {
		return ErrOwnerImmutable
	}

	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.requireManager(project, callerID); err != nil {
		return err
	}
	if targetUserID == project.OwnerID {
		return ErrOwnerImmutable
	}
	if _, ok := project.Members[targetUserID]; !ok {
		return ErrForbiddenAccess
	}

	if err := s.projectRepo.SetMember(ctx, projectID, targetUserID, role); err != nil {
		return fmt.Errorf("failed to update member '%s' in project '%s': %w", targetUserID, projectID, err)
	}
	return nil
}

// RemoveMember removes a membership. The owner can never be removed.
func (s *projectService) RemoveMember(ctx context.Context, callerID, projectID, targetUserID string) error {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.requireManager(project, callerID); err != nil {
		return err
	}
	if targetUserID == project.OwnerID {
		return ErrOwnerImmutable
	}

	if err := s.projectRepo.RemoveMember(ctx, projectID, targetUserID); err != nil {
		return fmt.Errorf("failed to remove member '%s' from project '%s': %w", targetUserID, projectID, err)
	}
	return nil
}

// CheckProjectAccess returns the caller's role in the project. Absence of a
// membership means no access at all.
func (s *projectService) CheckProjectAccess(ctx context.Context, projectID, userID string) (models.Role, error) {
	project, err := s.getProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	role, ok := project.Members[userID]
	if !ok {
		return "", ErrForbiddenAccess
	}
	return role, nil
}

// RoleForEnvironment resolves the environment's project and returns the
// caller's role there along with the environment.
func (s *projectService) RoleForEnvironment(ctx context.Context, environmentID, userID string) (models.Role, *models.Environment, error) {
	env, err := s.getEnvironment(ctx, environmentID)
	if err != nil {
		return "", nil, err
	}
	role, err := s.CheckProjectAccess(ctx, env.ProjectID, userID)
	if err != nil {
		return "", nil, err
	}
	return role, env, nil
}

// CreateEnvironment creates an environment in a project the caller can access.
func (s *projectService) CreateEnvironment(ctx context.Context, userID, projectID string, req models.CreateEnvironmentRequest) (*models.Environment, error) {
	if _, err := s.CheckProjectAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}

	env := &models.Environment{
		Name:      req.Name,
		ProjectID: projectID,
		CreatedAt: time.Now().UTC(),
	}
	envID, err := s.envRepo.Create(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("failed to create environment: %w", err)
	}
	env.ID = envID
	return env, nil
}

// ListEnvironments returns all environments of a project the caller can access.
func (s *projectService) ListEnvironments(ctx context.Context, userID, projectID string) ([]*models.Environment, error) {
	if _, err := s.CheckProjectAccess(ctx, projectID, userID); err != nil {
		return nil, err
	}
	environments, err := s.envRepo.GetByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list environments for project '%s': %w", projectID, err)
	}
	return environments, nil
}

// UpdateEnvironment renames an environment the caller can access.
func (s *projectService) UpdateEnvironment(ctx context.Context, userID, environmentID string, req models.UpdateEnvironmentRequest) (*models.Environment, error) {
	env, err := s.getEnvironment(ctx, environmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.CheckProjectAccess(ctx, env.ProjectID, userID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		env.Name = *req.Name
	}
	if err := s.envRepo.Update(ctx, env); err != nil {
		return nil, fmt.Errorf("failed to update environment '%s': %w", environmentID, err)
	}
	return env, nil
}

// DeleteEnvironment deletes an environment the caller can access, cascading
// through its variables and share links (share links hold a reference to the
// environment, so they go first).
func (s *projectService) DeleteEnvironment(ctx context.Context, userID, environmentID string) error {
	env, err := s.getEnvironment(ctx, environmentID)
	if err != nil {
		return err
	}
	if _, err := s.CheckProjectAccess(ctx, env.ProjectID, userID); err != nil {
		return err
	}
	return s.deleteEnvironmentCascade(ctx, environmentID)
}

func (s *projectService) deleteEnvironmentCascade(ctx context.Context, environmentID string) error {
	if err := s.shareRepo.DeleteByEnvironmentID(ctx, environmentID); err != nil {
		return fmt.Errorf("failed to delete shares for environment '%s': %w", environmentID, err)
	}
	if err := s.envVarRepo.DeleteByEnvironmentID(ctx, environmentID); err != nil {
		return fmt.Errorf("failed to delete variables for environment '%s': %w", environmentID, err)
	}
	if err := s.envRepo.Delete(ctx, environmentID); err != nil {
		return fmt.Errorf("failed to delete environment '%s': %w", environmentID, err)
	}
	return nil
}

func (s *projectService) getProject(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project '%s': %w", projectID, err)
	}
	return project, nil
}

func (s *projectService) getEnvironment(ctx context.Context, environmentID string) (*models.Environment, error) {
	env, err := s.envRepo.GetByID(ctx, environmentID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrEnvironmentNotFound
		}
		return nil, fmt.Errorf("failed to get environment '%s': %w", environmentID, err)
	}
	return env, nil
}

// requireManager allows only OWNER and ADMIN to manage memberships.
func (s *projectService) requireManager(project *models.Project, callerID string) error {
	role, ok := project.Members[callerID]
	if !ok {
		return ErrForbiddenAccess
	}
	if role != models.RoleOwner && role != models.RoleAdmin {
		return ErrPermissionDenied
	}
	return nil
}
