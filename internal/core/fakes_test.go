package core

import (
	"context"
	"fmt"
	"sync"

	"envvault-backend-go/internal/db"
	"envvault-backend-go/internal/models"
)

// In-memory repository fakes. They mirror the Firestore repositories'
// contracts, including the transactional semantics of ConsumeAccess, so the
// services can be exercised without a backend.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]models.User)}
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &user, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = *user
	return nil
}

type fakeProjectRepo struct {
	mu       sync.Mutex
	nextID   int
	projects map[string]*models.Project
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[string]*models.Project)}
}

func (r *fakeProjectRepo) Create(_ context.Context, project *models.Project) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := fmt.Sprintf("project-%d", r.nextID)
	stored := *project
	stored.ID = id
	stored.Members = make(map[string]models.Role, len(project.Members))
	for k, v := range project.Members {
		stored.Members[k] = v
	}
	r.projects[id] = &stored
	return id, nil
}

func (r *fakeProjectRepo) GetByID(_ context.Context, projectID string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[projectID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *project
	copied.Members = make(map[string]models.Role, len(project.Members))
	for k, v := range project.Members {
		copied.Members[k] = v
	}
	return &copied, nil
}

func (r *fakeProjectRepo) GetByMemberID(_ context.Context, userID string) ([]*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Project
	for _, project := range r.projects {
		if _, ok := project.Members[userID]; ok {
			copied := *project
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeProjectRepo) SetMember(_ context.Context, projectID, userID string, role models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[projectID]
	if !ok {
		return db.ErrNotFound
	}
	project.Members[userID] = role
	return nil
}

func (r *fakeProjectRepo) RemoveMember(_ context.Context, projectID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[projectID]
	if !ok {
		return db.ErrNotFound
	}
	delete(project.Members, userID)
	return nil
}

func (r *fakeProjectRepo) Delete(_ context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, projectID)
	return nil
}

type fakeEnvironmentRepo struct {
	mu     sync.Mutex
	nextID int
	envs   map[string]*models.Environment
}

func newFakeEnvironmentRepo() *fakeEnvironmentRepo {
	return &fakeEnvironmentRepo{envs: make(map[string]*models.Environment)}
}

func (r *fakeEnvironmentRepo) Create(_ context.Context, env *models.Environment) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := fmt.Sprintf("env-%d", r.nextID)
	stored := *env
	stored.ID = id
	r.envs[id] = &stored
	return id, nil
}

func (r *fakeEnvironmentRepo) GetByID(_ context.Context, environmentID string) (*models.Environment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	env, ok := r.envs[environmentID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *env
	return &copied, nil
}

func (r *fakeEnvironmentRepo) GetByProjectID(_ context.Context, projectID string) ([]*models.Environment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.Environment
	for _, env := range r.envs {
		if env.ProjectID == projectID {
			copied := *env
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeEnvironmentRepo) Update(_ context.Context, env *models.Environment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.envs[env.ID]; !ok {
		return db.ErrNotFound
	}
	stored := *env
	r.envs[env.ID] = &stored
	return nil
}

func (r *fakeEnvironmentRepo) Delete(_ context.Context, environmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.envs, environmentID)
	return nil
}

type fakeEnvVariableRepo struct {
	mu     sync.Mutex
	nextID int
	vars   map[string]*models.EnvVariable
}

func newFakeEnvVariableRepo() *fakeEnvVariableRepo {
	return &fakeEnvVariableRepo{vars: make(map[string]*models.EnvVariable)}
}

func (r *fakeEnvVariableRepo) Create(_ context.Context, envVar *models.EnvVariable) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := fmt.Sprintf("var-%d", r.nextID)
	stored := *envVar
	stored.ID = id
	r.vars[id] = &stored
	return id, nil
}

func (r *fakeEnvVariableRepo) GetByID(_ context.Context, envVarID string) (*models.EnvVariable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	envVar, ok := r.vars[envVarID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *envVar
	return &copied, nil
}

func (r *fakeEnvVariableRepo) GetByEnvironmentID(_ context.Context, environmentID string) ([]*models.EnvVariable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.EnvVariable
	for _, envVar := range r.vars {
		if envVar.EnvironmentID == environmentID {
			copied := *envVar
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeEnvVariableRepo) Update(_ context.Context, envVar *models.EnvVariable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vars[envVar.ID]; !ok {
		return db.ErrNotFound
	}
	stored := *envVar
	r.vars[envVar.ID] = &stored
	return nil
}

func (r *fakeEnvVariableRepo) Delete(_ context.Context, envVarID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.vars, envVarID)
	return nil
}

func (r *fakeEnvVariableRepo) DeleteByEnvironmentID(_ context.Context, environmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, envVar := range r.vars {
		if envVar.EnvironmentID == environmentID {
			delete(r.vars, id)
		}
	}
	return nil
}

type fakeEnvShareRepo struct {
	mu     sync.Mutex
	nextID int
	shares map[string]*models.EnvShare
}

func newFakeEnvShareRepo() *fakeEnvShareRepo {
	return &fakeEnvShareRepo{shares: make(map[string]*models.EnvShare)}
}

func (r *fakeEnvShareRepo) Create(_ context.Context, share *models.EnvShare) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := fmt.Sprintf("share-%d", r.nextID)
	stored := *share
	stored.ID = id
	r.shares[id] = &stored
	return id, nil
}

func (r *fakeEnvShareRepo) GetByID(_ context.Context, shareID string) (*models.EnvShare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	share, ok := r.shares[shareID]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := *share
	return &copied, nil
}

func (r *fakeEnvShareRepo) GetByToken(_ context.Context, token string) (*models.EnvShare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, share := range r.shares {
		if share.Token == token {
			copied := *share
			return &copied, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *fakeEnvShareRepo) GetByEnvironmentID(_ context.Context, environmentID string) ([]*models.EnvShare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.EnvShare
	for _, share := range r.shares {
		if share.EnvironmentID == environmentID {
			copied := *share
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (r *fakeEnvShareRepo) Deactivate(_ context.Context, shareID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	share, ok := r.shares[shareID]
	if !ok {
		return db.ErrNotFound
	}
	share.IsActive = false
	return nil
}

// ConsumeAccess reproduces the Firestore repository's transactional behavior:
// check, increment and latch happen under one lock so two concurrent accesses
// can never both consume the last slot.
func (r *fakeEnvShareRepo) ConsumeAccess(_ context.Context, shareID string, kind db.ShareAccessKind) (*models.EnvShare, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	share, ok := r.shares[shareID]
	if !ok {
		return nil, db.ErrNotFound
	}
	if !share.IsActive {
		return nil, db.ErrShareInactive
	}

	switch kind {
	case db.ShareAccessView:
		if share.ViewCount >= share.MaxViews {
			share.IsActive = false
			return nil, db.ErrShareQuotaExhausted
		}
		share.ViewCount++
		if share.OneTime || share.ViewCount >= share.MaxViews {
			share.IsActive = false
		}
	case db.ShareAccessDownload:
		if share.DownloadCount >= share.MaxDownloads {
			share.IsActive = false
			return nil, db.ErrShareQuotaExhausted
		}
		share.DownloadCount++
		share.IsActive = false
	}

	copied := *share
	return &copied, nil
}

func (r *fakeEnvShareRepo) DeleteByEnvironmentID(_ context.Context, environmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, share := range r.shares {
		if share.EnvironmentID == environmentID {
			delete(r.shares, id)
		}
	}
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []models.AuditLog
	failErr error
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Create(_ context.Context, logEntry models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.entries = append(r.entries, logEntry)
	return nil
}

func (r *fakeAuditRepo) byAction(action string) []models.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.AuditLog
	for _, entry := range r.entries {
		if entry.Action == action {
			result = append(result, entry)
		}
	}
	return result
}
