package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"envvault-backend-go/internal/crypto"
	"envvault-backend-go/internal/models"
)

type envVarFixture struct {
	*projectFixture
	auditRepo *fakeAuditRepo
	codec     *crypto.Codec
	service   EnvVariableService

	projectID     string
	environmentID string
}

// newEnvVarFixture builds a project owned by "owner" with members "admin",
// "dev" and "reader" in their namesake roles, plus one environment.
func newEnvVarFixture(t *testing.T) *envVarFixture {
	t.Helper()
	ctx := context.Background()

	f := &envVarFixture{projectFixture: newProjectFixture(), auditRepo: newFakeAuditRepo()}

	codec, err := crypto.NewCodec("test-master-key")
	require.NoError(t, err)
	f.codec = codec

	auditService := NewAuditService(f.auditRepo, zap.NewNop())
	f.service = NewEnvVariableService(f.envVarRepo, f.projectFixture.service, auditService, codec)

	project, err := f.projectFixture.service.CreateProject(ctx, "owner", models.CreateProjectRequest{Name: "backend"})
	require.NoError(t, err)
	f.projectID = project.ID
	require.NoError(t, f.projectFixture.service.AddMember(ctx, "owner", project.ID, models.AddMemberRequest{UserID: "admin", Role: models.RoleAdmin}))
	require.NoError(t, f.projectFixture.service.AddMember(ctx, "owner", project.ID, models.AddMemberRequest{UserID: "dev", Role: models.RoleDeveloper}))
	require.NoError(t, f.projectFixture.service.AddMember(ctx, "owner", project.ID, models.AddMemberRequest{UserID: "reader", Role: models.RoleReadOnly}))

	env, err := f.projectFixture.service.CreateEnvironment(ctx, "owner", project.ID, models.CreateEnvironmentRequest{Name: "production"})
	require.NoError(t, err)
	f.environmentID = env.ID
	return f
}

func TestCreateVariableEncryptsOnlySecrets(t *testing.T) {
	f := newEnvVarFixture(t)
	ctx := context.Background()

	plain, err := f.service.Create(ctx, "owner", models.CreateEnvVariableRequest{
		Key: "LOG_LEVEL", Value: "debug", EnvironmentID: f.environmentID,
	})
	require.NoError(t, err)

	secret, err := f.service.Create(ctx, "owner", models.CreateEnvVariableRequest{
		Key: "DB_PASSWORD", Value: "hunter22", IsSecret: true, EnvironmentID: f.environmentID,
	})
	require.NoError(t, err)

	storedPlain, err := f.envVarRepo.GetByID(ctx, plain.ID)
	require.NoError(t, err)
	assert.Equal(t, "debug", storedPlain.Value)

	storedSecret, err := f.envVarRepo.GetByID(ctx, secret.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", storedSecret.Value)
	decrypted, err := f.codec.Decrypt(storedSecret.Value)
	require.NoError(t, err)
	assert.Equal(t, "hunter22", decrypted)
}

func TestCreateVariablePermissionGates(t *testing.T) {
	f := newEnvVarFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, "dev", models.CreateEnvVariableRequest{
		Key: "LOG_LEVEL", Value: "debug", EnvironmentID: f.environmentID,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.service.Create(ctx, "reader", models.CreateEnvVariableRequest{
		Key: "LOG_LEVEL", Value: "debug", EnvironmentID: f.environmentID,
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.service.Create(ctx, "admin", models.CreateEnvVariableRequest{
		Key: "DB_PASSWORD", Value: "x", IsSecret: true, EnvironmentID: f.environmentID,
	})
	assert.NoError(t, err)
}

func TestListFiltersAndMasksByRole(t *testing.T) {
	f := newEnvVarFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, "owner", models.CreateEnvVariableRequest{
		Key: "LOG_LEVEL", Value: "debug", EnvironmentID: f.environmentID,
	})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, "owner", models.CreateEnvVariableRequest{
		Key: "DB_PASSWORD", Value: "hunter22", IsSecret: true, EnvironmentID: f.environmentID,
	})
	require.NoError(t, err)

	// OWNER sees everything in plain text.
	views, err := f.service.List(ctx, "owner", f.environmentID, false)
	require.NoError(t, err)
	require.Len(t, views, 2)
	byKey := map[string]models.EnvVariableView{}
	for _, v := range views {
		byKey[v.Key] = v
	}
	assert.Equal(t, "hunter22", byKey["DB_PASSWORD"].Value)

	// ADMIN sees the secret masked by default, revealed on request.
	views, err = f.service.List(ctx, "admin", f.environmentID, false)
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		if v.Key == "DB_PASSWORD" {
			assert.Equal(t, "hu****22", v.Value)
		}
	}
	views, err = f.service.List(ctx, "admin", f.environmentID, true)
	require.NoError(t, err)
	for _, v := range views {
		if v.Key == "DB_PASSWORD" {
			assert.Equal(t, "hunter22", v.Value)
		}
	}

	// DEVELOPER sees only the non-secret entry.
	views, err = f.service.List(ctx, "dev", f.environmentID, false)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "LOG_LEVEL", views[0].Key)

	// READ_ONLY sees nothing at all.
	views, err = f.service.List(ctx, "reader", f.environmentID, false)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestGetVariableDeniedForDeveloperOnSecret(t *testing.T) {
	f := newEnvVarFixture(t)
	ctx := context.Background()

	secret, err := f.service.Create(ctx, "owner", models.CreateEnvVariableRequest{
		Key: "DB_PASSWORD", Value: "hunter22", IsSecret: true, EnvironmentID: f.environmentID,
	})
	require.NoError(t, err)

	_, _, err = f.service.Get(ctx, "dev", secret.ID, false)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	// The reveal flag makes no difference below ADMIN.
	_, _, err = f.service.Get(ctx, "dev", secret.ID, true)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestUpdateTogglesSecrecyReencryption(t *testing.T) {
	f := newEnvVarFixture(t)
	ctx := context.Background()

	envVar, err := f.service.Create(ctx, "owner", models.CreateEnvVariableRequest{
		Key: "TOKEN", Value: "plain-token", EnvironmentID: f.environmentID,
	})
	require.NoError(t, err)

	// Toggle to secret without sending a new value: the stored value must be
	// re-encrypted from the existing plaintext.
	secretFlag := true
	_, err = f.service.Update(ctx, "owner", envVar.ID, models.UpdateEnvVariableRequest{IsSecret: &secretFlag})
	require.NoError(t, err)

	stored, err := f.envVarRepo.GetByID(ctx, envVar.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsSecret)
	assert.NotEqual(t, "plain-token", stored.Value)
	decrypted, err := f.codec.Decrypt(stored.Value)
	require.NoError(t, err)
	assert.Equal(t, "plain-token", decrypted)

	// Toggle back to plain: the value comes back out in clear.
	secretFlag = false
	_, err = f.service.Update(ctx, "owner", envVar.ID, models.UpdateEnvVariableRequest{IsSecret: &secretFlag})
	require.NoError(t, err)

	stored, err = f.envVarRepo.GetByID(ctx, envVar.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsSecret)
	assert.Equal(t, "plain-token", stored.Value)
}

func TestUpdateAppliesFinalFlagToNewValue(t *testing.T) {
	f := newEnvVarFixture(t)
	ctx := context.Background()

	envVar, err := f.service.Create(ctx, "owner", models.CreateEnvVariableRequest{
		Key: "TOKEN", Value: "old", EnvironmentID: f.environmentID,
	})
	require.NoError(t, err)

	// New value and secret flag in the same request: the new value must be
	// stored encrypted, not in clear.
	newValue := "new-secret-value"
	secretFlag := true
	_, err = f.service.Update(ctx, "owner", envVar.ID, models.UpdateEnvVariableRequest{Value: &newValue, IsSecret: &secretFlag})
	require.NoError(t, err)

	stored, err := f.envVarRepo.GetByID(ctx, envVar.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "new-secret-value", stored.Value)
	decrypted, err := f.codec.Decrypt(stored.Value)
	require.NoError(t, err)
	assert.Equal(t, "new-secret-value", decrypted)
}

func TestDeleteVariableGatedByEdit(t *testing.T) {
	f := newEnvVarFixture(t)
	ctx := context.Background()

	envVar, err := f.service.Create(ctx, "owner", models.CreateEnvVariableRequest{
		Key: "LOG_LEVEL", Value: "debug", EnvironmentID: f.environmentID,
	})
	require.NoError(t, err)

	err = f.service.Delete(ctx, "dev", envVar.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, f.service.Delete(ctx, "admin", envVar.ID))
	err = f.service.Delete(ctx, "admin", envVar.ID)
	assert.ErrorIs(t, err, ErrEnvVarNotFound)
}

func TestEnvFileContentRestrictedAndDecrypted(t *testing.T) {
	f := newEnvVarFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, "owner", models.CreateEnvVariableRequest{
		Key: "LOG_LEVEL", Value: "debug", EnvironmentID: f.environmentID,
	})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, "owner", models.CreateEnvVariableRequest{
		Key: "DB_PASSWORD", Value: "hunter22", IsSecret: true, EnvironmentID: f.environmentID,
	})
	require.NoError(t, err)

	content, err := f.service.EnvFileContent(ctx, "admin", f.environmentID)
	require.NoError(t, err)
	assert.Equal(t, "DB_PASSWORD=hunter22\nLOG_LEVEL=debug\n", content)

	_, err = f.service.EnvFileContent(ctx, "dev", f.environmentID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = f.service.EnvFileContent(ctx, "reader", f.environmentID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	downloads := f.auditRepo.byAction("download")
	assert.NotEmpty(t, downloads)
}
