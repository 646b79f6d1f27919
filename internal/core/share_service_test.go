package core

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"envvault-backend-go/internal/crypto"
	"envvault-backend-go/internal/models"
)

type shareFixture struct {
	*projectFixture
	auditRepo *fakeAuditRepo
	codec     *crypto.Codec
	service   EnvShareService

	environmentID string
}

// newShareFixture builds a project owned by "owner" (with "dev" as
// DEVELOPER), one environment holding a plain and a secret variable, and the
// share service wired over the same fakes.
func newShareFixture(t *testing.T) *shareFixture {
	t.Helper()
	ctx := context.Background()

	f := &shareFixture{projectFixture: newProjectFixture(), auditRepo: newFakeAuditRepo()}

	codec, err := crypto.NewCodec("test-master-key")
	require.NoError(t, err)
	f.codec = codec

	auditService := NewAuditService(f.auditRepo, zap.NewNop())
	f.service = NewEnvShareService(f.shareRepo, f.envVarRepo, f.projectFixture.service, auditService, codec, "https://envvault.test/share")

	project, err := f.projectFixture.service.CreateProject(ctx, "owner", models.CreateProjectRequest{Name: "backend"})
	require.NoError(t, err)
	require.NoError(t, f.projectFixture.service.AddMember(ctx, "owner", project.ID, models.AddMemberRequest{UserID: "dev", Role: models.RoleDeveloper}))

	env, err := f.projectFixture.service.CreateEnvironment(ctx, "owner", project.ID, models.CreateEnvironmentRequest{Name: "production"})
	require.NoError(t, err)
	f.environmentID = env.ID

	_, err = f.envVarRepo.Create(ctx, &models.EnvVariable{
		Key: "LOG_LEVEL", Value: "debug", EnvironmentID: env.ID,
	})
	require.NoError(t, err)
	encrypted, err := codec.Encrypt("hunter22")
	require.NoError(t, err)
	_, err = f.envVarRepo.Create(ctx, &models.EnvVariable{
		Key: "DB_PASSWORD", Value: encrypted, IsSecret: true, EnvironmentID: env.ID,
	})
	require.NoError(t, err)

	return f
}

func (f *shareFixture) createShare(t *testing.T, req models.CreateEnvShareRequest) (*models.EnvShare, string) {
	t.Helper()
	share, shareURL, err := f.service.CreateShare(context.Background(), "owner", f.environmentID, req)
	require.NoError(t, err)
	return share, shareURL
}

func tokenFromURL(t *testing.T, shareURL string) string {
	t.Helper()
	idx := strings.LastIndex(shareURL, "/")
	require.Positive(t, idx)
	return shareURL[idx+1:]
}

func TestCreateShareDefaultsAndURL(t *testing.T) {
	f := newShareFixture(t)

	share, shareURL := f.createShare(t, models.CreateEnvShareRequest{Password: "letmein"})
	assert.Equal(t, 5, share.MaxViews)
	assert.Equal(t, 1, share.MaxDownloads)
	assert.True(t, share.IsActive)
	assert.Equal(t, "owner", share.CreatedBy)
	assert.True(t, strings.HasPrefix(shareURL, "https://envvault.test/share/"))

	// The password is stored hashed, never in clear.
	stored, err := f.shareRepo.GetByID(context.Background(), share.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotEqual(t, "letmein", stored.PasswordHash)
}

func TestCreateShareOpenToAnyMember(t *testing.T) {
	f := newShareFixture(t)
	ctx := context.Background()

	// A DEVELOPER member may create a share; membership is the only gate.
	share, _, err := f.service.CreateShare(ctx, "dev", f.environmentID, models.CreateEnvShareRequest{Password: "letmein"})
	require.NoError(t, err)
	assert.Equal(t, "dev", share.CreatedBy)

	// A non-member may not.
	_, _, err = f.service.CreateShare(ctx, "mallory", f.environmentID, models.CreateEnvShareRequest{Password: "letmein"})
	assert.ErrorIs(t, err, ErrForbiddenAccess)
}

func TestAccessViewHappyPathDeliversPlaintext(t *testing.T) {
	f := newShareFixture(t)
	_, shareURL := f.createShare(t, models.CreateEnvShareRequest{Password: "letmein"})
	token := tokenFromURL(t, shareURL)

	share, variables, err := f.service.AccessView(context.Background(), token, "letmein", "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, 1, share.ViewCount)
	assert.True(t, share.IsActive)

	byKey := map[string]models.SharedVariable{}
	for _, v := range variables {
		byKey[v.Key] = v
	}
	assert.Equal(t, "debug", byKey["LOG_LEVEL"].Value)
	// A validated consumer always gets plaintext, the mask never applies.
	assert.Equal(t, "hunter22", byKey["DB_PASSWORD"].Value)
	assert.True(t, byKey["DB_PASSWORD"].IsSecret)
}

func TestAccessUnknownTokenAndRevokedAreIndistinguishable(t *testing.T) {
	f := newShareFixture(t)
	share, shareURL := f.createShare(t, models.CreateEnvShareRequest{Password: "letmein"})
	token := tokenFromURL(t, shareURL)

	_, _, err := f.service.AccessView(context.Background(), "no-such-token", "letmein", "")
	assert.ErrorIs(t, err, ErrShareInvalidOrInactive)

	require.NoError(t, f.service.RevokeShare(context.Background(), "owner", share.ID))
	_, _, err = f.service.AccessView(context.Background(), token, "letmein", "")
	assert.ErrorIs(t, err, ErrShareInvalidOrInactive)
}

func TestAccessExpiredShareLatchesInactive(t *testing.T) {
	f := newShareFixture(t)
	soon := time.Now().UTC().Add(time.Minute)
	share, shareURL := f.createShare(t, models.CreateEnvShareRequest{Password: "letmein", ExpiresAt: &soon})
	token := tokenFromURL(t, shareURL)

	// Push the expiry into the past behind the service's back.
	stored, err := f.shareRepo.GetByID(context.Background(), share.ID)
	require.NoError(t, err)
	expired := time.Now().UTC().Add(-time.Hour)
	stored.ExpiresAt = &expired
	f.shareRepo.shares[share.ID] = stored

	_, _, err = f.service.AccessView(context.Background(), token, "letmein", "")
	assert.ErrorIs(t, err, ErrShareExpired)

	// The refusal latched the share; the next attempt gets the conflated error.
	_, _, err = f.service.AccessView(context.Background(), token, "letmein", "")
	assert.ErrorIs(t, err, ErrShareInvalidOrInactive)
}

func TestAccessIPAllowlist(t *testing.T) {
	f := newShareFixture(t)
	_, shareURL := f.createShare(t, models.CreateEnvShareRequest{
		Password:       "letmein",
		WhitelistedIPs: []string{"203.0.113.7", "198.51.100.2"},
	})
	token := tokenFromURL(t, shareURL)
	ctx := context.Background()

	_, _, err := f.service.AccessView(ctx, token, "letmein", "192.0.2.1")
	assert.ErrorIs(t, err, ErrShareIPNotAllowed)

	// A missing client IP is refused when a list exists.
	_, _, err = f.service.AccessView(ctx, token, "letmein", "")
	assert.ErrorIs(t, err, ErrShareIPNotAllowed)

	_, _, err = f.service.AccessView(ctx, token, "letmein", "198.51.100.2")
	assert.NoError(t, err)
}

func TestAccessWrongPasswordConsumesNothing(t *testing.T) {
	f := newShareFixture(t)
	share, shareURL := f.createShare(t, models.CreateEnvShareRequest{Password: "letmein"})
	token := tokenFromURL(t, shareURL)
	ctx := context.Background()

	_, _, err := f.service.AccessView(ctx, token, "wrong", "")
	assert.ErrorIs(t, err, ErrShareInvalidPassword)

	stored, err := f.shareRepo.GetByID(ctx, share.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.ViewCount)
	assert.True(t, stored.IsActive)
}

func TestViewQuotaExhaustionLatches(t *testing.T) {
	f := newShareFixture(t)
	two := 2
	share, shareURL := f.createShare(t, models.CreateEnvShareRequest{Password: "letmein", MaxViews: &two})
	token := tokenFromURL(t, shareURL)
	ctx := context.Background()

	_, _, err := f.service.AccessView(ctx, token, "letmein", "")
	require.NoError(t, err)

	// The second view consumes the last slot and latches in the same step.
	consumed, _, err := f.service.AccessView(ctx, token, "letmein", "")
	require.NoError(t, err)
	assert.Equal(t, 2, consumed.ViewCount)
	assert.False(t, consumed.IsActive)

	_, _, err = f.service.AccessView(ctx, token, "letmein", "")
	assert.ErrorIs(t, err, ErrShareInvalidOrInactive)

	stored, err := f.shareRepo.GetByID(ctx, share.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.ViewCount)
}

func TestZeroQuotaRefusalPersistsTheLatch(t *testing.T) {
	f := newShareFixture(t)
	zero := 0
	share, shareURL := f.createShare(t, models.CreateEnvShareRequest{Password: "letmein", MaxViews: &zero})
	token := tokenFromURL(t, shareURL)
	ctx := context.Background()

	// The first attempt is refused for quota and must latch the share.
	_, _, err := f.service.AccessView(ctx, token, "letmein", "")
	assert.ErrorIs(t, err, ErrShareQuotaExceeded)

	stored, err := f.shareRepo.GetByID(ctx, share.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive, "a quota refusal must persist the inactive latch")

	// From then on the link answers with the conflated refusal, not the
	// quota error.
	_, _, err = f.service.AccessView(ctx, token, "letmein", "")
	assert.ErrorIs(t, err, ErrShareInvalidOrInactive)
}

func TestOneTimeShareLatchesAfterFirstView(t *testing.T) {
	f := newShareFixture(t)
	_, shareURL := f.createShare(t, models.CreateEnvShareRequest{Password: "letmein", OneTime: true})
	token := tokenFromURL(t, shareURL)
	ctx := context.Background()

	consumed, _, err := f.service.AccessView(ctx, token, "letmein", "")
	require.NoError(t, err)
	assert.False(t, consumed.IsActive)

	_, _, err = f.service.AccessView(ctx, token, "letmein", "")
	assert.ErrorIs(t, err, ErrShareInvalidOrInactive)
}

func TestDownloadAlwaysLatches(t *testing.T) {
	f := newShareFixture(t)
	three := 3
	_, shareURL := f.createShare(t, models.CreateEnvShareRequest{Password: "letmein", MaxDownloads: &three})
	token := tokenFromURL(t, shareURL)
	ctx := context.Background()

	consumed, content, err := f.service.AccessDownload(ctx, token, "letmein", "")
	require.NoError(t, err)
	assert.False(t, consumed.IsActive, "a download latches even with quota left")
	assert.Contains(t, content, "DB_PASSWORD=hunter22\n")
	assert.Contains(t, content, "LOG_LEVEL=debug\n")

	_, _, err = f.service.AccessDownload(ctx, token, "letmein", "")
	assert.ErrorIs(t, err, ErrShareInvalidOrInactive)
}

func TestConcurrentViewsSingleWinnerOnLastSlot(t *testing.T) {
	f := newShareFixture(t)
	one := 1
	_, shareURL := f.createShare(t, models.CreateEnvShareRequest{Password: "letmein", MaxViews: &one})
	token := tokenFromURL(t, shareURL)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.service.AccessView(ctx, token, "letmein", "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrShareInvalidOrInactive)
		}
	}
	assert.Equal(t, 1, successes, "exactly one access may win the last slot")
}

func TestRevokeShareGates(t *testing.T) {
	f := newShareFixture(t)
	share, _ := f.createShare(t, models.CreateEnvShareRequest{Password: "letmein"})
	ctx := context.Background()

	err := f.service.RevokeShare(ctx, "mallory", share.ID)
	assert.ErrorIs(t, err, ErrForbiddenAccess)

	// Any member may revoke, not just the creator.
	require.NoError(t, f.service.RevokeShare(ctx, "dev", share.ID))
	// Revocation is idempotent.
	require.NoError(t, f.service.RevokeShare(ctx, "owner", share.ID))

	err = f.service.RevokeShare(ctx, "owner", "no-such-share")
	assert.ErrorIs(t, err, ErrShareNotFound)
}

func TestListSharesIncludesInactive(t *testing.T) {
	f := newShareFixture(t)
	f.createShare(t, models.CreateEnvShareRequest{Password: "letmein"})
	revoked, _ := f.createShare(t, models.CreateEnvShareRequest{Password: "letmein"})
	ctx := context.Background()
	require.NoError(t, f.service.RevokeShare(ctx, "owner", revoked.ID))

	shares, err := f.service.ListShares(ctx, "dev", f.environmentID)
	require.NoError(t, err)
	assert.Len(t, shares, 2)

	_, err = f.service.ListShares(ctx, "mallory", f.environmentID)
	assert.ErrorIs(t, err, ErrForbiddenAccess)
}

func TestShareAccessAuditAttributedToCreator(t *testing.T) {
	f := newShareFixture(t)
	_, shareURL := f.createShare(t, models.CreateEnvShareRequest{Password: "letmein"})
	token := tokenFromURL(t, shareURL)

	_, _, err := f.service.AccessView(context.Background(), token, "letmein", "203.0.113.7")
	require.NoError(t, err)

	views := f.auditRepo.byAction("share_view")
	require.Len(t, views, 1)
	// Anonymous accesses are recorded against the member who created the link.
	assert.Equal(t, "owner", views[0].UserID)
	assert.Contains(t, views[0].Details, "203.0.113.7")
}
