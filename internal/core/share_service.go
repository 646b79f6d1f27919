package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"envvault-backend-go/internal/crypto"
	"envvault-backend-go/internal/db"
	"envvault-backend-go/internal/models"
)

const (
	defaultMaxViews     = 5
	defaultMaxDownloads = 1

	// shareTokenBytes gives a 32-character URL-safe token, long enough that
	// collisions are a curiosity and guessing is hopeless.
	shareTokenBytes       = 24
	tokenCollisionRetries = 3
)

// envShareService implements the EnvShareService interface: share link
// lifecycle for authenticated members, and the anonymous access protocol for
// share consumers.
//
// The access protocol runs its checks in a fixed order — existence/active,
// expiry, IP allowlist, password, quota — so a caller only ever learns about
// the first gate that refused them.
type envShareService struct {
	shareRepo      db.EnvShareRepository
	envVarRepo     db.EnvVariableRepository
	projectService ProjectService
	auditService   AuditService
	codec          *crypto.Codec
	shareBaseURL   string
}

// NewEnvShareService creates a new EnvShareService instance. shareBaseURL is
// the public prefix share URLs are built from.
func NewEnvShareService(
	shareRepo db.EnvShareRepository,
	envVarRepo db.EnvVariableRepository,
	projectService ProjectService,
	auditService AuditService,
	codec *crypto.Codec,
	shareBaseURL string,
) EnvShareService {
	return &envShareService{
		shareRepo:      shareRepo,
		envVarRepo:     envVarRepo,
		projectService: projectService,
		auditService:   auditService,
		codec:          codec,
		shareBaseURL:   shareBaseURL,
	}
}

// CreateShare creates a share link for an environment. Any project member
// may share; membership is the only gate. Returns the share and its public
// URL; the raw token appears nowhere else.
func (s *envShareService) CreateShare(ctx context.Context, userID, environmentID string, req models.CreateEnvShareRequest) (*models.EnvShare, string, error) {
	if _, _, err := s.projectService.RoleForEnvironment(ctx, environmentID, userID); err != nil {
		return nil, "", err
	}

	maxViews := defaultMaxViews
	if req.MaxViews != nil {
		maxViews = *req.MaxViews
	}
	maxDownloads := defaultMaxDownloads
	if req.MaxDownloads != nil {
		maxDownloads = *req.MaxDownloads
	}
	if maxViews < 0 || maxDownloads < 0 {
		return nil, "", fmt.Errorf("share limits must not be negative")
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now().UTC()) {
		return nil, "", fmt.Errorf("expiry must be in the future")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash share password: %w", err)
	}

	token, err := s.newUniqueToken(ctx)
	if err != nil {
		return nil, "", err
	}

	share := &models.EnvShare{
		EnvironmentID:  environmentID,
		Token:          token,
		PasswordHash:   string(passwordHash),
		ExpiresAt:      req.ExpiresAt,
		MaxViews:       maxViews,
		MaxDownloads:   maxDownloads,
		OneTime:        req.OneTime,
		IsActive:       true,
		WhitelistedIPs: req.WhitelistedIPs,
		CreatedBy:      userID,
		CreatedAt:      time.Now().UTC(),
	}
	shareID, err := s.shareRepo.Create(ctx, share)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create share: %w", err)
	}
	share.ID = shareID

	s.auditService.Log(ctx, userID, "share_create", "env_share", shareID, fmt.Sprintf("environment=%s one_time=%t", environmentID, req.OneTime))
	return share, s.shareBaseURL + "/" + token, nil
}

// ListShares returns every share of the environment, active or not, so
// members can see the full history. Like CreateShare, any membership
// suffices.
func (s *envShareService) ListShares(ctx context.Context, userID, environmentID string) ([]*models.EnvShare, error) {
	if _, _, err := s.projectService.RoleForEnvironment(ctx, environmentID, userID); err != nil {
		return nil, err
	}

	shares, err := s.shareRepo.GetByEnvironmentID(ctx, environmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares for environment '%s': %w", environmentID, err)
	}
	return shares, nil
}

// RevokeShare latches the share inactive. Revocation never deletes; the
// record stays for the audit trail.
func (s *envShareService) RevokeShare(ctx context.Context, userID, shareID string) error {
	share, err := s.shareRepo.GetByID(ctx, shareID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrShareNotFound
		}
		return fmt.Errorf("failed to get share '%s': %w", shareID, err)
	}

	if _, _, err := s.projectService.RoleForEnvironment(ctx, share.EnvironmentID, userID); err != nil {
		return err
	}

	if err := s.shareRepo.Deactivate(ctx, shareID); err != nil {
		return fmt.Errorf("failed to revoke share '%s': %w", shareID, err)
	}

	s.auditService.Log(ctx, userID, "share_revoke", "env_share", shareID, "")
	return nil
}

// AccessView runs the anonymous access protocol for a browser view and, when
// it passes, returns the share and the decrypted variables. The view counter
// is consumed atomically before any payload is built.
func (s *envShareService) AccessView(ctx context.Context, token, password, clientIP string) (*models.EnvShare, []models.SharedVariable, error) {
	share, err := s.validateAccess(ctx, token, password, clientIP)
	if err != nil {
		return nil, nil, err
	}

	consumed, err := s.consume(ctx, share.ID, db.ShareAccessView)
	if err != nil {
		return nil, nil, err
	}

	variables, err := s.sharedVariables(ctx, consumed.EnvironmentID)
	if err != nil {
		return nil, nil, err
	}

	s.auditService.Log(ctx, consumed.CreatedBy, "share_view", "env_share", consumed.ID, fmt.Sprintf("ip=%s view=%d/%d", clientIP, consumed.ViewCount, consumed.MaxViews))
	return consumed, variables, nil
}

// AccessDownload runs the anonymous access protocol for a file download and,
// when it passes, returns the share and the rendered .env content. A download
// always latches the share inactive afterwards, regardless of remaining quota.
func (s *envShareService) AccessDownload(ctx context.Context, token, password, clientIP string) (*models.EnvShare, string, error) {
	share, err := s.validateAccess(ctx, token, password, clientIP)
	if err != nil {
		return nil, "", err
	}

	consumed, err := s.consume(ctx, share.ID, db.ShareAccessDownload)
	if err != nil {
		return nil, "", err
	}

	variables, err := s.sharedVariables(ctx, consumed.EnvironmentID)
	if err != nil {
		return nil, "", err
	}
	content := renderEnvFile(variables)

	s.auditService.Log(ctx, consumed.CreatedBy, "share_download", "env_share", consumed.ID, fmt.Sprintf("ip=%s download=%d/%d", clientIP, consumed.DownloadCount, consumed.MaxDownloads))
	return consumed, content, nil
}

// validateAccess runs the pre-quota gates in their fixed order. An unknown
// token and an inactive share produce the same error so a prober cannot tell
// them apart; expiry is the only gate that latches state on refusal.
func (s *envShareService) validateAccess(ctx context.Context, token, password, clientIP string) (*models.EnvShare, error) {
	share, err := s.shareRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrShareInvalidOrInactive
		}
		return nil, fmt.Errorf("failed to look up share token: %w", err)
	}
	if !share.IsActive {
		return nil, ErrShareInvalidOrInactive
	}

	if share.ExpiresAt != nil && time.Now().UTC().After(*share.ExpiresAt) {
		if err := s.shareRepo.Deactivate(ctx, share.ID); err != nil {
			return nil, fmt.Errorf("failed to deactivate expired share '%s': %w", share.ID, err)
		}
		return nil, ErrShareExpired
	}

	if len(share.WhitelistedIPs) > 0 {
		if clientIP == "" || !containsIP(share.WhitelistedIPs, clientIP) {
			return nil, ErrShareIPNotAllowed
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(share.PasswordHash), []byte(password)); err != nil {
		return nil, ErrShareInvalidPassword
	}
	return share, nil
}

// consume maps the repository's transactional outcome onto the protocol's
// error taxonomy.
func (s *envShareService) consume(ctx context.Context, shareID string, kind db.ShareAccessKind) (*models.EnvShare, error) {
	consumed, err := s.shareRepo.ConsumeAccess(ctx, shareID, kind)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrShareInactive):
			return nil, ErrShareInvalidOrInactive
		case errors.Is(err, db.ErrShareQuotaExhausted):
			return nil, ErrShareQuotaExceeded
		default:
			return nil, fmt.Errorf("failed to consume share access: %w", err)
		}
	}
	return consumed, nil
}

// sharedVariables loads and decrypts every variable of the shared
// environment. A share always delivers plaintext; the masking policy applies
// to authenticated members, not validated consumers.
func (s *envShareService) sharedVariables(ctx context.Context, environmentID string) ([]models.SharedVariable, error) {
	envVars, err := s.envVarRepo.GetByEnvironmentID(ctx, environmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variables for environment '%s': %w", environmentID, err)
	}

	variables := make([]models.SharedVariable, 0, len(envVars))
	for _, envVar := range envVars {
		value := envVar.Value
		if envVar.IsSecret {
			value, err = s.codec.Decrypt(envVar.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
			}
		}
		variables = append(variables, models.SharedVariable{
			Key:      envVar.Key,
			Value:    value,
			IsSecret: envVar.IsSecret,
		})
	}
	return variables, nil
}

// newUniqueToken generates a URL-safe random token and verifies it is unused,
// retrying a few times on the astronomically unlikely collision.
func (s *envShareService) newUniqueToken(ctx context.Context) (string, error) {
	for i := 0; i < tokenCollisionRetries; i++ {
		buf := make([]byte, shareTokenBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to generate share token: %w", err)
		}
		token := base64.RawURLEncoding.EncodeToString(buf)

		_, err := s.shareRepo.GetByToken(ctx, token)
		if errors.Is(err, db.ErrNotFound) {
			return token, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check share token uniqueness: %w", err)
		}
	}
	return "", fmt.Errorf("failed to generate a unique share token")
}

func containsIP(allowlist []string, ip string) bool {
	for _, allowed := range allowlist {
		if allowed == ip {
			return true
		}
	}
	return false
}

func renderEnvFile(variables []models.SharedVariable) string {
	content := ""
	for _, v := range variables {
		content += v.Key + "=" + v.Value + "\n"
	}
	return content
}
