package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"envvault-backend-go/internal/core"
	"envvault-backend-go/internal/models"
)

// EnvShareHandler handles API endpoints for share links: the authenticated
// lifecycle endpoints and the public, unauthenticated access endpoints.
type EnvShareHandler struct {
	shareService core.EnvShareService
}

// NewEnvShareHandler creates a new EnvShareHandler.
func NewEnvShareHandler(ss core.EnvShareService) *EnvShareHandler {
	return &EnvShareHandler{shareService: ss}
}

// mapShareErrorToStatus maps errors from core.EnvShareService to HTTP status
// codes and an ErrorResponse body. The public access errors deliberately give
// a prober nothing beyond which gate refused them.
func mapShareErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrShareNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrShareNotFound.Error()}
	case errors.Is(err, core.ErrShareInvalidOrInactive):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrShareInvalidOrInactive.Error()}
	case errors.Is(err, core.ErrShareExpired):
		statusCode = http.StatusGone
		errResponse = ErrorResponse{Error: core.ErrShareExpired.Error()}
	case errors.Is(err, core.ErrShareIPNotAllowed):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrShareIPNotAllowed.Error()}
	case errors.Is(err, core.ErrShareInvalidPassword):
		statusCode = http.StatusUnauthorized
		errResponse = ErrorResponse{Error: core.ErrShareInvalidPassword.Error()}
	case errors.Is(err, core.ErrShareQuotaExceeded):
		statusCode = http.StatusTooManyRequests
		errResponse = ErrorResponse{Error: core.ErrShareQuotaExceeded.Error()}
	case errors.Is(err, core.ErrEnvironmentNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrEnvironmentNotFound.Error()}
	case errors.Is(err, core.ErrForbiddenAccess):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrForbiddenAccess.Error()}
	case errors.Is(err, core.ErrPermissionDenied):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrPermissionDenied.Error()}
	case errors.Is(err, core.ErrDecryptionFailed):
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "Failed to decrypt shared data."}
	default:
		log.Printf("Internal Server Error in EnvShareHandler: %v", err)
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

func shareResponseOf(share *models.EnvShare, shareURL string) EnvShareResponse {
	return EnvShareResponse{
		ID:             share.ID,
		EnvironmentID:  share.EnvironmentID,
		ShareURL:       shareURL,
		ExpiresAt:      share.ExpiresAt,
		MaxViews:       share.MaxViews,
		MaxDownloads:   share.MaxDownloads,
		ViewCount:      share.ViewCount,
		DownloadCount:  share.DownloadCount,
		OneTime:        share.OneTime,
		IsActive:       share.IsActive,
		WhitelistedIPs: share.WhitelistedIPs,
		CreatedBy:      share.CreatedBy,
		CreatedAt:      share.CreatedAt,
	}
}

// CreateShare handles POST /environments/:environmentId/shares
func (h *EnvShareHandler) CreateShare(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	environmentID := c.Param("environmentId")

	var req models.CreateEnvShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	if (req.MaxViews != nil && *req.MaxViews < 0) || (req.MaxDownloads != nil && *req.MaxDownloads < 0) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "max_views and max_downloads must not be negative"})
		return
	}

	share, shareURL, err := h.shareService.CreateShare(c.Request.Context(), userID, environmentID, req)
	if err != nil {
		mapShareErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, shareResponseOf(share, shareURL))
}

// ListShares handles GET /environments/:environmentId/shares
func (h *EnvShareHandler) ListShares(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	environmentID := c.Param("environmentId")

	shares, err := h.shareService.ListShares(c.Request.Context(), userID, environmentID)
	if err != nil {
		mapShareErrorToStatus(c, err)
		return
	}

	responses := make([]EnvShareResponse, 0, len(shares))
	for _, share := range shares {
		// The URL (and so the token) is only ever handed out at creation.
		responses = append(responses, shareResponseOf(share, ""))
	}
	c.JSON(http.StatusOK, responses)
}

// RevokeShare handles DELETE /shares/:shareId
func (h *EnvShareHandler) RevokeShare(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	shareID := c.Param("shareId")

	if err := h.shareService.RevokeShare(c.Request.Context(), userID, shareID); err != nil {
		mapShareErrorToStatus(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AccessSharedView handles POST /share/:token/view — the public, password
// protected browser view of a shared environment.
func (h *EnvShareHandler) AccessSharedView(c *gin.Context) {
	token := c.Param("token")

	var req models.EnvShareAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	share, variables, err := h.shareService.AccessView(c.Request.Context(), token, req.Password, c.ClientIP())
	if err != nil {
		mapShareErrorToStatus(c, err)
		return
	}

	dtos := make([]SharedVariableDTO, 0, len(variables))
	for _, v := range variables {
		dtos = append(dtos, SharedVariableDTO{Key: v.Key, Value: v.Value, IsSecret: v.IsSecret})
	}
	remaining := share.MaxViews - share.ViewCount
	if !share.IsActive || remaining < 0 {
		remaining = 0
	}
	c.JSON(http.StatusOK, SharedEnvResponse{
		EnvironmentID:  share.EnvironmentID,
		Variables:      dtos,
		RemainingViews: remaining,
	})
}

// AccessSharedDownload handles POST /share/:token/download — the public,
// password protected single-use .env file download.
func (h *EnvShareHandler) AccessSharedDownload(c *gin.Context) {
	token := c.Param("token")

	var req models.EnvShareAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	share, content, err := h.shareService.AccessDownload(c.Request.Context(), token, req.Password, c.ClientIP())
	if err != nil {
		mapShareErrorToStatus(c, err)
		return
	}

	filename := fmt.Sprintf("env_environment_%s.env", share.EnvironmentID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}
