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

// EnvVariableHandler handles API endpoints for environment variables.
type EnvVariableHandler struct {
	envVarService core.EnvVariableService
}

// NewEnvVariableHandler creates a new EnvVariableHandler.
func NewEnvVariableHandler(vs core.EnvVariableService) *EnvVariableHandler {
	return &EnvVariableHandler{envVarService: vs}
}

// mapEnvVarErrorToStatus maps errors from core.EnvVariableService to HTTP
// status codes and an ErrorResponse body.
func mapEnvVarErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrEnvVarNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrEnvVarNotFound.Error()}
	case errors.Is(err, core.ErrEnvironmentNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrEnvironmentNotFound.Error()}
	case errors.Is(err, core.ErrProjectNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrProjectNotFound.Error()}
	case errors.Is(err, core.ErrForbiddenAccess):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrForbiddenAccess.Error()}
	case errors.Is(err, core.ErrPermissionDenied):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrPermissionDenied.Error()}
	case errors.Is(err, core.ErrEncryptionFailed):
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "Failed to encrypt variable value."}
	case errors.Is(err, core.ErrDecryptionFailed):
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "Failed to decrypt variable value. Data may be corrupted or key is incorrect."}
	default:
		log.Printf("Internal Server Error in EnvVariableHandler: %v", err)
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// revealRequested reports whether the caller explicitly asked for plaintext
// secrets via the ?reveal=true query parameter.
func revealRequested(c *gin.Context) bool {
	return c.Query("reveal") == "true"
}

// CreateVariable handles POST /variables
func (h *EnvVariableHandler) CreateVariable(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.CreateEnvVariableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	envVar, err := h.envVarService.Create(c.Request.Context(), userID, req)
	if err != nil {
		mapEnvVarErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, envVar)
}

// ListVariables handles GET /environments/:environmentId/variables
func (h *EnvVariableHandler) ListVariables(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	environmentID := c.Param("environmentId")

	views, err := h.envVarService.List(c.Request.Context(), userID, environmentID, revealRequested(c))
	if err != nil {
		mapEnvVarErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// GetVariable handles GET /variables/:variableId
func (h *EnvVariableHandler) GetVariable(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	variableID := c.Param("variableId")

	_, view, err := h.envVarService.Get(c.Request.Context(), userID, variableID, revealRequested(c))
	if err != nil {
		mapEnvVarErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateVariable handles PUT /variables/:variableId
func (h *EnvVariableHandler) UpdateVariable(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	variableID := c.Param("variableId")

	var req models.UpdateEnvVariableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	envVar, err := h.envVarService.Update(c.Request.Context(), userID, variableID, req)
	if err != nil {
		mapEnvVarErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, envVar)
}

// DeleteVariable handles DELETE /variables/:variableId
func (h *EnvVariableHandler) DeleteVariable(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	variableID := c.Param("variableId")

	if err := h.envVarService.Delete(c.Request.Context(), userID, variableID); err != nil {
		mapEnvVarErrorToStatus(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadEnvFile handles GET /environments/:environmentId/file and streams
// the environment as a .env file attachment with secrets decrypted.
func (h *EnvVariableHandler) DownloadEnvFile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	environmentID := c.Param("environmentId")

	content, err := h.envVarService.EnvFileContent(c.Request.Context(), userID, environmentID)
	if err != nil {
		mapEnvVarErrorToStatus(c, err)
		return
	}

	filename := fmt.Sprintf("env_environment_%s.env", environmentID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}
