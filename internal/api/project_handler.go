package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"envvault-backend-go/internal/core"
	"envvault-backend-go/internal/models"
)

// ProjectHandler handles API endpoints for projects, project memberships and
// the environments nested under them.
type ProjectHandler struct {
	projectService core.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(ps core.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: ps}
}

// mapProjectErrorToStatus maps errors from core.ProjectService to HTTP status
// codes and an ErrorResponse body.
func mapProjectErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrProjectNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrProjectNotFound.Error()}
	case errors.Is(err, core.ErrEnvironmentNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrEnvironmentNotFound.Error()}
	case errors.Is(err, core.ErrForbiddenAccess):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrForbiddenAccess.Error()}
	case errors.Is(err, core.ErrPermissionDenied):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrPermissionDenied.Error()}
	case errors.Is(err, core.ErrOwnerImmutable):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: core.ErrOwnerImmutable.Error()}
	case errors.Is(err, core.ErrInvalidRole):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: core.ErrInvalidRole.Error()}
	default:
		log.Printf("Internal Server Error in ProjectHandler: %v", err)
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// CreateProject handles POST /projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), userID, req)
	if err != nil {
		mapProjectErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// ListProjects handles GET /projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	projects, err := h.projectService.ListProjects(c.Request.Context(), userID)
	if err != nil {
		mapProjectErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// GetProject handles GET /projects/:projectId
func (h *ProjectHandler) GetProject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")

	project, err := h.projectService.GetProject(c.Request.Context(), userID, projectID)
	if err != nil {
		mapProjectErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// DeleteProject handles DELETE /projects/:projectId
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")

	if err := h.projectService.DeleteProject(c.Request.Context(), userID, projectID); err != nil {
		mapProjectErrorToStatus(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddMember handles POST /projects/:projectId/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")

	var req models.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	if err := h.projectService.AddMember(c.Request.Context(), userID, projectID, req); err != nil {
		mapProjectErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Member added"})
}

// UpdateMember handles PUT /projects/:projectId/members/:memberId
func (h *ProjectHandler) UpdateMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")
	memberID := c.Param("memberId")

	var req models.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	if err := h.projectService.UpdateMember(c.Request.Context(), userID, projectID, memberID, req.Role); err != nil {
		mapProjectErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Member role updated"})
}

// RemoveMember handles DELETE /projects/:projectId/members/:memberId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")
	memberID := c.Param("memberId")

	if err := h.projectService.RemoveMember(c.Request.Context(), userID, projectID, memberID); err != nil {
		mapProjectErrorToStatus(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateEnvironment handles POST /projects/:projectId/environments
func (h *ProjectHandler) CreateEnvironment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")

	var req models.CreateEnvironmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	env, err := h.projectService.CreateEnvironment(c.Request.Context(), userID, projectID, req)
	if err != nil {
		mapProjectErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, env)
}

// ListEnvironments handles GET /projects/:projectId/environments
func (h *ProjectHandler) ListEnvironments(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")

	environments, err := h.projectService.ListEnvironments(c.Request.Context(), userID, projectID)
	if err != nil {
		mapProjectErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, environments)
}

// UpdateEnvironment handles PUT /environments/:environmentId
func (h *ProjectHandler) UpdateEnvironment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	environmentID := c.Param("environmentId")

	var req models.UpdateEnvironmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	env, err := h.projectService.UpdateEnvironment(c.Request.Context(), userID, environmentID, req)
	if err != nil {
		mapProjectErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, env)
}

// DeleteEnvironment handles DELETE /environments/:environmentId
func (h *ProjectHandler) DeleteEnvironment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	environmentID := c.Param("environmentId")

	if err := h.projectService.DeleteEnvironment(c.Request.Context(), userID, environmentID); err != nil {
		mapProjectErrorToStatus(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
