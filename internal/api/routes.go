package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"envvault-backend-go/internal/config"
	"envvault-backend-go/internal/core"
	"envvault-backend-go/internal/db"
	"envvault-backend-go/internal/middleware"
)

// SetupRoutes configures all application routes with their handlers and
// middleware. Global middleware (logging, recovery, CORS) is expected to be
// applied to the router before this is called, typically in main.go.
func SetupRoutes(
	router *gin.Engine,
	appConfig *config.Config,
	logger *zap.Logger,
	userService core.UserService,
	projectService core.ProjectService,
	envVarService core.EnvVariableService,
	shareService core.EnvShareService,
) {
	// The Firebase Auth client must be available after db.InitFirestore().
	firebaseAuthClient := db.GetFirebaseAuthClient()
	if firebaseAuthClient == nil {
		logger.Fatal("Firebase Auth client is not initialized; routes cannot be secured")
	}
	authMW := middleware.NewAuthMiddleware(firebaseAuthClient)

	authHandler := NewAuthHandler(userService)
	projectHandler := NewProjectHandler(projectService)
	envVarHandler := NewEnvVariableHandler(envVarService)
	shareHandler := NewEnvShareHandler(shareService)

	apiV1 := router.Group("/api/v1")
	{
		// --- User and Authentication Endpoints ---
		usersGroup := apiV1.Group("/users")
		{
			// Called after client-side Firebase login/signup to ensure the
			// backend profile exists.
			usersGroup.POST("/initialize", authMW.VerifyToken(), authHandler.InitializeUserProfile)
			usersGroup.GET("/me", authMW.VerifyToken(), authHandler.GetCurrentUserProfile)
		}

		// --- Project Endpoints (memberships and environments nested) ---
		projectsGroup := apiV1.Group("/projects", authMW.VerifyToken())
		{
			projectsGroup.POST("", projectHandler.CreateProject)
			projectsGroup.GET("", projectHandler.ListProjects)
			projectsGroup.GET("/:projectId", projectHandler.GetProject)
			projectsGroup.DELETE("/:projectId", projectHandler.DeleteProject)

			membersGroup := projectsGroup.Group("/:projectId/members")
			{
				membersGroup.POST("", projectHandler.AddMember)
				membersGroup.PUT("/:memberId", projectHandler.UpdateMember)
				membersGroup.DELETE("/:memberId", projectHandler.RemoveMember)
			}

			projectsGroup.POST("/:projectId/environments", projectHandler.CreateEnvironment)
			projectsGroup.GET("/:projectId/environments", projectHandler.ListEnvironments)
		}

		// --- Environment Endpoints (variables, file export and shares nested) ---
		environmentsGroup := apiV1.Group("/environments", authMW.VerifyToken())
		{
			environmentsGroup.PUT("/:environmentId", projectHandler.UpdateEnvironment)
			environmentsGroup.DELETE("/:environmentId", projectHandler.DeleteEnvironment)

			environmentsGroup.GET("/:environmentId/variables", envVarHandler.ListVariables)
			environmentsGroup.GET("/:environmentId/file", envVarHandler.DownloadEnvFile)

			environmentsGroup.POST("/:environmentId/shares", shareHandler.CreateShare)
			environmentsGroup.GET("/:environmentId/shares", shareHandler.ListShares)
		}

		// --- Variable Endpoints ---
		// The environment ID travels in the create payload; item routes are flat.
		variablesGroup := apiV1.Group("/variables", authMW.VerifyToken())
		{
			variablesGroup.POST("", envVarHandler.CreateVariable)
			variablesGroup.GET("/:variableId", envVarHandler.GetVariable)
			variablesGroup.PUT("/:variableId", envVarHandler.UpdateVariable)
			variablesGroup.DELETE("/:variableId", envVarHandler.DeleteVariable)
		}

		// --- Share Revocation ---
		apiV1.DELETE("/shares/:shareId", authMW.VerifyToken(), shareHandler.RevokeShare)
	}

	// --- Public Share Access Endpoints (NO auth middleware) ---
	// Share consumers authenticate with the link token and password only.
	shareGroup := router.Group("/share")
	{
		shareGroup.POST("/:token/view", shareHandler.AccessSharedView)
		shareGroup.POST("/:token/download", shareHandler.AccessSharedDownload)
	}

	// --- General Health Check Endpoint ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	logger.Info("API routes configured", zap.String("base", "/api/v1"))
}
