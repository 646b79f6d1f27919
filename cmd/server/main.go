package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"envvault-backend-go/internal/api"
	"envvault-backend-go/internal/config"
	"envvault-backend-go/internal/core"
	"envvault-backend-go/internal/crypto"
	"envvault-backend-go/internal/db"
	"envvault-backend-go/internal/middleware"
)

func main() {
	// Load .env for local development. In production, environment variables
	// are set directly and the file is absent.
	if os.Getenv("GIN_MODE") != "release" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found, relying on environment variables")
		}
	}

	// --- Logger ---
	var zapLogger *zap.Logger
	var err error
	if os.Getenv("GIN_MODE") == "release" {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zap.ReplaceGlobals(zapLogger)

	// --- Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("Failed to load application configuration", zap.Error(err))
	}
	zapLogger.Info("Application configuration loaded")

	// --- Firebase Admin SDK (Firestore + Auth) ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	if err := db.InitFirestore(initCtx, appConfig); err != nil {
		zapLogger.Fatal("Failed to initialize Firebase Admin SDK", zap.Error(err))
	}

	firestoreClient := db.GetFirestoreClient()
	if firestoreClient == nil {
		zapLogger.Fatal("Firestore client is nil after initialization")
	}
	if db.GetFirebaseAuthClient() == nil {
		zapLogger.Fatal("Firebase Auth client is nil after initialization")
	}
	zapLogger.Info("Firebase Admin SDK initialized")

	// --- Repositories ---
	userRepo := db.NewFirestoreUserRepository(firestoreClient)
	projectRepo := db.NewFirestoreProjectRepository(firestoreClient)
	environmentRepo := db.NewFirestoreEnvironmentRepository(firestoreClient)
	envVarRepo := db.NewFirestoreEnvVariableRepository(firestoreClient)
	shareRepo := db.NewFirestoreEnvShareRepository(firestoreClient)
	auditRepo := db.NewFirestoreAuditRepository(firestoreClient)

	// --- Codec ---
	codec, err := crypto.NewCodec(appConfig.EnvMasterKey)
	if err != nil {
		zapLogger.Fatal("Failed to initialize value codec", zap.Error(err))
	}

	// --- Services ---
	auditService := core.NewAuditService(auditRepo, zapLogger)
	userService := core.NewUserService(userRepo)
	projectService := core.NewProjectService(projectRepo, environmentRepo, envVarRepo, shareRepo)
	envVarService := core.NewEnvVariableService(envVarRepo, projectService, auditService, codec)
	shareService := core.NewEnvShareService(shareRepo, envVarRepo, projectService, auditService, codec, appConfig.ShareBaseURL)
	zapLogger.Info("Core services initialized")

	// --- Gin Engine ---
	if strings.ToLower(appConfig.GinMode) == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()

	// Global middleware, order matters: log first, recover before handlers.
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
		zapLogger.Info("CORS middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS middleware skipped: CLIENT_URL is not configured")
	}

	api.SetupRoutes(router, appConfig, zapLogger, userService, projectService, envVarService, shareService)

	// --- HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	zapLogger.Info("Starting HTTP server", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exited gracefully")
}
