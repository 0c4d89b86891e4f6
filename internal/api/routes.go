package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/api/handlers"
	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/api/middleware"
	"github.com/sakettiwari02042001-bot/Credential-Manager/internal/services"
	"github.com/sakettiwari02042001-bot/Credential-Manager/pkg/metrics"
)

type Router struct {
	engine         *gin.Engine
	logger         *zap.Logger
	metrics        *metrics.MetricsCollector
	authHandler    *handlers.AuthHandler
	credHandler    *handlers.CredentialHandler
	versionHandler *handlers.VersionHandler
	shareHandler   *handlers.ShareHandler
	authMiddleware *middleware.AuthMiddleware
}

func NewRouter(
	logger *zap.Logger,
	metricsCollector *metrics.MetricsCollector,
	authService *services.AuthService,
	credentialService *services.CredentialService,
	versionService *services.VersionService,
	sharingService *services.SharingService,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	reqMiddleware := middleware.NewRequestMiddleware(logger)
	engine.Use(reqMiddleware.ProcessRequest())
	engine.Use(reqMiddleware.RecoverPanic())

	return &Router{
		engine:         engine,
		logger:         logger,
		metrics:        metricsCollector,
		authHandler:    handlers.NewAuthHandler(authService, logger),
		credHandler:    handlers.NewCredentialHandler(credentialService, logger),
		versionHandler: handlers.NewVersionHandler(versionService, logger),
		shareHandler:   handlers.NewShareHandler(sharingService, logger),
		authMiddleware: middleware.NewAuthMiddleware(authService),
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "name": "credential-manager"})
	})

	r.engine.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"counters":  r.metrics.GetCounters(),
			"latencies": r.metrics.GetLatencies(),
		})
	})

	auth := r.engine.Group("/auth")
	{
		auth.POST("/register", r.authHandler.Register)
		auth.POST("/login", r.authHandler.Login)
	}

	authorized := r.engine.Group("/")
	authorized.Use(r.authMiddleware.RequireAuth())
	{
		authorized.POST("/credentials", r.credHandler.Create)
		authorized.GET("/credentials", r.credHandler.List)
		authorized.GET("/credentials/byTag/:tag", r.credHandler.ListByTag)
		authorized.GET("/credentials/:id", r.credHandler.GetByID)
		authorized.PUT("/credentials/:id", r.credHandler.Update)
		authorized.DELETE("/credentials/:id", r.credHandler.Delete)

		authorized.GET("/credentialVersions/:credentialId", r.versionHandler.List)
		authorized.GET("/credentialVersions/:credentialId/:versionNumber", r.versionHandler.GetByNumber)

		authorized.POST("/sharedCredentials/share", r.shareHandler.Share)
		authorized.GET("/sharedCredentials/received", r.shareHandler.ListReceived)
		authorized.GET("/sharedCredentials/received/:id", r.shareHandler.GetReceivedByID)
		authorized.GET("/sharedCredentials/shared", r.shareHandler.ListGranted)
		authorized.DELETE("/sharedCredentials/revoke/:id", r.shareHandler.Revoke)
	}
}

// Engine exposes the underlying gin engine so the caller can mount it on
// its own http.Server and control shutdown.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
