package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/threaded-comments-api/internal/config"
	"github.com/threaded-comments-api/internal/service"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NewRouter creates and configures the Gin router. health may be nil.
func NewRouter(services *service.Services, cfg *config.Config, log zerolog.Logger, health HealthChecker) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.Server.CORSOrigins))

	// Handlers
	authHandler := NewAuthHandler(services, log)
	commentHandler := NewCommentHandler(services, log)
	notificationHandler := NewNotificationHandler(services, log)
	requireAuth := authMiddleware(services.Auth, log)

	// Health check
	router.GET("/health", healthCheck(health))
	router.GET("/metrics", metricsHandler(services, log))

	// API v1
	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		users := v1.Group("/users", requireAuth)
		{
			users.GET("/profile", authHandler.Profile)
			users.GET("/:id", authHandler.GetUser)
		}

		comments := v1.Group("/comments")
		{
			comments.GET("", commentHandler.List)
			comments.GET("/:id", commentHandler.Get)
			comments.POST("", requireAuth, commentHandler.Create)
			comments.PUT("/:id", requireAuth, commentHandler.Update)
			comments.DELETE("/:id", requireAuth, commentHandler.Delete)
			comments.POST("/:id/restore", requireAuth, commentHandler.Restore)
		}

		notifications := v1.Group("/notifications", requireAuth)
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.PUT("/read-all", notificationHandler.MarkAllRead)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(health HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := health.HealthCheck(ctx); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "threaded-comments-api",
		})
	}
}

// metricsHandler returns record counts
func metricsHandler(services *service.Services, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		counts := gin.H{}
		for _, resource := range []string{"comments", "notifications"} {
			count, err := services.Thread.GetCount(ctx, resource)
			if err != nil {
				log.Error().Err(err).Str("resource", resource).Msg("Failed to count records")
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to collect metrics"})
				return
			}
			counts[resource] = count
		}

		c.JSON(http.StatusOK, gin.H{
			"database":  counts,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
