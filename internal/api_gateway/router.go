package api_gateway

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/crowdfund-revenue-ledger/internal/api_gateway/handler"
	"github.com/crowdfund-revenue-ledger/internal/api_gateway/middleware"
	"github.com/crowdfund-revenue-ledger/internal/metrics"
)

// Handlers groups the HTTP handlers served by the gateway
type Handlers struct {
	Closure *handler.ClosureHandler
	Ledger  *handler.LedgerHandler
	Audit   *handler.AuditHandler
	Recipe  *handler.RecipeHandler
}

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h Handlers, checks map[string]HealthCheck) {
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(metrics.Middleware())

	v1 := r.Group("/api/v1")
	{
		closures := v1.Group("/closures")
		{
			closures.POST("", h.Closure.Submit)
			closures.POST("/preview", h.Closure.Preview)
			closures.GET("/:id", h.Closure.GetByID)
		}

		references := v1.Group("/references/:type/:id")
		{
			references.GET("/closures", h.Closure.GetByReference)
			references.GET("/ledger", h.Ledger.GetByReference)
		}

		recipients := v1.Group("/recipients/:id")
		{
			recipients.GET("/ledger", h.Ledger.GetByRecipient)
			recipients.GET("/balance", h.Ledger.GetBalance)
		}

		chains := v1.Group("/audit/chains/:chain")
		{
			chains.GET("", h.Audit.List)
			chains.GET("/verify", h.Audit.Verify)
		}

		recipes := v1.Group("/recipes")
		{
			recipes.POST("", h.Recipe.Create)
			recipes.GET("", h.Recipe.List)
			recipes.POST("/seed", h.Recipe.Seed)
			recipes.GET("/active/:rule_type", h.Recipe.GetActive)
			recipes.POST("/:version/activate", h.Recipe.Activate)
		}
	}

	r.GET("/metrics", metrics.Handler())

	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{}
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("Health check failed", "dependency", name, "error", err)
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "up"
		}

		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "dependencies": status, "timestamp": time.Now().UTC()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "dependencies": status, "timestamp": time.Now().UTC()})
	})
}
