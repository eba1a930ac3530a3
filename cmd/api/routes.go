package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"amora-platform/internal/httpapi"
	"amora-platform/internal/metrics"
	"amora-platform/internal/rbac"
	"amora-platform/pkg/utils"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc, db *sql.DB, m *metrics.Metrics) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	v1 := r.Group("/v1")

	// AUTH routes (token issuance).
	v1.POST("/auth/login", h.Login)

	protected := v1.Group("")
	protected.Use(authMW)
	protected.Use(rbac.RequireUser())
	{
		protected.GET("/me/balance", h.GetBalance)
		protected.GET("/me/ledger", h.ListLedger)
		protected.GET("/me/reports/calls", h.CallsSummary)
		protected.GET("/me/reports/earnings", h.EarningsSummary)

		// CALLS routes: only callers start and end; receivers rate.
		calls := protected.Group("/calls")
		{
			calls.POST("/start", rbac.RequireAnyRole(rbac.RoleMale), h.StartCall)
			calls.POST("/end", rbac.RequireAnyRole(rbac.RoleMale), h.EndCall)
			calls.POST("/history/:history_id/rate", rbac.RequireAnyRole(rbac.RoleFemale), h.RateCall)
		}

		// ADMIN routes
		admin := protected.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.PUT("/level-configs", h.SetLevelConfig)
			admin.PUT("/config", h.SetAdminConfig)
		}
	}
}
