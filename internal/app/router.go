package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"novostudio.tech/foundation/internal/api/middleware"
	"novostudio.tech/foundation/internal/app/modules"
	"novostudio.tech/foundation/internal/config"
)

func newRouter(cfg *config.Config, infra *modules.Infrastructure, mods []modules.Module, openapiJSON []byte) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// ErrorHandler recovers panics itself; no separate gin.Recovery needed.
	router.Use(middleware.RequestID(), middleware.ErrorHandler(cfg.IsProduction()))
	router.Use(middleware.CORS(middleware.TrustedOrigins(cfg.CORS.Origins)))

	public := router.Group("/api/v1")
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuth(infra.JWTCfg.SigningKey))
	adminGroup := protected.Group("/admin")

	public.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"time":    time.Now().UTC().Format(time.RFC3339),
			"workers": infra.Pools.Metrics(),
		})
	})
	public.GET("/docs/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openapiJSON)
	})

	groups := modules.RouteGroups{
		Public:    public,
		Protected: protected,
		Admin:     adminGroup,
	}
	for _, mod := range mods {
		mod.Mount(groups)
	}
	return router
}
