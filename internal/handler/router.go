package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/user/linktrack/internal/config"
	"github.com/user/linktrack/internal/middleware"
)

// Handlers groups everything the router dispatches to.
type Handlers struct {
	Home   *HomeHandler
	Links  *LinkHandler
	Stats  *StatsHandler
	Health *HealthHandler
}

// NewRouter builds the gin engine with global middleware and routes.
func NewRouter(cfg config.ServerConfig, h Handlers, log zerolog.Logger) (*gin.Engine, error) {
	router := gin.New()

	// nil trusts no proxy: ClientIP is the socket peer.
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	// Logger before Recovery, so a recovered panic is logged as a 500.
	router.Use(middleware.RequestLogger(log))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins)))

	router.GET("/health", h.Health.Health)
	router.GET("/ready", h.Health.Ready)
	router.GET("/live", h.Health.Live)

	router.GET("/", h.Home.Home)
	router.POST("/shorten", h.Links.Shorten)
	router.POST("/bulk-process", h.Links.Bulk)

	router.GET("/stats", h.Stats.Summary)
	router.GET("/stats/campaigns", h.Stats.Campaigns)

	links := router.Group("/links")
	{
		links.GET("", h.Links.List)
		links.GET("/:code", h.Stats.Link)
		links.DELETE("/:code", h.Links.Deactivate)
	}

	// Static routes above take precedence over the code wildcard, and
	// every one of them is a reserved word custom codes cannot use.
	router.GET("/:code", h.Links.Redirect)

	return router, nil
}
