package api

import (
	"github.com/gin-gonic/gin"
	"github.com/use-agent/taxsale/api/handler"
	"github.com/use-agent/taxsale/api/middleware"
	"github.com/use-agent/taxsale/cache"
	"github.com/use-agent/taxsale/config"
	"github.com/use-agent/taxsale/scraper"
	"github.com/use-agent/taxsale/snapshot"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if keys configured) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(sess *scraper.Session, rend *snapshot.Renderer, cfg *config.Config, cc *cache.Cache) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	// Health stays open for monitoring probes.
	r.GET("/health", handler.Health())

	// Everything else goes through auth and rate limiting.
	protected := r.Group("")
	protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.GET("/scrape", handler.Scrape(sess, cc, cfg.Cache, cfg.Webhook))
	protected.GET("/page", handler.Page(sess, rend))

	return r
}
