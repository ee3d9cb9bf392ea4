package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"laundry-bot-backend/config"
	"laundry-bot-backend/internal/engine"
	"laundry-bot-backend/internal/mw"
	"laundry-bot-backend/internal/store"
	"laundry-bot-backend/internal/sweeper"
	"laundry-bot-backend/internal/template"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, s store.Store, eng *engine.Service, swp *sweeper.Service, templates *template.Resolver, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(cfg, s, eng, swp, templates, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	// API group
	api := r.Group("/api")
	{
		// Public surface
		api.POST("/webhook/:store_id", rateLimiter, handler.PostWebhook)
		api.POST("/stores", handler.PostStore)
		api.POST("/sweep", handler.PostSweep)
		api.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)

		// Per-store admin surface, gated by the store's admin token
		admin := api.Group("/admin/:store_id", handler.adminAuth)
		{
			admin.GET("/machines", handler.GetMachines)
			admin.PUT("/machines", handler.PutMachine)
			admin.GET("/templates", handler.GetTemplates)
			admin.PUT("/templates/:template_id", handler.PutTemplate)
			admin.GET("/timers", handler.GetPendingTimers)
			admin.POST("/timers/cancel", handler.PostCancelTimer)
			admin.GET("/subscriptions", handler.GetSubscription)
			admin.PUT("/subscriptions", handler.PutSubscription)
			admin.DELETE("/subscriptions", handler.DeleteSubscription)
		}
	}

	return r
}
