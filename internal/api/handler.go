package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"laundry-bot-backend/config"
	"laundry-bot-backend/internal/engine"
	"laundry-bot-backend/internal/model"
	"laundry-bot-backend/internal/store"
	"laundry-bot-backend/internal/sweeper"
	"laundry-bot-backend/internal/template"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	cfg       *config.Config
	store     store.Store
	engine    *engine.Service
	sweeper   *sweeper.Service
	templates *template.Resolver
	webpush   *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(cfg *config.Config, s store.Store, eng *engine.Service, swp *sweeper.Service, templates *template.Resolver, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     s,
		engine:    eng,
		sweeper:   swp,
		templates: templates,
		webpush:   webpushOptions,
	}
}

const storeContextKey = "admin_store"

// adminAuth resolves the store from the path and checks the per-store
// admin token before any admin handler runs.
func (h *Handler) adminAuth(c *gin.Context) {
	st, err := h.store.GetStore(c.Request.Context(), c.Param("store_id"))
	if errors.Is(err, store.ErrStoreNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "store not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve store"})
		return
	}

	if c.GetHeader("X-Admin-Token") != st.AdminToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
		return
	}

	c.Set(storeContextKey, st)
	c.Next()
}

// adminStore returns the store resolved by adminAuth.
func adminStore(c *gin.Context) *model.Store {
	return c.MustGet(storeContextKey).(*model.Store)
}
