package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PostSweep handles POST /api/sweep — the idempotent entry point for the
// external scheduler. Safe to double-fire: MarkSent's status guard keeps
// overlapping sweeps from notifying a timer twice.
func (h *Handler) PostSweep(c *gin.Context) {
	if token := h.cfg.Sweeper.SchedulerToken; token != "" {
		if c.GetHeader("X-Scheduler-Token") != token {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid scheduler token"})
			return
		}
	}

	summary := h.sweeper.SweepOnce(c.Request.Context(), time.Now().UTC())
	c.JSON(http.StatusOK, summary)
}
