package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-bot-backend/internal/store"
)

// GetPendingTimers handles GET /api/admin/:store_id/timers — the admin
// panel's view of currently running machines.
func (h *Handler) GetPendingTimers(c *gin.Context) {
	st := adminStore(c)

	timers, err := h.store.ListPendingTimers(c.Request.Context(), st.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list timers"})
		return
	}
	c.JSON(http.StatusOK, timers)
}

type cancelTimerRequest struct {
	TimerID string `json:"timer_id" binding:"required"`
}

// PostCancelTimer handles POST /api/admin/:store_id/timers/cancel. The
// cancel is an admin override: it applies regardless of the timer's
// current status and frees the machine for the next reservation.
func (h *Handler) PostCancelTimer(c *gin.Context) {
	st := adminStore(c)

	var req cancelTimerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.store.CancelTimer(c.Request.Context(), st.ID, req.TimerID)
	if errors.Is(err, store.ErrTimerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "timer not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel timer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "timer " + req.TimerID + " cancelled"})
}
