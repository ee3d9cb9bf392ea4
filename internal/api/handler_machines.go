package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-bot-backend/internal/model"
	"laundry-bot-backend/internal/store"
)

// GetMachines handles GET /api/admin/:store_id/machines.
func (h *Handler) GetMachines(c *gin.Context) {
	st := adminStore(c)

	machines, err := h.store.ListMachines(c.Request.Context(), st.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list machines"})
		return
	}
	c.JSON(http.StatusOK, machines)
}

type putMachineRequest struct {
	MachineType     model.MachineType `json:"machine_type" binding:"required"`
	MachineID       int               `json:"machine_id" binding:"required"`
	DurationMinutes int               `json:"duration_minutes" binding:"required,gt=0"`
	IsActive        *bool             `json:"is_active" binding:"required"`
	DisplayName     string            `json:"display_name" binding:"required"`
}

// PutMachine handles PUT /api/admin/:store_id/machines — admin edits of
// duration, active flag, and display name.
func (h *Handler) PutMachine(c *gin.Context) {
	st := adminStore(c)

	var req putMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MachineType != model.MachineTypeWasher && req.MachineType != model.MachineTypeDryer {
		c.JSON(http.StatusBadRequest, gin.H{"error": "machine_type must be washer or dryer"})
		return
	}

	ctx := c.Request.Context()
	machine, err := h.store.GetMachine(ctx, st.ID, req.MachineType, req.MachineID)
	if errors.Is(err, store.ErrMachineNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "machine not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch machine"})
		return
	}

	machine.DurationMinutes = req.DurationMinutes
	machine.IsActive = *req.IsActive
	machine.DisplayName = req.DisplayName

	if err := h.store.SaveMachine(ctx, machine); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save machine"})
		return
	}
	c.JSON(http.StatusOK, machine)
}
