package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"laundry-bot-backend/internal/model"
	"laundry-bot-backend/internal/template"
)

type createStoreRequest struct {
	Name          string `json:"name" binding:"required"`
	ChannelSecret string `json:"line_channel_secret" binding:"required"`
	AccessToken   string `json:"line_access_token" binding:"required"`
}

// PostStore handles POST /api/stores — store onboarding. The new store
// gets a generated admin token plus a seeded machine list and the
// default message template set.
func (h *Handler) PostStore(c *gin.Context) {
	var req createStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st := &model.Store{
		ID:            uuid.NewString(),
		Name:          req.Name,
		ChannelSecret: req.ChannelSecret,
		AccessToken:   req.AccessToken,
		AdminToken:    uuid.NewString(),
	}

	if err := h.store.CreateStore(c.Request.Context(), st, defaultMachines(), defaultTemplates()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create store"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"store_id":    st.ID,
		"admin_token": st.AdminToken,
		"name":        st.Name,
	})
}

// defaultMachines is the machine list every new store starts with.
func defaultMachines() []model.MachineConfig {
	return []model.MachineConfig{
		{MachineType: model.MachineTypeWasher, MachineID: 1, DurationMinutes: 30, IsActive: true, DisplayName: "เครื่องซักผ้า 1"},
		{MachineType: model.MachineTypeWasher, MachineID: 2, DurationMinutes: 30, IsActive: true, DisplayName: "เครื่องซักผ้า 2"},
		{MachineType: model.MachineTypeDryer, MachineID: 1, DurationMinutes: 40, IsActive: true, DisplayName: "เครื่องอบผ้า 1"},
		{MachineType: model.MachineTypeDryer, MachineID: 2, DurationMinutes: 40, IsActive: true, DisplayName: "เครื่องอบผ้า 2"},
	}
}

func defaultTemplates() []model.MessageTemplate {
	set := template.DefaultSet()
	templates := make([]model.MessageTemplate, 0, len(set))
	now := time.Now().UTC()
	for id, text := range set {
		templates = append(templates, model.MessageTemplate{
			TemplateID: id,
			Text:       text,
			UpdatedAt:  now,
		})
	}
	return templates
}
