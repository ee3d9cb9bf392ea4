package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-bot-backend/internal/model"
	"laundry-bot-backend/internal/template"
)

// GetTemplates handles GET /api/admin/:store_id/templates.
func (h *Handler) GetTemplates(c *gin.Context) {
	st := adminStore(c)

	set, err := h.store.GetTemplates(c.Request.Context(), st.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch templates"})
		return
	}
	c.JSON(http.StatusOK, set)
}

type putTemplateRequest struct {
	Text string `json:"text" binding:"required"`
}

// PutTemplate handles PUT /api/admin/:store_id/templates/:template_id.
// Saving drops the store's cached template set so the edit takes effect
// on the next event.
func (h *Handler) PutTemplate(c *gin.Context) {
	st := adminStore(c)
	templateID := c.Param("template_id")

	if template.Default(templateID) == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown template id"})
		return
	}

	var req putTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t := &model.MessageTemplate{
		StoreID:    st.ID,
		TemplateID: templateID,
		Text:       req.Text,
	}
	if err := h.store.SaveTemplate(c.Request.Context(), t); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save template"})
		return
	}
	h.templates.Invalidate(st.ID)

	c.JSON(http.StatusOK, gin.H{"template_id": templateID, "text": req.Text})
}
