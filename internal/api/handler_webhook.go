package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"laundry-bot-backend/internal/line"
	"laundry-bot-backend/internal/store"
)

// PostWebhook handles POST /api/webhook/:store_id — the inbound chat
// event delivery. A failed signature check rejects the whole request
// with no reply attempted and no side effects.
func (h *Handler) PostWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	st, err := h.store.GetStore(ctx, c.Param("store_id"))
	if errors.Is(err, store.ErrStoreNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "store not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve store"})
		return
	}

	if st.ChannelSecret == "" || st.AccessToken == "" {
		log.Printf("Chat credentials missing for store %s", st.ID)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "chat credentials missing"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if !line.ValidateSignature(st.ChannelSecret, body, c.GetHeader(line.SignatureHeader)) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "signature validation failed"})
		return
	}

	var webhook line.WebhookBody
	if err := json.Unmarshal(body, &webhook); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed webhook body"})
		return
	}

	// Event-level failures are logged but never fail the delivery;
	// a non-200 would make the platform redeliver the whole batch.
	for _, ev := range webhook.Events {
		if err := h.engine.HandleEvent(ctx, st, ev); err != nil {
			log.Printf("Error handling event for store %s: %v", st.ID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
