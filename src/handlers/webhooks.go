package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brocketdesign/rakubun-sub003/src/services"
)

// WebhookHandler exposes webhook subscription management and delivery
type WebhookHandler struct {
	webhookService *services.WebhookService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookService *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// registerRequest is the body for POST /api/webhooks
type registerRequest struct {
	SiteID string   `json:"site_id" binding:"required"`
	URL    string   `json:"url" binding:"required"`
	Events []string `json:"events"`
}

// HandleRegister creates or replaces a site's webhook subscription. The
// signing secret in the response is shown exactly once; re-registering
// rotates it.
func (wh *WebhookHandler) HandleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "site_id and url are required"})
		return
	}

	sub, err := wh.webhookService.Register(req.SiteID, req.URL, req.Events)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register webhook"})
		return
	}

	c.JSON(http.StatusCreated, sub)
}

// HandleGetSubscription returns a site's subscription without the secret
func (wh *WebhookHandler) HandleGetSubscription(c *gin.Context) {
	sub, err := wh.webhookService.Get(c.Param("site_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}

	c.JSON(http.StatusOK, sub)
}

// HandleUnregister removes a site's subscription
func (wh *WebhookHandler) HandleUnregister(c *gin.Context) {
	if err := wh.webhookService.Unregister(c.Param("site_id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "unregistered"})
}

// HandleTestDelivery sends a test event to a site's endpoint and reports the
// delivery outcome. A failed delivery is a 200 with delivered=false, not an
// error.
func (wh *WebhookHandler) HandleTestDelivery(c *gin.Context) {
	result := wh.webhookService.Deliver(c.Request.Context(), c.Param("site_id"), "test", gin.H{"test": true})
	c.JSON(http.StatusOK, result)
}

// broadcastRequest is the body for POST /api/webhooks/broadcast
type broadcastRequest struct {
	Event string                 `json:"event" binding:"required"`
	Data  map[string]interface{} `json:"data"`
}

// HandleBroadcast fans an event out to every active subscription and
// returns aggregate counts. Partial failure is reported, never raised.
func (wh *WebhookHandler) HandleBroadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event is required"})
		return
	}

	result := wh.webhookService.Broadcast(c.Request.Context(), req.Event, req.Data)
	c.JSON(http.StatusOK, result)
}
