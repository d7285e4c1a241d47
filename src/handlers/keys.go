package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brocketdesign/rakubun-sub003/src/middleware"
	"github.com/brocketdesign/rakubun-sub003/src/services"
)

// KeyHandler exposes API key management for authenticated owners
type KeyHandler struct {
	keyService *services.KeyService
}

// NewKeyHandler creates a new key handler
func NewKeyHandler(keyService *services.KeyService) *KeyHandler {
	return &KeyHandler{keyService: keyService}
}

// issueKeyRequest is the body for POST /api/keys
type issueKeyRequest struct {
	Label string `json:"label" binding:"required"`
}

// HandleIssueKey creates a new API key for the caller. The response is the
// only place the full secret ever appears.
func (kh *KeyHandler) HandleIssueKey(c *gin.Context) {
	caller := middleware.GetCaller(c)
	if caller == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req issueKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label is required"})
		return
	}

	key, err := kh.keyService.Issue(c.Request.Context(), caller.OwnerID, req.Label)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue key"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         key.ID,
		"label":      key.Label,
		"key":        key.Secret,
		"key_prefix": key.KeyPrefix,
		"created_at": key.CreatedAt,
	})
}

// HandleListKeys returns key metadata for the caller. Secrets are never included.
func (kh *KeyHandler) HandleListKeys(c *gin.Context) {
	caller := middleware.GetCaller(c)
	if caller == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	keys, err := kh.keyService.List(c.Request.Context(), caller.OwnerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list keys"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// HandleRevokeKey revokes one of the caller's keys. A key that does not
// exist and a key owned by someone else produce the same 404.
func (kh *KeyHandler) HandleRevokeKey(c *gin.Context) {
	caller := middleware.GetCaller(c)
	if caller == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	keyID, err := uuid.Parse(c.Param("key_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key id"})
		return
	}

	if err := kh.keyService.Revoke(c.Request.Context(), caller.OwnerID, keyID); err != nil {
		if errors.Is(err, services.ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}
