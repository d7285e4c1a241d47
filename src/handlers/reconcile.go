package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brocketdesign/rakubun-sub003/src/services"
)

// ReconcileHandler triggers on-demand reconciliation runs
type ReconcileHandler struct {
	reconcileService *services.ReconcileService
}

// NewReconcileHandler creates a new reconcile handler
func NewReconcileHandler(reconcileService *services.ReconcileService) *ReconcileHandler {
	return &ReconcileHandler{reconcileService: reconcileService}
}

// HandleReconcile runs one reconciliation pass and returns its summary.
// Per-record failures are inside the summary; only a failure to even start
// the run is an error response.
func (rh *ReconcileHandler) HandleReconcile(c *gin.Context) {
	summary, err := rh.reconcileService.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed to start"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
