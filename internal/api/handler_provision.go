package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// RotateUnitSecret handles POST /api/units/:unit_id/rotate-secret. The
// new secret appears in this response only; it is stored nowhere in
// plaintext and never logged.
func (h *Handler) RotateUnitSecret(c *gin.Context) {
	secret, err := h.gate.RotateSecret(c.Request.Context(), c.Param("unit_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret})
}

// ResetAssignmentPIN handles POST /api/assignments/:id/pin-reset. Same
// deal as secret rotation: the plaintext PIN exists only in this
// response, for the technician to note down.
func (h *Handler) ResetAssignmentPIN(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignment id"})
		return
	}

	pin, expiresAt, err := h.pins.ResetPIN(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pin":        pin,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}
