package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type verifyPinRequest struct {
	PIN string `json:"pin" binding:"required"`
}

type verifyPinResponse struct {
	TechnicianID string   `json:"technician_id"`
	Tier         string   `json:"tier"`
	Capabilities []string `json:"capabilities"`
	ExpiresIn    int      `json:"expires_in"`
}

// VerifyPIN handles POST /api/units/:unit_id/pin.
func (h *Handler) VerifyPIN(c *gin.Context) {
	var req verifyPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pin is required"})
		return
	}

	grant, err := h.pins.VerifyPIN(c.Request.Context(), c.Param("unit_id"), req.PIN)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, verifyPinResponse{
		TechnicianID: grant.TechnicianID,
		Tier:         string(grant.Tier),
		Capabilities: grant.Capabilities,
		ExpiresIn:    int(grant.ExpiresIn.Seconds()),
	})
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

// IssuePairingToken handles POST /api/units/:unit_id/pairing-token.
func (h *Handler) IssuePairingToken(c *gin.Context) {
	sess, err := h.pins.IssuePairingToken(c.Request.Context(), c.Param("unit_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tokenResponse{
		Token:     sess.Token,
		ExpiresIn: secondsUntil(sess.ExpiresAt),
	})
}

// ResolvePairingToken handles GET /api/pairing-token/:token.
func (h *Handler) ResolvePairingToken(c *gin.Context) {
	sess, err := h.pins.ResolvePairingToken(c.Param("token"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"unit_id": sess.UnitID,
		"status":  sess.Status,
	})
}

// StartGuestSession handles POST /api/units/:unit_id/guest-session.
func (h *Handler) StartGuestSession(c *gin.Context) {
	sess, err := h.pins.StartGuestSession(c.Request.Context(), c.Param("unit_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tokenResponse{
		Token:     sess.Token,
		ExpiresIn: secondsUntil(sess.ExpiresAt),
	})
}
