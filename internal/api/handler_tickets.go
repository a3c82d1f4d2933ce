package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"recycle-fleet-backend/internal/ticket"
)

type createTicketRequest struct {
	UnitID      string `json:"unit_id" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
	ReporterID  string `json:"reporter_id"`
}

// CreateTicket handles POST /api/tickets.
func (h *Handler) CreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := h.tickets.Create(c.Request.Context(), ticket.CreateInput{
		UnitID:      req.UnitID,
		Category:    req.Category,
		Priority:    req.Priority,
		Description: req.Description,
		ReporterID:  req.ReporterID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

// GetTicket handles GET /api/tickets/:number.
func (h *Handler) GetTicket(c *gin.Context) {
	t, err := h.tickets.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ListUnitTickets handles GET /api/units/:unit_id/tickets.
func (h *Handler) ListUnitTickets(c *gin.Context) {
	tickets, err := h.tickets.ListByUnit(c.Request.Context(), c.Param("unit_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}

type assignTicketRequest struct {
	TechnicianID string `json:"technician_id" binding:"required"`
}

// AssignTicket handles POST /api/tickets/:number/assign.
func (h *Handler) AssignTicket(c *gin.Context) {
	var req assignTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "technician_id is required"})
		return
	}

	t, err := h.tickets.Assign(c.Request.Context(), c.Param("number"), req.TechnicianID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// StartTicket handles POST /api/tickets/:number/start.
func (h *Handler) StartTicket(c *gin.Context) {
	t, err := h.tickets.Start(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type resolveTicketRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
	ProofRef        string `json:"proof_ref"`
}

// ResolveTicket handles POST /api/tickets/:number/resolve.
func (h *Handler) ResolveTicket(c *gin.Context) {
	var req resolveTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, err := h.tickets.Resolve(c.Request.Context(), c.Param("number"), req.ResolutionNotes, req.ProofRef)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// CloseTicket handles POST /api/tickets/:number/close.
func (h *Handler) CloseTicket(c *gin.Context) {
	t, err := h.tickets.Close(c.Request.Context(), c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// RetireTicket handles POST /api/tickets/:number/retire.
func (h *Handler) RetireTicket(c *gin.Context) {
	if err := h.tickets.Retire(c.Request.Context(), c.Param("number")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// secondsUntil converts an absolute expiry into the relative hint the
// kiosk clients expect.
func secondsUntil(t time.Time) int {
	s := int(time.Until(t).Seconds())
	if s < 0 {
		return 0
	}
	return s
}
