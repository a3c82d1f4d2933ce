package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"recycle-fleet-backend/internal/mw"
	"recycle-fleet-backend/internal/offline"
)

type ingestBatchRequest struct {
	BatchID string           `json:"batch_id" binding:"required"`
	Records []offline.Record `json:"records" binding:"required"`
}

// IngestBatch handles POST /api/sync/batches for authenticated edge
// controllers. The response reports a per-record outcome so the
// controller's retry scheduler can resend only what did not apply.
func (h *Handler) IngestBatch(c *gin.Context) {
	unit, ok := mw.UnitFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no authenticated unit"})
		return
	}

	var req ingestBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, rec := range req.Records {
		if rec.IdempotencyKey == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "every record needs an idempotency_key"})
			return
		}
		if rec.CapturedAt.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "every record needs a captured_at timestamp"})
			return
		}
	}

	results := h.sync.Ingest(c.Request.Context(), unit.ID, req.BatchID, req.Records)
	c.JSON(http.StatusOK, gin.H{
		"batch_id": req.BatchID,
		"results":  results,
	})
}

type batchRecordStatus struct {
	Key        string    `json:"key"`
	Status     string    `json:"status"`
	Attempts   int       `json:"attempts"`
	CapturedAt time.Time `json:"captured_at"`
	ReceivedAt time.Time `json:"received_at"`
}

// BatchStatus handles GET /api/sync/batches/:batch_id.
func (h *Handler) BatchStatus(c *gin.Context) {
	unit, ok := mw.UnitFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no authenticated unit"})
		return
	}

	records, err := h.sync.BatchStatus(c.Request.Context(), unit.ID, c.Param("batch_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	statuses := make([]batchRecordStatus, 0, len(records))
	for _, rec := range records {
		statuses = append(statuses, batchRecordStatus{
			Key:        rec.IdempotencyKey,
			Status:     string(rec.Status),
			Attempts:   rec.Attempts,
			CapturedAt: rec.CapturedAt,
			ReceivedAt: rec.ReceivedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"batch_id": c.Param("batch_id"),
		"records":  statuses,
	})
}
