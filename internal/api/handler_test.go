package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"recycle-fleet-backend/internal/model"
)

func setupHandlerRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(nil, nil, nil, nil, nil, nil)
	r.POST("/api/units/:unit_id/pin", handler.VerifyPIN)
	r.POST("/api/tickets", handler.CreateTicket)
	r.POST("/api/tickets/:number/assign", handler.AssignTicket)
	r.POST("/api/sync/batches", handler.IngestBatch)
	return r
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestVerifyPINRejectsMissingBody(t *testing.T) {
	router := setupHandlerRouter()

	w := postJSON(router, "/api/units/RVM-0001/pin", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"pin is required"}`, w.Body.String())
}

func TestCreateTicketRejectsMissingFields(t *testing.T) {
	router := setupHandlerRouter()

	w := postJSON(router, "/api/tickets", `{"unit_id":"RVM-0001"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignTicketRejectsMissingTechnician(t *testing.T) {
	router := setupHandlerRouter()

	w := postJSON(router, "/api/tickets/TKT-202608-0001/assign", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"technician_id is required"}`, w.Body.String())
}

func TestIngestBatchRejectsUnauthenticated(t *testing.T) {
	router := setupHandlerRouter()

	w := postJSON(router, "/api/sync/batches", `{"batch_id":"b1","records":[]}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"no authenticated unit"}`, w.Body.String())
}

func setupAuthenticatedSyncRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(nil, nil, nil, nil, nil, nil)
	r.POST("/api/sync/batches", func(c *gin.Context) {
		c.Set("authenticated_unit", &model.Unit{ID: "RVM-0001"})
	}, handler.IngestBatch)
	return r
}

func TestIngestBatchRejectsRecordWithoutIdempotencyKey(t *testing.T) {
	router := setupAuthenticatedSyncRouter()

	body := `{"batch_id":"b1","records":[{"kind":"telemetry","captured_at":"2026-08-30T10:00:00Z"}]}`
	w := postJSON(router, "/api/sync/batches", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"every record needs an idempotency_key"}`, w.Body.String())
}

func TestIngestBatchRejectsRecordWithoutCapturedAt(t *testing.T) {
	router := setupAuthenticatedSyncRouter()

	body := `{"batch_id":"b1","records":[{"idempotency_key":"k1","kind":"telemetry"}]}`
	w := postJSON(router, "/api/sync/batches", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"every record needs a captured_at timestamp"}`, w.Body.String())
}

func TestIngestBatchRejectsMissingBatchID(t *testing.T) {
	router := setupAuthenticatedSyncRouter()

	w := postJSON(router, "/api/sync/batches", `{"records":[]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
