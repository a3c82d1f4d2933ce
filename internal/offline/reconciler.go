// Package offline reconciles batches of telemetry and transaction
// records captured by edge controllers while disconnected. Uploads may
// be retried, replayed or arrive out of order; the reconciler makes the
// server behave as if each logical event happened exactly once.
package offline

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"recycle-fleet-backend/internal/logs"
	"recycle-fleet-backend/internal/model"
	"recycle-fleet-backend/internal/store"
)

// Outcome is the per-record result of an ingestion attempt.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeAlreadyApplied Outcome = "already_applied"
	OutcomeFailed         Outcome = "failed"
)

// Record is one offline-captured event as uploaded by a controller.
// CapturedAt is the controller's clock at the moment the event
// occurred, which may be long before the upload.
type Record struct {
	IdempotencyKey string         `json:"idempotency_key"`
	Kind           model.SyncKind `json:"kind"`
	CapturedAt     time.Time      `json:"captured_at"`
	Payload        datatypes.JSON `json:"payload"`
}

// RecordResult reports what happened to one record.
type RecordResult struct {
	Key     string  `json:"key"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// Reconciler applies batches idempotently against the store.
type Reconciler struct {
	store store.Store
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(s store.Store) *Reconciler {
	return &Reconciler{store: s}
}

// Ingest persists each record of a batch independently. The batch
// identifier is a grouping and audit label, not a transaction boundary:
// a batch resent after a partial prior success re-reports
// already_applied for the records that made it and retries only the
// rest. Duplicate idempotency keys are folded into success.
func (r *Reconciler) Ingest(ctx context.Context, unitID, batchID string, records []Record) []RecordResult {
	now := time.Now().UTC()
	results := make([]RecordResult, 0, len(records))

	for _, rec := range records {
		row := &model.SyncRecord{
			UnitID:         unitID,
			BatchID:        batchID,
			IdempotencyKey: rec.IdempotencyKey,
			Kind:           rec.Kind,
			Payload:        rec.Payload,
			CapturedAt:     rec.CapturedAt,
			ReceivedAt:     now,
			Status:         model.SyncStatusSynced,
			Attempts:       1,
		}

		created, err := r.store.CreateSyncRecord(ctx, row)
		switch {
		case err != nil:
			// A failed persist is reported per record so the controller
			// can decide whether to resend this one. The failure marker
			// keeps the attempt counter across retries.
			if markErr := r.store.MarkSyncFailure(ctx, row); markErr != nil {
				logs.Logger.WithFields(map[string]any{
					"unit":  unitID,
					"batch": batchID,
					"key":   rec.IdempotencyKey,
				}).WithError(markErr).Error("could not record sync failure")
			}
			results = append(results, RecordResult{
				Key:     rec.IdempotencyKey,
				Outcome: OutcomeFailed,
				Error:   err.Error(),
			})
		case created:
			// Fresh key, or a resend of a record whose earlier attempt
			// failed; either way this upload is the one that applied it.
			results = append(results, RecordResult{
				Key:     rec.IdempotencyKey,
				Outcome: OutcomeApplied,
			})
		default:
			// The key is already synced from a previous upload (or a
			// concurrent retry). Success, no changes, no attempt
			// increment.
			results = append(results, RecordResult{
				Key:     rec.IdempotencyKey,
				Outcome: OutcomeAlreadyApplied,
			})
		}
	}

	logs.Logger.WithFields(map[string]any{
		"unit":    unitID,
		"batch":   batchID,
		"records": len(records),
	}).Debug("sync batch processed")
	return results
}

// BatchStatus exposes the current per-record sync status of a batch,
// ordered by the client-captured timestamp, so the controller's retry
// scheduler can decide what to resend.
func (r *Reconciler) BatchStatus(ctx context.Context, unitID, batchID string) ([]model.SyncRecord, error) {
	return r.store.SyncRecordsByBatch(ctx, unitID, batchID)
}
