package model

import (
	"time"

	"gorm.io/datatypes"
)

// SyncStatus tracks the server-side state of one offline-captured record.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// SyncKind distinguishes telemetry readings from transaction records.
type SyncKind string

const (
	SyncKindTelemetry   SyncKind = "telemetry"
	SyncKindTransaction SyncKind = "transaction"
)

// SyncRecord is one telemetry reading or transaction captured by an edge
// controller while offline. The idempotency key is globally unique: a
// second insert with the same key must be a no-op that still reports
// success, which the uniqueIndex below enforces at the storage layer.
//
// CapturedAt is the controller's clock at the moment the event happened;
// ReceivedAt is the server's clock at upload time. Business ordering is
// always derived from CapturedAt, since offline uploads arrive in upload
// order, not event order.
type SyncRecord struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UnitID         string         `gorm:"size:64;not null;index" json:"unitId"`
	BatchID        string         `gorm:"size:64;not null;index" json:"batchId"`
	IdempotencyKey string         `gorm:"size:128;not null;uniqueIndex" json:"idempotencyKey"`
	Kind           SyncKind       `gorm:"size:16;not null" json:"kind"`
	Payload        datatypes.JSON `json:"payload"`
	CapturedAt     time.Time      `gorm:"not null;index" json:"capturedAt"`
	ReceivedAt     time.Time      `gorm:"not null" json:"receivedAt"`
	Status         SyncStatus     `gorm:"size:16;not null;default:pending;index" json:"status"`
	Attempts       int            `gorm:"not null;default:0" json:"attempts"`
}
