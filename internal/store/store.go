package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"recycle-fleet-backend/internal/model"
)

// ErrNotFound is returned by lookups that found no row.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned when an insert hit a uniqueness constraint.
var ErrDuplicate = errors.New("store: duplicate key")

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	// Units
	UnitByID(ctx context.Context, id string) (*model.Unit, error)
	UnitBySecret(ctx context.Context, secret string) (*model.Unit, error)
	RotateUnitSecret(ctx context.Context, id, newSecret string) error
	TouchUnitLastSeen(ctx context.Context, id string, at time.Time) error

	// Assignments
	ActiveAssignments(ctx context.Context, unitID string) ([]model.MachineAssignment, error)
	ActiveAssignmentFor(ctx context.Context, unitID, technicianID string) (*model.MachineAssignment, error)
	TouchAssignmentAccess(ctx context.Context, id int64, at time.Time) error
	ResetAssignmentPIN(ctx context.Context, id int64, pinHash string, expiresAt time.Time) error

	// Offline sync
	CreateSyncRecord(ctx context.Context, rec *model.SyncRecord) (bool, error)
	MarkSyncFailure(ctx context.Context, rec *model.SyncRecord) error
	SyncRecordsByBatch(ctx context.Context, unitID, batchID string) ([]model.SyncRecord, error)

	// Tickets
	CreateTicket(ctx context.Context, t *model.MaintenanceTicket) error
	TicketByNumber(ctx context.Context, number string) (*model.MaintenanceTicket, error)
	TicketsByUnit(ctx context.Context, unitID string) ([]model.MaintenanceTicket, error)
	NextTicketSeq(ctx context.Context, prefix string) (int, error)
	UpdateTicketStatus(ctx context.Context, number string, from model.TicketStatus, updates map[string]any) (bool, error)
	RetireTicket(ctx context.Context, number string) error

	// Push subscriptions
	SubscriptionsForTechnician(ctx context.Context, technicianID string) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) UnitByID(ctx context.Context, id string) (*model.Unit, error) {
	var unit model.Unit
	err := s.db.WithContext(ctx).First(&unit, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load unit %s: %w", id, err)
	}
	return &unit, nil
}

func (s *gormStore) UnitBySecret(ctx context.Context, secret string) (*model.Unit, error) {
	var unit model.Unit
	err := s.db.WithContext(ctx).First(&unit, "secret = ?", secret).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up unit by secret: %w", err)
	}
	return &unit, nil
}

func (s *gormStore) RotateUnitSecret(ctx context.Context, id, newSecret string) error {
	res := s.db.WithContext(ctx).Model(&model.Unit{}).Where("id = ?", id).
		Update("secret", newSecret)
	if res.Error != nil {
		return fmt.Errorf("failed to rotate secret for unit %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) TouchUnitLastSeen(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Unit{}).Where("id = ?", id).
		Update("last_seen_at", at).Error
}

func (s *gormStore) ActiveAssignments(ctx context.Context, unitID string) ([]model.MachineAssignment, error) {
	var assignments []model.MachineAssignment
	err := s.db.WithContext(ctx).
		Where("unit_id = ? AND active = ?", unitID, true).
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments for unit %s: %w", unitID, err)
	}
	return assignments, nil
}

func (s *gormStore) ActiveAssignmentFor(ctx context.Context, unitID, technicianID string) (*model.MachineAssignment, error) {
	var assignment model.MachineAssignment
	err := s.db.WithContext(ctx).
		Where("unit_id = ? AND technician_id = ? AND active = ?", unitID, technicianID, true).
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment for unit %s: %w", unitID, err)
	}
	return &assignment, nil
}

func (s *gormStore) TouchAssignmentAccess(ctx context.Context, id int64, at time.Time) error {
	return s.db.WithContext(ctx).Model(&model.MachineAssignment{}).Where("id = ?", id).
		Update("last_access_at", at).Error
}

// ResetAssignmentPIN replaces the PIN hash and expiry in one write, so
// the old PIN is invalidated at the same instant the new one becomes
// usable.
func (s *gormStore) ResetAssignmentPIN(ctx context.Context, id int64, pinHash string, expiresAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.MachineAssignment{}).Where("id = ?", id).
		Updates(map[string]any{"pin_hash": pinHash, "pin_expires_at": expiresAt})
	if res.Error != nil {
		return fmt.Errorf("failed to reset PIN for assignment %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateSyncRecord inserts rec guarded by the idempotency-key unique
// index. The conflict is resolved inside the INSERT itself, never by an
// application-level existence check, so concurrent submissions of one
// key resolve to exactly one persisted row. A conflicting row in the
// failed status is a failure marker left by an earlier attempt, not an
// applied record: the upsert resurrects it with the resent data and
// counts the attempt. It returns (false, nil) only when the key is
// already synced.
func (s *gormStore) CreateSyncRecord(ctx context.Context, rec *model.SyncRecord) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "idempotency_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":      rec.Status,
			"payload":     gorm.Expr("excluded.payload"),
			"captured_at": gorm.Expr("excluded.captured_at"),
			"received_at": gorm.Expr("excluded.received_at"),
			"attempts":    gorm.Expr("sync_records.attempts + 1"),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("sync_records.status = ?", model.SyncStatusFailed),
		}},
	}).Create(rec)
	if res.Error != nil {
		return false, fmt.Errorf("failed to persist sync record %s: %w", rec.IdempotencyKey, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkSyncFailure records a failed persist for rec. If a failure
// marker for the key already exists its attempt counter is
// incremented; otherwise a failed row is inserted so the controller
// can see the record in the batch status. A row that is already
// synced is left alone: an applied record never regresses.
func (s *gormStore) MarkSyncFailure(ctx context.Context, rec *model.SyncRecord) error {
	failed := *rec
	failed.Status = model.SyncStatusFailed
	failed.Attempts = 1
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "idempotency_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":   model.SyncStatusFailed,
			"attempts": gorm.Expr("sync_records.attempts + 1"),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("sync_records.status <> ?", model.SyncStatusSynced),
		}},
	}).Create(&failed)
	if res.Error != nil {
		return fmt.Errorf("failed to mark sync record %s failed: %w", rec.IdempotencyKey, res.Error)
	}
	return nil
}

func (s *gormStore) SyncRecordsByBatch(ctx context.Context, unitID, batchID string) ([]model.SyncRecord, error) {
	var records []model.SyncRecord
	err := s.db.WithContext(ctx).
		Where("unit_id = ? AND batch_id = ?", unitID, batchID).
		Order("captured_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}
	return records, nil
}

func (s *gormStore) CreateTicket(ctx context.Context, t *model.MaintenanceTicket) error {
	err := s.db.WithContext(ctx).Create(t).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create ticket %s: %w", t.Number, err)
	}
	return nil
}

func (s *gormStore) TicketByNumber(ctx context.Context, number string) (*model.MaintenanceTicket, error) {
	var t model.MaintenanceTicket
	err := s.db.WithContext(ctx).
		Where("number = ? AND retired = ?", number, false).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket %s: %w", number, err)
	}
	return &t, nil
}

func (s *gormStore) TicketsByUnit(ctx context.Context, unitID string) ([]model.MaintenanceTicket, error) {
	var tickets []model.MaintenanceTicket
	err := s.db.WithContext(ctx).
		Where("unit_id = ? AND retired = ?", unitID, false).
		Order("created_at DESC").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load tickets for unit %s: %w", unitID, err)
	}
	return tickets, nil
}

// NextTicketSeq computes the next sequence number for a month prefix
// such as "TKT-202608-". The suffix is zero-padded to four digits but
// grows past 9999, so ordering by length first keeps the numeric
// maximum on top once the suffix widens. The value is only a
// candidate: allocation is protected by the uniqueIndex on Number and
// the caller retries on conflict.
func (s *gormStore) NextTicketSeq(ctx context.Context, prefix string) (int, error) {
	var t model.MaintenanceTicket
	err := s.db.WithContext(ctx).
		Where("number LIKE ?", prefix+"%").
		Order("length(number) DESC, number DESC").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to scan ticket numbers for %s: %w", prefix, err)
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(t.Number, prefix))
	if err != nil {
		return 0, fmt.Errorf("malformed ticket number %q: %w", t.Number, err)
	}
	return seq + 1, nil
}

// UpdateTicketStatus applies updates only while the ticket is still in
// the expected from status. The status guard in the WHERE clause makes
// the transition atomic under concurrent requests; a false return means
// the ticket moved (or disappeared) since the caller read it.
func (s *gormStore) UpdateTicketStatus(ctx context.Context, number string, from model.TicketStatus, updates map[string]any) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.MaintenanceTicket{}).
		Where("number = ? AND status = ? AND retired = ?", number, from, false).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update ticket %s: %w", number, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) RetireTicket(ctx context.Context, number string) error {
	res := s.db.WithContext(ctx).Model(&model.MaintenanceTicket{}).
		Where("number = ? AND retired = ?", number, false).
		Update("retired", true)
	if res.Error != nil {
		return fmt.Errorf("failed to retire ticket %s: %w", number, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) SubscriptionsForTechnician(ctx context.Context, technicianID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Where("technician_id = ?", technicianID).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions for technician %s: %w", technicianID, err)
	}
	return subs, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}
