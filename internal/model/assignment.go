package model

import "time"

// AssignmentTier controls which capability set a technician receives.
type AssignmentTier string

const (
	TierStandard AssignmentTier = "standard"
	TierElevated AssignmentTier = "elevated"
)

// MachineAssignment pairs a technician with a unit. The PIN is stored
// as a bcrypt hash and is meaningful only within this assignment; it is
// regenerated on demand and the old value is invalidated by overwriting
// the hash.
type MachineAssignment struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UnitID         string         `gorm:"size:64;not null;index:idx_assignment_unit_active" json:"unitId"`
	TechnicianID   string         `gorm:"size:64;not null;index" json:"technicianId"`
	TechnicianName string         `gorm:"size:256" json:"technicianName"`
	PINHash        string         `gorm:"column:pin_hash;size:128;not null" json:"-"`
	PINExpiresAt   time.Time      `gorm:"column:pin_expires_at;not null" json:"pinExpiresAt"`
	Tier           AssignmentTier `gorm:"size:16;not null;default:standard" json:"tier"`
	Active         bool           `gorm:"not null;default:true;index:idx_assignment_unit_active" json:"active"`
	LastAccessAt   *time.Time     `json:"lastAccessAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`

	// Associations
	Unit Unit `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
