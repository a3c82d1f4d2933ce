package model

import "time"

// UnitStatus defines the administrative state of a terminal.
type UnitStatus string

const (
	UnitStatusActive      UnitStatus = "active"
	UnitStatusBlocked     UnitStatus = "blocked"
	UnitStatusSuspended   UnitStatus = "suspended"
	UnitStatusMaintenance UnitStatus = "maintenance"
)

// Operational reports whether edge requests from this unit may proceed.
// A unit under maintenance still talks to the server; blocked and
// suspended units do not.
func (s UnitStatus) Operational() bool {
	return s != UnitStatusBlocked && s != UnitStatusSuspended
}

// Unit represents a physical recycling-machine terminal.
type Unit struct {
	ID          string     `gorm:"primaryKey;size:64" json:"id"` // terminal serial
	Name        string     `gorm:"size:256;not null" json:"name"`
	Location    string     `gorm:"size:256" json:"location"`
	Status      UnitStatus `gorm:"size:32;not null;default:active;index" json:"status"`
	Secret      string     `gorm:"size:128;not null;uniqueIndex" json:"-"`
	CapacityPct int        `json:"capacityPct"`
	LastSeenAt  *time.Time `json:"lastSeenAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// Associations
	Assignments []MachineAssignment `gorm:"foreignKey:UnitID" json:"-"`
}
