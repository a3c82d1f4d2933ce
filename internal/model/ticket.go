package model

import "time"

// TicketStatus enumerates the work-order lifecycle states.
type TicketStatus string

const (
	TicketPending    TicketStatus = "pending"
	TicketAssigned   TicketStatus = "assigned"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// MaintenanceTicket is a work order against one unit. Tickets are never
// hard-deleted; Retired hides them instead. Number is human-readable,
// month-scoped and backed by a uniqueIndex so concurrent creation cannot
// hand out duplicates.
type MaintenanceTicket struct {
	ID              int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Number          string       `gorm:"size:32;not null;uniqueIndex" json:"number"`
	UnitID          string       `gorm:"size:64;not null;index" json:"unitId"`
	Category        string       `gorm:"size:64;not null" json:"category"`
	Priority        string       `gorm:"size:16;not null;default:normal" json:"priority"`
	Description     string       `gorm:"type:text" json:"description"`
	Status          TicketStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	ReporterID      string       `gorm:"size:64" json:"reporterId"`
	AssigneeID      *string      `gorm:"size:64;index" json:"assigneeId"`
	AssignedAt      *time.Time   `json:"assignedAt"`
	StartedAt       *time.Time   `json:"startedAt"`
	CompletedAt     *time.Time   `json:"completedAt"`
	ResolutionNotes string       `gorm:"type:text" json:"resolutionNotes"`
	ProofRef        string       `gorm:"size:256" json:"proofRef"`
	Retired         bool         `gorm:"not null;default:false;index" json:"-"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}
