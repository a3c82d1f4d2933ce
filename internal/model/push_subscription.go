package model

import "time"

// PushSubscription holds a technician's browser push subscription, used
// to notify them when a maintenance ticket is assigned to them.
type PushSubscription struct {
	Endpoint     string    `gorm:"primaryKey"`
	P256DH       string    `gorm:"column:p256dh;not null"`
	Auth         string    `gorm:"not null"`
	TechnicianID string    `gorm:"size:64;not null;index"`
	CreatedAt    time.Time `gorm:"not null"`
}
