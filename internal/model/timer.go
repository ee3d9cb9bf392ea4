package model

import "time"

// TimerStatus is the lifecycle state of a timer. Sent and cancelled are
// terminal; pending is the only state the reservation check looks at.
type TimerStatus string

const (
	TimerStatusPending   TimerStatus = "pending"
	TimerStatusSent      TimerStatus = "sent"
	TimerStatusCancelled TimerStatus = "cancelled"
)

// Timer records one running machine reservation for a store. At most one
// pending timer may exist per (StoreID, MachineType, MachineID); the
// partial unique index created in internal/db enforces this.
type Timer struct {
	ID              string      `gorm:"primaryKey;size:64"`
	StoreID         string      `gorm:"size:64;not null;index"`
	UserID          string      `gorm:"size:64;not null"`
	MachineID       int         `gorm:"not null"`
	MachineType     MachineType `gorm:"size:16;not null"`
	DisplayName     string      `gorm:"size:128"`
	DurationMinutes int         `gorm:"not null"`
	EndTime         time.Time   `gorm:"not null;index"`
	Status          TimerStatus `gorm:"size:16;not null;index"`
	Attempts        int         `gorm:"not null;default:0"`
	CreatedAt       time.Time   `gorm:"not null"`
	CancelledAt     *time.Time
}
