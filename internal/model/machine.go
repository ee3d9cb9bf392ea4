package model

import "time"

// MachineType distinguishes the two kinds of machines a store operates.
type MachineType string

const (
	MachineTypeWasher MachineType = "washer"
	MachineTypeDryer  MachineType = "dryer"
)

// MachineConfig represents one machine of a store.
// (StoreID, MachineType, MachineID) is unique within the system.
type MachineConfig struct {
	ID              uint        `gorm:"primaryKey"`
	StoreID         string      `gorm:"size:64;not null;uniqueIndex:uq_store_machine,priority:1"`
	MachineType     MachineType `gorm:"size:16;not null;uniqueIndex:uq_store_machine,priority:2"`
	MachineID       int         `gorm:"not null;uniqueIndex:uq_store_machine,priority:3"`
	DurationMinutes int         `gorm:"not null"`
	IsActive        bool        `gorm:"not null;default:true"`
	DisplayName     string      `gorm:"size:128;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// Associations
	Store Store `gorm:"constraint:OnDelete:CASCADE"`
}
