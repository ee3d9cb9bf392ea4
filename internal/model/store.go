package model

import "time"

// Store represents a single laundromat tenant.
type Store struct {
	ID            string    `gorm:"primaryKey;size:64"`
	Name          string    `gorm:"size:128;not null"`
	ChannelSecret string    `gorm:"size:128"`
	AccessToken   string    `gorm:"size:256"`
	AdminToken    string    `gorm:"size:64;not null"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`

	// Associations
	Machines  []MachineConfig   `gorm:"foreignKey:StoreID"`
	Templates []MessageTemplate `gorm:"foreignKey:StoreID"`
}
