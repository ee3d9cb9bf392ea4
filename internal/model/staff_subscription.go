package model

import "time"

// StaffSubscription holds a browser push subscription registered by a
// store's staff to receive machine-finished alerts.
type StaffSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	StoreID   string    `gorm:"size:64;not null;index"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
