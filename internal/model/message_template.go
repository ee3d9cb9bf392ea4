package model

import "time"

// MessageTemplate is an admin-editable reply text for a store, keyed by a
// logical id such as "machine_busy". The text may contain {placeholder}
// tokens substituted at send time.
type MessageTemplate struct {
	StoreID    string `gorm:"primaryKey;size:64"`
	TemplateID string `gorm:"primaryKey;size:64"`
	Text       string `gorm:"not null"`
	UpdatedAt  time.Time
}
