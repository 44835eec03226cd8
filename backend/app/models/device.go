package models

import "time"

// Device is the durable registry row behind the live projector state.
// Serial survives reconnects; UUID is the connection-stable device id.
type Device struct {
	ID         uint   `gorm:"primaryKey"`
	UUID       string `gorm:"uniqueIndex;size:191;not null"`
	Serial     string `gorm:"uniqueIndex;size:191;not null"`
	Model      string `gorm:"size:128"`
	CustomName string `gorm:"size:255"`
	IP         string `gorm:"size:64"`
	Firmware   string `gorm:"size:64"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	LastSeenAt *time.Time
}
