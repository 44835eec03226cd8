package models

import "time"

// FleetCommand lưu các command backend gửi xuống headset (queue bền + retry).
type FleetCommand struct {
	ID          uint      `gorm:"primaryKey"`
	DeviceID    string    `gorm:"size:191;index"`
	Command     string    `gorm:"size:64"`
	Payload     string    `gorm:"type:longtext"` // JSON argument
	OperationID string    `gorm:"size:64;index"` // set for long-running install/download ops
	Status      string    `gorm:"size:32;index"` // pending,sent,failed
	LastError   string    `gorm:"size:512"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
	SentAt      *time.Time
}
