package models

import "time"

// GameVersion is one published build of a game title.
type GameVersion struct {
	ID          uint   `gorm:"primaryKey"`
	PackageName string `gorm:"size:191;index;not null"`
	Version     string `gorm:"size:64;not null"`
	Label       string `gorm:"size:255"`
	APKURL      string `gorm:"size:512"`
	Signature   string `gorm:"size:512"`
	Notes       string `gorm:"type:text"`
	Channel     string `gorm:"size:32;index"` // stable,beta
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FirmwareVersion is one published headset firmware build. Devices on an
// older firmware get their pendingUpdate flag raised.
type FirmwareVersion struct {
	ID         uint   `gorm:"primaryKey"`
	Model      string `gorm:"size:128;index;not null"`
	Version    string `gorm:"size:64;not null"`
	ArchiveURL string `gorm:"size:512"`
	Signature  string `gorm:"size:512"`
	Notes      string `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
