package journal

import (
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Entry lưu lại các command đã thực thi trên headset (audit cục bộ).
type Entry struct {
	ID          uint   `gorm:"primaryKey"`
	Command     string `gorm:"size:64;index"`
	OperationID string `gorm:"size:64"`
	Success     bool
	Message     string `gorm:"size:1024"`
	CreatedAt   time.Time
}

type Journal struct {
	db *gorm.DB
}

func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Record(command, operationID string, success bool, message string) error {
	return j.db.Create(&Entry{
		Command:     command,
		OperationID: operationID,
		Success:     success,
		Message:     message,
	}).Error
}

// Recent trả về tối đa n entry mới nhất.
func (j *Journal) Recent(n int) ([]Entry, error) {
	var out []Entry
	err := j.db.Order("id DESC").Limit(n).Find(&out).Error
	return out, err
}
