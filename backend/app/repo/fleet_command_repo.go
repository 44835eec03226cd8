package repo

import (
	"arceus-fleet/backend/app/models"

	"gorm.io/gorm"
)

type FleetCommandRepository struct {
	db *gorm.DB
}

func NewFleetCommandRepository(db *gorm.DB) *FleetCommandRepository {
	return &FleetCommandRepository{db: db}
}

func (r *FleetCommandRepository) Create(cmd *models.FleetCommand) error {
	return r.db.Create(cmd).Error
}

// UpdateStatus cập nhật trạng thái + lỗi (nếu có).
func (r *FleetCommandRepository) UpdateStatus(id uint, status, lastError string) error {
	return r.db.Model(&models.FleetCommand{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"last_error": lastError,
		}).Error
}

// MarkSent đánh dấu đã gửi xuống headset.
func (r *FleetCommandRepository) MarkSent(id uint) error {
	return r.db.Model(&models.FleetCommand{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":  "sent",
			"sent_at": gorm.Expr("NOW()"),
		}).Error
}

// ListByDevice trả về queue command cho 1 device; nếu includeSent=false chỉ lấy pending/failed.
func (r *FleetCommandRepository) ListByDevice(deviceID string, includeSent bool) ([]models.FleetCommand, error) {
	q := r.db.Where("device_id = ?", deviceID)
	if !includeSent {
		q = q.Where("status IN ?", []string{"pending", "failed"})
	}
	var cmds []models.FleetCommand
	if err := q.Order("id ASC").Find(&cmds).Error; err != nil {
		return nil, err
	}
	return cmds, nil
}
