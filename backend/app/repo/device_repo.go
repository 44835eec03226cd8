package repo

import (
	"time"

	"arceus-fleet/backend/app/models"

	"gorm.io/gorm"
)

type DeviceRepository struct{ db *gorm.DB }

func NewDeviceRepository(db *gorm.DB) *DeviceRepository { return &DeviceRepository{db: db} }

func (r *DeviceRepository) FindByUUID(uuid string) (*models.Device, error) {
	var d models.Device
	if err := r.db.Where("uuid = ?", uuid).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceRepository) FindBySerial(serial string) (*models.Device, error) {
	var d models.Device
	if err := r.db.Where("serial = ?", serial).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DeviceRepository) Upsert(d *models.Device) error {
	// simplistic upsert: try save; create if not found
	var existing models.Device
	if err := r.db.Where("serial = ?", d.Serial).First(&existing).Error; err == nil {
		d.ID = existing.ID
		if d.CustomName == "" {
			d.CustomName = existing.CustomName
		}
		return r.db.Save(d).Error
	}
	return r.db.Create(d).Error
}

func (r *DeviceRepository) SetCustomName(serial, name string) error {
	return r.db.Model(&models.Device{}).
		Where("serial = ?", serial).
		Update("custom_name", name).Error
}

func (r *DeviceRepository) TouchLastSeen(uuid string, at time.Time) error {
	return r.db.Model(&models.Device{}).
		Where("uuid = ?", uuid).
		Update("last_seen_at", at).Error
}

func (r *DeviceRepository) ListAll() ([]models.Device, error) {
	var ds []models.Device
	if err := r.db.Order("serial ASC").Find(&ds).Error; err != nil {
		return nil, err
	}
	return ds, nil
}
