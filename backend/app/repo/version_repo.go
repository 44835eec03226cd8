package repo

import (
	"arceus-fleet/backend/app/models"

	"gorm.io/gorm"
)

type VersionRepository struct{ db *gorm.DB }

func NewVersionRepository(db *gorm.DB) *VersionRepository { return &VersionRepository{db: db} }

func (r *VersionRepository) CreateGame(v *models.GameVersion) error { return r.db.Create(v).Error }

func (r *VersionRepository) UpdateGame(v *models.GameVersion) error { return r.db.Save(v).Error }

func (r *VersionRepository) DeleteGame(id uint) error {
	return r.db.Delete(&models.GameVersion{}, id).Error
}

func (r *VersionRepository) ListGames() ([]models.GameVersion, error) {
	var vs []models.GameVersion
	if err := r.db.Order("package_name ASC, id DESC").Find(&vs).Error; err != nil {
		return nil, err
	}
	return vs, nil
}

func (r *VersionRepository) LatestGame(packageName, channel string) (*models.GameVersion, error) {
	var v models.GameVersion
	q := r.db.Where("package_name = ?", packageName)
	if channel != "" {
		q = q.Where("channel = ?", channel)
	}
	if err := q.Order("id DESC").First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VersionRepository) CreateFirmware(v *models.FirmwareVersion) error {
	return r.db.Create(v).Error
}

func (r *VersionRepository) DeleteFirmware(id uint) error {
	return r.db.Delete(&models.FirmwareVersion{}, id).Error
}

func (r *VersionRepository) ListFirmware() ([]models.FirmwareVersion, error) {
	var vs []models.FirmwareVersion
	if err := r.db.Order("model ASC, id DESC").Find(&vs).Error; err != nil {
		return nil, err
	}
	return vs, nil
}

func (r *VersionRepository) LatestFirmware(model string) (*models.FirmwareVersion, error) {
	var v models.FirmwareVersion
	if err := r.db.Where("model = ?", model).Order("id DESC").First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}
