package services

import (
	"errors"
	"time"

	"arceus-fleet/backend/app/models"
	"arceus-fleet/backend/app/repo"

	"gorm.io/gorm"
)

type DeviceService struct {
	devices  *repo.DeviceRepository
	versions *repo.VersionRepository
}

func NewDeviceService(devices *repo.DeviceRepository, versions *repo.VersionRepository) *DeviceService {
	return &DeviceService{devices: devices, versions: versions}
}

func (s *DeviceService) UpsertDevice(d *models.Device) error { return s.devices.Upsert(d) }

func (s *DeviceService) FindByUUID(uuid string) (*models.Device, error) {
	return s.devices.FindByUUID(uuid)
}

func (s *DeviceService) FindBySerial(serial string) (*models.Device, error) {
	return s.devices.FindBySerial(serial)
}

func (s *DeviceService) ListAll() ([]models.Device, error) {
	return s.devices.ListAll()
}

func (s *DeviceService) Rename(serial, name string) error {
	return s.devices.SetCustomName(serial, name)
}

func (s *DeviceService) TouchLastSeen(uuid string) error {
	return s.devices.TouchLastSeen(uuid, time.Now())
}

// PendingUpdate reports whether a newer firmware than the device's is
// published for its model. Unknown model or no published firmware means
// no pending update.
func (s *DeviceService) PendingUpdate(d *models.Device) bool {
	if s.versions == nil || d.Model == "" {
		return false
	}
	fw, err := s.versions.LatestFirmware(d.Model)
	if err != nil {
		return false
	}
	return fw.Version != "" && fw.Version != d.Firmware
}

// IsNotFound lets controllers translate lookup misses to 404s.
func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
