package services

import (
	"errors"

	"arceus-fleet/backend/app/models"
	"arceus-fleet/backend/app/repo"
)

type VersionService struct{ versions *repo.VersionRepository }

func NewVersionService(versions *repo.VersionRepository) *VersionService {
	return &VersionService{versions: versions}
}

func (s *VersionService) PublishGame(v *models.GameVersion) error {
	if v.PackageName == "" || v.Version == "" {
		return errors.New("package name and version are required")
	}
	if v.Channel == "" {
		v.Channel = "stable"
	}
	return s.versions.CreateGame(v)
}

func (s *VersionService) DeleteGame(id uint) error { return s.versions.DeleteGame(id) }

func (s *VersionService) ListGames() ([]models.GameVersion, error) { return s.versions.ListGames() }

func (s *VersionService) LatestGame(packageName, channel string) (*models.GameVersion, error) {
	return s.versions.LatestGame(packageName, channel)
}

func (s *VersionService) PublishFirmware(v *models.FirmwareVersion) error {
	if v.Model == "" || v.Version == "" {
		return errors.New("model and version are required")
	}
	return s.versions.CreateFirmware(v)
}

func (s *VersionService) DeleteFirmware(id uint) error { return s.versions.DeleteFirmware(id) }

func (s *VersionService) ListFirmware() ([]models.FirmwareVersion, error) {
	return s.versions.ListFirmware()
}
