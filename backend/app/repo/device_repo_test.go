package repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"arceus-fleet/backend/app/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Device{}, &models.GameVersion{}, &models.FirmwareVersion{}))
	return db
}

func TestUpsertCreatesThenUpdatesBySerial(t *testing.T) {
	r := NewDeviceRepository(testDB(t))

	d := &models.Device{UUID: "dev-1", Serial: "SN-001", Model: "Quest 3", Firmware: "v62.0"}
	require.NoError(t, r.Upsert(d))

	// same serial, new session: row updated in place
	d2 := &models.Device{UUID: "dev-1b", Serial: "SN-001", Model: "Quest 3", Firmware: "v63.0"}
	require.NoError(t, r.Upsert(d2))

	all, err := r.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "dev-1b", all[0].UUID)
	require.Equal(t, "v63.0", all[0].Firmware)
}

func TestUpsertPreservesCustomName(t *testing.T) {
	r := NewDeviceRepository(testDB(t))

	require.NoError(t, r.Upsert(&models.Device{UUID: "dev-1", Serial: "SN-001"}))
	require.NoError(t, r.SetCustomName("SN-001", "Lab headset"))

	// re-registration without a name must not wipe the operator's label
	require.NoError(t, r.Upsert(&models.Device{UUID: "dev-1", Serial: "SN-001", Firmware: "v63.0"}))

	d, err := r.FindBySerial("SN-001")
	require.NoError(t, err)
	require.Equal(t, "Lab headset", d.CustomName)
}

func TestFindByUUID(t *testing.T) {
	r := NewDeviceRepository(testDB(t))
	require.NoError(t, r.Upsert(&models.Device{UUID: "dev-1", Serial: "SN-001"}))

	d, err := r.FindByUUID("dev-1")
	require.NoError(t, err)
	require.Equal(t, "SN-001", d.Serial)

	_, err = r.FindByUUID("nope")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTouchLastSeen(t *testing.T) {
	r := NewDeviceRepository(testDB(t))
	require.NoError(t, r.Upsert(&models.Device{UUID: "dev-1", Serial: "SN-001"}))

	at := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.TouchLastSeen("dev-1", at))

	d, err := r.FindByUUID("dev-1")
	require.NoError(t, err)
	require.NotNil(t, d.LastSeenAt)
	require.True(t, d.LastSeenAt.Equal(at))
}

func TestVersionRepositoryLatest(t *testing.T) {
	r := NewVersionRepository(testDB(t))

	require.NoError(t, r.CreateFirmware(&models.FirmwareVersion{Model: "Quest 3", Version: "v62.0"}))
	require.NoError(t, r.CreateFirmware(&models.FirmwareVersion{Model: "Quest 3", Version: "v63.0"}))
	require.NoError(t, r.CreateFirmware(&models.FirmwareVersion{Model: "Quest 2", Version: "v50.0"}))

	latest, err := r.LatestFirmware("Quest 3")
	require.NoError(t, err)
	require.Equal(t, "v63.0", latest.Version)

	_, err = r.LatestFirmware("Pico 4")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
