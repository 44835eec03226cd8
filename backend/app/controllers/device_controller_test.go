package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"arceus-fleet/backend/app/dto"
	jwtutil "arceus-fleet/backend/app/jwt"
	"arceus-fleet/backend/app/models"
	"arceus-fleet/backend/app/repo"
	"arceus-fleet/backend/app/services"
)

func newRegisterController(t *testing.T) *DeviceController {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Device{}, &models.GameVersion{}, &models.FirmwareVersion{}))

	devices := services.NewDeviceService(repo.NewDeviceRepository(db), repo.NewVersionRepository(db))
	signer := &jwtutil.Signer{Secret: []byte("test-secret"), Issuer: "test", ExpMin: 60}
	return NewDeviceController(devices, nil, nil, nil, signer)
}

func postRegister(t *testing.T, c *DeviceController, req dto.DeviceRegisterRequest) (*httptest.ResponseRecorder, dto.DeviceRegisterResponse) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	c.Register(rec, httptest.NewRequest(http.MethodPost, "/devices/register", bytes.NewReader(body)))
	var out dto.DeviceRegisterResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	}
	return rec, out
}

func TestRegisterMintsDeviceIDWhenOmitted(t *testing.T) {
	c := newRegisterController(t)

	// the agent enrolls with identity metadata only
	rec, out := postRegister(t, c, dto.DeviceRegisterRequest{
		Serial: "SN-001", Model: "Quest 3", Firmware: "v62.0",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, out.DeviceID)
	require.NotEmpty(t, out.DeviceToken)

	// the token must carry the minted id
	claims, err := c.Signer.Parse(out.DeviceToken)
	require.NoError(t, err)
	require.Equal(t, "device", claims.Role)
	require.Equal(t, out.DeviceID, claims.DeviceID)

	// and the registry row must exist so socket login finds it
	d, err := c.Devices.FindByUUID(out.DeviceID)
	require.NoError(t, err)
	require.Equal(t, "SN-001", d.Serial)
}

func TestRegisterKeepsIDStableForKnownSerial(t *testing.T) {
	c := newRegisterController(t)

	_, first := postRegister(t, c, dto.DeviceRegisterRequest{Serial: "SN-001", Model: "Quest 3", Firmware: "v62.0"})
	_, second := postRegister(t, c, dto.DeviceRegisterRequest{Serial: "SN-001", Model: "Quest 3", Firmware: "v63.0"})

	require.Equal(t, first.DeviceID, second.DeviceID)

	d, err := c.Devices.FindByUUID(first.DeviceID)
	require.NoError(t, err)
	require.Equal(t, "v63.0", d.Firmware)
}

func TestRegisterRequiresSerial(t *testing.T) {
	c := newRegisterController(t)

	rec, _ := postRegister(t, c, dto.DeviceRegisterRequest{Model: "Quest 3"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
