package socket

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"arceus-fleet/backend/app/bus"
	"arceus-fleet/backend/app/commands"
	"arceus-fleet/backend/app/events"
	jwtutil "arceus-fleet/backend/app/jwt"
	"arceus-fleet/backend/app/models"
	"arceus-fleet/backend/app/presence"
	"arceus-fleet/backend/app/repo"
	"arceus-fleet/backend/app/services"
)

type memStore struct {
	mu   sync.Mutex
	vals map[string]string
	sets int
}

func (s *memStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vals == nil {
		s.vals = map[string]string{}
	}
	s.vals[key] = value
	s.sets++
	return nil
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vals[key]
	if !ok {
		return "", presence.ErrNotFound
	}
	return v, nil
}

func (s *memStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vals, key)
	return nil
}

func (s *memStore) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

type emptyQueue struct{}

func (emptyQueue) Create(*models.FleetCommand) error { return nil }

func (emptyQueue) MarkSent(uint) error { return nil }

func (emptyQueue) UpdateStatus(uint, string, string) error { return nil }

func (emptyQueue) ListByDevice(string, bool) ([]models.FleetCommand, error) { return nil, nil }

func newTestDeviceHandler(t *testing.T, store *memStore) (*DeviceHandler, *bus.Bus, *Hub) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Device{}, &models.GameVersion{}, &models.FirmwareVersion{}))

	devices := services.NewDeviceService(repo.NewDeviceRepository(db), repo.NewVersionRepository(db))
	hub := NewHub(presence.NewTracker(store, time.Minute))
	b := bus.New()
	cmds := commands.NewClient(hub, emptyQueue{}, zerolog.Nop())
	signer := &jwtutil.Signer{Secret: []byte("test-secret"), Issuer: "test", ExpMin: 60}
	return NewDeviceHandler(hub, b, devices, cmds, signer), b, hub
}

func dialDevice(t *testing.T, srvURL string, signer *jwtutil.Signer, deviceID, serial string) *websocket.Conn {
	t.Helper()
	token, err := signer.SignDevice(deviceID)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srvURL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteJSON(map[string]string{
		"device_id": deviceID,
		"serial":    serial,
		"model":     "Quest 3",
		"firmware":  "v62.0",
		"token":     token,
	}))
	var ack struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, conn.ReadJSON(&ack))
	require.True(t, ack.OK)
	return conn
}

func TestDeviceSessionLoginAndCleanup(t *testing.T) {
	store := &memStore{}
	dh, b, hub := newTestDeviceHandler(t, store)

	var mu sync.Mutex
	var connected, disconnected bool
	subC := b.Subscribe(events.KindDeviceConnected, func(events.Event) {
		mu.Lock()
		connected = true
		mu.Unlock()
	})
	defer subC.Cancel()
	subD := b.Subscribe(events.KindDeviceDisconnected, func(events.Event) {
		mu.Lock()
		disconnected = true
		mu.Unlock()
	})
	defer subD.Cancel()

	srv := httptest.NewServer(dh)
	defer srv.Close()

	conn := dialDevice(t, srv.URL, dh.Signer, "dev-1", "SN-001")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connected
	}, 2*time.Second, 10*time.Millisecond)
	require.True(t, hub.IsOnline("dev-1"))

	conn.Close()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return disconnected && !hub.IsOnline("dev-1")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDeviceSessionOutlivesReadDeadline(t *testing.T) {
	store := &memStore{}
	dh, b, hub := newTestDeviceHandler(t, store)
	dh.pongWait = 250 * time.Millisecond
	dh.pingPeriod = 50 * time.Millisecond

	var mu sync.Mutex
	var dropped bool
	sub := b.Subscribe(events.KindDeviceDisconnected, func(events.Event) {
		mu.Lock()
		dropped = true
		mu.Unlock()
	})
	defer sub.Cancel()

	srv := httptest.NewServer(dh)
	defer srv.Close()

	conn := dialDevice(t, srv.URL, dh.Signer, "dev-1", "SN-001")
	defer conn.Close()

	// the default ping handler answers the server heartbeat, but only
	// while someone is reading
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// keep the session busy well past the read deadline
	frame, err := events.Encode(&events.BatteryUpdated{
		DeviceID: "dev-1",
		Battery:  events.BatteryInfo{HeadsetLevel: 80},
	})
	require.NoError(t, err)
	deadline := time.Now().Add(4 * dh.pongWait)
	for time.Now().Before(deadline) {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
		time.Sleep(50 * time.Millisecond)
	}

	mu.Lock()
	stillUp := !dropped
	mu.Unlock()
	require.True(t, stillUp, "session dropped while the device was live")
	require.True(t, hub.IsOnline("dev-1"))

	// heartbeats refresh the presence key, not just the first login
	require.GreaterOrEqual(t, store.setCount(), 2)
}
