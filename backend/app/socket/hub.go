package socket

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arceus-fleet/backend/app/presence"
	"arceus-fleet/backend/global"
)

var ErrDeviceOffline = errors.New("socket: device not connected")

type deviceConn struct {
	c  *websocket.Conn
	mu sync.Mutex // one writer per conn
}

func (dc *deviceConn) send(data []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	_ = dc.c.SetWriteDeadline(time.Now().Add(deviceWriteWait))
	return dc.c.WriteMessage(websocket.TextMessage, data)
}

// Hub tracks live device sessions keyed by device id.
type Hub struct {
	mu       sync.RWMutex
	byID     map[string]*deviceConn
	presence *presence.Tracker
}

func NewHub(p *presence.Tracker) *Hub {
	return &Hub{byID: make(map[string]*deviceConn), presence: p}
}

func (h *Hub) Register(deviceID string, c *websocket.Conn) {
	h.mu.Lock()
	if prev, ok := h.byID[deviceID]; ok {
		// one session per device; the newer login wins
		_ = prev.c.Close()
	}
	h.byID[deviceID] = &deviceConn{c: c}
	h.mu.Unlock()
	if h.presence != nil {
		_ = h.presence.MarkOnline(context.Background(), deviceID)
	}
}

func (h *Hub) Unregister(deviceID string, c *websocket.Conn) {
	h.mu.Lock()
	if cur, ok := h.byID[deviceID]; ok && cur.c == c {
		delete(h.byID, deviceID)
	}
	h.mu.Unlock()
	if h.presence != nil {
		_ = h.presence.MarkOffline(context.Background(), deviceID)
	}
}

func (h *Hub) IsOnline(deviceID string) bool {
	h.mu.RLock()
	_, ok := h.byID[deviceID]
	h.mu.RUnlock()
	if ok {
		return true
	}
	// fallback: another backend instance may own the session
	return h.presence != nil && h.presence.Online(context.Background(), deviceID)
}

// OnlineDevices trả về danh sách tất cả device đang online.
func (h *Hub) OnlineDevices() []string {
	h.mu.RLock()
	out := make([]string, 0, len(h.byID))
	for id := range h.byID {
		out = append(out, id)
	}
	h.mu.RUnlock()

	global.Logger.Debug().Int("online", len(out)).Strs("online_ids", out).Msg("hub online devices")
	return out
}

// Heartbeat pings the device conn and refreshes its presence key, so a
// long-lived session neither hits the read deadline nor ages out of
// redis.
func (h *Hub) Heartbeat(deviceID string) error {
	h.mu.RLock()
	dc, ok := h.byID[deviceID]
	h.mu.RUnlock()
	if !ok {
		return ErrDeviceOffline
	}
	dc.mu.Lock()
	_ = dc.c.SetWriteDeadline(time.Now().Add(deviceWriteWait))
	err := dc.c.WriteMessage(websocket.PingMessage, nil)
	dc.mu.Unlock()
	if err != nil {
		return err
	}
	if h.presence != nil {
		_ = h.presence.MarkOnline(context.Background(), deviceID)
	}
	return nil
}

func (h *Hub) Send(deviceID string, data []byte) error {
	h.mu.RLock()
	dc, ok := h.byID[deviceID]
	h.mu.RUnlock()
	if !ok {
		return ErrDeviceOffline
	}
	if err := dc.send(data); err != nil {
		return err
	}
	global.Logger.Debug().Str("device", deviceID).Int("len", len(data)).Msg("sent frame to device")
	return nil
}
