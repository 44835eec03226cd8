package socket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arceus-fleet/backend/app/bus"
	"arceus-fleet/backend/app/events"
	"arceus-fleet/backend/app/fleet"
	jwtutil "arceus-fleet/backend/app/jwt"
	"arceus-fleet/backend/global"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
)

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type feedClient struct {
	hub  *FeedHub
	conn *websocket.Conn
	send chan []byte
}

// FeedHub streams every published event to UI subscribers. A new
// subscriber first receives a full snapshot frame so it starts from a
// consistent baseline instead of waiting for the next resync.
type FeedHub struct {
	mu         sync.RWMutex
	clients    map[*feedClient]bool
	register   chan *feedClient
	unregister chan *feedClient

	projector *fleet.Projector
	signer    *jwtutil.Signer
}

func NewFeedHub(b *bus.Bus, projector *fleet.Projector, signer *jwtutil.Signer) *FeedHub {
	h := &FeedHub{
		clients:    make(map[*feedClient]bool),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		projector:  projector,
		signer:     signer,
	}
	b.SubscribeAll(h.broadcast)
	return h
}

func (h *FeedHub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			global.Logger.Debug().Msg("feed client connected")
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			global.Logger.Debug().Msg("feed client disconnected")
		}
	}
}

func (h *FeedHub) broadcast(e events.Event) {
	frame, err := events.Encode(e)
	if err != nil {
		global.Logger.Warn().Err(err).Msg("encode feed event failed")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		// a full queue drops the frame rather than stalling every
		// other subscriber
		select {
		case c.send <- frame:
		default:
			global.Logger.Warn().Msg("feed client queue full, event dropped")
		}
	}
}

// ServeHTTP upgrades a UI subscriber. Auth comes in as ?token= because
// browser websockets cannot set headers.
func (h *FeedHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if _, err := h.signer.Parse(token); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	conn, err := feedUpgrader.Upgrade(w, r, nil)
	if err != nil {
		global.Logger.Warn().Err(err).Msg("feed upgrade failed")
		return
	}
	c := &feedClient{hub: h, conn: conn, send: make(chan []byte, 64)}

	// seed the subscriber before any incremental event
	if snap, err := snapshotFrame(h.projector.Snapshot()); err == nil {
		c.send <- snap
	}

	h.register <- c
	go c.writePump()
	go c.readPump()
}

// snapshotFrame is a feed-level frame, not a member of the event union:
// it only exists on this transport.
func snapshotFrame(devices []fleet.DeviceState) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{"devices": devices})
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{"event": "snapshot", "payload": json.RawMessage(payload)})
}

func (c *feedClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
