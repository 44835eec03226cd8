package socket

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"arceus-fleet/backend/app/bus"
	"arceus-fleet/backend/app/commands"
	"arceus-fleet/backend/app/events"
	jwtutil "arceus-fleet/backend/app/jwt"
	"arceus-fleet/backend/app/models"
	"arceus-fleet/backend/app/services"
	"arceus-fleet/backend/global"
)

const (
	deviceWriteWait  = 10 * time.Second
	devicePongWait   = 60 * time.Second
	devicePingPeriod = (devicePongWait * 9) / 10
)

var deviceUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// loginFrame is the first message a headset sends after upgrading.
type loginFrame struct {
	DeviceID string `json:"device_id"`
	Serial   string `json:"serial"`
	Model    string `json:"model"`
	Firmware string `json:"firmware"`
	Token    string `json:"token"`
}

// DeviceHandler owns the device-facing websocket ingress: login, event
// intake, pending-queue replay and disconnect cleanup.
type DeviceHandler struct {
	Hub     *Hub
	Bus     *bus.Bus
	Devices *services.DeviceService
	Cmds    *commands.Client
	Signer  *jwtutil.Signer

	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewDeviceHandler(h *Hub, b *bus.Bus, devices *services.DeviceService, cmds *commands.Client, signer *jwtutil.Signer) *DeviceHandler {
	return &DeviceHandler{
		Hub: h, Bus: b, Devices: devices, Cmds: cmds, Signer: signer,
		pongWait:   devicePongWait,
		pingPeriod: devicePingPeriod,
	}
}

func (dh *DeviceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := deviceUpgrader.Upgrade(w, r, nil)
	if err != nil {
		global.Logger.Warn().Err(err).Msg("device upgrade failed")
		return
	}
	go dh.session(conn, r.RemoteAddr)
}

func (dh *DeviceHandler) session(conn *websocket.Conn, remoteAddr string) {
	defer conn.Close()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(dh.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(dh.pongWait))
	})

	login, err := dh.readLogin(conn)
	if err != nil {
		global.Logger.Warn().Err(err).Msg("device login rejected")
		return
	}
	deviceID := login.DeviceID

	ip := remoteAddr
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		ip = host
	}

	now := time.Now()
	reg := &models.Device{
		UUID:     deviceID,
		Serial:   login.Serial,
		Model:    login.Model,
		IP:       ip,
		Firmware: login.Firmware,
	}
	if err := dh.Devices.UpsertDevice(reg); err != nil {
		global.Logger.Error().Err(err).Str("device", deviceID).Msg("device upsert failed")
	}

	dh.Hub.Register(deviceID, conn)
	dh.Bus.Publish(&events.DeviceConnected{Device: events.DeviceInfo{
		ID:            deviceID,
		Serial:        login.Serial,
		Model:         login.Model,
		CustomName:    reg.CustomName,
		IP:            ip,
		ConnectedAt:   now,
		LastSeen:      now,
		PendingUpdate: dh.Devices.PendingUpdate(reg),
	}})
	global.Logger.Info().Str("device", deviceID).Str("serial", login.Serial).Msg("device connected")

	// flush anything queued while the device was offline
	dh.Cmds.ReplayPending(deviceID)

	// the agent only answers pings, so without a server-side heartbeat
	// the read deadline would expire mid-session
	stopPing := make(chan struct{})
	defer close(stopPing)
	go dh.keepalive(deviceID, stopPing)

	defer func() {
		dh.Hub.Unregister(deviceID, conn)
		dh.Bus.Publish(&events.DeviceDisconnected{DeviceID: deviceID})
		global.Logger.Info().Str("device", deviceID).Msg("device disconnected")
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				global.Logger.Warn().Err(err).Str("device", deviceID).Msg("device read error")
			}
			return
		}
		_ = dh.Devices.TouchLastSeen(deviceID)

		ev, err := events.Decode(data)
		if err != nil {
			global.Logger.Warn().Err(err).Str("device", deviceID).Msg("bad device frame")
			continue
		}
		dh.Bus.Publish(ev)
	}
}

func (dh *DeviceHandler) keepalive(deviceID string, stop chan struct{}) {
	ticker := time.NewTicker(dh.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := dh.Hub.Heartbeat(deviceID); err != nil {
				return
			}
		}
	}
}

func (dh *DeviceHandler) readLogin(conn *websocket.Conn) (*loginFrame, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var login loginFrame
	if err := json.Unmarshal(data, &login); err != nil {
		return nil, err
	}
	if login.DeviceID == "" || login.Serial == "" {
		return nil, errMissingIdentity
	}
	claims, err := dh.Signer.Parse(login.Token)
	if err != nil {
		return nil, err
	}
	if claims.Role != "device" || claims.DeviceID != login.DeviceID {
		return nil, errTokenMismatch
	}
	ack, _ := json.Marshal(map[string]any{"ok": true})
	_ = conn.SetWriteDeadline(time.Now().Add(deviceWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, ack); err != nil {
		return nil, err
	}
	return &login, nil
}
