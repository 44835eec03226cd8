package connection

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arceus-fleet/agent/internal/command"
	"arceus-fleet/agent/internal/device"
	"arceus-fleet/agent/internal/logger"
	"arceus-fleet/agent/internal/state"
	"arceus-fleet/backend/app/events"
)

// Manager manages the single persistent websocket to the backend.
type Manager struct {
	url      string
	model    string
	firmware string

	sim        *device.Simulator
	dispatcher *command.Manager

	conn *websocket.Conn
	mu   sync.Mutex

	// Channels for graceful shutdown
	stopCh chan struct{}
	doneCh chan struct{}
}

type loginFrame struct {
	DeviceID string `json:"device_id"`
	Serial   string `json:"serial"`
	Model    string `json:"model"`
	Firmware string `json:"firmware"`
	Token    string `json:"token"`
}

func New(url, model, firmware string, sim *device.Simulator, d *command.Manager) *Manager {
	return &Manager{
		url:        url,
		model:      model,
		firmware:   firmware,
		sim:        sim,
		dispatcher: d,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Connect dials and authenticates with retry logic.
func (m *Manager) Connect(maxRetries int, baseDelay time.Duration) error {
	const (
		maxDelay      = 30 * time.Second
		backoffFactor = 1.5
	)

	var retryCount int
	delay := baseDelay

	for {
		logger.Infof("Agent is trying to connect to backend %s (attempt #%d)...", m.url, retryCount+1)

		conn, err := m.dialAndLogin()
		if err != nil {
			logger.Errorf("Agent cannot connect to backend (attempt #%d): %v", retryCount+1, err)

			retryCount++
			if maxRetries > 0 && retryCount >= maxRetries {
				return fmt.Errorf("max retries reached: %w", err)
			}

			logger.Infof("Agent will retry in %v...", delay)
			time.Sleep(delay)
			delay = time.Duration(float64(delay) * backoffFactor)
			if delay > maxDelay {
				delay = maxDelay
			}
			continue
		}

		m.mu.Lock()
		m.conn = conn
		m.mu.Unlock()

		logger.Info("Agent connected to backend successfully!")
		return nil
	}
}

func (m *Manager) dialAndLogin() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(m.url, nil)
	if err != nil {
		return nil, err
	}

	login := loginFrame{
		DeviceID: state.GetDeviceID(),
		Serial:   state.GetSerial(),
		Model:    m.model,
		Firmware: m.firmware,
		Token:    state.GetToken(),
	}
	if err := conn.WriteJSON(login); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send login: %w", err)
	}

	var ack struct {
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	if err := conn.ReadJSON(&ack); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read login ack: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if !ack.OK {
		conn.Close()
		return nil, fmt.Errorf("login rejected: %s", ack.Error)
	}
	return conn, nil
}

// Send pushes one event upstream (thread-safe).
func (m *Manager) Send(e events.Event) error {
	b, err := events.Encode(e)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return fmt.Errorf("not connected")
	}
	return m.conn.WriteMessage(websocket.TextMessage, b)
}

// Emit is Send with logging instead of an error return; handlers use it.
func (m *Manager) Emit(e events.Event) {
	if err := m.Send(e); err != nil {
		logger.Warnf("Emit %s failed: %v", e.Kind(), err)
	}
}

// StartReceiveLoop starts the background goroutine that receives
// command envelopes and dispatches them.
func (m *Manager) StartReceiveLoop() {
	go m.receiveLoop()
}

func (m *Manager) receiveLoop() {
	defer close(m.doneCh)

	for {
		select {
		case <-m.stopCh:
			logger.Info("Receive loop stopped")
			return
		default:
		}

		m.mu.Lock()
		conn := m.conn
		m.mu.Unlock()

		if conn == nil {
			time.Sleep(time.Second)
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			logger.Errorf("Connection lost: %v. Reconnecting...", err)
			m.dropConn(conn)
			if cerr := m.Connect(0, time.Second); cerr != nil {
				logger.Errorf("Reconnect failed: %v", cerr)
				return
			}
			continue
		}

		var env command.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			logger.Warnf("Bad frame from backend: %v", err)
			continue
		}

		// install commands block through their progress stream
		go m.dispatcher.Dispatch(env, command.Context{
			DeviceID: state.GetDeviceID(),
			Sim:      m.sim,
			Emit:     m.Emit,
		})
	}
}

func (m *Manager) dropConn(old *websocket.Conn) {
	m.mu.Lock()
	if m.conn == old {
		m.conn = nil
	}
	m.mu.Unlock()
	old.Close()
}

// StartTelemetry reports battery on an interval so the dashboard stays
// fresh without the operator polling.
func (m *Manager) StartTelemetry(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.Emit(&events.BatteryUpdated{
					DeviceID: state.GetDeviceID(),
					Battery:  m.sim.Drain(),
				})
			}
		}
	}()
}

// Stop shuts the connection down and waits for the receive loop.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.mu.Lock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.mu.Unlock()
	<-m.doneCh
}
