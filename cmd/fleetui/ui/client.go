package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"arceus-fleet/backend/app/dto"
	"arceus-fleet/backend/app/events"
	"arceus-fleet/backend/app/fleet"
)

// Session manages the operator's HTTP session and the live event feed.
type Session struct {
	Host  string
	Port  int
	Token string

	http *http.Client
	ws   *websocket.Conn

	MsgChan     chan tea.Msg
	StopChan    chan struct{}
	mu          sync.Mutex
	loopRunning bool
	closeOnce   sync.Once
}

func NewSession() *Session {
	return &Session{
		http:     &http.Client{Timeout: 15 * time.Second},
		MsgChan:  make(chan tea.Msg),
		StopChan: make(chan struct{}),
	}
}

func (s *Session) baseURL() string {
	return fmt.Sprintf("http://%s:%d", s.Host, s.Port)
}

// Login authenticates over HTTP and stores the bearer token.
func (s *Session) Login(host string, port int, username, password string) error {
	s.Host = host
	s.Port = port

	body, _ := json.Marshal(dto.LoginRequest{Username: username, Password: password})
	resp, err := s.http.Post(s.baseURL()+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login rejected: %s", resp.Status)
	}

	var tr dto.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil || tr.AccessToken == "" {
		return fmt.Errorf("invalid auth response")
	}
	s.Token = tr.AccessToken
	return nil
}

// ConnectFeed opens the websocket feed and starts the receive loop.
func (s *Session) ConnectFeed() error {
	url := fmt.Sprintf("ws://%s:%d/ws/feed?token=%s", s.Host, s.Port, s.Token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("feed dial failed: %w", err)
	}
	s.ws = conn

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loopRunning {
		s.loopRunning = true
		go s.receiveLoop()
	}
	return nil
}

// Close closes the feed connection and releases the receive loop even
// when it is mid-send with nobody reading MsgChan.
func (s *Session) Close() {
	s.mu.Lock()
	if s.ws != nil {
		s.ws.Close()
	}
	s.loopRunning = false
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.StopChan) })
}

// FeedMsg is a Bubble Tea message wrapping one feed frame. Exactly one
// of Snapshot / Event is set unless Err fired.
type FeedMsg struct {
	Snapshot []fleet.DeviceState
	Event    events.Event
	Err      error
}

func (s *Session) receiveLoop() {
	for {
		select {
		case <-s.StopChan:
			return
		default:
		}

		_, raw, err := s.ws.ReadMessage()
		if err != nil {
			s.forward(FeedMsg{Err: fmt.Errorf("feed lost: %v", err)})
			return
		}

		var frame struct {
			Event   string          `json:"event"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}

		if frame.Event == "snapshot" {
			var snap struct {
				Devices []fleet.DeviceState `json:"devices"`
			}
			if err := json.Unmarshal(frame.Payload, &snap); err == nil {
				if !s.forward(FeedMsg{Snapshot: snap.Devices}) {
					return
				}
			}
			continue
		}

		ev, err := events.DecodePayload(events.Kind(frame.Event), frame.Payload)
		if err != nil {
			continue
		}
		if !s.forward(FeedMsg{Event: ev}) {
			return
		}
	}
}

// forward hands one message to the UI; false means the session closed
// and the loop should exit.
func (s *Session) forward(msg tea.Msg) bool {
	select {
	case s.MsgChan <- msg:
		return true
	case <-s.StopChan:
		return false
	}
}

// WaitForMsg is a tea.Cmd that waits for the next feed frame.
func (s *Session) WaitForMsg() tea.Msg {
	return <-s.MsgChan
}

// get performs an authenticated GET and decodes the JSON body into out.
func (s *Session) get(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, s.baseURL()+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Devices fetches the authoritative projection snapshot.
func (s *Session) Devices() ([]fleet.DeviceState, error) {
	var out []fleet.DeviceState
	if err := s.get("/devices", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendCommand submits one operation against a set of devices.
func (s *Session) SendCommand(command string, deviceIDs []string, argument json.RawMessage) error {
	body, err := json.Marshal(dto.CommandRequest{Command: command, DeviceIDs: deviceIDs, Argument: argument})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, s.baseURL()+"/admin/command", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("command rejected: %s", resp.Status)
	}
	return nil
}
