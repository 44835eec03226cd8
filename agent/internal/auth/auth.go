package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"arceus-fleet/backend/app/dto"
)

// Credentials is what the agent persists between runs.
type Credentials struct {
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
}

// Register enrolls this headset with the backend and returns its
// identity plus the device token used at websocket login.
func Register(backendURL, serial, model, firmware string) (Credentials, error) {
	body, err := json.Marshal(dto.DeviceRegisterRequest{
		Serial:   serial,
		Model:    model,
		Firmware: firmware,
	})
	if err != nil {
		return Credentials{}, err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(backendURL+"/devices/register", "application/json", bytes.NewReader(body))
	if err != nil {
		return Credentials{}, fmt.Errorf("register: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Credentials{}, fmt.Errorf("register: backend returned %s", resp.Status)
	}

	var out dto.DeviceRegisterResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Credentials{}, fmt.Errorf("register: decode response: %w", err)
	}
	if out.DeviceID == "" || out.DeviceToken == "" {
		return Credentials{}, fmt.Errorf("register: incomplete response")
	}
	return Credentials{DeviceID: out.DeviceID, Token: out.DeviceToken}, nil
}

// LoadCredentials reads persisted credentials; a missing file is not an
// error, it just means this headset has never enrolled.
func LoadCredentials(path string) (Credentials, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, false
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil || strings.TrimSpace(c.Token) == "" {
		return Credentials{}, false
	}
	return c, true
}

func SaveCredentials(path string, c Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
