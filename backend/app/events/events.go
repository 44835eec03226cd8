package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind tags an event on the wire. The set is closed: Decode rejects
// anything not listed here.
type Kind string

const (
	KindDeviceConnected       Kind = "deviceConnected"
	KindDeviceDisconnected    Kind = "deviceDisconnected"
	KindDeviceUpdated         Kind = "deviceUpdated"
	KindBatteryUpdated        Kind = "batteryUpdated"
	KindVolumeUpdated         Kind = "volumeUpdated"
	KindCommandExecuted       Kind = "commandExecuted"
	KindInstalledAppsReceived Kind = "installedAppsReceived"
	KindDeviceNameChanged     Kind = "deviceNameChanged"
	KindServerStarted         Kind = "serverStarted"
	KindServerStopped         Kind = "serverStopped"
	KindHTTPServerStarted     Kind = "httpServerStarted"
	KindError                 Kind = "error"
	KindInfo                  Kind = "info"
	KindGameStarted           Kind = "gameStarted"
	KindGameStopped           Kind = "gameStopped"
	KindOperationProgress     Kind = "operationProgress"
	KindGameDownloadProgress  Kind = "gameDownloadProgress"
	KindSensorUploadProgress  Kind = "sensorUploadProgress"
)

// Event is one backend-originated record. Implementations are the
// payload structs below, one per Kind.
type Event interface {
	Kind() Kind
}

type DeviceConnected struct {
	Device DeviceInfo `json:"device"`
}

type DeviceDisconnected struct {
	DeviceID string `json:"deviceId"`
}

type DeviceUpdated struct {
	Device DeviceInfo `json:"device"`
}

type BatteryUpdated struct {
	DeviceID string      `json:"deviceId"`
	Battery  BatteryInfo `json:"batteryInfo"`
}

type VolumeUpdated struct {
	DeviceID string     `json:"deviceId"`
	Volume   VolumeInfo `json:"volumeInfo"`
}

type CommandExecuted struct {
	DeviceID string        `json:"deviceId"`
	Result   CommandResult `json:"result"`
}

type InstalledAppsReceived struct {
	DeviceID string    `json:"deviceId"`
	Apps     []AppInfo `json:"apps"`
}

// DeviceNameChanged is keyed by serial: renaming targets the durable
// identity, not the connection-scoped device id.
type DeviceNameChanged struct {
	Serial string `json:"serial"`
	Name   string `json:"name"`
}

type ServerStarted struct {
	Addr string `json:"addr"`
}

type ServerStopped struct{}

type HTTPServerStarted struct {
	Addr string `json:"addr"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

type InfoEvent struct {
	Message string `json:"message"`
}

type GameStarted struct {
	DeviceID    string `json:"deviceId"`
	PackageName string `json:"packageName"`
}

type GameStopped struct {
	DeviceID    string `json:"deviceId"`
	PackageName string `json:"packageName"`
}

type OperationProgress struct {
	DeviceID string   `json:"deviceId"`
	Progress Progress `json:"progress"`
}

type GameDownloadProgress struct {
	DeviceID    string `json:"deviceId"`
	PackageName string `json:"packageName"`
	Percentage  int    `json:"percentage"`
}

type SensorUploadProgress struct {
	DeviceID   string `json:"deviceId"`
	Percentage int    `json:"percentage"`
}

func (DeviceConnected) Kind() Kind       { return KindDeviceConnected }
func (DeviceDisconnected) Kind() Kind    { return KindDeviceDisconnected }
func (DeviceUpdated) Kind() Kind         { return KindDeviceUpdated }
func (BatteryUpdated) Kind() Kind        { return KindBatteryUpdated }
func (VolumeUpdated) Kind() Kind         { return KindVolumeUpdated }
func (CommandExecuted) Kind() Kind       { return KindCommandExecuted }
func (InstalledAppsReceived) Kind() Kind { return KindInstalledAppsReceived }
func (DeviceNameChanged) Kind() Kind     { return KindDeviceNameChanged }
func (ServerStarted) Kind() Kind         { return KindServerStarted }
func (ServerStopped) Kind() Kind         { return KindServerStopped }
func (HTTPServerStarted) Kind() Kind     { return KindHTTPServerStarted }
func (ErrorEvent) Kind() Kind            { return KindError }
func (InfoEvent) Kind() Kind             { return KindInfo }
func (GameStarted) Kind() Kind           { return KindGameStarted }
func (GameStopped) Kind() Kind           { return KindGameStopped }
func (OperationProgress) Kind() Kind     { return KindOperationProgress }
func (GameDownloadProgress) Kind() Kind  { return KindGameDownloadProgress }
func (SensorUploadProgress) Kind() Kind  { return KindSensorUploadProgress }

// Envelope is the wire form of an event.
type Envelope struct {
	Event   Kind            `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps an event into its wire envelope.
func Encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", e.Kind(), err)
	}
	return json.Marshal(Envelope{Event: e.Kind(), Payload: payload})
}

// Decode parses a wire envelope back into a typed event. Unknown kinds
// are an error so the union stays closed.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return DecodePayload(env.Event, env.Payload)
}

// DecodePayload resolves a kind tag to its payload struct.
func DecodePayload(kind Kind, payload json.RawMessage) (Event, error) {
	var e Event
	switch kind {
	case KindDeviceConnected:
		e = &DeviceConnected{}
	case KindDeviceDisconnected:
		e = &DeviceDisconnected{}
	case KindDeviceUpdated:
		e = &DeviceUpdated{}
	case KindBatteryUpdated:
		e = &BatteryUpdated{}
	case KindVolumeUpdated:
		e = &VolumeUpdated{}
	case KindCommandExecuted:
		e = &CommandExecuted{}
	case KindInstalledAppsReceived:
		e = &InstalledAppsReceived{}
	case KindDeviceNameChanged:
		e = &DeviceNameChanged{}
	case KindServerStarted:
		e = &ServerStarted{}
	case KindServerStopped:
		e = &ServerStopped{}
	case KindHTTPServerStarted:
		e = &HTTPServerStarted{}
	case KindError:
		e = &ErrorEvent{}
	case KindInfo:
		e = &InfoEvent{}
	case KindGameStarted:
		e = &GameStarted{}
	case KindGameStopped:
		e = &GameStopped{}
	case KindOperationProgress:
		e = &OperationProgress{}
	case KindGameDownloadProgress:
		e = &GameDownloadProgress{}
	case KindSensorUploadProgress:
		e = &SensorUploadProgress{}
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, e); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", kind, err)
		}
	}
	return e, nil
}

// NewResult builds a CommandResult stamped with the current time.
func NewResult(commandType string, success bool, message string) CommandResult {
	return CommandResult{
		CommandType: commandType,
		Success:     success,
		Message:     message,
		Timestamp:   time.Now(),
	}
}
