package events

import "time"

// DeviceInfo is the wholesale snapshot of one headset as carried by
// deviceConnected/deviceUpdated and by the bulk device listing.
type DeviceInfo struct {
	ID            string     `json:"id"`
	Serial        string     `json:"serial"`
	Model         string     `json:"model"`
	CustomName    string     `json:"customName,omitempty"`
	IP            string     `json:"ip,omitempty"`
	ConnectedAt   time.Time  `json:"connectedAt"`
	LastSeen      time.Time  `json:"lastSeen"`
	CurrentApp    string     `json:"currentApp,omitempty"`
	PendingUpdate bool       `json:"pendingUpdate"`
	Battery       *BatteryInfo `json:"battery,omitempty"`
	Volume        *VolumeInfo  `json:"volume,omitempty"`
}

// BatteryInfo is a point-in-time reading, replaced wholesale on update.
type BatteryInfo struct {
	HeadsetLevel int  `json:"headsetLevel"`
	IsCharging   bool `json:"isCharging"`
}

// VolumeInfo is a point-in-time reading, replaced wholesale on update.
type VolumeInfo struct {
	Level int `json:"level"`
	Max   int `json:"max"`
}

// CommandResult records one completed command on one device. Immutable
// after creation; devices append these to a bounded history.
type CommandResult struct {
	CommandType string    `json:"commandType"`
	Success     bool      `json:"success"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type AppInfo struct {
	PackageName string `json:"packageName"`
	Label       string `json:"label,omitempty"`
	VersionName string `json:"versionName,omitempty"`
}

// Stage of a long-running operation. completed and failed are terminal.
type Stage string

const (
	StageStarted    Stage = "started"
	StageInProgress Stage = "inprogress"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// Terminal reports whether no further progress events are expected.
func (s Stage) Terminal() bool { return s == StageCompleted || s == StageFailed }

type OperationType string

const (
	OpDownload OperationType = "download"
	OpInstall  OperationType = "install"
)

// Progress is one tick of a long-running operation. Percentage is only
// meaningful while Stage is inprogress.
type Progress struct {
	OperationID   string        `json:"operationId"`
	OperationType OperationType `json:"operationType"`
	Stage         Stage         `json:"stage"`
	Percentage    int           `json:"percentage"`
	Message       string        `json:"message,omitempty"`
}
