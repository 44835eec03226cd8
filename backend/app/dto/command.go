package dto

import "encoding/json"

type CommandRequest struct {
	Command   string          `json:"command"`
	DeviceIDs []string        `json:"device_ids"`
	Argument  json.RawMessage `json:"argument,omitempty"`
}

type QueuedCommand struct {
	ID          uint   `json:"id"`
	Command     string `json:"command"`
	Payload     string `json:"payload"`
	OperationID string `json:"operation_id,omitempty"`
	Status      string `json:"status"`
	LastError   string `json:"last_error"`
	CreatedAt   int64  `json:"created_at"`
}
