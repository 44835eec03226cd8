package command

import (
	"encoding/json"

	"arceus-fleet/agent/internal/device"
	"arceus-fleet/backend/app/events"
)

// Envelope is the frame the backend pushes down over the websocket.
type Envelope struct {
	Command     string          `json:"command"`
	Argument    json.RawMessage `json:"argument,omitempty"`
	OperationID string          `json:"operationId,omitempty"`
}

// Context carries everything a handler needs to act and to report back.
type Context struct {
	DeviceID    string
	OperationID string
	Sim         *device.Simulator
	Emit        func(events.Event)
}

type Handler interface {
	// DecodeArg lets each command define its own argument struct (or nil)
	DecodeArg(raw json.RawMessage) (any, error)
	// Execute runs the command and returns a human-readable result message
	Execute(ctx Context, arg any) (string, error)
}

// Registry maps command name to handler
var registry = map[string]Handler{}

func Register(name string, h Handler) { registry[name] = h }

func Get(name string) (Handler, bool) { h, ok := registry[name]; return h, ok }
