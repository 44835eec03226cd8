package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"arceus-fleet/backend/app/models"
)

// Remote operation names, as the UI invokes them.
const (
	CmdRestartDevices   = "restart_devices"
	CmdRequestBattery   = "request_battery"
	CmdGetVolume        = "get_volume"
	CmdSetVolume        = "set_volume"
	CmdPingDevices      = "ping_devices"
	CmdLaunchApp        = "launch_app"
	CmdUninstallApp     = "uninstall_app"
	CmdExecuteShell     = "execute_shell"
	CmdGetInstalledApps = "get_installed_apps"
	CmdInstallRemoteAPK = "install_remote_apk"
	CmdInstallLocalAPK  = "install_local_apk"
	CmdSetDeviceName    = "set_device_name"
	CmdCloseAllApps     = "close_all_apps"
	CmdDisplayMessage   = "display_message"
)

// Envelope is the frame pushed down to a headset.
type Envelope struct {
	Command     string          `json:"command"`
	Argument    json.RawMessage `json:"argument,omitempty"`
	OperationID string          `json:"operationId,omitempty"`
}

// Queue persists commands per target device so offline targets get the
// command replayed at their next login.
type Queue interface {
	Create(cmd *models.FleetCommand) error
	MarkSent(id uint) error
	UpdateStatus(id uint, status, lastError string) error
	ListByDevice(deviceID string, includeSent bool) ([]models.FleetCommand, error)
}

// Sender pushes a frame to a connected device.
type Sender interface {
	Send(deviceID string, payload []byte) error
	IsOnline(deviceID string) bool
}

var ErrNoTargets = errors.New("commands: no target devices")

// Client submits operations for a set of device ids. A call returns once
// every target has a queued (and, when online, pushed) command row; it
// never waits for device-side completion. Outcomes arrive later as
// commandExecuted / operationProgress events correlated by device id or
// operation id.
type Client struct {
	hub   Sender
	queue Queue
	log   zerolog.Logger
}

func NewClient(hub Sender, queue Queue, log zerolog.Logger) *Client {
	return &Client{hub: hub, queue: queue, log: log}
}

// Accepted summarizes an accepted dispatch.
type Accepted struct {
	DeviceIDs   []string `json:"deviceIds"`
	OperationID string   `json:"operationId,omitempty"`
}

func (c *Client) RestartDevices(ctx context.Context, ids []string) (Accepted, error) {
	return c.dispatch(ctx, ids, CmdRestartDevices, nil, "")
}

func (c *Client) RequestBattery(ctx context.Context, ids []string) (Accepted, error) {
	return c.dispatch(ctx, ids, CmdRequestBattery, nil, "")
}

func (c *Client) GetVolume(ctx context.Context, ids []string) (Accepted, error) {
	return c.dispatch(ctx, ids, CmdGetVolume, nil, "")
}

func (c *Client) SetVolume(ctx context.Context, ids []string, level int) (Accepted, error) {
	if level < 0 || level > 100 {
		return Accepted{}, fmt.Errorf("commands: volume level %d out of range 0-100", level)
	}
	return c.dispatch(ctx, ids, CmdSetVolume, map[string]any{"level": level}, "")
}

func (c *Client) PingDevices(ctx context.Context, ids []string) (Accepted, error) {
	return c.dispatch(ctx, ids, CmdPingDevices, nil, "")
}

func (c *Client) LaunchApp(ctx context.Context, ids []string, packageName string) (Accepted, error) {
	if packageName == "" {
		return Accepted{}, errors.New("commands: missing package name")
	}
	return c.dispatch(ctx, ids, CmdLaunchApp, map[string]any{"packageName": packageName}, "")
}

func (c *Client) UninstallApp(ctx context.Context, ids []string, packageName string) (Accepted, error) {
	if packageName == "" {
		return Accepted{}, errors.New("commands: missing package name")
	}
	return c.dispatch(ctx, ids, CmdUninstallApp, map[string]any{"packageName": packageName}, "")
}

func (c *Client) ExecuteShell(ctx context.Context, ids []string, command string) (Accepted, error) {
	if strings.TrimSpace(command) == "" {
		return Accepted{}, errors.New("commands: empty shell command")
	}
	return c.dispatch(ctx, ids, CmdExecuteShell, map[string]any{"command": command}, "")
}

func (c *Client) GetInstalledApps(ctx context.Context, ids []string) (Accepted, error) {
	return c.dispatch(ctx, ids, CmdGetInstalledApps, nil, "")
}

// InstallRemoteAPK starts a download+install operation; the returned
// operation id correlates the progress event stream.
func (c *Client) InstallRemoteAPK(ctx context.Context, ids []string, rawURL string) (Accepted, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Accepted{}, fmt.Errorf("commands: invalid apk url %q", rawURL)
	}
	return c.dispatch(ctx, ids, CmdInstallRemoteAPK, map[string]any{"url": rawURL}, uuid.NewString())
}

// InstallLocalAPK installs an artifact already uploaded to the backend
// store; devices fetch it over the download endpoint.
func (c *Client) InstallLocalAPK(ctx context.Context, ids []string, apkName string) (Accepted, error) {
	if apkName == "" {
		return Accepted{}, errors.New("commands: missing apk name")
	}
	return c.dispatch(ctx, ids, CmdInstallLocalAPK, map[string]any{"apkName": apkName}, uuid.NewString())
}

// SetDeviceName targets one device; registry and event emission are the
// caller's side of the rename.
func (c *Client) SetDeviceName(ctx context.Context, deviceID, name string) (Accepted, error) {
	if strings.TrimSpace(name) == "" {
		return Accepted{}, errors.New("commands: empty device name")
	}
	return c.dispatch(ctx, []string{deviceID}, CmdSetDeviceName, map[string]any{"name": name}, "")
}

func (c *Client) CloseAllApps(ctx context.Context, ids []string) (Accepted, error) {
	return c.dispatch(ctx, ids, CmdCloseAllApps, nil, "")
}

func (c *Client) DisplayMessage(ctx context.Context, ids []string, message string) (Accepted, error) {
	if strings.TrimSpace(message) == "" {
		return Accepted{}, errors.New("commands: empty message")
	}
	return c.dispatch(ctx, ids, CmdDisplayMessage, map[string]any{"message": message}, "")
}

// Dispatch routes a named command with a raw argument; the HTTP command
// endpoint uses it so every operation shares one entrypoint.
func (c *Client) Dispatch(ctx context.Context, name string, ids []string, argument json.RawMessage) (Accepted, error) {
	switch name {
	case CmdRestartDevices:
		return c.RestartDevices(ctx, ids)
	case CmdRequestBattery:
		return c.RequestBattery(ctx, ids)
	case CmdGetVolume:
		return c.GetVolume(ctx, ids)
	case CmdSetVolume:
		var a struct {
			Level int `json:"level"`
		}
		if err := json.Unmarshal(argument, &a); err != nil {
			return Accepted{}, fmt.Errorf("commands: bad set_volume argument: %w", err)
		}
		return c.SetVolume(ctx, ids, a.Level)
	case CmdPingDevices:
		return c.PingDevices(ctx, ids)
	case CmdLaunchApp, CmdUninstallApp:
		var a struct {
			PackageName string `json:"packageName"`
		}
		if err := json.Unmarshal(argument, &a); err != nil {
			return Accepted{}, fmt.Errorf("commands: bad argument: %w", err)
		}
		if name == CmdLaunchApp {
			return c.LaunchApp(ctx, ids, a.PackageName)
		}
		return c.UninstallApp(ctx, ids, a.PackageName)
	case CmdExecuteShell:
		var a struct {
			Command string `json:"command"`
		}
		if err := json.Unmarshal(argument, &a); err != nil {
			return Accepted{}, fmt.Errorf("commands: bad execute_shell argument: %w", err)
		}
		return c.ExecuteShell(ctx, ids, a.Command)
	case CmdGetInstalledApps:
		return c.GetInstalledApps(ctx, ids)
	case CmdInstallRemoteAPK:
		var a struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(argument, &a); err != nil {
			return Accepted{}, fmt.Errorf("commands: bad install_remote_apk argument: %w", err)
		}
		return c.InstallRemoteAPK(ctx, ids, a.URL)
	case CmdInstallLocalAPK:
		var a struct {
			APKName string `json:"apkName"`
		}
		if err := json.Unmarshal(argument, &a); err != nil {
			return Accepted{}, fmt.Errorf("commands: bad install_local_apk argument: %w", err)
		}
		return c.InstallLocalAPK(ctx, ids, a.APKName)
	case CmdCloseAllApps:
		return c.CloseAllApps(ctx, ids)
	case CmdDisplayMessage:
		var a struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(argument, &a); err != nil {
			return Accepted{}, fmt.Errorf("commands: bad display_message argument: %w", err)
		}
		return c.DisplayMessage(ctx, ids, a.Message)
	default:
		return Accepted{}, fmt.Errorf("commands: unknown command %q", name)
	}
}

// dispatch queues and (when online) pushes one command per target.
// Validation happened before we get here; from this point an offline or
// unreachable device is not an error, its row simply stays pending.
func (c *Client) dispatch(ctx context.Context, ids []string, name string, arg any, operationID string) (Accepted, error) {
	targets := normalize(ids)
	if len(targets) == 0 {
		return Accepted{}, ErrNoTargets
	}

	var argument json.RawMessage
	if arg != nil {
		b, err := json.Marshal(arg)
		if err != nil {
			return Accepted{}, fmt.Errorf("commands: encode argument: %w", err)
		}
		argument = b
	}
	frame, err := json.Marshal(Envelope{Command: name, Argument: argument, OperationID: operationID})
	if err != nil {
		return Accepted{}, fmt.Errorf("commands: encode frame: %w", err)
	}

	// queue every target before pushing anything: a rejected call must
	// not leave part of the fleet executing it
	rows := make([]*models.FleetCommand, 0, len(targets))
	for _, id := range targets {
		if err := ctx.Err(); err != nil {
			return Accepted{}, err
		}
		row := &models.FleetCommand{
			DeviceID:    id,
			Command:     name,
			Payload:     string(argument),
			OperationID: operationID,
			Status:      "pending",
		}
		if err := c.queue.Create(row); err != nil {
			// void the rows already queued so a later login does not
			// replay half a call
			for _, r := range rows {
				_ = c.queue.UpdateStatus(r.ID, "failed", "dispatch aborted")
			}
			return Accepted{}, fmt.Errorf("commands: queue %s for %s: %w", name, id, err)
		}
		rows = append(rows, row)
	}
	for _, row := range rows {
		if err := c.hub.Send(row.DeviceID, frame); err != nil {
			// device offline: giữ status "pending" trong DB để retry sau
			c.log.Debug().Str("device", row.DeviceID).Str("command", name).Msg("target offline, command queued")
			continue
		}
		_ = c.queue.MarkSent(row.ID)
	}
	c.log.Info().Str("command", name).Int("targets", len(targets)).Str("operation", operationID).Msg("command accepted")
	return Accepted{DeviceIDs: targets, OperationID: operationID}, nil
}

// ReplayPending pushes queued commands when a device logs in.
func (c *Client) ReplayPending(deviceID string) {
	cmds, err := c.queue.ListByDevice(deviceID, false)
	if err != nil {
		c.log.Error().Err(err).Str("device", deviceID).Msg("list pending commands failed")
		return
	}
	for _, cmd := range cmds {
		env := Envelope{Command: cmd.Command, OperationID: cmd.OperationID}
		if cmd.Payload != "" {
			env.Argument = json.RawMessage(cmd.Payload)
		}
		frame, err := json.Marshal(env)
		if err != nil {
			_ = c.queue.UpdateStatus(cmd.ID, "failed", err.Error())
			continue
		}
		if err := c.hub.Send(deviceID, frame); err != nil {
			_ = c.queue.UpdateStatus(cmd.ID, "failed", err.Error())
			break
		}
		_ = c.queue.MarkSent(cmd.ID)
	}
}

// normalize dedupes and drops empty ids; order is irrelevant to the
// contract, sorting just makes responses and tests stable.
func normalize(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
