package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"arceus-fleet/agent/internal/logger"
	"arceus-fleet/backend/app/events"
)

var errUnknownCommand = errors.New("unknown command")

func init() {
	Register("restart_devices", restartHandler{})
	Register("request_battery", batteryHandler{})
	Register("get_volume", getVolumeHandler{})
	Register("set_volume", setVolumeHandler{})
	Register("ping_devices", pingHandler{})
	Register("launch_app", launchHandler{})
	Register("uninstall_app", uninstallHandler{})
	Register("execute_shell", shellHandler{})
	Register("get_installed_apps", listAppsHandler{})
	Register("install_remote_apk", installRemoteHandler{})
	Register("install_local_apk", installLocalHandler{})
	Register("set_device_name", setNameHandler{})
	Register("close_all_apps", closeAllHandler{})
	Register("display_message", displayHandler{})
}

// noArg is embedded by handlers whose commands carry no argument.
type noArg struct{}

func (noArg) DecodeArg(json.RawMessage) (any, error) { return nil, nil }

func decodeInto[T any](raw json.RawMessage) (any, error) {
	var a T
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return a, nil
}

type restartHandler struct{ noArg }

func (restartHandler) Execute(ctx Context, _ any) (string, error) {
	// headset thật sẽ reboot; simulator chỉ đóng app foreground
	if pkg := ctx.Sim.StopForeground(); pkg != "" {
		ctx.Emit(&events.GameStopped{DeviceID: ctx.DeviceID, PackageName: pkg})
	}
	return "restart scheduled", nil
}

type batteryHandler struct{ noArg }

func (batteryHandler) Execute(ctx Context, _ any) (string, error) {
	b := ctx.Sim.Battery()
	ctx.Emit(&events.BatteryUpdated{DeviceID: ctx.DeviceID, Battery: b})
	return fmt.Sprintf("battery %d%%", b.HeadsetLevel), nil
}

type getVolumeHandler struct{ noArg }

func (getVolumeHandler) Execute(ctx Context, _ any) (string, error) {
	v := ctx.Sim.Volume()
	ctx.Emit(&events.VolumeUpdated{DeviceID: ctx.DeviceID, Volume: v})
	return fmt.Sprintf("volume %d/%d", v.Level, v.Max), nil
}

type setVolumeHandler struct{}

type setVolumeArg struct {
	Level int `json:"level"`
}

func (setVolumeHandler) DecodeArg(raw json.RawMessage) (any, error) {
	return decodeInto[setVolumeArg](raw)
}

func (setVolumeHandler) Execute(ctx Context, arg any) (string, error) {
	a, ok := arg.(setVolumeArg)
	if !ok {
		return "", errors.New("missing level argument")
	}
	if a.Level < 0 || a.Level > 100 {
		return "", fmt.Errorf("volume level %d out of range", a.Level)
	}
	v := ctx.Sim.SetVolume(a.Level)
	ctx.Emit(&events.VolumeUpdated{DeviceID: ctx.DeviceID, Volume: v})
	return fmt.Sprintf("volume set to %d", v.Level), nil
}

type pingHandler struct{ noArg }

func (pingHandler) Execute(Context, any) (string, error) { return "pong", nil }

type pkgArg struct {
	PackageName string `json:"packageName"`
}

type launchHandler struct{}

func (launchHandler) DecodeArg(raw json.RawMessage) (any, error) {
	return decodeInto[pkgArg](raw)
}

func (launchHandler) Execute(ctx Context, arg any) (string, error) {
	a, ok := arg.(pkgArg)
	if !ok || a.PackageName == "" {
		return "", errors.New("missing package name")
	}
	if err := ctx.Sim.Launch(a.PackageName); err != nil {
		return "", err
	}
	ctx.Emit(&events.GameStarted{DeviceID: ctx.DeviceID, PackageName: a.PackageName})
	return "launched " + a.PackageName, nil
}

type uninstallHandler struct{}

func (uninstallHandler) DecodeArg(raw json.RawMessage) (any, error) {
	return decodeInto[pkgArg](raw)
}

func (uninstallHandler) Execute(ctx Context, arg any) (string, error) {
	a, ok := arg.(pkgArg)
	if !ok || a.PackageName == "" {
		return "", errors.New("missing package name")
	}
	if err := ctx.Sim.Uninstall(a.PackageName); err != nil {
		return "", err
	}
	ctx.Emit(&events.InstalledAppsReceived{DeviceID: ctx.DeviceID, Apps: ctx.Sim.InstalledApps()})
	return "uninstalled " + a.PackageName, nil
}

type shellHandler struct{}

type shellArg struct {
	Command string `json:"command"`
}

func (shellHandler) DecodeArg(raw json.RawMessage) (any, error) {
	return decodeInto[shellArg](raw)
}

func (shellHandler) Execute(_ Context, arg any) (string, error) {
	a, ok := arg.(shellArg)
	if !ok || strings.TrimSpace(a.Command) == "" {
		return "", errors.New("empty shell command")
	}
	// simulator không chạy shell thật
	logger.Infof("Shell (simulated): %s", a.Command)
	return "executed: " + a.Command, nil
}

type listAppsHandler struct{ noArg }

func (listAppsHandler) Execute(ctx Context, _ any) (string, error) {
	apps := ctx.Sim.InstalledApps()
	ctx.Emit(&events.InstalledAppsReceived{DeviceID: ctx.DeviceID, Apps: apps})
	return fmt.Sprintf("%d apps installed", len(apps)), nil
}

type installRemoteHandler struct{}

type urlArg struct {
	URL string `json:"url"`
}

func (installRemoteHandler) DecodeArg(raw json.RawMessage) (any, error) {
	return decodeInto[urlArg](raw)
}

func (installRemoteHandler) Execute(ctx Context, arg any) (string, error) {
	a, ok := arg.(urlArg)
	if !ok || a.URL == "" {
		return "", errors.New("missing apk url")
	}
	pkg := packageFromName(path.Base(a.URL))
	if err := runInstall(ctx, pkg, true); err != nil {
		return "", err
	}
	return "installed " + pkg, nil
}

type installLocalHandler struct{}

type apkNameArg struct {
	APKName string `json:"apkName"`
}

func (installLocalHandler) DecodeArg(raw json.RawMessage) (any, error) {
	return decodeInto[apkNameArg](raw)
}

func (installLocalHandler) Execute(ctx Context, arg any) (string, error) {
	a, ok := arg.(apkNameArg)
	if !ok || a.APKName == "" {
		return "", errors.New("missing apk name")
	}
	pkg := packageFromName(a.APKName)
	if err := runInstall(ctx, pkg, false); err != nil {
		return "", err
	}
	return "installed " + pkg, nil
}

type setNameHandler struct{}

type nameArg struct {
	Name string `json:"name"`
}

func (setNameHandler) DecodeArg(raw json.RawMessage) (any, error) {
	return decodeInto[nameArg](raw)
}

func (setNameHandler) Execute(_ Context, arg any) (string, error) {
	a, ok := arg.(nameArg)
	if !ok || strings.TrimSpace(a.Name) == "" {
		return "", errors.New("empty device name")
	}
	// tên hiển thị do backend quản lý; agent chỉ xác nhận
	return "name acknowledged: " + a.Name, nil
}

type closeAllHandler struct{ noArg }

func (closeAllHandler) Execute(ctx Context, _ any) (string, error) {
	pkg := ctx.Sim.StopForeground()
	if pkg == "" {
		return "nothing running", nil
	}
	ctx.Emit(&events.GameStopped{DeviceID: ctx.DeviceID, PackageName: pkg})
	return "closed " + pkg, nil
}

type displayHandler struct{}

type messageArg struct {
	Message string `json:"message"`
}

func (displayHandler) DecodeArg(raw json.RawMessage) (any, error) {
	return decodeInto[messageArg](raw)
}

func (displayHandler) Execute(_ Context, arg any) (string, error) {
	a, ok := arg.(messageArg)
	if !ok || strings.TrimSpace(a.Message) == "" {
		return "", errors.New("empty message")
	}
	logger.Infof("Display (simulated): %s", a.Message)
	return "displayed", nil
}

// runInstall walks an install operation through its progress stream:
// a download phase when the artifact is remote, then the install phase.
// Each tick goes upstream so the dashboard can render a live bar.
func runInstall(ctx Context, pkg string, remote bool) error {
	if remote {
		emitProgress(ctx, events.OpDownload, events.StageStarted, 0, "downloading "+pkg)
		for _, pct := range []int{25, 50, 75} {
			time.Sleep(300 * time.Millisecond)
			emitProgress(ctx, events.OpDownload, events.StageInProgress, pct, "")
		}
		emitProgress(ctx, events.OpDownload, events.StageCompleted, 100, "download complete")
	}

	emitProgress(ctx, events.OpInstall, events.StageStarted, 0, "installing "+pkg)
	for _, pct := range []int{40, 80} {
		time.Sleep(300 * time.Millisecond)
		emitProgress(ctx, events.OpInstall, events.StageInProgress, pct, "")
	}
	ctx.Sim.Install(events.AppInfo{PackageName: pkg, Label: pkg})
	emitProgress(ctx, events.OpInstall, events.StageCompleted, 100, "install complete")
	ctx.Emit(&events.InstalledAppsReceived{DeviceID: ctx.DeviceID, Apps: ctx.Sim.InstalledApps()})
	return nil
}

func emitProgress(ctx Context, op events.OperationType, stage events.Stage, pct int, msg string) {
	ctx.Emit(&events.OperationProgress{
		DeviceID: ctx.DeviceID,
		Progress: events.Progress{
			OperationID:   ctx.OperationID,
			OperationType: op,
			Stage:         stage,
			Percentage:    pct,
			Message:       msg,
		},
	})
}

// packageFromName derives a plausible android package id from an apk
// file name ("BeatGame.apk" -> "com.fleet.beatgame"); names that already
// look like a package id pass through.
func packageFromName(name string) string {
	base := strings.TrimSuffix(name, ".apk")
	base = strings.ToLower(strings.TrimSpace(base))
	if base == "" {
		base = "unknown"
	}
	if strings.Contains(base, ".") && !strings.HasSuffix(base, ".") {
		return base
	}
	return "com.fleet." + base
}
