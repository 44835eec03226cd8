package command

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"arceus-fleet/agent/internal/device"
	"arceus-fleet/backend/app/events"
)

type recorder struct {
	events []events.Event
}

func (r *recorder) emit(e events.Event) { r.events = append(r.events, e) }

func (r *recorder) result(t *testing.T) events.CommandResult {
	t.Helper()
	for i := len(r.events) - 1; i >= 0; i-- {
		if ev, ok := r.events[i].(*events.CommandExecuted); ok {
			return ev.Result
		}
	}
	t.Fatal("no commandExecuted event emitted")
	return events.CommandResult{}
}

func dispatch(t *testing.T, sim *device.Simulator, rec *recorder, cmd string, arg string, opID string) {
	t.Helper()
	env := Envelope{Command: cmd, OperationID: opID}
	if arg != "" {
		env.Argument = json.RawMessage(arg)
	}
	NewManager(nil).Dispatch(env, Context{
		DeviceID: "dev-1",
		Sim:      sim,
		Emit:     rec.emit,
	})
}

func TestUnknownCommandReportsFailure(t *testing.T) {
	rec := &recorder{}
	dispatch(t, device.NewSimulator(), rec, "open_pod_bay_doors", "", "")

	res := rec.result(t)
	require.False(t, res.Success)
	require.Equal(t, "open_pod_bay_doors", res.CommandType)
}

func TestPing(t *testing.T) {
	rec := &recorder{}
	dispatch(t, device.NewSimulator(), rec, "ping_devices", "", "")

	res := rec.result(t)
	require.True(t, res.Success)
	require.Equal(t, "pong", res.Message)
}

func TestRequestBatteryEmitsReading(t *testing.T) {
	rec := &recorder{}
	dispatch(t, device.NewSimulator(), rec, "request_battery", "", "")

	require.True(t, rec.result(t).Success)
	var seen bool
	for _, e := range rec.events {
		if ev, ok := e.(*events.BatteryUpdated); ok {
			seen = true
			require.Equal(t, "dev-1", ev.DeviceID)
		}
	}
	require.True(t, seen)
}

func TestSetVolume(t *testing.T) {
	sim := device.NewSimulator()
	rec := &recorder{}
	dispatch(t, sim, rec, "set_volume", `{"level":30}`, "")

	require.True(t, rec.result(t).Success)
	require.Equal(t, 30, sim.Volume().Level)

	rec = &recorder{}
	dispatch(t, sim, rec, "set_volume", `{"level":500}`, "")
	require.False(t, rec.result(t).Success)
	require.Equal(t, 30, sim.Volume().Level)
}

func TestLaunchRequiresInstalledPackage(t *testing.T) {
	sim := device.NewSimulator()
	rec := &recorder{}
	dispatch(t, sim, rec, "launch_app", `{"packageName":"com.missing.game"}`, "")
	require.False(t, rec.result(t).Success)

	sim.Install(events.AppInfo{PackageName: "com.fleet.beatgame"})
	rec = &recorder{}
	dispatch(t, sim, rec, "launch_app", `{"packageName":"com.fleet.beatgame"}`, "")
	require.True(t, rec.result(t).Success)
	require.Equal(t, "com.fleet.beatgame", sim.CurrentApp())

	var started bool
	for _, e := range rec.events {
		if _, ok := e.(*events.GameStarted); ok {
			started = true
		}
	}
	require.True(t, started)
}

func TestCloseAllApps(t *testing.T) {
	sim := device.NewSimulator()
	sim.Install(events.AppInfo{PackageName: "com.fleet.beatgame"})
	require.NoError(t, sim.Launch("com.fleet.beatgame"))

	rec := &recorder{}
	dispatch(t, sim, rec, "close_all_apps", "", "")
	require.True(t, rec.result(t).Success)
	require.Empty(t, sim.CurrentApp())

	var stopped *events.GameStopped
	for _, e := range rec.events {
		if ev, ok := e.(*events.GameStopped); ok {
			stopped = ev
		}
	}
	require.NotNil(t, stopped)
	require.Equal(t, "com.fleet.beatgame", stopped.PackageName)
}

func TestInstallLocalAPKProgressStream(t *testing.T) {
	sim := device.NewSimulator()
	rec := &recorder{}
	dispatch(t, sim, rec, "install_local_apk", `{"apkName":"BeatGame.apk"}`, "op-42")

	require.True(t, rec.result(t).Success)

	var stages []events.Stage
	for _, e := range rec.events {
		if ev, ok := e.(*events.OperationProgress); ok {
			require.Equal(t, "op-42", ev.Progress.OperationID)
			require.Equal(t, events.OpInstall, ev.Progress.OperationType)
			stages = append(stages, ev.Progress.Stage)
		}
	}
	require.NotEmpty(t, stages)
	require.Equal(t, events.StageStarted, stages[0])
	require.Equal(t, events.StageCompleted, stages[len(stages)-1])

	// the package landed on the simulator
	var found bool
	for _, a := range sim.InstalledApps() {
		if a.PackageName == "com.fleet.beatgame" {
			found = true
		}
	}
	require.True(t, found)
}

func TestInstallRemoteAPKDownloadsFirst(t *testing.T) {
	sim := device.NewSimulator()
	rec := &recorder{}
	dispatch(t, sim, rec, "install_remote_apk", `{"url":"https://cdn.example.com/BeatGame.apk"}`, "op-7")

	require.True(t, rec.result(t).Success)

	var types []events.OperationType
	for _, e := range rec.events {
		if ev, ok := e.(*events.OperationProgress); ok {
			types = append(types, ev.Progress.OperationType)
		}
	}
	require.Contains(t, types, events.OpDownload)
	require.Contains(t, types, events.OpInstall)
	// download phase comes before install
	require.Equal(t, events.OpDownload, types[0])
	require.Equal(t, events.OpInstall, types[len(types)-1])
}

func TestUninstallUpdatesAppList(t *testing.T) {
	sim := device.NewSimulator()
	sim.Install(events.AppInfo{PackageName: "com.fleet.beatgame"})

	rec := &recorder{}
	dispatch(t, sim, rec, "uninstall_app", `{"packageName":"com.fleet.beatgame"}`, "")
	require.True(t, rec.result(t).Success)

	for _, a := range sim.InstalledApps() {
		require.NotEqual(t, "com.fleet.beatgame", a.PackageName)
	}

	var listed bool
	for _, e := range rec.events {
		if _, ok := e.(*events.InstalledAppsReceived); ok {
			listed = true
		}
	}
	require.True(t, listed)
}

func TestPackageFromName(t *testing.T) {
	require.Equal(t, "com.fleet.beatgame", packageFromName("BeatGame.apk"))
	require.Equal(t, "com.example.game", packageFromName("com.example.game.apk"))
	require.Equal(t, "com.fleet.unknown", packageFromName(".apk"))
}
