package device

import (
	"testing"

	"github.com/stretchr/testify/require"

	"arceus-fleet/backend/app/events"
)

func TestDrainDischargesThenCharges(t *testing.T) {
	s := NewSimulator()
	start := s.Battery().HeadsetLevel

	b := s.Drain()
	require.Equal(t, start-1, b.HeadsetLevel)

	// drain to the charge threshold and make sure it plugs in
	for i := 0; i < 200; i++ {
		b = s.Drain()
	}
	require.True(t, b.IsCharging)
	require.GreaterOrEqual(t, b.HeadsetLevel, 0)
	require.LessOrEqual(t, b.HeadsetLevel, 100)
}

func TestInstallUninstallLaunch(t *testing.T) {
	s := NewSimulator()
	base := len(s.InstalledApps())

	s.Install(events.AppInfo{PackageName: "com.fleet.beatgame", Label: "Beat Game"})
	require.Len(t, s.InstalledApps(), base+1)

	require.NoError(t, s.Launch("com.fleet.beatgame"))
	require.Equal(t, "com.fleet.beatgame", s.CurrentApp())

	// uninstalling the foreground app also clears it
	require.NoError(t, s.Uninstall("com.fleet.beatgame"))
	require.Empty(t, s.CurrentApp())
	require.Error(t, s.Uninstall("com.fleet.beatgame"))
}

func TestInstalledAppsSorted(t *testing.T) {
	s := NewSimulator()
	s.Install(events.AppInfo{PackageName: "zzz.last"})
	s.Install(events.AppInfo{PackageName: "aaa.first"})

	apps := s.InstalledApps()
	require.Equal(t, "aaa.first", apps[0].PackageName)
	require.Equal(t, "zzz.last", apps[len(apps)-1].PackageName)
}
