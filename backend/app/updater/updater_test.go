package updater

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"arceus-fleet/backend/app/bus"
	"arceus-fleet/backend/app/events"
)

const validManifest = `{
	"version": "1.4.0",
	"notes": "bug fixes",
	"pub_date": "2026-08-01T10:00:00Z",
	"platforms": {
		"windows-x86_64": {"signature": "sig-a", "url": "https://cdn.example.com/fleet-1.4.0.msi"},
		"darwin-aarch64": {"signature": "sig-b", "url": "https://cdn.example.com/fleet-1.4.0.dmg"}
	}
}`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(validManifest))
	require.NoError(t, err)
	require.Equal(t, "1.4.0", m.Version)
	require.Len(t, m.Platforms, 2)
	require.Equal(t, "sig-a", m.Platforms["windows-x86_64"].Signature)
}

func TestParseManifestValidation(t *testing.T) {
	cases := map[string]string{
		"not json":        `{]`,
		"missing version": `{"platforms":{"w":{"signature":"s","url":"u"}}}`,
		"no platforms":    `{"version":"1.0.0","platforms":{}}`,
		"missing url":     `{"version":"1.0.0","platforms":{"w":{"signature":"s"}}}`,
		"missing sig":     `{"version":"1.0.0","platforms":{"w":{"url":"u"}}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseManifest([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoadPublishesAnnouncementOnVersionChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "latest.json")
	require.NoError(t, os.WriteFile(path, []byte(validManifest), 0o644))

	b := bus.New()
	got := make(chan events.Event, 4)
	sub := b.Subscribe(events.KindInfo, func(e events.Event) { got <- e })
	defer sub.Cancel()

	s := NewService(path, b)
	require.NoError(t, s.Load())
	require.NotNil(t, s.Manifest())
	require.Equal(t, "1.4.0", s.Manifest().Version)

	select {
	case e := <-got:
		ev := e.(*events.InfoEvent)
		require.Contains(t, ev.Message, "1.4.0")
	case <-time.After(2 * time.Second):
		t.Fatal("no announcement published")
	}

	// reloading the same version stays quiet
	require.NoError(t, s.Load())
	select {
	case <-got:
		t.Fatal("duplicate announcement for unchanged version")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := NewService(filepath.Join(t.TempDir(), "absent.json"), nil)
	require.Error(t, s.Load())
	require.Nil(t, s.Manifest())
}

func TestMachineForwardProgress(t *testing.T) {
	m := NewMachine()
	require.Equal(t, PhaseChecking, m.Current().Phase)

	require.NoError(t, m.To(Status{Phase: PhaseUpdateAvailable}))
	require.NoError(t, m.To(Status{Phase: PhaseDownloading, Progress: 0.25}))
	// repeated phase is allowed so download ticks can flow
	require.NoError(t, m.To(Status{Phase: PhaseDownloading, Progress: 0.75}))
	require.NoError(t, m.To(Status{Phase: PhaseDownloaded}))
	require.NoError(t, m.To(Status{Phase: PhaseInstalling}))
	require.NoError(t, m.To(Status{Phase: PhaseInstalled}))
	require.NoError(t, m.To(Status{Phase: PhaseComplete}))
}

func TestMachineRejectsBackwardTransitions(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.To(Status{Phase: PhaseDownloading}))

	err := m.To(Status{Phase: PhaseUpdateAvailable})
	require.Error(t, err)
	require.Equal(t, PhaseDownloading, m.Current().Phase)
}

func TestMachineTerminalPhases(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.To(Status{Phase: PhaseNoUpdate}))

	// terminal: nothing moves forward from here
	require.Error(t, m.To(Status{Phase: PhaseDownloading}))

	// except re-entering Checking at the next launch
	require.NoError(t, m.To(Status{Phase: PhaseChecking}))
	require.Equal(t, PhaseChecking, m.Current().Phase)

	// re-checking mid-flight is not allowed
	require.NoError(t, m.To(Status{Phase: PhaseDownloading}))
	require.Error(t, m.To(Status{Phase: PhaseChecking}))
}

func TestMachineErrorFromAnyActivePhase(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.To(Status{Phase: PhaseDownloading}))
	require.NoError(t, m.To(Status{Phase: PhaseError, Message: "checksum mismatch"}))
	require.Equal(t, PhaseError, m.Current().Phase)
	require.Equal(t, "checksum mismatch", m.Current().Message)

	// Error is terminal
	require.Error(t, m.To(Status{Phase: PhaseInstalling}))
}
