package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	connectedAt := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	cases := []Event{
		&DeviceConnected{Device: DeviceInfo{
			ID:          "dev-1",
			Serial:      "SN-001",
			Model:       "Quest 3",
			ConnectedAt: connectedAt,
			LastSeen:    connectedAt,
		}},
		&DeviceDisconnected{DeviceID: "dev-1"},
		&BatteryUpdated{DeviceID: "dev-1", Battery: BatteryInfo{HeadsetLevel: 42, IsCharging: true}},
		&VolumeUpdated{DeviceID: "dev-1", Volume: VolumeInfo{Level: 7, Max: 15}},
		&DeviceNameChanged{Serial: "SN-001", Name: "Lab headset"},
		&GameStarted{DeviceID: "dev-1", PackageName: "com.fleet.beatgame"},
		&OperationProgress{DeviceID: "dev-1", Progress: Progress{
			OperationID:   "op-1",
			OperationType: OpInstall,
			Stage:         StageInProgress,
			Percentage:    57,
		}},
		&ErrorEvent{Message: "boom"},
		&ServerStopped{},
	}

	for _, ev := range cases {
		raw, err := Encode(ev)
		require.NoError(t, err)

		got, err := Decode(raw)
		require.NoError(t, err)
		require.Equal(t, ev.Kind(), got.Kind())
		require.Equal(t, ev, got)
	}
}

func TestEncodeEnvelopeShape(t *testing.T) {
	raw, err := Encode(&BatteryUpdated{DeviceID: "dev-9", Battery: BatteryInfo{HeadsetLevel: 80}})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Equal(t, KindBatteryUpdated, env.Event)
	require.JSONEq(t, `{"deviceId":"dev-9","batteryInfo":{"headsetLevel":80,"isCharging":false}}`, string(env.Payload))
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"event":"selfDestruct","payload":{}}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown event kind")
}

func TestDecodeBadPayload(t *testing.T) {
	_, err := Decode([]byte(`{"event":"batteryUpdated","payload":{"batteryInfo":"nope"}}`))
	require.Error(t, err)
}

func TestStageTerminal(t *testing.T) {
	require.True(t, StageCompleted.Terminal())
	require.True(t, StageFailed.Terminal())
	require.False(t, StageStarted.Terminal())
	require.False(t, StageInProgress.Terminal())
}

func TestNewResultStampsTime(t *testing.T) {
	before := time.Now()
	r := NewResult("ping_devices", true, "pong")
	require.Equal(t, "ping_devices", r.CommandType)
	require.True(t, r.Success)
	require.False(t, r.Timestamp.Before(before))
}
