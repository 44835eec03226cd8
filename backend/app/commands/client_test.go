package commands

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"arceus-fleet/backend/app/models"
)

type fakeQueue struct {
	rows    []*models.FleetCommand
	nextID  uint
	creates int
	failOn  int // 1-based Create call that fails; 0 never fails
}

func (q *fakeQueue) Create(cmd *models.FleetCommand) error {
	q.creates++
	if q.failOn > 0 && q.creates == q.failOn {
		return errors.New("insert failed")
	}
	q.nextID++
	cmd.ID = q.nextID
	q.rows = append(q.rows, cmd)
	return nil
}

func (q *fakeQueue) MarkSent(id uint) error {
	for _, r := range q.rows {
		if r.ID == id {
			r.Status = "sent"
			return nil
		}
	}
	return errors.New("row not found")
}

func (q *fakeQueue) UpdateStatus(id uint, status, lastError string) error {
	for _, r := range q.rows {
		if r.ID == id {
			r.Status = status
			r.LastError = lastError
			return nil
		}
	}
	return errors.New("row not found")
}

func (q *fakeQueue) ListByDevice(deviceID string, includeSent bool) ([]models.FleetCommand, error) {
	var out []models.FleetCommand
	for _, r := range q.rows {
		if r.DeviceID != deviceID {
			continue
		}
		if !includeSent && r.Status != "pending" {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

type fakeSender struct {
	online map[string]bool
	sent   map[string][][]byte
}

func newFakeSender(online ...string) *fakeSender {
	s := &fakeSender{online: map[string]bool{}, sent: map[string][][]byte{}}
	for _, id := range online {
		s.online[id] = true
	}
	return s
}

func (s *fakeSender) Send(deviceID string, payload []byte) error {
	if !s.online[deviceID] {
		return errors.New("device offline")
	}
	s.sent[deviceID] = append(s.sent[deviceID], payload)
	return nil
}

func (s *fakeSender) IsOnline(deviceID string) bool { return s.online[deviceID] }

func newTestClient(hub *fakeSender, queue *fakeQueue) *Client {
	return NewClient(hub, queue, zerolog.Nop())
}

func TestDispatchRequiresTargets(t *testing.T) {
	c := newTestClient(newFakeSender(), &fakeQueue{})

	_, err := c.PingDevices(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoTargets)

	_, err = c.PingDevices(context.Background(), []string{"  ", ""})
	require.ErrorIs(t, err, ErrNoTargets)
}

func TestDispatchNormalizesTargets(t *testing.T) {
	hub := newFakeSender("dev-1", "dev-2")
	queue := &fakeQueue{}
	c := newTestClient(hub, queue)

	acc, err := c.PingDevices(context.Background(), []string{"dev-2", " dev-1 ", "dev-2", "dev-1"})
	require.NoError(t, err)
	require.Equal(t, []string{"dev-1", "dev-2"}, acc.DeviceIDs)
	require.Len(t, queue.rows, 2)
}

func TestQueueFailureRejectsWholeCall(t *testing.T) {
	hub := newFakeSender("dev-1", "dev-2", "dev-3")
	queue := &fakeQueue{failOn: 3}
	c := newTestClient(hub, queue)

	_, err := c.PingDevices(context.Background(), []string{"dev-1", "dev-2", "dev-3"})
	require.Error(t, err)

	// no device may have executed a rejected call
	require.Empty(t, hub.sent)

	// the rows queued before the failure are voided, not left pending
	require.Len(t, queue.rows, 2)
	for _, r := range queue.rows {
		require.Equal(t, "failed", r.Status)
	}
	pending, err := queue.ListByDevice("dev-1", false)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestOnlineTargetGetsPushedAndMarkedSent(t *testing.T) {
	hub := newFakeSender("dev-1")
	queue := &fakeQueue{}
	c := newTestClient(hub, queue)

	_, err := c.SetVolume(context.Background(), []string{"dev-1"}, 80)
	require.NoError(t, err)

	require.Len(t, hub.sent["dev-1"], 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(hub.sent["dev-1"][0], &env))
	require.Equal(t, CmdSetVolume, env.Command)
	require.JSONEq(t, `{"level":80}`, string(env.Argument))

	require.Len(t, queue.rows, 1)
	require.Equal(t, "sent", queue.rows[0].Status)
}

func TestOfflineTargetStaysPending(t *testing.T) {
	hub := newFakeSender() // nobody online
	queue := &fakeQueue{}
	c := newTestClient(hub, queue)

	acc, err := c.RestartDevices(context.Background(), []string{"dev-1"})
	require.NoError(t, err)
	require.Equal(t, []string{"dev-1"}, acc.DeviceIDs)

	require.Empty(t, hub.sent)
	require.Len(t, queue.rows, 1)
	require.Equal(t, "pending", queue.rows[0].Status)
}

func TestSetVolumeRange(t *testing.T) {
	c := newTestClient(newFakeSender("dev-1"), &fakeQueue{})

	_, err := c.SetVolume(context.Background(), []string{"dev-1"}, -1)
	require.Error(t, err)
	_, err = c.SetVolume(context.Background(), []string{"dev-1"}, 101)
	require.Error(t, err)
	_, err = c.SetVolume(context.Background(), []string{"dev-1"}, 0)
	require.NoError(t, err)
	_, err = c.SetVolume(context.Background(), []string{"dev-1"}, 100)
	require.NoError(t, err)
}

func TestInstallRemoteAPKValidatesURL(t *testing.T) {
	c := newTestClient(newFakeSender("dev-1"), &fakeQueue{})

	for _, bad := range []string{"", "ftp://host/x.apk", "not a url", "https://"} {
		_, err := c.InstallRemoteAPK(context.Background(), []string{"dev-1"}, bad)
		require.Error(t, err, "url %q should be rejected", bad)
	}

	acc, err := c.InstallRemoteAPK(context.Background(), []string{"dev-1"}, "https://cdn.example.com/game.apk")
	require.NoError(t, err)
	require.NotEmpty(t, acc.OperationID)
}

func TestInstallOperationsCarryDistinctOperationIDs(t *testing.T) {
	c := newTestClient(newFakeSender("dev-1"), &fakeQueue{})

	a, err := c.InstallLocalAPK(context.Background(), []string{"dev-1"}, "game.apk")
	require.NoError(t, err)
	b, err := c.InstallLocalAPK(context.Background(), []string{"dev-1"}, "game.apk")
	require.NoError(t, err)
	require.NotEqual(t, a.OperationID, b.OperationID)
}

func TestDispatchByName(t *testing.T) {
	hub := newFakeSender("dev-1")
	queue := &fakeQueue{}
	c := newTestClient(hub, queue)

	_, err := c.Dispatch(context.Background(), CmdDisplayMessage, []string{"dev-1"}, json.RawMessage(`{"message":"hi"}`))
	require.NoError(t, err)
	require.Len(t, hub.sent["dev-1"], 1)

	_, err = c.Dispatch(context.Background(), "open_pod_bay_doors", []string{"dev-1"}, nil)
	require.Error(t, err)

	_, err = c.Dispatch(context.Background(), CmdSetVolume, []string{"dev-1"}, json.RawMessage(`{"level":"loud"}`))
	require.Error(t, err)
}

func TestReplayPendingPushesQueuedFrames(t *testing.T) {
	hub := newFakeSender() // offline at dispatch time
	queue := &fakeQueue{}
	c := newTestClient(hub, queue)

	_, err := c.LaunchApp(context.Background(), []string{"dev-1"}, "com.fleet.beatgame")
	require.NoError(t, err)
	require.Empty(t, hub.sent)

	// device logs in
	hub.online["dev-1"] = true
	c.ReplayPending("dev-1")

	require.Len(t, hub.sent["dev-1"], 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(hub.sent["dev-1"][0], &env))
	require.Equal(t, CmdLaunchApp, env.Command)
	require.JSONEq(t, `{"packageName":"com.fleet.beatgame"}`, string(env.Argument))
	require.Equal(t, "sent", queue.rows[0].Status)
}
