package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firetvcontrol/models"
)

type recordingHub struct {
	updates chan StateChange
}

type StateChange struct {
	DeviceID string
	State    models.State
}

func (h *recordingHub) BroadcastState(deviceID string, state models.State) {
	h.updates <- StateChange{DeviceID: deviceID, State: state}
}

func waitForUpdate(t *testing.T, hub *recordingHub) StateChange {
	t.Helper()
	select {
	case update := <-hub.updates:
		return update
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a state broadcast")
		return StateChange{}
	}
}

func TestMonitorBroadcastsTransitionsOnly(t *testing.T) {
	ft := newFakeTransport(sampleBatchOutput)
	registry := newTestRegistry(t, ft)
	hub := &recordingHub{updates: make(chan StateChange, 16)}

	monitor := NewStateMonitor(registry, hub, 20*time.Millisecond)
	monitor.Start()
	defer monitor.Stop()

	first := waitForUpdate(t, hub)
	assert.Equal(t, "living-room", first.DeviceID)
	assert.Equal(t, models.StatePlaying, first.State)

	// Unchanged device: no further broadcasts.
	select {
	case update := <-hub.updates:
		t.Fatalf("unexpected broadcast without a transition: %+v", update)
	case <-time.After(150 * time.Millisecond):
	}

	// Cut the device off: exactly one transition to unknown.
	ft.setAvailable(false)
	second := waitForUpdate(t, hub)
	assert.Equal(t, models.StateUnknown, second.State)
}

func TestMonitorForgetsRemovedDevices(t *testing.T) {
	ft := newFakeTransport(sampleBatchOutput)
	registry := newTestRegistry(t, ft)
	hub := &recordingHub{updates: make(chan StateChange, 16)}

	monitor := NewStateMonitor(registry, hub, 20*time.Millisecond)
	monitor.Start()
	defer monitor.Stop()

	waitForUpdate(t, hub)
	require.True(t, registry.Remove("living-room"))

	select {
	case update := <-hub.updates:
		t.Fatalf("broadcast for a removed device: %+v", update)
	case <-time.After(150 * time.Millisecond):
	}
}
