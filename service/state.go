package service

import "firetvcontrol/models"

// Foreground packages that classify the device as sitting in standby.
const (
	PackageLauncher = "com.amazon.tv.launcher"
	PackageSettings = "com.amazon.tv.settings"
)

// DeriveState maps one property snapshot to the device state. It is pure
// and total: first matching rule wins, and connectivity dominates power
// state, power state dominates wakefulness, wakefulness dominates the
// foreground-app classification, which dominates the playing/paused
// heuristic.
//
// The wake-lock comparison is exactly == 1: a single wake lock is the
// calibrated signature of active playback on these devices.
func DeriveState(available, screenOn, awake bool, wakeLockSize int, current *models.CurrentApp) models.State {
	if !available {
		return models.StateUnknown
	}
	if !screenOn {
		return models.StateOff
	}
	if !awake {
		return models.StateIdle
	}
	if current != nil && (current.Package == PackageLauncher || current.Package == PackageSettings) {
		return models.StateStandby
	}
	if wakeLockSize == 1 {
		return models.StatePlaying
	}
	return models.StatePaused
}

// State probes the device and derives its current state. It is recomputed
// from a fresh snapshot on every call, never cached.
func (s *Session) State() models.State {
	if !s.Available() {
		return models.StateUnknown
	}
	snapshot, err := s.Properties(false)
	if err != nil || snapshot == nil {
		return models.StateUnknown
	}
	return DeriveState(true, snapshot.ScreenOn, snapshot.Awake, snapshot.WakeLockSize, snapshot.CurrentApp)
}
