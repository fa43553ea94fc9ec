package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"firetvcontrol/adb"
	"firetvcontrol/models"
)

// ErrUnknownOperation rejects action names outside the published table.
var ErrUnknownOperation = errors.New("dispatcher: unknown operation")

// Launch intent categories used by the monkey runner.
const (
	intentLaunch = "android.intent.category.LAUNCHER"
	intentHome   = "android.intent.category.HOME"
)

// operations is the published table of zero-argument device actions. An
// explicit table (instead of reflective name lookup) means unknown names
// are rejected outright rather than silently no-op'd.
var operations = map[string]func(*Session) error{
	"home":             (*Session).Home,
	"back":             (*Session).Back,
	"up":               (*Session).Up,
	"down":             (*Session).Down,
	"left":             (*Session).Left,
	"right":            (*Session).Right,
	"enter":            (*Session).Enter,
	"menu":             (*Session).Menu,
	"volume_up":        (*Session).VolumeUp,
	"volume_down":      (*Session).VolumeDown,
	"media_play_pause": (*Session).MediaPlayPause,
	"media_play":       (*Session).MediaPlay,
	"media_pause":      (*Session).MediaPause,
	"media_next":       (*Session).MediaNext,
	"media_previous":   (*Session).MediaPrevious,
	"turn_on":          (*Session).TurnOn,
	"turn_off":         (*Session).TurnOff,
	"power":            (*Session).Power,
	"sleep":            (*Session).Sleep,
}

// Dispatcher resolves named operations against registered devices.
type Dispatcher struct {
	registry *DeviceRegistry
}

func NewDispatcher(registry *DeviceRegistry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch invokes the named operation on the device. Success means the
// device session exists and the operation was found and invoked, not that
// the device acknowledged it. Unknown names and lock timeouts come back as
// errors the boundary can tell apart.
func (d *Dispatcher) Dispatch(deviceID, name string) error {
	session := d.registry.Get(deviceID)
	if session == nil {
		return fmt.Errorf("device not found: %s", deviceID)
	}
	op, ok := operations[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	return op(session)
}

// Operations lists the published action names, sorted.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// input sends a fire-and-forget input command. Against an unavailable
// device it is a documented no-op; only lock timeouts surface.
func (s *Session) input(cmd string) error {
	_, err := s.Shell("input " + cmd)
	if errors.Is(err, adb.ErrNotAvailable) {
		return nil
	}
	return err
}

// Key presses a single keycode.
func (s *Session) Key(code int) error {
	return s.input(fmt.Sprintf("keyevent %d", code))
}

func (s *Session) Home() error           { return s.Key(KeyHome) }
func (s *Session) Back() error           { return s.Key(KeyBack) }
func (s *Session) Up() error             { return s.Key(KeyUp) }
func (s *Session) Down() error           { return s.Key(KeyDown) }
func (s *Session) Left() error           { return s.Key(KeyLeft) }
func (s *Session) Right() error          { return s.Key(KeyRight) }
func (s *Session) Enter() error          { return s.Key(KeyEnter) }
func (s *Session) Menu() error           { return s.Key(KeyMenu) }
func (s *Session) VolumeUp() error       { return s.Key(KeyVolumeUp) }
func (s *Session) VolumeDown() error     { return s.Key(KeyVolumeDown) }
func (s *Session) MediaPlayPause() error { return s.Key(KeyPlayPause) }
func (s *Session) MediaPlay() error      { return s.Key(KeyPlay) }
func (s *Session) MediaPause() error     { return s.Key(KeyPause) }
func (s *Session) MediaNext() error      { return s.Key(KeyNext) }
func (s *Session) MediaPrevious() error  { return s.Key(KeyPrevious) }
func (s *Session) Power() error          { return s.Key(KeyPower) }
func (s *Session) Sleep() error          { return s.Key(KeySleep) }

// TurnOn presses power+home only when the screen is currently off, so an
// already-on screen is never toggled dark. The check and the key presses
// ride in one conditional compound command.
func (s *Session) TurnOn() error {
	_, err := s.Shell(fmt.Sprintf("%s || (input keyevent %d && input keyevent %d)",
		screenOnCheck, KeyPower, KeyHome))
	if errors.Is(err, adb.ErrNotAvailable) {
		return nil
	}
	return err
}

// TurnOff sends sleep only when the screen is currently on.
func (s *Session) TurnOff() error {
	_, err := s.Shell(fmt.Sprintf("%s && input keyevent %d", screenOnCheck, KeySleep))
	if errors.Is(err, adb.ErrNotAvailable) {
		return nil
	}
	return err
}

// sendIntent fires a monkey intent at pkg and captures the combined output
// plus the trailing exit-code line. An unavailable session yields an empty
// result, not an error.
func (s *Session) sendIntent(pkg, intent string) (models.IntentResult, error) {
	cmd := fmt.Sprintf("monkey -p %s -c %s 1; echo $?", pkg, intent)
	out, err := s.Shell(cmd)
	if err != nil {
		if errors.Is(err, adb.ErrNotAvailable) {
			return models.IntentResult{}, nil
		}
		return models.IntentResult{}, err
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	if len(lines) == 0 || (len(lines) == 1 && lines[0] == "") {
		return models.IntentResult{}, nil
	}
	return models.IntentResult{
		Retcode: lines[len(lines)-1],
		Output:  lines[:len(lines)-1],
	}, nil
}

// LaunchApp starts pkg through its launcher intent.
func (s *Session) LaunchApp(pkg string) (models.IntentResult, error) {
	return s.sendIntent(pkg, intentLaunch)
}

// StopApp returns the device to the launcher rather than killing pkg:
// there is no reliable cross-app force-stop primitive to lean on.
func (s *Session) StopApp(pkg string) (models.IntentResult, error) {
	return s.sendIntent(PackageLauncher, intentHome)
}
