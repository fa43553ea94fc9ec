package models

// State is the derived high-level device state.
type State string

const (
	StateUnknown State = "unknown"
	StateOff     State = "off"
	StateIdle    State = "idle"
	StateStandby State = "standby"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// AppState describes one application's lifecycle on a device.
type AppState string

const (
	AppStateOn   AppState = "on"   // app holds the foreground
	AppStateIdle AppState = "idle" // app process is running in the background
	AppStateOff  AppState = "off"  // app process is not running
)

// CurrentApp is the foreground window parsed from the window-manager dump.
// Activity is empty when the focused window carries no slash-qualified
// activity suffix.
type CurrentApp struct {
	Package  string `json:"package"`
	Activity string `json:"activity,omitempty"`
}

// PropertySnapshot is one consistent set of probe results from a single
// batched round trip. It is never mutated after construction.
//
// WakeLockSize is -1 when the wake-lock line was absent or unparsable.
// CurrentApp is nil when the focused-window text failed to parse.
// RunningApps is nil when running apps were not requested (or the probe
// output was truncated before that segment).
type PropertySnapshot struct {
	ScreenOn     bool        `json:"screen_on"`
	Awake        bool        `json:"awake"`
	WakeLockSize int         `json:"wake_lock_size"`
	CurrentApp   *CurrentApp `json:"current_app,omitempty"`
	RunningApps  []string    `json:"running_apps,omitempty"`
}

// IntentResult is the outcome of a monkey launch intent: the trailing
// exit-code line plus the preceding output lines. Empty when the session
// was unavailable.
type IntentResult struct {
	Retcode string   `json:"retcode,omitempty"`
	Output  []string `json:"output,omitempty"`
}

// DeviceSummary is the per-device entry returned by the device list.
type DeviceSummary struct {
	Host  string `json:"host"`
	State State  `json:"state"`
}
