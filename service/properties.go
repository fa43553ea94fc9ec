package service

import (
	"errors"
	"log"
	"regexp"
	"strconv"
	"strings"

	"firetvcontrol/adb"
	"firetvcontrol/models"
)

// Sub-probe commands. The two boolean probes emit a single '1'/'0' marker
// byte without a newline so the batched output can be split apart again;
// the remaining probes contribute whole lines. The dumpsys text these grep
// is loosely specified and drifts across firmware versions, so every parse
// below is best-effort.
const (
	screenOnCheck = "(dumpsys power | grep 'Display Power' | grep -q 'state=ON' || dumpsys power | grep -q 'mScreenOn=true')"

	cmdScreenOn     = screenOnCheck + " && echo -e '1\\c' || echo -e '0\\c'"
	cmdAwake        = "dumpsys power | grep mWakefulness | grep -q Awake && echo -e '1\\c' || echo -e '0\\c'"
	cmdWakeLockSize = "dumpsys power | grep Locks | grep 'size='"
	cmdCurrentApp   = "dumpsys window windows | grep mCurrentFocus"
	cmdRunningApps  = "ps | grep u0_a"
)

var (
	windowRegex   = regexp.MustCompile(`Window\{(\S+) (\S+) ([^/\}]+?)(?:/([^\}]+?))?\}`)
	wakeLockRegex = regexp.MustCompile(`size=(\d+)`)
)

// Properties captures a fresh snapshot of the device in one batched round
// trip. Running apps are only probed when requested; the lazy path is the
// cheaper default. A nil snapshot with a nil error means the session is
// unavailable; a non-nil error is a lock timeout the caller may retry.
func (s *Session) Properties(getRunningApps bool) (*models.PropertySnapshot, error) {
	cmd := cmdScreenOn + " && " + cmdAwake + " && " + cmdWakeLockSize + " && " + cmdCurrentApp
	if getRunningApps {
		cmd += " && " + cmdRunningApps
	}

	output, err := s.Shell(cmd)
	if err != nil {
		if errors.Is(err, adb.ErrNotAvailable) {
			return nil, nil
		}
		return nil, err
	}
	return parseProperties(s.host, output, getRunningApps), nil
}

// parseProperties splits one batched response into its segments. A shell
// conditional failing mid-chain truncates the output; every field past the
// truncation point degrades to its unknown value instead of failing the
// probe.
func parseProperties(host, output string, getRunningApps bool) *models.PropertySnapshot {
	snapshot := &models.PropertySnapshot{WakeLockSize: -1}
	if output == "" {
		return snapshot
	}

	snapshot.ScreenOn = output[0] == '1'
	// A dark screen makes the trailing segments meaningless even when the
	// chain ran to completion (the '0' marker still exits 0): report only
	// the screen state and leave everything else unknown.
	if !snapshot.ScreenOn {
		return snapshot
	}
	if len(output) > 1 {
		snapshot.Awake = output[1] == '1'
	}

	lines := strings.Split(strings.TrimRight(output, "\r\n"), "\n")

	// Line 0 carries the two marker bytes followed by the wake-lock text.
	if len(lines[0]) > 2 {
		snapshot.WakeLockSize = parseWakeLockSize(lines[0][2:])
	}
	if len(lines) > 1 {
		snapshot.CurrentApp = parseCurrentApp(host, lines[1])
	}
	if getRunningApps && len(lines) > 2 {
		snapshot.RunningApps = parseRunningApps(lines[2:])
	}
	return snapshot
}

// parseWakeLockSize extracts N from a "size=N" fragment; absent or garbled
// text yields -1, never an error.
func parseWakeLockSize(line string) int {
	m := wakeLockRegex.FindStringSubmatch(line)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

// parseCurrentApp pulls {package, activity?} out of a focused-window line.
// Text matching no known window shape degrades to nil with a warning; this
// must never fail the probe.
func parseCurrentApp(host, line string) *models.CurrentApp {
	m := windowRegex.FindStringSubmatch(line)
	if m == nil {
		log.Printf("Warning: couldn't parse current app from %q (%s)", strings.TrimSpace(line), host)
		return nil
	}
	return &models.CurrentApp{Package: m[3], Activity: m[4]}
}

// parseRunningApps keeps the last whitespace-delimited token of every
// non-blank line, in listing order. Duplicates are permitted.
func parseRunningApps(lines []string) []string {
	apps := make([]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		apps = append(apps, fields[len(fields)-1])
	}
	return apps
}

// ScreenOn probes the display power state on its own.
func (s *Session) ScreenOn() bool {
	out, err := s.Shell(cmdScreenOn)
	return err == nil && strings.HasPrefix(out, "1")
}

// Awake probes wakefulness on its own.
func (s *Session) Awake() bool {
	out, err := s.Shell(cmdAwake)
	return err == nil && strings.HasPrefix(out, "1")
}

// WakeLockSize probes the wake-lock count; -1 means unknown.
func (s *Session) WakeLockSize() int {
	out, err := s.Shell(cmdWakeLockSize)
	if err != nil || out == "" {
		return -1
	}
	return parseWakeLockSize(out)
}

// CurrentApp probes the foreground window; nil means unknown.
func (s *Session) CurrentApp() *models.CurrentApp {
	out, err := s.Shell(cmdCurrentApp)
	if err != nil || strings.TrimSpace(out) == "" {
		return nil
	}
	return parseCurrentApp(s.host, out)
}

// RunningApps probes the process listing; nil means unavailable.
func (s *Session) RunningApps() []string {
	out, err := s.Shell(cmdRunningApps)
	if err != nil {
		return nil
	}
	return parseRunningApps(strings.Split(strings.TrimRight(out, "\r\n"), "\n"))
}

// AppState reports one app's lifecycle: foreground, background, or not
// running. A dark or unreachable device reads as "off" for every app.
func (s *Session) AppState(app string) models.AppState {
	if !s.Available() || !s.ScreenOn() {
		return models.AppStateOff
	}
	if current := s.CurrentApp(); current != nil && current.Package == app {
		return models.AppStateOn
	}
	for _, running := range s.RunningApps() {
		if running == app {
			return models.AppStateIdle
		}
	}
	return models.AppStateOff
}
