package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firetvcontrol/models"
)

const sampleBatchOutput = "11Wake Locks: size=1\n" +
	"  mCurrentFocus=Window{41d2b678 u0 com.netflix.ninja/com.netflix.ninja.MainActivity}\n" +
	"u0_a2     1654  136   669692 48676 ffffffff 00000000 S com.amazon.tv.launcher\n" +
	"u0_a51    2811  136   994904 83640 ffffffff 00000000 S com.netflix.ninja\n"

func TestParsePropertiesFullOutput(t *testing.T) {
	snap := parseProperties("host", sampleBatchOutput, true)
	require.NotNil(t, snap)

	assert.True(t, snap.ScreenOn)
	assert.True(t, snap.Awake)
	assert.Equal(t, 1, snap.WakeLockSize)
	require.NotNil(t, snap.CurrentApp)
	assert.Equal(t, "com.netflix.ninja", snap.CurrentApp.Package)
	assert.Equal(t, "com.netflix.ninja.MainActivity", snap.CurrentApp.Activity)
	assert.Equal(t, []string{"com.amazon.tv.launcher", "com.netflix.ninja"}, snap.RunningApps)
}

func TestParsePropertiesScreenOff(t *testing.T) {
	// The '0' marker exits 0, so the chain keeps running and the output can
	// be truncated or complete. Either way a dark screen must leave every
	// trailing field at its unknown value.
	darkOutputs := []string{
		"0",
		"01Wake Locks: size=1\n" +
			"  mCurrentFocus=Window{41d2b678 u0 com.netflix.ninja/com.netflix.ninja.MainActivity}\n" +
			"u0_a51    2811  136   994904 83640 ffffffff 00000000 S com.netflix.ninja\n",
	}
	for _, output := range darkOutputs {
		snap := parseProperties("host", output, true)
		require.NotNil(t, snap)

		assert.False(t, snap.ScreenOn)
		assert.False(t, snap.Awake)
		assert.Equal(t, -1, snap.WakeLockSize)
		assert.Nil(t, snap.CurrentApp)
		assert.Nil(t, snap.RunningApps)
	}
}

func TestParsePropertiesEmptyOutput(t *testing.T) {
	snap := parseProperties("host", "", true)
	require.NotNil(t, snap)

	assert.False(t, snap.ScreenOn)
	assert.False(t, snap.Awake)
	assert.Equal(t, -1, snap.WakeLockSize)
	assert.Nil(t, snap.CurrentApp)
	assert.Nil(t, snap.RunningApps)
}

// A sub-probe failing mid-chain truncates the batched output; every field
// past the truncation degrades instead of failing the probe.
func TestParsePropertiesTruncated(t *testing.T) {
	snap := parseProperties("host", "10garbled, no size here", true)
	require.NotNil(t, snap)

	assert.True(t, snap.ScreenOn)
	assert.False(t, snap.Awake)
	assert.Equal(t, -1, snap.WakeLockSize)
	assert.Nil(t, snap.CurrentApp)
	assert.Nil(t, snap.RunningApps)
}

func TestParseWakeLockSize(t *testing.T) {
	assert.Equal(t, 0, parseWakeLockSize("Locks: size=0"))
	assert.Equal(t, 2, parseWakeLockSize("Wake Locks: size=2"))
	assert.Equal(t, -1, parseWakeLockSize(""))
	assert.Equal(t, -1, parseWakeLockSize("no locks line at all"))
	assert.Equal(t, -1, parseWakeLockSize("size=notanumber"))
}

func TestParseCurrentApp(t *testing.T) {
	app := parseCurrentApp("host", "Window{a1 u0 com.example.app/com.example.app.MainActivity}")
	require.NotNil(t, app)
	assert.Equal(t, "com.example.app", app.Package)
	assert.Equal(t, "com.example.app.MainActivity", app.Activity)

	app = parseCurrentApp("host", "Window{a1 u0 com.example.app}")
	require.NotNil(t, app)
	assert.Equal(t, "com.example.app", app.Package)
	assert.Empty(t, app.Activity)

	assert.Nil(t, parseCurrentApp("host", "nothing window-shaped here"))
}

func TestParseRunningAppsKeepsListingOrder(t *testing.T) {
	apps := parseRunningApps([]string{
		"u0_a2  100 S com.first",
		"",
		"u0_a3  101 S com.second",
		"u0_a4  102 S com.first",
	})
	assert.Equal(t, []string{"com.first", "com.second", "com.first"}, apps)
}

func TestPropertiesUnavailableYieldsNilSnapshot(t *testing.T) {
	ft := newFakeTransport(sampleBatchOutput)
	ft.available = false
	s := NewSession(ft)

	snap, err := s.Properties(true)
	assert.NoError(t, err)
	assert.Nil(t, snap)
}

func TestPropertiesIdempotentOnUnchangedDevice(t *testing.T) {
	ft := newFakeTransport(sampleBatchOutput)
	s := NewSession(ft)

	first, err := s.Properties(false)
	require.NoError(t, err)
	second, err := s.Properties(false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPropertiesCommandShape(t *testing.T) {
	ft := newFakeTransport(sampleBatchOutput)
	s := NewSession(ft)

	_, err := s.Properties(false)
	require.NoError(t, err)
	lazy := ft.lastCommand()
	assert.Contains(t, lazy, "dumpsys power")
	assert.Contains(t, lazy, "mCurrentFocus")
	assert.NotContains(t, lazy, "ps | grep u0_a", "lazy probe must skip the process listing")

	_, err = s.Properties(true)
	require.NoError(t, err)
	assert.Contains(t, ft.lastCommand(), "ps | grep u0_a")
}

func TestAppState(t *testing.T) {
	ft := newFakeTransport("")
	s := NewSession(ft)

	// Screen off: every app reads as off.
	ft.output = "0"
	assert.Equal(t, models.AppStateOff, s.AppState("com.netflix.ninja"))

	ft.available = false
	assert.Equal(t, models.AppStateOff, s.AppState("com.netflix.ninja"))
}

func TestAppStateForeground(t *testing.T) {
	ft := newFakeTransport("")
	s := NewSession(ft)

	// The per-probe fake answers every command identically, so pick output
	// that satisfies both the screen check and the focus probe.
	ft.output = "1  mCurrentFocus=Window{a1 u0 com.netflix.ninja/com.netflix.ninja.MainActivity}"
	assert.Equal(t, models.AppStateOn, s.AppState("com.netflix.ninja"))
}

func TestBatchedCommandChainsWithMarkers(t *testing.T) {
	// The boolean probes must emit their marker byte on success and
	// failure alike, otherwise the chain truncates on a dark screen.
	assert.True(t, strings.Contains(cmdScreenOn, "echo -e '1\\c'"))
	assert.True(t, strings.Contains(cmdScreenOn, "echo -e '0\\c'"))
	assert.True(t, strings.Contains(cmdAwake, "echo -e '1\\c'"))
	assert.True(t, strings.Contains(cmdAwake, "echo -e '0\\c'"))
}
