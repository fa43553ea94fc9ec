package service

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firetvcontrol/adb"
)

// fakeTransport is a scripted in-memory transport shared by the service
// tests. It records every command and tracks how many Shell calls overlap.
type fakeTransport struct {
	host      string
	available bool
	output    string
	delay     time.Duration

	mu       sync.Mutex
	commands []string

	inFlight    int32
	maxInFlight int32
}

func newFakeTransport(output string) *fakeTransport {
	return &fakeTransport{host: "127.0.0.1:5555", available: true, output: output}
}

func (f *fakeTransport) Host() string { return f.host }

func (f *fakeTransport) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *fakeTransport) setAvailable(v bool) {
	f.mu.Lock()
	f.available = v
	f.mu.Unlock()
}

func (f *fakeTransport) Connect() (bool, error) { return f.Available(), nil }

func (f *fakeTransport) Shell(cmd string) (string, error) {
	if !f.Available() {
		return "", adb.ErrNotAvailable
	}
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxInFlight)
		if n <= seen || atomic.CompareAndSwapInt32(&f.maxInFlight, seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	out := f.output
	f.mu.Unlock()
	return out, nil
}

func (f *fakeTransport) StreamingShell(cmd string) ([]string, error) {
	out, err := f.Shell(cmd)
	if err != nil {
		return nil, err
	}
	return []string{out}, nil
}

func (f *fakeTransport) lastCommand() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return ""
	}
	return f.commands[len(f.commands)-1]
}

func TestShellUnavailableIsNoOp(t *testing.T) {
	ft := newFakeTransport("")
	ft.available = false
	s := NewSession(ft)

	out, err := s.Shell("echo hi")
	assert.Empty(t, out)
	assert.ErrorIs(t, err, adb.ErrNotAvailable)
	assert.Empty(t, ft.commands, "no command should reach an unavailable transport")
}

func TestShellSerializesPerSession(t *testing.T) {
	ft := newFakeTransport("ok")
	ft.delay = 20 * time.Millisecond
	s := NewSession(ft)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Shell("probe")
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ft.maxInFlight, "commands on one session must never overlap")
	assert.Len(t, ft.commands, 8)
}

func TestSessionsDoNotBlockEachOther(t *testing.T) {
	slow := newFakeTransport("ok")
	slow.delay = 150 * time.Millisecond
	fast := newFakeTransport("ok")

	a := NewSession(slow)
	b := NewSession(fast)

	started := make(chan struct{})
	go func() {
		close(started)
		a.Shell("slow probe")
	}()
	<-started
	time.Sleep(10 * time.Millisecond) // let the slow command take its lock

	done := make(chan struct{})
	go func() {
		b.Shell("fast probe")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("a command on one device blocked a command on another")
	}
}

func TestShellLockTimeout(t *testing.T) {
	ft := newFakeTransport("ok")
	s := NewSession(ft)
	s.lockWait = 30 * time.Millisecond

	// Occupy the lock so the next caller times out.
	require.NoError(t, s.acquire())
	defer s.lock.Release(1)

	_, err := s.Shell("probe")
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.NotErrorIs(t, err, adb.ErrNotAvailable, "a lock timeout is not the same as unavailable")
}

func TestConnectLockTimeoutFails(t *testing.T) {
	ft := newFakeTransport("ok")
	s := NewSession(ft)
	s.lockWait = 30 * time.Millisecond

	require.NoError(t, s.acquire())
	defer s.lock.Release(1)

	assert.False(t, s.Connect())
}
