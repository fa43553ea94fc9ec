package service

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/semaphore"

	"firetvcontrol/adb"
)

// ErrLockTimeout reports that the per-session command lock could not be
// acquired in time. It is distinct from unavailability: the whole operation
// is safe to retry.
var ErrLockTimeout = errors.New("session: timed out waiting for command lock")

// lockTimeout bounds the wait for the command lock, well under the shell
// I/O timeout so a stuck transport cannot hang callers.
const lockTimeout = 3 * time.Second

// Session is the per-device bundle: one transport, one command lock, one
// identity (host plus credential). Every transport invocation goes through
// the lock because the underlying channel multiplexes all commands through
// one logical pipe and interleaved writes corrupt output parsing.
type Session struct {
	host      string
	transport adb.Transport
	lock      *semaphore.Weighted
	lockWait  time.Duration
}

// NewSession wraps transport into a session. A connection attempt is the
// caller's responsibility (see DeviceRegistry.Add).
func NewSession(transport adb.Transport) *Session {
	return &Session{
		host:      transport.Host(),
		transport: transport,
		lock:      semaphore.NewWeighted(1),
		lockWait:  lockTimeout,
	}
}

func (s *Session) Host() string { return s.host }

// Available reports whether the device can currently be reached. The
// answer is backend-specific (local flag vs live relay roster).
func (s *Session) Available() bool {
	return s.transport.Available()
}

func (s *Session) acquire() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.lockWait)
	defer cancel()
	if err := s.lock.Acquire(ctx, 1); err != nil {
		return ErrLockTimeout
	}
	return nil
}

// Connect attempts to (re)establish the transport. Failure never raises;
// the session simply stays unavailable and the caller may retry later.
func (s *Session) Connect() bool {
	if err := s.acquire(); err != nil {
		log.Printf("Warning: connect to %s skipped: %v", s.host, err)
		return false
	}
	defer s.lock.Release(1)

	ok, err := s.transport.Connect()
	if err != nil {
		log.Printf("Warning: connect to %s: %v", s.host, err)
		return false
	}
	return ok
}

// Shell runs cmd on the device under the command lock. It returns
// adb.ErrNotAvailable while disconnected and ErrLockTimeout when the lock
// wait expires; both leave the device untouched.
func (s *Session) Shell(cmd string) (string, error) {
	if !s.transport.Available() {
		return "", adb.ErrNotAvailable
	}
	if err := s.acquire(); err != nil {
		return "", err
	}
	defer s.lock.Release(1)
	return s.transport.Shell(cmd)
}

// StreamingShell runs cmd and returns its output lines. On the relayed
// backend this is a documented no-op.
func (s *Session) StreamingShell(cmd string) ([]string, error) {
	if !s.transport.Available() {
		return nil, adb.ErrNotAvailable
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.lock.Release(1)
	return s.transport.StreamingShell(cmd)
}
