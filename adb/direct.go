package adb

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrNotAvailable is returned by transports when the device session has no
// live connection. Callers treat it as "no-op while disconnected", never as
// a reportable failure.
var ErrNotAvailable = errors.New("adb: device not available")

const (
	connectTimeout = 9 * time.Second
	shellTimeout   = 30 * time.Second
)

// DirectTransport reaches the device through the local adb daemon, which
// holds the persistent keyed connection established by "adb connect".
// Liveness is tracked in a local flag: a command-level fault flips it and
// the next Connect re-establishes the link.
type DirectTransport struct {
	adbPath string
	host    string
	keyPath string

	mu        sync.Mutex
	available bool
}

// NewDirect builds a direct transport for host (<address>:<port>). keyPath
// optionally points at an ADB vendor key used when the daemon authenticates
// to the device; a non-empty path that does not exist is rejected outright.
func NewDirect(adbPath, host, keyPath string) (*DirectTransport, error) {
	if keyPath != "" {
		if _, err := os.Stat(keyPath); err != nil {
			return nil, fmt.Errorf("adb key %s: %w", keyPath, err)
		}
	}
	return &DirectTransport{
		adbPath: adbPath,
		host:    host,
		keyPath: keyPath,
	}, nil
}

func (t *DirectTransport) Host() string { return t.host }

func (t *DirectTransport) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.available
}

func (t *DirectTransport) setAvailable(v bool) {
	t.mu.Lock()
	was := t.available
	t.available = v
	t.mu.Unlock()
	if was && !v {
		log.Printf("Lost connection to %s", t.host)
	}
}

func (t *DirectTransport) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, t.adbPath, args...)
	if t.keyPath != "" {
		cmd.Env = append(os.Environ(), "ADB_VENDOR_KEYS="+t.keyPath)
	}
	return cmd
}

// Connect asks the daemon to (re)establish the device link. Refused or
// timed-out connections are swallowed into available=false so the caller
// can retry later; only faults outside plain unreachability (such as a
// missing adb binary) are returned as errors.
func (t *DirectTransport) Connect() (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	out, err := t.command(ctx, "connect", t.host).CombinedOutput()
	if err != nil {
		t.setAvailable(false)
		if ctx.Err() != nil {
			log.Printf("Couldn't connect to %s: timed out", t.host)
			return false, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Printf("Couldn't connect to %s: %s", t.host, strings.TrimSpace(string(out)))
			return false, nil
		}
		return false, fmt.Errorf("adb connect: %w", err)
	}

	// "adb connect" exits 0 even when it fails; the verdict is in the text.
	text := strings.TrimSpace(string(out))
	ok := strings.Contains(text, "connected to") &&
		!strings.Contains(text, "failed to connect") &&
		!strings.Contains(text, "cannot connect")
	if !ok {
		log.Printf("Couldn't connect to %s: %s", t.host, text)
	}
	t.setAvailable(ok)
	return ok, nil
}

// Shell runs cmd on the device and returns its combined text output.
// Command-level transport faults flip the liveness flag and come back as
// ErrNotAvailable rather than the raw exec error.
func (t *DirectTransport) Shell(cmd string) (string, error) {
	if !t.Available() {
		return "", ErrNotAvailable
	}

	ctx, cancel := context.WithTimeout(context.Background(), shellTimeout)
	defer cancel()

	out, err := t.command(ctx, "-s", t.host, "shell", cmd).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			// Remote command exited nonzero; the transport itself is fine.
			return string(out), nil
		}
		log.Printf("Warning: shell on %s failed: %v", t.host, err)
		t.setAvailable(false)
		return "", ErrNotAvailable
	}
	return string(out), nil
}

// StreamingShell runs cmd and collects its output line by line. A read
// fault mid-stream is treated as connection loss: one reconnect attempt is
// made and the request itself fails with ErrStreamCorrupted.
func (t *DirectTransport) StreamingShell(cmd string) ([]string, error) {
	if !t.Available() {
		return nil, ErrNotAvailable
	}

	ctx, cancel := context.WithTimeout(context.Background(), shellTimeout)
	defer cancel()

	c := t.command(ctx, "-s", t.host, "shell", cmd)
	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := c.Start(); err != nil {
		log.Printf("Warning: streaming shell on %s failed to start: %v", t.host, err)
		t.setAvailable(false)
		return nil, ErrNotAvailable
	}

	var lines []string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	scanErr := scanner.Err()
	waitErr := c.Wait()

	if scanErr != nil || (waitErr != nil && ctx.Err() != nil) {
		t.setAvailable(false)
		if _, err := t.Connect(); err != nil {
			log.Printf("Warning: reconnect to %s failed: %v", t.host, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrStreamCorrupted, t.host)
	}
	return lines, nil
}
