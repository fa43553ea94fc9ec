package adb

import (
	"log"
	"strings"
	"sync"

	goadb "github.com/zach-klippenstein/goadb"
)

// NewServerClient dials the ADB server at host:port and returns the shared
// relay handle. One client is reused across every device registered against
// the same server; its roster query is read-only and safe to call from
// multiple sessions.
func NewServerClient(host string, port int) (*goadb.Adb, error) {
	return goadb.NewWithConfig(goadb.ServerConfig{Host: host, Port: port})
}

// ServerTransport reaches the device through an intermediary ADB server
// that itself holds the device connection. Availability is never cached
// optimistically: the server may drop a device without notifying us, so
// every check re-derives the answer from the live roster.
type ServerTransport struct {
	client *goadb.Adb
	device *goadb.Device
	host   string

	// lastAvailable only remembers the previous answer so roster
	// transitions are logged once, not on every poll.
	mu            sync.Mutex
	lastAvailable bool
}

// NewServer builds a relayed transport for host using the shared client.
func NewServer(client *goadb.Adb, host string) *ServerTransport {
	return &ServerTransport{
		client: client,
		device: client.Device(goadb.DeviceWithSerial(host)),
		host:   host,
	}
}

func (t *ServerTransport) Host() string { return t.host }

// Connect refreshes the device handle against the relay. Relay errors are
// swallowed into available=false; the caller retries later.
func (t *ServerTransport) Connect() (bool, error) {
	t.device = t.client.Device(goadb.DeviceWithSerial(t.host))
	return t.Available(), nil
}

// Available queries the relay's live device roster.
func (t *ServerTransport) Available() bool {
	devices, err := t.client.ListDevices()
	if err != nil {
		t.transition(false, "ADB server unreachable: "+err.Error())
		return false
	}
	for _, d := range devices {
		if strings.Contains(d.Serial, t.host) {
			t.transition(true, "")
			return true
		}
	}
	t.transition(false, "ADB server is not connected to "+t.host)
	return false
}

// transition records the roster answer and logs only on a flip.
func (t *ServerTransport) transition(available bool, reason string) {
	t.mu.Lock()
	was := t.lastAvailable
	t.lastAvailable = available
	t.mu.Unlock()
	if was == available {
		return
	}
	if available {
		log.Printf("ADB server connection to %s re-established", t.host)
	} else {
		log.Printf("Warning: %s", reason)
	}
}

func (t *ServerTransport) Shell(cmd string) (string, error) {
	if !t.Available() {
		return "", ErrNotAvailable
	}
	out, err := t.device.RunCommand(cmd)
	if err != nil {
		log.Printf("Warning: shell on %s via ADB server failed: %v", t.host, err)
		t.transition(false, "shell command failed against "+t.host)
		return "", ErrNotAvailable
	}
	return out, nil
}

// StreamingShell is a documented capability gap of the relayed backend.
func (t *ServerTransport) StreamingShell(cmd string) ([]string, error) {
	return []string{}, nil
}
