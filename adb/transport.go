// Package adb provides the shell transports used to reach a Fire TV
// device: a direct backend that owns a keyed connection to the device
// through the local adb daemon, and a relayed backend that talks to a
// remote ADB server holding the device connection.
package adb

import "errors"

// ErrStreamCorrupted reports a framing/read fault in the middle of a
// streaming shell read. The transport attempts exactly one reconnect
// before surfacing it; the original request is failed, not retried.
var ErrStreamCorrupted = errors.New("adb: streaming shell read corrupted")

// Transport runs shell-style commands on one device.
//
// Shell and StreamingShell fail with ErrNotAvailable while the device is
// unreachable. Callers treat that sentinel as the no-op-while-disconnected
// contract, not as a fault to report; other errors are genuine transport
// faults.
type Transport interface {
	// Connect (re)establishes the transport. The bool is the resulting
	// availability; failure to reach the device is swallowed into false.
	// The error reports faults beyond plain unreachability (for the
	// direct backend, e.g. a missing adb binary).
	Connect() (bool, error)

	// Available reports whether the device can currently be reached.
	// The direct backend answers from its liveness flag; the relayed
	// backend re-derives the answer from the relay's live roster.
	Available() bool

	Shell(cmd string) (string, error)
	StreamingShell(cmd string) ([]string, error)

	// Host is the device's address:port identity.
	Host() string
}
