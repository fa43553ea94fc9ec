package service

import (
	"database/sql"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"

	goadb "github.com/zach-klippenstein/goadb"

	"firetvcontrol/adb"
)

// DeviceRegistry owns the device-id → session map for the process. It is
// constructed once at startup and injected into the boundary layer; there
// is no package-global registry. When a *sql.DB is supplied, registrations
// are also persisted so a restart re-registers known devices; the sessions
// themselves are always rebuilt from scratch.
type DeviceRegistry struct {
	adbPath string

	mu       sync.RWMutex
	sessions map[string]*Session
	relays   map[string]*goadb.Adb // shared relay clients, keyed by server address
	db       *sql.DB
}

func NewDeviceRegistry(db *sql.DB, adbPath string) *DeviceRegistry {
	return &DeviceRegistry{
		adbPath:  adbPath,
		sessions: make(map[string]*Session),
		relays:   make(map[string]*goadb.Adb),
		db:       db,
	}
}

// relayClient returns the shared client for serverAddr, dialing it on first
// use. The handle is reused across every device behind the same server.
func (r *DeviceRegistry) relayClient(serverAddr string) (*goadb.Adb, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.relays[serverAddr]; ok {
		return client, nil
	}
	host, portStr, err := net.SplitHostPort(serverAddr)
	if err != nil {
		return nil, fmt.Errorf("adb server address %q: %w", serverAddr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("adb server port %q: %w", portStr, err)
	}
	client, err := adb.NewServerClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("adb server client: %w", err)
	}
	r.relays[serverAddr] = client
	return client, nil
}

// Add registers a device and attempts a first connection. serverAddr
// selects the backend once, at construction: empty means a direct keyed
// connection, otherwise commands are relayed through that ADB server.
// Registering an existing id replaces its session.
func (r *DeviceRegistry) Add(deviceID, host, keyPath, serverAddr string) error {
	var transport adb.Transport
	if serverAddr == "" {
		direct, err := adb.NewDirect(r.adbPath, host, keyPath)
		if err != nil {
			return err
		}
		transport = direct
	} else {
		client, err := r.relayClient(serverAddr)
		if err != nil {
			return err
		}
		transport = adb.NewServer(client, host)
	}

	// Connect outside the registry lock: a slow first connect must not
	// block operations on other devices.
	session := NewSession(transport)
	if !session.Connect() {
		log.Printf("Device %s (%s) registered but not reachable yet", deviceID, host)
	}

	r.mu.Lock()
	r.sessions[deviceID] = session
	r.mu.Unlock()

	if r.db != nil {
		if err := r.persist(deviceID, host, keyPath, serverAddr); err != nil {
			log.Printf("Warning: couldn't persist device %s: %v", deviceID, err)
		}
	}
	return nil
}

func (r *DeviceRegistry) persist(deviceID, host, keyPath, serverAddr string) error {
	_, err := r.db.Exec(
		`INSERT INTO devices (device_id, host, adbkey, adb_server) VALUES (?, ?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET host=excluded.host, adbkey=excluded.adbkey, adb_server=excluded.adb_server`,
		deviceID, host, keyPath, serverAddr)
	return err
}

// Load re-registers every persisted device. Unreachable key files or relay
// servers are logged and skipped so one stale row cannot block startup.
func (r *DeviceRegistry) Load() error {
	if r.db == nil {
		return nil
	}
	rows, err := r.db.Query(`SELECT device_id, host, adbkey, adb_server FROM devices`)
	if err != nil {
		return fmt.Errorf("load devices: %w", err)
	}
	defer rows.Close()

	// Drain the result set before re-adding anything: Add writes back to
	// the same database.
	type registration struct {
		deviceID, host, keyPath, serverAddr string
	}
	var regs []registration
	for rows.Next() {
		var reg registration
		if err := rows.Scan(&reg.deviceID, &reg.host, &reg.keyPath, &reg.serverAddr); err != nil {
			return fmt.Errorf("load devices: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, reg := range regs {
		if err := r.Add(reg.deviceID, reg.host, reg.keyPath, reg.serverAddr); err != nil {
			log.Printf("Warning: couldn't restore device %s: %v", reg.deviceID, err)
		}
	}
	return nil
}

// Get returns the session for id, or nil.
func (r *DeviceRegistry) Get(deviceID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[deviceID]
}

// Remove tears down the registration. The reported bool is whether the
// device existed.
func (r *DeviceRegistry) Remove(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[deviceID]; !ok {
		return false
	}
	delete(r.sessions, deviceID)
	if r.db != nil {
		if _, err := r.db.Exec(`DELETE FROM devices WHERE device_id = ?`, deviceID); err != nil {
			log.Printf("Warning: couldn't delete device %s: %v", deviceID, err)
		}
	}
	return true
}

// All returns a copy of the registry.
func (r *DeviceRegistry) All() map[string]*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*Session, len(r.sessions))
	for id, session := range r.sessions {
		out[id] = session
	}
	return out
}
