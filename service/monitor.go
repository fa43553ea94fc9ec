package service

import (
	"log"
	"sync"
	"time"

	"firetvcontrol/models"
)

// StateBroadcaster receives state transitions; the websocket hub implements
// it. An interface keeps the service layer free of the api package.
type StateBroadcaster interface {
	BroadcastState(deviceID string, state models.State)
}

// StateMonitor polls every registered device and broadcasts a message each
// time a device's derived state changes. Devices are probed concurrently
// with each other (per-session serialization already lives in the session
// lock), and a device still mid-probe is skipped on the next tick instead
// of stacking up goroutines.
type StateMonitor struct {
	registry *DeviceRegistry
	hub      StateBroadcaster
	interval time.Duration

	mu         sync.Mutex
	lastStates map[string]models.State
	inFlight   map[string]bool

	stop chan struct{}
	done chan struct{}
}

func NewStateMonitor(registry *DeviceRegistry, hub StateBroadcaster, interval time.Duration) *StateMonitor {
	return &StateMonitor{
		registry:   registry,
		hub:        hub,
		interval:   interval,
		lastStates: make(map[string]models.State),
		inFlight:   make(map[string]bool),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the poll loop.
func (m *StateMonitor) Start() {
	go m.run()
	log.Printf("State monitor polling every %s", m.interval)
}

// Stop halts the poll loop and waits for it to exit. Probes already in
// flight finish on their own.
func (m *StateMonitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *StateMonitor) run() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.poll()
		case <-m.stop:
			return
		}
	}
}

func (m *StateMonitor) poll() {
	sessions := m.registry.All()

	m.mu.Lock()
	// Forget devices that were removed from the registry.
	for id := range m.lastStates {
		if _, ok := sessions[id]; !ok {
			delete(m.lastStates, id)
		}
	}
	m.mu.Unlock()

	for id, session := range sessions {
		m.mu.Lock()
		busy := m.inFlight[id]
		if !busy {
			m.inFlight[id] = true
		}
		m.mu.Unlock()
		if busy {
			continue
		}

		go func(id string, session *Session) {
			state := session.State()

			m.mu.Lock()
			delete(m.inFlight, id)
			last, seen := m.lastStates[id]
			m.lastStates[id] = state
			m.mu.Unlock()

			if !seen || last != state {
				log.Printf("Device %s state: %s", id, state)
				if m.hub != nil {
					m.hub.BroadcastState(id, state)
				}
			}
		}(id, session)
	}
}
