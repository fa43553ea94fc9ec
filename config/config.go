package config

import (
	"os"
	"time"
)

// Defaults, overridable through the environment.
const (
	DefaultListenAddr   = ":5556"
	DefaultADBPath      = "adb" // Assumes ADB is in PATH
	DefaultDatabasePath = "./data/firetvcontrol.db"
	DefaultPollInterval = 10 * time.Second
)

// Config carries the process-level settings. Device registrations are not
// configuration; they arrive through the API (and the optional database).
type Config struct {
	ListenAddr   string
	ADBPath      string
	DatabasePath string // "off" disables the registration store
	PollInterval time.Duration
}

// Load reads the configuration from the environment, falling back to the
// defaults above.
func Load() *Config {
	cfg := &Config{
		ListenAddr:   getEnv("FTV_LISTEN", DefaultListenAddr),
		ADBPath:      getEnv("FTV_ADB_PATH", DefaultADBPath),
		DatabasePath: getEnv("FTV_DB", DefaultDatabasePath),
		PollInterval: DefaultPollInterval,
	}
	if raw := os.Getenv("FTV_POLL_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.PollInterval = d
		}
	}
	return cfg
}

// getEnv gets environment variable with fallback default
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
