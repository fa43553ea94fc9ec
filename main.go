package main

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"firetvcontrol/api"
	"firetvcontrol/config"
	"firetvcontrol/service"
)

// setupLogging creates a log file in the log directory with timestamp
// Returns the log file handle (caller should defer Close())
func setupLogging() (*os.File, error) {
	// Create log directory if not exists
	logDir := "log"
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Create log file with timestamp: log/2026-08-23_21-52-35.log
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, timestamp+".log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Write to both console and file
	multiWriter := io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(multiWriter)
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	log.Printf("Logging to: %s", logPath)
	return logFile, nil
}

func main() {
	// Setup file logging
	logFile, err := setupLogging()
	if err != nil {
		log.Printf("Warning: Failed to setup file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting Fire TV Control Backend...")
	cfg := config.Load()

	// Registration store is optional; everything works process-lifetime
	// only without it.
	var db *sql.DB
	if cfg.DatabasePath != "off" {
		db, err = config.InitDatabase(cfg.DatabasePath)
		if err != nil {
			log.Printf("Warning: registration store disabled: %v", err)
			db = nil
		} else {
			defer db.Close()
		}
	}

	// Initialize services
	registry := service.NewDeviceRegistry(db, cfg.ADBPath)
	if err := registry.Load(); err != nil {
		log.Printf("Warning: couldn't restore devices: %v", err)
	}
	dispatcher := service.NewDispatcher(registry)

	// Initialize WebSocket hub and the state monitor feeding it
	wsHub := api.NewWebSocketHub()
	go wsHub.Run()

	monitor := service.NewStateMonitor(registry, wsHub, cfg.PollInterval)
	monitor.Start()
	defer monitor.Stop()

	// Setup HTTP server
	router := gin.Default()
	api.SetupRoutes(router, registry, dispatcher, wsHub)

	log.Printf("Server starting on %s", cfg.ListenAddr)
	log.Printf("WebSocket state feed on ws://localhost%s/ws", cfg.ListenAddr)

	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
