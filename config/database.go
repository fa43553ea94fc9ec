package config

import (
	"database/sql"
	"log"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	device_id  TEXT PRIMARY KEY,
	host       TEXT NOT NULL,
	adbkey     TEXT NOT NULL DEFAULT '',
	adb_server TEXT NOT NULL DEFAULT ''
);`

// InitDatabase opens the SQLite registration store and applies the schema.
func InitDatabase(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Println("Database initialized successfully")
	return db, nil
}
