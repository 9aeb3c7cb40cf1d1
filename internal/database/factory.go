package database

import (
	"fmt"
	"os"
	"path/filepath"

	"dirsnap/internal/config"
)

// DatabaseFilename is the journal file inside the configured data dir.
const DatabaseFilename = "dirsnap.db"

// NewDatabaseFromConfig opens the journal described by cfg. The data dir is
// created if needed.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, DatabaseFilename), nil)
	case "memory":
		return NewSQLiteDatabase(":memory:", nil)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
