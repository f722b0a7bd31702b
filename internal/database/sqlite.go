package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MemoryDSN is shared by every connection of the process so the pool sees
// one database.
const MemoryDSN = "file::memory:?cache=shared&_foreign_keys=1&_busy_timeout=5000"

func openSQLite(cfg Config) (*gorm.DB, error) {
	dsn, memory, err := buildSQLiteDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(cfg))
	if err != nil {
		return nil, err
	}

	if memory {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// A single connection keeps in-memory tables alive and serialises writers.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func buildSQLiteDSN(cfg Config) (string, bool, error) {
	if cfg.DSN != "" {
		return cfg.DSN, strings.Contains(cfg.DSN, ":memory:"), nil
	}

	path := strings.TrimSpace(cfg.Path)
	if path == "" || strings.EqualFold(path, ":memory:") {
		return MemoryDSN, true, nil
	}
	if err := ensureDir(path); err != nil {
		return "", false, err
	}
	return fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000", filepath.ToSlash(path)), false, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
