// Package dbtest opens throwaway SQLite databases for package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a gorm handle on a fresh file database in t.TempDir() with the
// given models migrated. A single connection serializes transactions the way
// row locks do on MySQL.
func Open(t *testing.T, models ...any) *gorm.DB {
	t.Helper()
	return open(t, "?_busy_timeout=5000", 1, models)
}

// OpenPool is Open with a pool of conns connections, so transactions from
// different goroutines really overlap. The file runs in WAL mode and
// transactions begin IMMEDIATE, waiting on the busy timeout for the writer lock.
func OpenPool(t *testing.T, conns int, models ...any) *gorm.DB {
	t.Helper()
	return open(t, "?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL", conns, models)
}

func open(t *testing.T, params string, conns int, models []any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + params
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return db
}
