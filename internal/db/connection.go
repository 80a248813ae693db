package db

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// Open opens the journal database at path and brings its schema up to date.
// SQLite allows one writer, so the pool is pinned to a single connection.
func Open(path string) (*gorm.DB, error) {
	gdb, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := MigrateUp(gdb); err != nil {
		_ = closeDB(gdb)
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		_ = closeDB(gdb)
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return gdb, nil
}

var (
	sqlitePragmas = []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
	}
	closeDB = Close
)

func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func openSQLite(path string) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	gdb, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	for _, pragma := range sqlitePragmas {
		if err := gdb.Exec(pragma).Error; err != nil {
			_ = closeDB(gdb)
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return gdb, nil
}
