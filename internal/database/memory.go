package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenMemory opens a migrated in-memory sqlite database. All connections
// share one cache and the pool is capped at a single connection, so
// transactions are serialised the way a row lock would serialise them.
func OpenMemory(name string) (*gorm.DB, error) {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	db, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name), logger.Silent)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenFile opens a migrated sqlite database at path with a pool of several
// connections. WAL lets readers run beside the single writer, and writers
// wait on the busy timeout instead of failing.
func OpenFile(path string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate&_foreign_keys=1", path)
	db, err := Open("sqlite", dsn, logger.Silent)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(8)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
