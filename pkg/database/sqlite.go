package database

import (
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite opens a pure-Go SQLite database. SQLite has a single writer, so
// the pool is capped at one connection; for ":memory:" this also keeps every
// query on the same in-memory database. Transactions are therefore
// serialized by the pool, which stands in for row locks (SQLite ignores
// FOR UPDATE).
func OpenSQLite(path string, log logger.Interface) (*gorm.DB, error) {
	if log == nil {
		log = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: log})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if path != ":memory:" {
		db.Exec("PRAGMA journal_mode=WAL")
		db.Exec("PRAGMA busy_timeout=5000")
	}
	return db, nil
}
