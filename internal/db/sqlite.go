// Package db opens the metastore and data-store connection pools and runs
// metastore migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3" // register "sqlite3"
)

// PoolMode selects how a SQLite pool is configured.
type PoolMode string

// SQLite pool modes.
const (
	// ModeWrite is a single-connection pool that takes the write lock at BEGIN.
	ModeWrite PoolMode = "write"
	// ModeRead is a multi-connection pool for concurrent readers.
	ModeRead PoolMode = "read"
)

const (
	busyTimeoutMs    = "5000"
	defaultReadConns = 4
	pingTimeout      = 5 * time.Second
)

// OpenSQLite opens a pool for the SQLite file at path. Every connection runs in
// WAL mode with foreign keys on. maxOpen only applies to ModeRead (0 means 4).
func OpenSQLite(path string, mode PoolMode, maxOpen int) (*sql.DB, error) {
	if mode != ModeRead && mode != ModeWrite {
		return nil, fmt.Errorf("invalid SQLite mode %q: must be \"read\" or \"write\"", mode)
	}

	db, err := sql.Open("sqlite3", buildDSN(path, mode))
	if err != nil {
		return nil, fmt.Errorf("open sqlite (%s): %w", mode, err)
	}

	if mode == ModeWrite {
		maxOpen = 1
	} else if maxOpen <= 0 {
		maxOpen = defaultReadConns
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite (%s): %w", mode, err)
	}
	return db, nil
}

// OpenSQLitePair opens a write pool and a read pool on the same file.
// All metastore writes go through writeDB so they serialize in-process.
func OpenSQLitePair(path string, readMaxOpen int) (writeDB, readDB *sql.DB, err error) {
	writeDB, err = OpenSQLite(path, ModeWrite, 0)
	if err != nil {
		return nil, nil, err
	}

	readDB, err = OpenSQLite(path, ModeRead, readMaxOpen)
	if err != nil {
		_ = writeDB.Close()
		return nil, nil, err
	}
	return writeDB, readDB, nil
}

func buildDSN(path string, mode PoolMode) string {
	params := url.Values{}
	params.Set("_journal_mode", "WAL")
	params.Set("_busy_timeout", busyTimeoutMs)
	params.Set("_synchronous", "NORMAL")
	params.Set("_foreign_keys", "on")
	if mode == ModeWrite {
		params.Set("_txlock", "immediate")
	}
	return path + "?" + params.Encode()
}
