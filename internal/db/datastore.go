package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register "duckdb"
	"github.com/go-sql-driver/mysql"

	"tablebuilder/internal/ddl"
)

// DataStore holds the pools used for dynamic tables.
//
// With the sqlite driver the data store is the metastore itself: Write and
// Read are the metastore pools and Shared is true, so schema changes and
// metadata commit in one transaction.
type DataStore struct {
	Dialect ddl.Dialect
	Write   *sql.DB
	Read    *sql.DB
	Shared  bool
	owned   bool
}

// Close releases pools the data store opened itself.
func (s *DataStore) Close() error {
	if !s.owned {
		return nil
	}
	if s.Read != nil && s.Read != s.Write {
		_ = s.Read.Close()
	}
	return s.Write.Close()
}

// OpenDataStore opens the data store for driver. metaWrite and metaRead are
// reused for the sqlite driver and ignored otherwise.
func OpenDataStore(ctx context.Context, driver, dsn string, metaWrite, metaRead *sql.DB) (*DataStore, error) {
	dialect, err := ddl.DialectFor(driver)
	if err != nil {
		return nil, err
	}

	switch dialect.Name() {
	case ddl.DriverSQLite:
		if dsn != "" {
			return nil, fmt.Errorf("DATA_DSN must be empty for the sqlite data driver")
		}
		return &DataStore{Dialect: dialect, Write: metaWrite, Read: metaRead, Shared: true}, nil
	case ddl.DriverDuckDB:
		db, err := OpenDuckDB(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &DataStore{Dialect: dialect, Write: db, Read: db, owned: true}, nil
	case ddl.DriverMySQL:
		db, err := OpenMySQL(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return &DataStore{Dialect: dialect, Write: db, Read: db, owned: true}, nil
	}
	return nil, fmt.Errorf("unsupported data driver %q", driver)
}

// OpenDuckDB opens a DuckDB database. An empty path opens an in-memory database.
func OpenDuckDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := pingWithTimeout(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	return db, nil
}

// OpenMySQL opens a MySQL pool. The DSN is normalised so that TIMESTAMP
// columns scan into time.Time and multi-statement strings are rejected.
func OpenMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysqlConfig(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetConnMaxIdleTime(60 * time.Second)
	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(64)

	if err := pingWithTimeout(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

func mysqlConfig(dsn string) (*mysql.Config, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("mysql dsn must name a database")
	}
	cfg.ParseTime = true
	cfg.MultiStatements = false
	return cfg, nil
}

func pingWithTimeout(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}
