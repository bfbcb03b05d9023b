package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationResult reports what a migration run did.
type MigrationResult struct {
	Applied []int64 // versions applied by this run, in order
	Version int64   // metastore schema version after the run
}

func newMigrationProvider(db *sql.DB) (*goose.Provider, error) {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations fs: %w", err)
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}

// RunMigrations applies every pending metastore migration. Run it on the
// write pool.
func RunMigrations(ctx context.Context, db *sql.DB) (*MigrationResult, error) {
	p, err := newMigrationProvider(db)
	if err != nil {
		return nil, err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}

	res := &MigrationResult{}
	for _, r := range results {
		res.Applied = append(res.Applied, r.Source.Version)
	}
	if res.Version, err = p.GetDBVersion(ctx); err != nil {
		return nil, fmt.Errorf("goose version: %w", err)
	}
	return res, nil
}

// MigrationVersion returns the current metastore schema version.
func MigrationVersion(ctx context.Context, db *sql.DB) (int64, error) {
	p, err := newMigrationProvider(db)
	if err != nil {
		return 0, err
	}
	v, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose version: %w", err)
	}
	return v, nil
}
