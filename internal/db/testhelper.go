package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

// OpenTestSQLite returns a migrated metastore pool pair backed by a file in
// t.TempDir(). Both pools are closed when the test ends.
func OpenTestSQLite(t testing.TB) (writeDB, readDB *sql.DB) {
	t.Helper()

	writeDB, readDB, err := OpenSQLitePair(filepath.Join(t.TempDir(), "meta.sqlite"), 4)
	if err != nil {
		t.Fatalf("open test metastore: %v", err)
	}
	t.Cleanup(func() {
		_ = readDB.Close()
		_ = writeDB.Close()
	})

	if _, err := RunMigrations(context.Background(), writeDB); err != nil {
		t.Fatalf("migrate test metastore: %v", err)
	}
	return writeDB, readDB
}
