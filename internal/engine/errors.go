package engine

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	"tablebuilder/internal/domain"
)

// MySQL server error numbers.
const (
	mysqlTableExists    = 1050
	mysqlBadField       = 1054
	mysqlDuplicateField = 1060
	mysqlNoSuchTable    = 1146
)

// mapStoreError turns driver errors for missing or duplicate objects into
// domain errors. Other errors are returned unchanged.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlNoSuchTable, mysqlBadField:
			return domain.ErrNotFound("%s", myErr.Message)
		case mysqlTableExists, mysqlDuplicateField:
			return domain.ErrConflict("%s", myErr.Message)
		}
		return err
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		msg := liteErr.Error()
		switch {
		case strings.HasPrefix(msg, "no such table"), strings.HasPrefix(msg, "no such column"):
			return domain.ErrNotFound("%s", msg)
		case strings.Contains(msg, "already exists"), strings.HasPrefix(msg, "duplicate column name"):
			return domain.ErrConflict("%s", msg)
		}
		return err
	}

	// duckdb reports catalog errors by message.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Catalog Error") && strings.Contains(msg, "does not exist"):
		return domain.ErrNotFound("%s", msg)
	case strings.Contains(msg, "Catalog Error") && strings.Contains(msg, "already exists"):
		return domain.ErrConflict("%s", msg)
	}
	return err
}
