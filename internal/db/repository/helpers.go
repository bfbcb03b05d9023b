// Package repository implements domain repository interfaces on the SQLite metastore.
package repository

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"

	"tablebuilder/internal/domain"
)

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return &domain.ConflictError{Message: "resource already exists"}
		}
	}
	return err
}
