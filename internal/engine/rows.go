package engine

import (
	"context"
	"database/sql"
	"fmt"

	"tablebuilder/internal/ddl"
	"tablebuilder/internal/domain"
	"tablebuilder/internal/rowcodec"
)

// Compile-time check.
var _ domain.RowStore = (*RowStore)(nil)

// RowStore reads and writes rows of dynamic tables. Writes go through the
// write pool and reads through the read pool, which may be the same pool.
type RowStore struct {
	write   *sql.DB
	read    *sql.DB
	dialect ddl.Dialect
}

// NewRowStore creates a RowStore. A nil read pool falls back to write.
func NewRowStore(write, read *sql.DB, dialect ddl.Dialect) *RowStore {
	if read == nil {
		read = write
	}
	return &RowStore{write: write, read: read, dialect: dialect}
}

// Insert writes row and returns it with the generated identity.
func (s *RowStore) Insert(ctx context.Context, table string, columns []domain.ColumnDefinition, row domain.Row) (domain.Row, error) {
	names := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, c := range columns {
		v, ok := row.Values[c.Name]
		if !ok {
			return domain.Row{}, &domain.RowValidationError{Table: table, Column: c.Name, Reason: domain.MissingColumn}
		}
		names = append(names, c.Name)
		args = append(args, v.V)
	}

	stmt, err := ddl.Insert(s.dialect, table, names)
	if err != nil {
		return domain.Row{}, domain.ErrValidation("%s", err.Error())
	}

	var id int64
	if s.dialect.SupportsReturning() {
		if err := s.write.QueryRowContext(ctx, stmt, args...).Scan(&id); err != nil {
			return domain.Row{}, fmt.Errorf("insert into %q: %w", table, mapStoreError(err))
		}
	} else {
		res, err := s.write.ExecContext(ctx, stmt, args...)
		if err != nil {
			return domain.Row{}, fmt.Errorf("insert into %q: %w", table, mapStoreError(err))
		}
		if id, err = res.LastInsertId(); err != nil {
			return domain.Row{}, fmt.Errorf("insert into %q: last insert id: %w", table, err)
		}
	}

	out := domain.Row{ID: id, Values: make(map[string]domain.Value, len(row.Values))}
	for k, v := range row.Values {
		out.Values[k] = v
	}
	return out, nil
}

// List returns one page of rows ordered by identity, and the total row count.
func (s *RowStore) List(ctx context.Context, table string, columns []domain.ColumnDefinition, page domain.PageRequest) ([]domain.Row, int64, error) {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}

	countStmt, err := ddl.CountRows(s.dialect, table)
	if err != nil {
		return nil, 0, domain.ErrValidation("%s", err.Error())
	}
	selectStmt, err := ddl.SelectRows(s.dialect, table, names)
	if err != nil {
		return nil, 0, domain.ErrValidation("%s", err.Error())
	}

	var total int64
	if err := s.read.QueryRowContext(ctx, countStmt).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %q: %w", table, mapStoreError(err))
	}

	rows, err := s.read.QueryContext(ctx, selectStmt, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("select %q: %w", table, mapStoreError(err))
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.Row, 0)
	for rows.Next() {
		var id int64
		values := make([]any, len(columns))
		dest := make([]any, len(columns)+1)
		dest[0] = &id
		for i := range values {
			dest[i+1] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("scan %q: %w", table, err)
		}
		out = append(out, rowcodec.Encode(id, values, columns))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("select %q: %w", table, err)
	}
	return out, total, nil
}
