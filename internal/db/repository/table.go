package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tablebuilder/internal/db/dbstore"
	"tablebuilder/internal/db/mapper"
	"tablebuilder/internal/domain"
)

// Compile-time check.
var _ domain.TableRepository = (*TableRepo)(nil)

// TableRepo stores table and column definitions.
type TableRepo struct {
	q  *dbstore.Queries
	db *sql.DB
	tx *sql.Tx
}

// NewTableRepo creates a TableRepo on the metastore write pool.
func NewTableRepo(db *sql.DB) *TableRepo {
	return &TableRepo{q: dbstore.New(db), db: db}
}

// WithTx returns a repository whose statements run inside tx.
func (r *TableRepo) WithTx(tx *sql.Tx) domain.TableRepository {
	return &TableRepo{q: r.q.WithTx(tx), db: r.db, tx: tx}
}

// inTx runs fn in the bound transaction, or in a new one.
func (r *TableRepo) inTx(ctx context.Context, fn func(q *dbstore.Queries) error) error {
	if r.tx != nil {
		return fn(r.q)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(r.q.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

// Create stores a new definition with its columns.
func (r *TableRepo) Create(ctx context.Context, t *domain.TableDefinition) (*domain.TableDefinition, error) {
	now := time.Now().UTC()
	out := &domain.TableDefinition{
		ID:        domain.NewID(),
		Name:      t.Name,
		Columns:   make([]domain.ColumnDefinition, 0, len(t.Columns)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.inTx(ctx, func(q *dbstore.Queries) error {
		if err := q.CreateTable(ctx, dbstore.CreateTableParams{
			ID: out.ID, Name: out.Name, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			if isConflict(err) {
				return domain.ErrConflict("table %q already exists", t.Name)
			}
			return err
		}
		for _, c := range t.Columns {
			col := domain.ColumnDefinition{ID: domain.NewID(), Name: c.Name, Type: c.Type, CreatedAt: now, UpdatedAt: now}
			if err := insertColumn(ctx, q, out.ID, col); err != nil {
				return err
			}
			out.Columns = append(out.Columns, col)
		}
		return nil
	})
	if err != nil {
		return nil, mapDBError(err)
	}
	out.SortColumns()
	return out, nil
}

// GetByName returns the definition of a table.
func (r *TableRepo) GetByName(ctx context.Context, name string) (*domain.TableDefinition, error) {
	t, err := r.q.GetTableByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("table %q not found", name)
	}
	if err != nil {
		return nil, err
	}
	cols, err := r.q.ListColumnsByTable(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return mapper.TableFromDB(t, cols), nil
}

// List returns every definition ordered by name.
func (r *TableRepo) List(ctx context.Context) ([]domain.TableDefinition, error) {
	tables, err := r.q.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	cols, err := r.q.ListAllColumns(ctx)
	if err != nil {
		return nil, err
	}

	byTable := make(map[string][]dbstore.DynamicColumn, len(tables))
	for _, c := range cols {
		byTable[c.TableID] = append(byTable[c.TableID], c)
	}

	out := make([]domain.TableDefinition, 0, len(tables))
	for _, t := range tables {
		out = append(out, *mapper.TableFromDB(t, byTable[t.ID]))
	}
	return out, nil
}

// ApplyChanges adds, removes and retypes stored columns. Retyped columns keep
// their ID and creation time.
func (r *TableRepo) ApplyChanges(ctx context.Context, name string, changes domain.ChangeSet) (*domain.TableDefinition, error) {
	now := time.Now().UTC()
	var tableID string

	err := r.inTx(ctx, func(q *dbstore.Queries) error {
		t, err := q.GetTableByName(ctx, name)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound("table %q not found", name)
		}
		if err != nil {
			return err
		}
		tableID = t.ID

		for _, c := range changes.Removed {
			n, err := q.DeleteColumn(ctx, dbstore.DeleteColumnParams{TableID: t.ID, Name: c.Name})
			if err != nil {
				return err
			}
			if n == 0 {
				return domain.ErrNotFound("column %q not found in table %q", c.Name, name)
			}
		}
		for _, c := range changes.Added {
			col := domain.ColumnDefinition{ID: domain.NewID(), Name: c.Name, Type: c.Type, CreatedAt: now, UpdatedAt: now}
			if err := insertColumn(ctx, q, t.ID, col); err != nil {
				if isConflict(err) {
					return domain.ErrConflict("column %q already exists in table %q", c.Name, name)
				}
				return err
			}
		}
		for _, rt := range changes.Retyped {
			n, err := q.UpdateColumnType(ctx, dbstore.UpdateColumnTypeParams{
				ColumnType: string(rt.NewType), UpdatedAt: now, TableID: t.ID, Name: rt.Name,
			})
			if err != nil {
				return err
			}
			if n == 0 {
				return domain.ErrNotFound("column %q not found in table %q", rt.Name, name)
			}
		}
		return q.TouchTable(ctx, dbstore.TouchTableParams{UpdatedAt: now, ID: t.ID})
	})
	if err != nil {
		return nil, mapDBError(err)
	}

	// Read back through the same connection so a bound tx sees its own writes.
	t, err := r.q.GetTableByName(ctx, name)
	if err != nil {
		return nil, mapDBError(err)
	}
	cols, err := r.q.ListColumnsByTable(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	return mapper.TableFromDB(t, cols), nil
}

// Delete removes a definition. Its columns are removed by cascade.
func (r *TableRepo) Delete(ctx context.Context, name string) error {
	n, err := r.q.DeleteTableByName(ctx, name)
	if err != nil {
		return mapDBError(err)
	}
	if n == 0 {
		return domain.ErrNotFound("table %q not found", name)
	}
	return nil
}

func insertColumn(ctx context.Context, q *dbstore.Queries, tableID string, c domain.ColumnDefinition) error {
	return q.InsertColumn(ctx, dbstore.InsertColumnParams{
		ID:         c.ID,
		TableID:    tableID,
		Name:       c.Name,
		ColumnType: string(c.Type),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	})
}

func isConflict(err error) bool {
	var conflict *domain.ConflictError
	return errors.As(mapDBError(err), &conflict)
}
