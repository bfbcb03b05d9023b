package dbstore

import (
	"context"
	"time"
)

const insertColumn = `INSERT INTO dynamic_columns (id, table_id, name, column_type, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`

type InsertColumnParams struct {
	ID         string
	TableID    string
	Name       string
	ColumnType string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (q *Queries) InsertColumn(ctx context.Context, arg InsertColumnParams) error {
	_, err := q.db.ExecContext(ctx, insertColumn, arg.ID, arg.TableID, arg.Name, arg.ColumnType, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const listColumnsByTable = `SELECT id, table_id, name, column_type, created_at, updated_at FROM dynamic_columns WHERE table_id = ? ORDER BY name`

func (q *Queries) ListColumnsByTable(ctx context.Context, tableID string) ([]DynamicColumn, error) {
	return q.listColumns(ctx, listColumnsByTable, tableID)
}

const listAllColumns = `SELECT id, table_id, name, column_type, created_at, updated_at FROM dynamic_columns ORDER BY table_id, name`

func (q *Queries) ListAllColumns(ctx context.Context) ([]DynamicColumn, error) {
	return q.listColumns(ctx, listAllColumns)
}

func (q *Queries) listColumns(ctx context.Context, query string, args ...interface{}) ([]DynamicColumn, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var items []DynamicColumn
	for rows.Next() {
		var c DynamicColumn
		if err := rows.Scan(&c.ID, &c.TableID, &c.Name, &c.ColumnType, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const deleteColumn = `DELETE FROM dynamic_columns WHERE table_id = ? AND name = ?`

type DeleteColumnParams struct {
	TableID string
	Name    string
}

func (q *Queries) DeleteColumn(ctx context.Context, arg DeleteColumnParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteColumn, arg.TableID, arg.Name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateColumnType = `UPDATE dynamic_columns SET column_type = ?, updated_at = ? WHERE table_id = ? AND name = ?`

type UpdateColumnTypeParams struct {
	ColumnType string
	UpdatedAt  time.Time
	TableID    string
	Name       string
}

func (q *Queries) UpdateColumnType(ctx context.Context, arg UpdateColumnTypeParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateColumnType, arg.ColumnType, arg.UpdatedAt, arg.TableID, arg.Name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
