package dbstore

import (
	"context"
	"time"
)

const createTable = `INSERT INTO dynamic_tables (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`

type CreateTableParams struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) error {
	_, err := q.db.ExecContext(ctx, createTable, arg.ID, arg.Name, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const getTableByName = `SELECT id, name, created_at, updated_at FROM dynamic_tables WHERE name = ?`

func (q *Queries) GetTableByName(ctx context.Context, name string) (DynamicTable, error) {
	var t DynamicTable
	err := q.db.QueryRowContext(ctx, getTableByName, name).Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

const listTables = `SELECT id, name, created_at, updated_at FROM dynamic_tables ORDER BY name`

func (q *Queries) ListTables(ctx context.Context) ([]DynamicTable, error) {
	rows, err := q.db.QueryContext(ctx, listTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var items []DynamicTable
	for rows.Next() {
		var t DynamicTable
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const touchTable = `UPDATE dynamic_tables SET updated_at = ? WHERE id = ?`

type TouchTableParams struct {
	UpdatedAt time.Time
	ID        string
}

func (q *Queries) TouchTable(ctx context.Context, arg TouchTableParams) error {
	_, err := q.db.ExecContext(ctx, touchTable, arg.UpdatedAt, arg.ID)
	return err
}

const deleteTableByName = `DELETE FROM dynamic_tables WHERE name = ?`

func (q *Queries) DeleteTableByName(ctx context.Context, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTableByName, name)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
