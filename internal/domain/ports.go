package domain

import (
	"context"
	"database/sql"
)

// SchemaCommit lets a caller persist logical state inside the unit of work of a
// physical schema change. Persist runs after every DDL statement succeeded and
// before the change becomes durable; tx is the data-store transaction, or nil
// when the store cannot run DDL transactionally. Revert undoes an out-of-band
// Persist when the physical change fails to commit afterwards.
type SchemaCommit struct {
	Persist func(ctx context.Context, tx *sql.Tx) error
	Revert  func(ctx context.Context) error
}

// PhysicalColumn is a column as introspected from the data store. Logical is
// the column type the store type maps to, or empty when it maps to none.
type PhysicalColumn struct {
	Name    string     `json:"name"`
	Type    string     `json:"type"`
	Logical ColumnType `json:"logical_type,omitempty"`
}

// SchemaExecutor applies structural changes to physical tables.
// Implemented by engine.Executor.
type SchemaExecutor interface {
	Create(ctx context.Context, table string, columns []Column, commit *SchemaCommit) error
	Apply(ctx context.Context, table string, changes ChangeSet, commit *SchemaCommit) error
	Drop(ctx context.Context, table string, columns []Column, commit *SchemaCommit) error
	TableExists(ctx context.Context, table string) (bool, error)
	DescribeTable(ctx context.Context, table string) ([]PhysicalColumn, error)
	// SharesTransaction reports whether the tx passed to SchemaCommit.Persist
	// belongs to the metastore database.
	SharesTransaction() bool
}

// RowStore reads and writes rows of physical tables.
// Implemented by engine.RowStore.
type RowStore interface {
	Insert(ctx context.Context, table string, columns []ColumnDefinition, row Row) (Row, error)
	List(ctx context.Context, table string, columns []ColumnDefinition, page PageRequest) ([]Row, int64, error)
}
