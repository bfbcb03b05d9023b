package domain

import (
	"context"
	"database/sql"
)

// TableRepository stores the logical schema (table and column definitions).
type TableRepository interface {
	Create(ctx context.Context, t *TableDefinition) (*TableDefinition, error)
	GetByName(ctx context.Context, name string) (*TableDefinition, error)
	List(ctx context.Context) ([]TableDefinition, error)
	ApplyChanges(ctx context.Context, name string, changes ChangeSet) (*TableDefinition, error)
	Delete(ctx context.Context, name string) error
	// WithTx returns a repository bound to tx. tx must belong to the metastore database.
	WithTx(tx *sql.Tx) TableRepository
}

// AuditRepository provides operations for audit log entries.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]AuditEntry, int64, error)
}
