// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase.
package testutil

import (
	"context"
	"database/sql"
	"sync"

	"tablebuilder/internal/domain"
)

// === Audit Repository Mock ===

// MockAuditRepo implements domain.AuditRepository for testing.
type MockAuditRepo struct {
	InsertFn func(ctx context.Context, e *domain.AuditEntry) error
	ListFn   func(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error)

	mu      sync.Mutex
	Entries []*domain.AuditEntry // collected entries for assertions
}

// Insert implements the interface method for testing.
func (m *MockAuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Entries = append(m.Entries, e)
	m.mu.Unlock()
	return nil
}

// List implements the interface method for testing.
func (m *MockAuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, filter)
	}
	panic("unexpected call to MockAuditRepo.List")
}

// LastEntry returns the last collected audit entry, or nil if none.
func (m *MockAuditRepo) LastEntry() *domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Entries) == 0 {
		return nil
	}
	return m.Entries[len(m.Entries)-1]
}

// HasAction returns true if any collected entry has the given action.
func (m *MockAuditRepo) HasAction(action string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Entries {
		if e.Action == action {
			return true
		}
	}
	return false
}

// === Table Repository Mock ===

// MockTableRepo implements domain.TableRepository for testing.
type MockTableRepo struct {
	CreateFn       func(ctx context.Context, t *domain.TableDefinition) (*domain.TableDefinition, error)
	GetByNameFn    func(ctx context.Context, name string) (*domain.TableDefinition, error)
	ListFn         func(ctx context.Context) ([]domain.TableDefinition, error)
	ApplyChangesFn func(ctx context.Context, name string, changes domain.ChangeSet) (*domain.TableDefinition, error)
	DeleteFn       func(ctx context.Context, name string) error
}

func (m *MockTableRepo) Create(ctx context.Context, t *domain.TableDefinition) (*domain.TableDefinition, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, t)
	}
	panic("unexpected call to MockTableRepo.Create")
}

func (m *MockTableRepo) GetByName(ctx context.Context, name string) (*domain.TableDefinition, error) {
	if m.GetByNameFn != nil {
		return m.GetByNameFn(ctx, name)
	}
	panic("unexpected call to MockTableRepo.GetByName")
}

func (m *MockTableRepo) List(ctx context.Context) ([]domain.TableDefinition, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	panic("unexpected call to MockTableRepo.List")
}

func (m *MockTableRepo) ApplyChanges(ctx context.Context, name string, changes domain.ChangeSet) (*domain.TableDefinition, error) {
	if m.ApplyChangesFn != nil {
		return m.ApplyChangesFn(ctx, name, changes)
	}
	panic("unexpected call to MockTableRepo.ApplyChanges")
}

func (m *MockTableRepo) Delete(ctx context.Context, name string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, name)
	}
	panic("unexpected call to MockTableRepo.Delete")
}

// WithTx returns the mock itself.
func (m *MockTableRepo) WithTx(_ *sql.Tx) domain.TableRepository {
	return m
}

// === Schema Executor Mock ===

// MockSchemaExecutor implements domain.SchemaExecutor for testing. When a
// *Fn field is nil the operation succeeds and runs commit.Persist with a nil tx.
type MockSchemaExecutor struct {
	CreateFn        func(ctx context.Context, table string, columns []domain.Column, commit *domain.SchemaCommit) error
	ApplyFn         func(ctx context.Context, table string, changes domain.ChangeSet, commit *domain.SchemaCommit) error
	DropFn          func(ctx context.Context, table string, columns []domain.Column, commit *domain.SchemaCommit) error
	TableExistsFn   func(ctx context.Context, table string) (bool, error)
	DescribeTableFn func(ctx context.Context, table string) ([]domain.PhysicalColumn, error)
	Shared          bool
}

func (m *MockSchemaExecutor) Create(ctx context.Context, table string, columns []domain.Column, commit *domain.SchemaCommit) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, table, columns, commit)
	}
	return persist(ctx, commit)
}

func (m *MockSchemaExecutor) Apply(ctx context.Context, table string, changes domain.ChangeSet, commit *domain.SchemaCommit) error {
	if m.ApplyFn != nil {
		return m.ApplyFn(ctx, table, changes, commit)
	}
	return persist(ctx, commit)
}

func (m *MockSchemaExecutor) Drop(ctx context.Context, table string, columns []domain.Column, commit *domain.SchemaCommit) error {
	if m.DropFn != nil {
		return m.DropFn(ctx, table, columns, commit)
	}
	return persist(ctx, commit)
}

func (m *MockSchemaExecutor) TableExists(ctx context.Context, table string) (bool, error) {
	if m.TableExistsFn != nil {
		return m.TableExistsFn(ctx, table)
	}
	panic("unexpected call to MockSchemaExecutor.TableExists")
}

func (m *MockSchemaExecutor) DescribeTable(ctx context.Context, table string) ([]domain.PhysicalColumn, error) {
	if m.DescribeTableFn != nil {
		return m.DescribeTableFn(ctx, table)
	}
	panic("unexpected call to MockSchemaExecutor.DescribeTable")
}

func (m *MockSchemaExecutor) SharesTransaction() bool { return m.Shared }

func persist(ctx context.Context, commit *domain.SchemaCommit) error {
	if commit == nil || commit.Persist == nil {
		return nil
	}
	return commit.Persist(ctx, nil)
}

// === Row Store Mock ===

// MockRowStore implements domain.RowStore for testing.
type MockRowStore struct {
	InsertFn func(ctx context.Context, table string, columns []domain.ColumnDefinition, row domain.Row) (domain.Row, error)
	ListFn   func(ctx context.Context, table string, columns []domain.ColumnDefinition, page domain.PageRequest) ([]domain.Row, int64, error)
}

func (m *MockRowStore) Insert(ctx context.Context, table string, columns []domain.ColumnDefinition, row domain.Row) (domain.Row, error) {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, table, columns, row)
	}
	panic("unexpected call to MockRowStore.Insert")
}

func (m *MockRowStore) List(ctx context.Context, table string, columns []domain.ColumnDefinition, page domain.PageRequest) ([]domain.Row, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, table, columns, page)
	}
	panic("unexpected call to MockRowStore.List")
}
