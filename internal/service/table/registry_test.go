package table

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	internaldb "tablebuilder/internal/db"
	"tablebuilder/internal/db/repository"
	"tablebuilder/internal/ddl"
	"tablebuilder/internal/domain"
	"tablebuilder/internal/engine"
	"tablebuilder/internal/testutil"
)

type registryFixture struct {
	reg     *Registry
	exec    *engine.Executor
	repo    *repository.TableRepo
	audit   *testutil.MockAuditRepo
	writeDB *sql.DB
}

func setupRegistry(t *testing.T) *registryFixture {
	t.Helper()
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	exec := engine.NewExecutor(writeDB, ddl.SQLiteDialect{}, true, nil)
	rows := engine.NewRowStore(writeDB, readDB, ddl.SQLiteDialect{})
	repo := repository.NewTableRepo(writeDB)
	audit := &testutil.MockAuditRepo{}

	reg := NewRegistry(repo, exec, rows, audit, nil)
	require.NoError(t, reg.Load(context.Background()))
	return &registryFixture{reg: reg, exec: exec, repo: repo, audit: audit, writeDB: writeDB}
}

func specs(pairs ...string) []domain.ColumnSpec {
	out := make([]domain.ColumnSpec, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.ColumnSpec{Name: pairs[i], Type: pairs[i+1]})
	}
	return out
}

func columnState(t *testing.T, reg *Registry, table string) map[string]domain.ColumnType {
	t.Helper()
	cols, err := reg.GetColumns(table)
	require.NoError(t, err)
	m := make(map[string]domain.ColumnType, len(cols))
	for _, c := range cols {
		m[c.Name] = c.Type
	}
	return m
}

func physicalState(t *testing.T, exec *engine.Executor, table string) map[string]domain.ColumnType {
	t.Helper()
	cols, err := exec.DescribeTable(context.Background(), table)
	require.NoError(t, err)
	m := make(map[string]domain.ColumnType, len(cols))
	for _, c := range cols {
		if c.Name == domain.RowIDColumn {
			continue
		}
		m[c.Name] = c.Logical
	}
	return m
}

func TestRegistry_CreateThenGetColumns(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	def, err := f.reg.CreateTable(ctx, "t", specs("a", "integer"))
	require.NoError(t, err)
	assert.Equal(t, "t", def.Name)
	assert.NotEmpty(t, def.ID)
	require.Len(t, def.Columns, 1)
	assert.NotEmpty(t, def.Columns[0].ID)

	want := map[string]domain.ColumnType{"a": domain.ColumnInteger}
	assert.Equal(t, want, columnState(t, f.reg, "t"))
	assert.Equal(t, want, physicalState(t, f.exec, "t"))

	stored, err := f.repo.GetByName(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, def.ID, stored.ID)
}

func TestRegistry_CreateTable_Errors(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()
	_, err := f.reg.CreateTable(ctx, "taken", nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		table   string
		columns []domain.ColumnSpec
		wantErr string
	}{
		{name: "invalid_table", table: "Bad", wantErr: "invalid table name"},
		{name: "reserved_table", table: "audit_log", wantErr: "reserved"},
		{name: "invalid_column", table: "t", columns: specs("1a", "text"), wantErr: "invalid column name"},
		{name: "identity_column", table: "t", columns: specs("id", "integer"), wantErr: "row identity column"},
		{name: "duplicate_column", table: "t", columns: specs("a", "text", "a", "integer"), wantErr: "duplicate column"},
		{name: "unknown_type", table: "t", columns: specs("a", "float"), wantErr: "unknown column type"},
		{name: "already_exists", table: "taken", wantErr: "already exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reg.CreateTable(ctx, tt.table, tt.columns)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	exists, err := f.exec.TableExists(ctx, "t")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRegistry_CreateTable_AcceptsLegacyTypeNames(t *testing.T) {
	f := setupRegistry(t)
	_, err := f.reg.CreateTable(context.Background(), "legacy", specs("title", "Char", "n", "Integer", "ok", "Boolean"))
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.ColumnType{
		"title": domain.ColumnText,
		"n":     domain.ColumnInteger,
		"ok":    domain.ColumnBoolean,
	}, columnState(t, f.reg, "legacy"))
}

func TestRegistry_UpdateSequence(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	_, err := f.reg.CreateTable(ctx, "t", specs("a", "text"))
	require.NoError(t, err)
	_, err = f.reg.InsertRow(ctx, "t", map[string]any{"a": "first"})
	require.NoError(t, err)

	_, err = f.reg.UpdateTable(ctx, "t", specs("a", "text", "b", "integer"))
	require.NoError(t, err)
	want := map[string]domain.ColumnType{"a": domain.ColumnText, "b": domain.ColumnInteger}
	assert.Equal(t, want, columnState(t, f.reg, "t"))
	assert.Equal(t, want, physicalState(t, f.exec, "t"))

	_, err = f.reg.InsertRow(ctx, "t", map[string]any{"a": "second", "b": 2})
	require.NoError(t, err)

	_, err = f.reg.UpdateTable(ctx, "t", specs("b", "integer"))
	require.NoError(t, err)
	want = map[string]domain.ColumnType{"b": domain.ColumnInteger}
	assert.Equal(t, want, columnState(t, f.reg, "t"))
	assert.Equal(t, want, physicalState(t, f.exec, "t"))

	rows, total, err := f.reg.ListRows(ctx, "t", domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, rows, 2)
	for _, r := range rows {
		_, ok := r.Get("a")
		assert.False(t, ok, "removed column a still present in row %d", r.ID)
	}
	first, _ := rows[0].Get("b")
	second, _ := rows[1].Get("b")
	assert.Nil(t, first)
	assert.Equal(t, int64(2), second)
}

func TestRegistry_RetypeRecreatesColumnEmpty(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	_, err := f.reg.CreateTable(ctx, "t", specs("a", "text", "c", "integer"))
	require.NoError(t, err)
	before, err := f.repo.GetByName(ctx, "t")
	require.NoError(t, err)
	_, err = f.reg.InsertRow(ctx, "t", map[string]any{"a": "abc", "c": 5})
	require.NoError(t, err)

	def, err := f.reg.UpdateTable(ctx, "t", specs("a", "integer", "c", "integer"))
	require.NoError(t, err)

	a, ok := def.Column("a")
	require.True(t, ok)
	assert.Equal(t, domain.ColumnInteger, a.Type)
	prevA, _ := before.Column("a")
	assert.Equal(t, prevA.ID, a.ID, "retyped column keeps its identity")

	rows, _, err := f.reg.ListRows(ctx, "t", domain.PageRequest{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	av, _ := rows[0].Get("a")
	cv, _ := rows[0].Get("c")
	assert.Nil(t, av)
	assert.Equal(t, int64(5), cv)
}

func TestRegistry_UpdateNoOp(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	created, err := f.reg.CreateTable(ctx, "t", specs("a", "text"))
	require.NoError(t, err)

	def, err := f.reg.UpdateTable(ctx, "t", specs("a", "text"))
	require.NoError(t, err)
	assert.Equal(t, created.Columns[0].ID, def.Columns[0].ID)

	last := f.audit.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, domain.ActionUpdateTable, last.Action)
	assert.Nil(t, last.Detail)
}

func TestRegistry_UpdateTable_Errors(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()
	_, err := f.reg.CreateTable(ctx, "t", specs("a", "text"))
	require.NoError(t, err)

	_, err = f.reg.UpdateTable(ctx, "missing", specs("a", "text"))
	var notFound *domain.NotFoundError
	assert.True(t, errors.As(err, &notFound))

	_, err = f.reg.UpdateTable(ctx, "t", specs("a", "text", "a", "integer"))
	var validation *domain.ValidationError
	assert.True(t, errors.As(err, &validation))

	_, err = f.reg.UpdateTable(ctx, "t", specs("b", "decimal"))
	var unknown *domain.UnknownTypeError
	assert.True(t, errors.As(err, &unknown))

	assert.Equal(t, map[string]domain.ColumnType{"a": domain.ColumnText}, columnState(t, f.reg, "t"))
}

func TestRegistry_DeleteThenNotFound(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	_, err := f.reg.CreateTable(ctx, "t", specs("a", "text"))
	require.NoError(t, err)
	_, err = f.reg.InsertRow(ctx, "t", map[string]any{"a": "x"})
	require.NoError(t, err)

	require.NoError(t, f.reg.DeleteTable(ctx, "t"))

	var notFound *domain.NotFoundError
	_, err = f.reg.GetColumns("t")
	assert.True(t, errors.As(err, &notFound))
	_, err = f.reg.GetTable(ctx, "t")
	assert.True(t, errors.As(err, &notFound))
	_, err = f.reg.InsertRow(ctx, "t", map[string]any{"a": "y"})
	assert.True(t, errors.As(err, &notFound))
	_, _, err = f.reg.ListRows(ctx, "t", domain.PageRequest{})
	assert.True(t, errors.As(err, &notFound))
	_, err = f.repo.GetByName(ctx, "t")
	assert.True(t, errors.As(err, &notFound))

	exists, err := f.exec.TableExists(ctx, "t")
	require.NoError(t, err)
	assert.False(t, exists)

	err = f.reg.DeleteTable(ctx, "t")
	assert.True(t, errors.As(err, &notFound))

	// The name is free again.
	_, err = f.reg.CreateTable(ctx, "t", specs("b", "boolean"))
	require.NoError(t, err)
}

func TestRegistry_InsertRowViolations(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()
	_, err := f.reg.CreateTable(ctx, "t", specs("n", "integer", "s", "text"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		fields map[string]any
		reason domain.RowViolation
		column string
	}{
		{name: "missing", fields: map[string]any{"n": 1}, reason: domain.MissingColumn, column: "s"},
		{name: "unknown", fields: map[string]any{"n": 1, "s": "x", "z": true}, reason: domain.UnknownColumn, column: "z"},
		{name: "mismatch", fields: map[string]any{"n": "abc", "s": "x"}, reason: domain.TypeMismatch, column: "n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reg.InsertRow(ctx, "t", tt.fields)
			var rowErr *domain.RowValidationError
			require.True(t, errors.As(err, &rowErr))
			assert.Equal(t, tt.reason, rowErr.Reason)
			assert.Equal(t, tt.column, rowErr.Column)
			assert.Equal(t, "t", rowErr.Table)
		})
	}

	_, total, err := f.reg.ListRows(ctx, "t", domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestRegistry_InsertAndListRows(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()
	_, err := f.reg.CreateTable(ctx, "people", specs("name", "text", "age", "integer", "active", "boolean"))
	require.NoError(t, err)

	row, err := f.reg.InsertRow(ctx, "people", map[string]any{"name": "  Ada ", "age": "36", "active": "yes"})
	require.NoError(t, err)
	assert.NotZero(t, row.ID)

	for i := 0; i < 4; i++ {
		_, err := f.reg.InsertRow(ctx, "people", map[string]any{"name": "x", "age": i, "active": false})
		require.NoError(t, err)
	}

	page := domain.PageRequest{MaxResults: 2}
	rows, total, err := f.reg.ListRows(ctx, "people", page)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, rows, 2)
	assert.Equal(t, row.ID, rows[0].ID)
	name, _ := rows[0].Get("name")
	age, _ := rows[0].Get("age")
	active, _ := rows[0].Get("active")
	assert.Equal(t, "Ada", name)
	assert.Equal(t, int64(36), age)
	assert.Equal(t, true, active)

	rows, _, err = f.reg.ListRows(ctx, "people", domain.PageRequest{MaxResults: 2, PageToken: page.Next(total)})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRegistry_ConcurrentUpdatesSerialized(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()
	_, err := f.reg.CreateTable(ctx, "t", specs("a", "text"))
	require.NoError(t, err)

	stateA := specs("a", "text", "b", "integer")
	stateB := specs("c", "boolean")

	for i := 0; i < 5; i++ {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			_, err := f.reg.UpdateTable(gctx, "t", stateA)
			return err
		})
		g.Go(func() error {
			_, err := f.reg.UpdateTable(gctx, "t", stateB)
			return err
		})
		require.NoError(t, g.Wait())

		got := columnState(t, f.reg, "t")
		wantA := map[string]domain.ColumnType{"a": domain.ColumnText, "b": domain.ColumnInteger}
		wantB := map[string]domain.ColumnType{"c": domain.ColumnBoolean}
		if !assert.Condition(t, func() bool {
			return assert.ObjectsAreEqual(wantA, got) || assert.ObjectsAreEqual(wantB, got)
		}, "final state %v is neither requested state", got) {
			return
		}
		assert.Equal(t, got, physicalState(t, f.exec, "t"))

		stored, err := f.repo.GetByName(ctx, "t")
		require.NoError(t, err)
		assert.Equal(t, got, stored.ColumnMap())
	}
}

func TestRegistry_DifferentTablesDoNotBlock(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	release, err := f.reg.locks.Lock(ctx, "busy")
	require.NoError(t, err)
	defer release()

	_, err = f.reg.CreateTable(ctx, "other", specs("a", "text"))
	require.NoError(t, err)
}

func TestRegistry_LoadRestoresDefinitions(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()
	_, err := f.reg.CreateTable(ctx, "t", specs("a", "text", "b", "boolean"))
	require.NoError(t, err)

	reg := NewRegistry(f.repo, f.exec, engine.NewRowStore(f.writeDB, f.writeDB, ddl.SQLiteDialect{}), nil, nil)
	_, err = reg.GetColumns("t")
	require.Error(t, err)

	require.NoError(t, reg.Load(ctx))
	assert.Equal(t, columnState(t, f.reg, "t"), columnState(t, reg, "t"))
}

func TestRegistry_ListTables(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()
	for _, n := range []string{"c", "a", "b"} {
		_, err := f.reg.CreateTable(ctx, n, nil)
		require.NoError(t, err)
	}

	page := domain.PageRequest{MaxResults: 2}
	defs, total, err := f.reg.ListTables(ctx, page)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, defs, 2)
	assert.Equal(t, "a", defs[0].Name)
	assert.Equal(t, "b", defs[1].Name)

	defs, _, err = f.reg.ListTables(ctx, domain.PageRequest{MaxResults: 2, PageToken: page.Next(total)})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "c", defs[0].Name)
}

func TestRegistry_ReturnedDefinitionsAreCopies(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()
	def, err := f.reg.CreateTable(ctx, "t", specs("a", "text"))
	require.NoError(t, err)

	def.Columns[0].Name = "mutated"
	got, err := f.reg.GetTable(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Columns[0].Name)
}

func TestRegistry_Audit(t *testing.T) {
	f := setupRegistry(t)
	ctx := domain.WithPrincipal(context.Background(), domain.ContextPrincipal{Name: "alice", Type: "user"})

	_, err := f.reg.CreateTable(ctx, "t", specs("a", "text"))
	require.NoError(t, err)
	_, err = f.reg.UpdateTable(ctx, "t", specs("b", "integer"))
	require.NoError(t, err)
	_, err = f.reg.CreateTable(ctx, "t", nil)
	require.Error(t, err)
	require.NoError(t, f.reg.DeleteTable(ctx, "t"))

	require.Len(t, f.audit.Entries, 4)
	assert.True(t, f.audit.HasAction(domain.ActionCreateTable))
	assert.True(t, f.audit.HasAction(domain.ActionUpdateTable))
	assert.True(t, f.audit.HasAction(domain.ActionDeleteTable))

	create := f.audit.Entries[0]
	assert.Equal(t, "alice", create.PrincipalName)
	assert.Equal(t, "t", create.TableName)
	assert.Equal(t, domain.AuditAllowed, create.Status)
	require.NotNil(t, create.Detail)
	assert.Equal(t, "columns: a text", *create.Detail)
	assert.NotNil(t, create.DurationMs)

	update := f.audit.Entries[1]
	require.NotNil(t, update.Detail)
	assert.Equal(t, "-a, +b integer", *update.Detail)

	failed := f.audit.Entries[2]
	assert.Equal(t, domain.AuditError, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Contains(t, *failed.ErrorMessage, "already exists")

	assert.Equal(t, domain.ActionDeleteTable, f.audit.LastEntry().Action)
}

func TestRegistry_AuditFailureDoesNotFailOperation(t *testing.T) {
	f := setupRegistry(t)
	f.audit.InsertFn = func(context.Context, *domain.AuditEntry) error {
		return errors.New("audit store down")
	}

	_, err := f.reg.CreateTable(context.Background(), "t", specs("a", "text"))
	require.NoError(t, err)
	assert.Empty(t, f.audit.Entries)
}

func TestRegistry_AuditPersistsToRepository(t *testing.T) {
	writeDB, readDB := internaldb.OpenTestSQLite(t)
	exec := engine.NewExecutor(writeDB, ddl.SQLiteDialect{}, true, nil)
	audit := repository.NewAuditRepo(writeDB)
	reg := NewRegistry(repository.NewTableRepo(writeDB), exec, engine.NewRowStore(writeDB, readDB, ddl.SQLiteDialect{}), audit, nil)
	ctx := context.Background()

	_, err := reg.CreateTable(ctx, "t", specs("a", "text"))
	require.NoError(t, err)

	entries, total, err := audit.List(ctx, domain.AuditFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.Equal(t, "anonymous", entries[0].PrincipalName)
	assert.Equal(t, domain.ActionCreateTable, entries[0].Action)
}

// === Failure paths with mocks ===

func TestRegistry_CreateDDLFailurePersistsNothing(t *testing.T) {
	repo := &testutil.MockTableRepo{}
	exec := &testutil.MockSchemaExecutor{
		CreateFn: func(_ context.Context, table string, _ []domain.Column, _ *domain.SchemaCommit) error {
			return &domain.SchemaApplyError{Table: table, Op: "create", Err: errors.New("disk full")}
		},
	}
	reg := NewRegistry(repo, exec, &testutil.MockRowStore{}, nil, nil)

	_, err := reg.CreateTable(context.Background(), "t", specs("a", "text"))
	var applyErr *domain.SchemaApplyError
	require.True(t, errors.As(err, &applyErr))
	assert.Equal(t, "t", applyErr.Table)

	_, err = reg.GetColumns("t")
	var notFound *domain.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestRegistry_CreatePersistFailureNotCached(t *testing.T) {
	repo := &testutil.MockTableRepo{
		CreateFn: func(context.Context, *domain.TableDefinition) (*domain.TableDefinition, error) {
			return nil, errors.New("metastore locked")
		},
	}
	reg := NewRegistry(repo, &testutil.MockSchemaExecutor{}, &testutil.MockRowStore{}, nil, nil)

	_, err := reg.CreateTable(context.Background(), "t", specs("a", "text"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metastore locked")

	_, err = reg.GetColumns("t")
	assert.Error(t, err)
}

func TestRegistry_UpdateApplyFailureKeepsCache(t *testing.T) {
	current := &domain.TableDefinition{
		ID:      "tbl-1",
		Name:    "t",
		Columns: []domain.ColumnDefinition{{ID: "col-1", Name: "a", Type: domain.ColumnText}},
	}
	repo := &testutil.MockTableRepo{
		ListFn: func(context.Context) ([]domain.TableDefinition, error) {
			return []domain.TableDefinition{*current}, nil
		},
		GetByNameFn: func(context.Context, string) (*domain.TableDefinition, error) {
			return current.Clone(), nil
		},
	}
	exec := &testutil.MockSchemaExecutor{
		ApplyFn: func(_ context.Context, table string, changes domain.ChangeSet, _ *domain.SchemaCommit) error {
			assert.Equal(t, []domain.Column{{Name: "b", Type: domain.ColumnInteger}}, changes.Added)
			return &domain.SchemaApplyError{Table: table, Op: "apply", Statement: "ALTER TABLE", Err: errors.New("boom")}
		},
	}
	reg := NewRegistry(repo, exec, &testutil.MockRowStore{}, nil, nil)
	require.NoError(t, reg.Load(context.Background()))

	_, err := reg.UpdateTable(context.Background(), "t", specs("a", "text", "b", "integer"))
	var applyErr *domain.SchemaApplyError
	require.True(t, errors.As(err, &applyErr))

	assert.Equal(t, map[string]domain.ColumnType{"a": domain.ColumnText}, columnState(t, reg, "t"))
}

func TestRegistry_PersistUsesSharedTransaction(t *testing.T) {
	var boundTx bool
	txRepo := &testutil.MockTableRepo{
		CreateFn: func(_ context.Context, def *domain.TableDefinition) (*domain.TableDefinition, error) {
			boundTx = true
			return def, nil
		},
	}
	repo := &txBindingRepo{MockTableRepo: &testutil.MockTableRepo{}, tx: txRepo}
	exec := &testutil.MockSchemaExecutor{
		Shared: true,
		CreateFn: func(ctx context.Context, _ string, _ []domain.Column, commit *domain.SchemaCommit) error {
			return commit.Persist(ctx, &sql.Tx{})
		},
	}
	reg := NewRegistry(repo, exec, &testutil.MockRowStore{}, nil, nil)

	_, err := reg.CreateTable(context.Background(), "t", nil)
	require.NoError(t, err)
	assert.True(t, boundTx)
}

// txBindingRepo returns tx from WithTx.
type txBindingRepo struct {
	*testutil.MockTableRepo
	tx domain.TableRepository
}

func (r *txBindingRepo) WithTx(*sql.Tx) domain.TableRepository { return r.tx }

func TestRegistry_RowOpsWaitForStructuralChange(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()
	_, err := f.reg.CreateTable(ctx, "t", specs("a", "text"))
	require.NoError(t, err)

	release, err := f.reg.locks.Lock(ctx, "t")
	require.NoError(t, err)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.reg.InsertRow(cctx, "t", map[string]any{"a": "x"})
	assert.ErrorIs(t, err, context.Canceled)
	release()

	_, err = f.reg.InsertRow(ctx, "t", map[string]any{"a": "x"})
	require.NoError(t, err)
}

func TestValidateColumns(t *testing.T) {
	tests := []struct {
		name    string
		input   []domain.ColumnSpec
		want    []domain.Column
		wantErr string
	}{
		{name: "empty", input: nil, want: []domain.Column{}},
		{name: "ordered", input: specs("b", "integer", "a", "text"), want: []domain.Column{
			{Name: "b", Type: domain.ColumnInteger},
			{Name: "a", Type: domain.ColumnText},
		}},
		{name: "first_violation_wins", input: specs("Bad", "float"), wantErr: "invalid column name"},
		{name: "duplicate", input: specs("a", "text", "a", "text"), wantErr: `duplicate column "a"`},
		{name: "unknown_type", input: specs("a", "json"), wantErr: "unknown column type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateColumns(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
