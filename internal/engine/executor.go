// Package engine runs DDL and row statements against the data store.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"tablebuilder/internal/ddl"
	"tablebuilder/internal/domain"
)

// Compile-time check.
var _ domain.SchemaExecutor = (*Executor)(nil)

// Schema operations, used in errors and logs.
const (
	OpCreate = "create"
	OpApply  = "apply"
	OpDrop   = "drop"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// step is one DDL statement and the statements that undo it.
type step struct {
	stmt string
	undo []string
}

// Executor applies structural changes to physical tables.
//
// When the dialect supports transactional DDL, the existence probe, every
// statement and SchemaCommit.Persist share one transaction. Otherwise every
// target is checked before the first statement runs, and statements that
// already ran are undone in reverse order when a later one fails.
type Executor struct {
	db      *sql.DB
	dialect ddl.Dialect
	shared  bool
	logger  *slog.Logger
}

// NewExecutor creates an Executor. shared reports whether db is also the
// metastore, in which case Persist may write metadata through the same tx.
func NewExecutor(db *sql.DB, dialect ddl.Dialect, shared bool, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{db: db, dialect: dialect, shared: shared, logger: logger}
}

// SharesTransaction reports whether Persist receives a metastore transaction.
func (e *Executor) SharesTransaction() bool {
	return e.shared && e.dialect.TransactionalDDL()
}

// Create creates the physical table with the identity column and columns.
func (e *Executor) Create(ctx context.Context, table string, columns []domain.Column, commit *domain.SchemaCommit) error {
	stmts, err := ddl.CreateTable(e.dialect, table, columns)
	if err != nil {
		return domain.ErrValidation("%s", err.Error())
	}
	drop, err := ddl.DropTable(e.dialect, table)
	if err != nil {
		return domain.ErrValidation("%s", err.Error())
	}

	steps := make([]step, len(stmts))
	for i, s := range stmts {
		steps[i] = step{stmt: s}
	}
	steps[len(steps)-1].undo = drop

	check := func(ctx context.Context, q querier) error {
		exists, err := e.tableExists(ctx, q, table)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrConflict("table %q already exists", table)
		}
		return nil
	}
	return e.run(ctx, OpCreate, table, steps, check, commit)
}

// Apply applies a change set: removed columns are dropped, then added columns
// created, then retyped columns dropped and re-added empty.
func (e *Executor) Apply(ctx context.Context, table string, changes domain.ChangeSet, commit *domain.SchemaCommit) error {
	steps, err := e.applySteps(table, changes)
	if err != nil {
		return domain.ErrValidation("%s", err.Error())
	}

	check := func(ctx context.Context, q querier) error {
		cols, err := e.describe(ctx, q, table)
		if err != nil {
			return err
		}
		if cols == nil {
			return domain.ErrNotFound("table %q not found", table)
		}
		return checkTargets(table, cols, changes)
	}
	return e.run(ctx, OpApply, table, steps, check, commit)
}

// Drop drops the physical table. columns describe the table so a
// non-transactional store can recreate it if the logical delete fails.
func (e *Executor) Drop(ctx context.Context, table string, columns []domain.Column, commit *domain.SchemaCommit) error {
	stmts, err := ddl.DropTable(e.dialect, table)
	if err != nil {
		return domain.ErrValidation("%s", err.Error())
	}
	recreate, err := ddl.CreateTable(e.dialect, table, columns)
	if err != nil {
		return domain.ErrValidation("%s", err.Error())
	}

	steps := make([]step, len(stmts))
	for i, s := range stmts {
		steps[i] = step{stmt: s}
	}
	steps[0].undo = recreate

	check := func(ctx context.Context, q querier) error {
		exists, err := e.tableExists(ctx, q, table)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound("table %q not found", table)
		}
		return nil
	}
	return e.run(ctx, OpDrop, table, steps, check, commit)
}

// TableExists probes the data store for a physical table.
func (e *Executor) TableExists(ctx context.Context, table string) (bool, error) {
	return e.tableExists(ctx, e.db, table)
}

// DescribeTable returns the physical columns of table in ordinal order,
// including the identity column. It returns NotFound for a missing table.
func (e *Executor) DescribeTable(ctx context.Context, table string) ([]domain.PhysicalColumn, error) {
	cols, err := e.describe(ctx, e.db, table)
	if err != nil {
		return nil, err
	}
	if cols == nil {
		return nil, domain.ErrNotFound("table %q not found", table)
	}
	return cols, nil
}

func (e *Executor) applySteps(table string, changes domain.ChangeSet) ([]step, error) {
	var steps []step
	dropStep := func(c domain.Column) error {
		drop, err := ddl.DropColumn(e.dialect, table, c.Name)
		if err != nil {
			return err
		}
		add, err := ddl.AddColumn(e.dialect, table, c)
		if err != nil {
			return err
		}
		steps = append(steps, step{stmt: drop, undo: []string{add}})
		return nil
	}
	addStep := func(c domain.Column) error {
		add, err := ddl.AddColumn(e.dialect, table, c)
		if err != nil {
			return err
		}
		drop, err := ddl.DropColumn(e.dialect, table, c.Name)
		if err != nil {
			return err
		}
		steps = append(steps, step{stmt: add, undo: []string{drop}})
		return nil
	}

	for _, c := range changes.Removed {
		if err := dropStep(c); err != nil {
			return nil, err
		}
	}
	for _, c := range changes.Added {
		if err := addStep(c); err != nil {
			return nil, err
		}
	}
	for _, r := range changes.Retyped {
		if err := dropStep(domain.Column{Name: r.Name, Type: r.OldType}); err != nil {
			return nil, err
		}
		if err := addStep(domain.Column{Name: r.Name, Type: r.NewType}); err != nil {
			return nil, err
		}
	}
	return steps, nil
}

// run executes steps with check as precondition and Persist before commit.
func (e *Executor) run(ctx context.Context, op, table string, steps []step, check func(context.Context, querier) error, commit *domain.SchemaCommit) error {
	if e.dialect.TransactionalDDL() {
		return e.runTx(ctx, op, table, steps, check, commit)
	}
	return e.runCompensated(ctx, op, table, steps, check, commit)
}

func (e *Executor) runTx(ctx context.Context, op, table string, steps []step, check func(context.Context, querier) error, commit *domain.SchemaCommit) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.SchemaApplyError{Table: table, Op: op, Err: fmt.Errorf("begin: %w", err)}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := check(ctx, tx); err != nil {
		return err
	}

	for _, s := range steps {
		if _, err := tx.ExecContext(ctx, s.stmt); err != nil {
			return &domain.SchemaApplyError{Table: table, Op: op, Statement: s.stmt, Err: mapStoreError(err)}
		}
	}

	persisted := false
	if commit != nil && commit.Persist != nil {
		if err := commit.Persist(ctx, tx); err != nil {
			return err
		}
		persisted = true
	}

	if err := tx.Commit(); err != nil {
		applyErr := &domain.SchemaApplyError{Table: table, Op: op, Err: fmt.Errorf("commit: %w", err)}
		if persisted && !e.SharesTransaction() && commit.Revert != nil {
			if rerr := commit.Revert(context.WithoutCancel(ctx)); rerr != nil {
				e.logger.Error("revert logical state failed", "op", op, "table", table, "error", rerr)
				applyErr.Err = errors.Join(applyErr.Err, fmt.Errorf("revert: %w", rerr))
			}
		}
		return applyErr
	}
	committed = true
	return nil
}

func (e *Executor) runCompensated(ctx context.Context, op, table string, steps []step, check func(context.Context, querier) error, commit *domain.SchemaCommit) error {
	if err := check(ctx, e.db); err != nil {
		return err
	}

	applied := make([]step, 0, len(steps))
	for _, s := range steps {
		if _, err := e.db.ExecContext(ctx, s.stmt); err != nil {
			applyErr := &domain.SchemaApplyError{Table: table, Op: op, Statement: s.stmt, Err: mapStoreError(err)}
			if cerr := e.compensate(ctx, op, table, applied); cerr != nil {
				applyErr.Err = errors.Join(applyErr.Err, cerr)
			}
			return applyErr
		}
		applied = append(applied, s)
	}

	if commit != nil && commit.Persist != nil {
		if err := commit.Persist(ctx, nil); err != nil {
			if cerr := e.compensate(ctx, op, table, applied); cerr != nil {
				return errors.Join(err, cerr)
			}
			return err
		}
	}
	return nil
}

// compensate undoes applied steps in reverse order. It keeps going after a
// failure and reports every statement that could not be undone.
func (e *Executor) compensate(ctx context.Context, op, table string, applied []step) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(applied) - 1; i >= 0; i-- {
		for _, u := range applied[i].undo {
			if _, err := e.db.ExecContext(ctx, u); err != nil {
				e.logger.Error("compensating statement failed; physical schema needs repair",
					"op", op, "table", table, "statement", u, "error", err)
				errs = append(errs, fmt.Errorf("compensate %q: %w", u, err))
			}
		}
	}
	if len(errs) == 0 && len(applied) > 0 {
		e.logger.Warn("schema change compensated", "op", op, "table", table, "statements", len(applied))
	}
	return errors.Join(errs...)
}

func (e *Executor) tableExists(ctx context.Context, q querier, table string) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, e.dialect.TableExistsQuery(), table).Scan(&n); err != nil {
		return false, fmt.Errorf("probe table %q: %w", table, err)
	}
	return n > 0, nil
}

// describe returns nil, nil when the table does not exist.
func (e *Executor) describe(ctx context.Context, q querier, table string) ([]domain.PhysicalColumn, error) {
	rows, err := q.QueryContext(ctx, e.dialect.ColumnsQuery(), table)
	if err != nil {
		return nil, fmt.Errorf("describe table %q: %w", table, err)
	}
	defer rows.Close() //nolint:errcheck

	var cols []domain.PhysicalColumn
	for rows.Next() {
		var c domain.PhysicalColumn
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.Logical = e.logicalType(c.Type)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("describe table %q: %w", table, err)
	}
	return cols, nil
}

// logicalType maps an introspected store type to the column type rendered as it.
func (e *Executor) logicalType(sqlType string) domain.ColumnType {
	spec, ok := e.dialect.ParseColumnType(sqlType)
	if !ok {
		return ""
	}
	for _, t := range domain.ColumnTypes {
		if p, err := ddl.PhysicalType(t); err == nil && p.Equal(spec) {
			return t
		}
	}
	return ""
}

// checkTargets verifies every column the change set touches is in the
// expected physical state before anything is mutated.
func checkTargets(table string, physical []domain.PhysicalColumn, changes domain.ChangeSet) error {
	present := make(map[string]bool, len(physical))
	for _, c := range physical {
		present[c.Name] = true
	}

	var problems []error
	for _, c := range changes.Removed {
		if !present[c.Name] {
			problems = append(problems, fmt.Errorf("column %q to remove does not exist", c.Name))
		}
	}
	for _, r := range changes.Retyped {
		if !present[r.Name] {
			problems = append(problems, fmt.Errorf("column %q to retype does not exist", r.Name))
		}
	}
	for _, c := range changes.Added {
		if present[c.Name] {
			problems = append(problems, fmt.Errorf("column %q to add already exists", c.Name))
		}
	}
	if len(problems) > 0 {
		return &domain.SchemaApplyError{Table: table, Op: OpApply, Err: errors.Join(problems...)}
	}
	return nil
}
