// Package table implements the table registry: the lifecycle of dynamic
// tables and row access on top of them.
package table

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"tablebuilder/internal/ddl"
	"tablebuilder/internal/domain"
	"tablebuilder/internal/rowcodec"
	"tablebuilder/internal/schema"
)

// Registry tracks which dynamic tables exist and their columns, and applies
// every structural change to the physical store before the logical one.
//
// Structural changes to one table are serialized; row operations on that
// table wait for them and never observe a half-applied change. Operations on
// different tables do not block each other.
type Registry struct {
	repo   domain.TableRepository
	exec   domain.SchemaExecutor
	rows   domain.RowStore
	audit  domain.AuditRepository
	logger *slog.Logger
	locks  *lockSet

	mu    sync.RWMutex
	cache map[string]*domain.TableDefinition
}

// NewRegistry creates a Registry. Call Load before serving requests.
func NewRegistry(
	repo domain.TableRepository,
	exec domain.SchemaExecutor,
	rows domain.RowStore,
	audit domain.AuditRepository,
	logger *slog.Logger,
) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		repo:   repo,
		exec:   exec,
		rows:   rows,
		audit:  audit,
		logger: logger,
		locks:  newLockSet(),
		cache:  make(map[string]*domain.TableDefinition),
	}
}

// Load replaces the in-memory definitions with the metastore contents.
func (r *Registry) Load(ctx context.Context) error {
	defs, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load table definitions: %w", err)
	}
	cache := make(map[string]*domain.TableDefinition, len(defs))
	for i := range defs {
		cache[defs[i].Name] = defs[i].Clone()
	}

	r.mu.Lock()
	r.cache = cache
	r.mu.Unlock()

	r.logger.Info("table definitions loaded", "tables", len(cache))
	return nil
}

// CreateTable creates a table with the given columns.
func (r *Registry) CreateTable(ctx context.Context, name string, specs []domain.ColumnSpec) (*domain.TableDefinition, error) {
	start := time.Now()
	def, err := r.createTable(ctx, name, specs)
	detail := ""
	if def != nil {
		detail = fmt.Sprintf("columns: %s", formatColumns(def.Columns))
	}
	r.logAudit(ctx, domain.ActionCreateTable, name, detail, start, err)
	return def, err
}

func (r *Registry) createTable(ctx context.Context, name string, specs []domain.ColumnSpec) (*domain.TableDefinition, error) {
	if err := ddl.ValidateTableName(name); err != nil {
		return nil, err
	}
	cols, err := ValidateColumns(specs)
	if err != nil {
		return nil, err
	}

	release, err := r.locks.Lock(ctx, name)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, ok := r.lookup(name); ok {
		return nil, domain.ErrConflict("table %q already exists", name)
	}

	want := &domain.TableDefinition{Name: name, Columns: make([]domain.ColumnDefinition, len(cols))}
	for i, c := range cols {
		want.Columns[i] = domain.ColumnDefinition{Name: c.Name, Type: c.Type}
	}

	var created *domain.TableDefinition
	commit := &domain.SchemaCommit{
		Persist: func(ctx context.Context, tx *sql.Tx) error {
			var err error
			created, err = r.repoFor(tx).Create(ctx, want)
			return err
		},
		Revert: func(ctx context.Context) error {
			return r.repo.Delete(ctx, name)
		},
	}
	if err := r.exec.Create(ctx, name, cols, commit); err != nil {
		return nil, err
	}

	r.store(created)
	return created.Clone(), nil
}

// UpdateTable makes the columns of a table exactly specs. Removed columns and
// retyped columns lose their data.
func (r *Registry) UpdateTable(ctx context.Context, name string, specs []domain.ColumnSpec) (*domain.TableDefinition, error) {
	start := time.Now()
	def, changes, err := r.updateTable(ctx, name, specs)
	r.logAudit(ctx, domain.ActionUpdateTable, name, describeChanges(changes), start, err)
	return def, err
}

func (r *Registry) updateTable(ctx context.Context, name string, specs []domain.ColumnSpec) (*domain.TableDefinition, domain.ChangeSet, error) {
	release, err := r.locks.Lock(ctx, name)
	if err != nil {
		return nil, domain.ChangeSet{}, err
	}
	defer release()

	current, err := r.repo.GetByName(ctx, name)
	if err != nil {
		return nil, domain.ChangeSet{}, err
	}
	cols, err := ValidateColumns(specs)
	if err != nil {
		return nil, domain.ChangeSet{}, err
	}

	changes, err := schema.Diff(schema.StateOf(current), schema.StateFromColumns(cols))
	if err != nil {
		return nil, domain.ChangeSet{}, err
	}
	if changes.Empty() {
		r.store(current)
		return current.Clone(), changes, nil
	}

	var updated *domain.TableDefinition
	commit := &domain.SchemaCommit{
		Persist: func(ctx context.Context, tx *sql.Tx) error {
			var err error
			updated, err = r.repoFor(tx).ApplyChanges(ctx, name, changes)
			return err
		},
		Revert: func(ctx context.Context) error {
			_, err := r.repo.ApplyChanges(ctx, name, changes.Inverse())
			return err
		},
	}
	if err := r.exec.Apply(ctx, name, changes, commit); err != nil {
		return nil, changes, err
	}

	r.store(updated)
	r.logger.Info("table updated", "table", name,
		"added", len(changes.Added), "removed", len(changes.Removed), "retyped", len(changes.Retyped))
	return updated.Clone(), changes, nil
}

// DeleteTable drops a table and its definition.
func (r *Registry) DeleteTable(ctx context.Context, name string) error {
	start := time.Now()
	err := r.deleteTable(ctx, name)
	r.logAudit(ctx, domain.ActionDeleteTable, name, "", start, err)
	return err
}

func (r *Registry) deleteTable(ctx context.Context, name string) error {
	release, err := r.locks.Lock(ctx, name)
	if err != nil {
		return err
	}
	defer release()

	current, err := r.repo.GetByName(ctx, name)
	if err != nil {
		return err
	}

	commit := &domain.SchemaCommit{
		Persist: func(ctx context.Context, tx *sql.Tx) error {
			return r.repoFor(tx).Delete(ctx, name)
		},
		Revert: func(ctx context.Context) error {
			_, err := r.repo.Create(ctx, current)
			return err
		},
	}
	if err := r.exec.Drop(ctx, name, physicalColumns(current.Columns), commit); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.cache, name)
	r.mu.Unlock()
	return nil
}

// GetTable returns the definition of a table.
func (r *Registry) GetTable(_ context.Context, name string) (*domain.TableDefinition, error) {
	def, ok := r.lookup(name)
	if !ok {
		return nil, domain.ErrNotFound("table %q not found", name)
	}
	return def.Clone(), nil
}

// GetColumns returns the columns of a table without touching any store.
func (r *Registry) GetColumns(name string) ([]domain.ColumnDefinition, error) {
	def, ok := r.lookup(name)
	if !ok {
		return nil, domain.ErrNotFound("table %q not found", name)
	}
	return append([]domain.ColumnDefinition(nil), def.Columns...), nil
}

// ListTables returns one page of definitions ordered by name.
func (r *Registry) ListTables(_ context.Context, page domain.PageRequest) ([]domain.TableDefinition, int64, error) {
	r.mu.RLock()
	names := make([]string, 0, len(r.cache))
	for n := range r.cache {
		names = append(names, n)
	}
	sort.Strings(names)

	total := int64(len(names))
	offset, limit := page.Offset(), page.Limit()
	out := make([]domain.TableDefinition, 0)
	for i := offset; i < len(names) && i < offset+limit; i++ {
		out = append(out, *r.cache[names[i]].Clone())
	}
	r.mu.RUnlock()
	return out, total, nil
}

// InsertRow validates fields against the current columns and stores the row.
func (r *Registry) InsertRow(ctx context.Context, table string, fields map[string]any) (domain.Row, error) {
	release, err := r.locks.RLock(ctx, table)
	if err != nil {
		return domain.Row{}, err
	}
	defer release()

	def, ok := r.lookup(table)
	if !ok {
		return domain.Row{}, domain.ErrNotFound("table %q not found", table)
	}
	row, err := rowcodec.Decode(table, fields, def.Columns)
	if err != nil {
		return domain.Row{}, err
	}
	return r.rows.Insert(ctx, table, def.Columns, row)
}

// ListRows returns one page of rows of a table, ordered by identity.
func (r *Registry) ListRows(ctx context.Context, table string, page domain.PageRequest) ([]domain.Row, int64, error) {
	release, err := r.locks.RLock(ctx, table)
	if err != nil {
		return nil, 0, err
	}
	defer release()

	def, ok := r.lookup(table)
	if !ok {
		return nil, 0, domain.ErrNotFound("table %q not found", table)
	}
	return r.rows.List(ctx, table, def.Columns, page)
}

// ValidateColumns checks every column name and type, failing on the first
// violation. Column names must be unique.
func ValidateColumns(specs []domain.ColumnSpec) ([]domain.Column, error) {
	seen := make(map[string]bool, len(specs))
	cols := make([]domain.Column, 0, len(specs))
	for _, s := range specs {
		if err := ddl.ValidateColumnName(s.Name); err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, domain.ErrValidation("duplicate column %q", s.Name)
		}
		seen[s.Name] = true

		t, err := domain.ParseColumnType(s.Type)
		if err != nil {
			return nil, err
		}
		cols = append(cols, domain.Column{Name: s.Name, Type: t})
	}
	return cols, nil
}

// repoFor binds the repository to tx when the executor shares the metastore.
func (r *Registry) repoFor(tx *sql.Tx) domain.TableRepository {
	if tx != nil && r.exec.SharesTransaction() {
		return r.repo.WithTx(tx)
	}
	return r.repo
}

func (r *Registry) lookup(name string) (*domain.TableDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.cache[name]
	return def, ok
}

func (r *Registry) store(def *domain.TableDefinition) {
	r.mu.Lock()
	r.cache[def.Name] = def.Clone()
	r.mu.Unlock()
}

func (r *Registry) logAudit(ctx context.Context, action, table, detail string, start time.Time, opErr error) {
	if r.audit == nil {
		return
	}
	ms := time.Since(start).Milliseconds()
	e := &domain.AuditEntry{
		PrincipalName: domain.PrincipalName(ctx),
		Action:        action,
		TableName:     table,
		Status:        domain.AuditAllowed,
		DurationMs:    &ms,
	}
	if detail != "" {
		e.Detail = &detail
	}
	if opErr != nil {
		e.Status = domain.AuditError
		msg := opErr.Error()
		e.ErrorMessage = &msg
	}
	if err := r.audit.Insert(context.WithoutCancel(ctx), e); err != nil {
		r.logger.Warn("audit insert failed", "action", action, "table", table, "error", err)
	}
}

func physicalColumns(defs []domain.ColumnDefinition) []domain.Column {
	out := make([]domain.Column, len(defs))
	for i, c := range defs {
		out[i] = domain.Column{Name: c.Name, Type: c.Type}
	}
	return out
}

func formatColumns(defs []domain.ColumnDefinition) string {
	parts := make([]string, len(defs))
	for i, c := range defs {
		parts[i] = c.Name + " " + string(c.Type)
	}
	return strings.Join(parts, ", ")
}

func describeChanges(cs domain.ChangeSet) string {
	if cs.Empty() {
		return ""
	}
	var parts []string
	for _, c := range cs.Removed {
		parts = append(parts, "-"+c.Name)
	}
	for _, c := range cs.Added {
		parts = append(parts, fmt.Sprintf("+%s %s", c.Name, c.Type))
	}
	for _, c := range cs.Retyped {
		parts = append(parts, fmt.Sprintf("~%s %s->%s", c.Name, c.OldType, c.NewType))
	}
	return strings.Join(parts, ", ")
}
