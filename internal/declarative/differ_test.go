package declarative

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablebuilder/internal/domain"
)

func cols(pairs ...string) []domain.ColumnSpec {
	out := make([]domain.ColumnSpec, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.ColumnSpec{Name: pairs[i], Type: pairs[i+1]})
	}
	return out
}

func def(name string, pairs ...string) domain.TableDefinition {
	d := domain.TableDefinition{ID: "id-" + name, Name: name}
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Columns = append(d.Columns, domain.ColumnDefinition{Name: pairs[i], Type: domain.ColumnType(pairs[i+1])})
	}
	return d
}

func desired(tables ...TableResource) *DesiredState {
	return &DesiredState{Tables: tables}
}

func TestDiff_NoChanges(t *testing.T) {
	plan := Diff(
		desired(TableResource{Name: "t", Spec: TableSpec{Columns: cols("a", "text", "b", "Integer")}}),
		[]domain.TableDefinition{def("t", "a", "text", "b", "integer")},
		DiffOptions{},
	)
	assert.False(t, plan.HasChanges())
}

func TestDiff_CreateUpdate(t *testing.T) {
	plan := Diff(
		desired(
			TableResource{Name: "new", Source: "new.yaml", Spec: TableSpec{Columns: cols("x", "boolean")}},
			TableResource{Name: "old", Source: "old.yaml", Spec: TableSpec{Columns: cols("a", "integer", "c", "text")}},
		),
		[]domain.TableDefinition{def("old", "a", "text", "b", "boolean")},
		DiffOptions{},
	)

	require.Len(t, plan.Actions, 2)
	create := plan.Actions[0]
	assert.Equal(t, OpCreate, create.Operation)
	assert.Equal(t, "new", create.Table)
	assert.Equal(t, "new.yaml", create.Source)
	assert.Equal(t, cols("x", "boolean"), create.Columns)
	assert.False(t, create.Lossy())

	update := plan.Actions[1]
	assert.Equal(t, OpUpdate, update.Operation)
	assert.Equal(t, "old", update.Table)
	assert.Equal(t, domain.ChangeSet{
		Added:   []domain.Column{{Name: "c", Type: domain.ColumnText}},
		Removed: []domain.Column{{Name: "b", Type: domain.ColumnBoolean}},
		Retyped: []domain.Retype{{Name: "a", OldType: domain.ColumnText, NewType: domain.ColumnInteger}},
	}, update.Changes)
	assert.True(t, update.Lossy())

	assert.Equal(t, Totals{Creates: 1, Updates: 1}, plan.Totals())
}

func TestDiff_Prune(t *testing.T) {
	actual := []domain.TableDefinition{def("keep"), def("zombie"), def("ghost")}
	state := desired(TableResource{Name: "keep"})

	plan := Diff(state, actual, DiffOptions{})
	assert.False(t, plan.HasChanges(), "undeclared tables are left alone without prune")

	plan = Diff(state, actual, DiffOptions{Prune: true})
	require.Len(t, plan.Actions, 2)
	assert.Equal(t, OpDelete, plan.Actions[0].Operation)
	assert.Equal(t, "ghost", plan.Actions[0].Table)
	assert.Empty(t, plan.Actions[0].Source)
	assert.True(t, plan.Actions[0].Lossy())
	assert.Equal(t, "zombie", plan.Actions[1].Table)
}

func TestDiff_DeletesComeLast(t *testing.T) {
	plan := Diff(
		desired(TableResource{Name: "zz"}),
		[]domain.TableDefinition{def("aa")},
		DiffOptions{Prune: true},
	)
	require.Len(t, plan.Actions, 2)
	assert.Equal(t, OpCreate, plan.Actions[0].Operation)
	assert.Equal(t, OpDelete, plan.Actions[1].Operation)
}

func TestDiff_DeletionProtection(t *testing.T) {
	actual := []domain.TableDefinition{def("t", "a", "text", "b", "integer")}

	t.Run("adding_is_allowed", func(t *testing.T) {
		plan := Diff(desired(TableResource{Name: "t", DeletionProtection: true,
			Spec: TableSpec{Columns: cols("a", "text", "b", "integer", "c", "boolean")}}), actual, DiffOptions{})
		assert.Empty(t, plan.Errors)
		assert.Len(t, plan.Actions, 1)
	})

	t.Run("removal_is_refused", func(t *testing.T) {
		plan := Diff(desired(TableResource{Name: "t", DeletionProtection: true,
			Spec: TableSpec{Columns: cols("a", "text")}}), actual, DiffOptions{})
		assert.Empty(t, plan.Actions)
		require.Len(t, plan.Errors, 1)
		assert.Contains(t, plan.Errors[0].Message, "would lose column data: b")
	})

	t.Run("retype_is_refused", func(t *testing.T) {
		plan := Diff(desired(TableResource{Name: "t", DeletionProtection: true,
			Spec: TableSpec{Columns: cols("a", "integer", "b", "integer")}}), actual, DiffOptions{})
		require.Len(t, plan.Errors, 1)
		assert.Contains(t, plan.Errors[0].Message, "a")
	})
}

func TestDiff_InvalidColumnsBecomePlanErrors(t *testing.T) {
	plan := Diff(desired(TableResource{Name: "t", Spec: TableSpec{Columns: cols("a", "float")}}), nil, DiffOptions{})
	assert.Empty(t, plan.Actions)
	require.Len(t, plan.Errors, 1)
	assert.Equal(t, "t", plan.Errors[0].Table)
}

type fakeLister struct {
	defs  []domain.TableDefinition
	err   error
	calls int
}

func (f *fakeLister) ListTables(_ context.Context, page domain.PageRequest) ([]domain.TableDefinition, int64, error) {
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	start := min(page.Offset(), len(f.defs))
	end := min(start+page.Limit(), len(f.defs))
	return f.defs[start:end], int64(len(f.defs)), nil
}

func TestReadState(t *testing.T) {
	defs := make([]domain.TableDefinition, domain.MaxMaxResults+5)
	for i := range defs {
		defs[i] = domain.TableDefinition{Name: "t"}
	}
	lister := &fakeLister{defs: defs}

	got, err := ReadState(context.Background(), lister)
	require.NoError(t, err)
	assert.Len(t, got, len(defs))
	assert.Equal(t, 2, lister.calls)

	_, err = ReadState(context.Background(), &fakeLister{err: errors.New("down")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read tables")
}
