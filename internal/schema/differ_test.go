package schema

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablebuilder/internal/domain"
)

// randomState builds a column state with n columns named with the given prefix.
func randomState(r *rand.Rand, prefix string, n int) State {
	s := make(State, n)
	for i := 0; i < n; i++ {
		s[fmt.Sprintf("%s%d", prefix, i)] = domain.ColumnTypes[r.Intn(len(domain.ColumnTypes))]
	}
	return s
}

func TestDiff_SameStateIsEmpty(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		s := randomState(r, "c", r.Intn(8))
		cs, err := Diff(s, s)
		require.NoError(t, err)
		assert.True(t, cs.Empty(), "diff(S,S) not empty for %v: %+v", s, cs)
	}
}

func TestDiff_DisjointStates(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		prev := randomState(r, "old", r.Intn(6))
		next := randomState(r, "new", r.Intn(6))

		cs, err := Diff(prev, next)
		require.NoError(t, err)
		assert.Empty(t, cs.Retyped)
		assert.Equal(t, next, StateFromColumns(cs.Added))
		assert.Equal(t, prev, StateFromColumns(cs.Removed))
	}
}

func TestDiff_Mixed(t *testing.T) {
	prev := State{
		"a": domain.ColumnText,
		"b": domain.ColumnInteger,
		"c": domain.ColumnBoolean,
	}
	next := State{
		"a": domain.ColumnText,    // unchanged
		"b": domain.ColumnText,    // retyped
		"d": domain.ColumnInteger, // added
	}

	cs, err := Diff(prev, next)
	require.NoError(t, err)
	assert.Equal(t, []domain.Column{{Name: "d", Type: domain.ColumnInteger}}, cs.Added)
	assert.Equal(t, []domain.Column{{Name: "c", Type: domain.ColumnBoolean}}, cs.Removed)
	assert.Equal(t, []domain.Retype{{Name: "b", OldType: domain.ColumnInteger, NewType: domain.ColumnText}}, cs.Retyped)
}

func TestDiff_SetsAreDisjointAndCoverChanges(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		prev := randomState(r, "c", r.Intn(8))
		next := randomState(r, "c", r.Intn(8))

		cs, err := Diff(prev, next)
		require.NoError(t, err)

		seen := map[string]int{}
		for _, c := range cs.Added {
			seen[c.Name]++
			_, inPrev := prev[c.Name]
			assert.False(t, inPrev)
		}
		for _, c := range cs.Removed {
			seen[c.Name]++
			_, inNext := next[c.Name]
			assert.False(t, inNext)
		}
		for _, c := range cs.Retyped {
			seen[c.Name]++
			assert.NotEqual(t, prev[c.Name], next[c.Name])
		}
		for name, n := range seen {
			assert.Equal(t, 1, n, "column %q appears in more than one set", name)
		}

		// Applying the change set to prev yields next.
		got := State{}
		for k, v := range prev {
			got[k] = v
		}
		for _, c := range cs.Removed {
			delete(got, c.Name)
		}
		for _, c := range cs.Added {
			got[c.Name] = c.Type
		}
		for _, c := range cs.Retyped {
			got[c.Name] = c.NewType
		}
		assert.Equal(t, next, got)
	}
}

func TestDiff_RenameIsRemoveAndAdd(t *testing.T) {
	cs, err := Diff(State{"title": domain.ColumnText}, State{"name": domain.ColumnText})
	require.NoError(t, err)
	assert.Equal(t, []domain.Column{{Name: "name", Type: domain.ColumnText}}, cs.Added)
	assert.Equal(t, []domain.Column{{Name: "title", Type: domain.ColumnText}}, cs.Removed)
	assert.Empty(t, cs.Retyped)
}

func TestDiff_UnknownTypeFailsClosed(t *testing.T) {
	tests := []struct {
		name string
		prev State
		next State
	}{
		{name: "unknown_in_next", prev: State{}, next: State{"a": "float"}},
		{name: "unknown_in_removed", prev: State{"a": "float"}, next: State{}},
		{name: "unknown_in_shared", prev: State{"a": "float"}, next: State{"a": domain.ColumnText}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Diff(tt.prev, tt.next)
			var unknown *domain.UnknownTypeError
			require.True(t, errors.As(err, &unknown))
			assert.Equal(t, "float", unknown.Type)
		})
	}
}

func TestDiff_InverseRestoresPrevious(t *testing.T) {
	prev := State{"a": domain.ColumnText, "b": domain.ColumnInteger}
	next := State{"b": domain.ColumnBoolean, "c": domain.ColumnText}

	cs, err := Diff(prev, next)
	require.NoError(t, err)
	back, err := Diff(next, prev)
	require.NoError(t, err)
	assert.Equal(t, back, cs.Inverse())
}
