// Package schema computes the structural changes between two column states.
package schema

import (
	"sort"

	"tablebuilder/internal/ddl"
	"tablebuilder/internal/domain"
)

// State is a column state snapshot: column name -> logical type.
type State map[string]domain.ColumnType

// Diff returns the changes that move a table from previous to next.
//
//	added   = next - previous
//	removed = previous - next
//	retyped = shared names whose physical type differs
//
// A renamed column shows up as a remove plus an add; its data is not carried
// over. Every set is sorted by column name. Unknown types fail closed.
func Diff(previous, next State) (domain.ChangeSet, error) {
	var cs domain.ChangeSet

	for _, name := range sortedNames(next) {
		newType := next[name]
		if _, err := ddl.PhysicalType(newType); err != nil {
			return domain.ChangeSet{}, err
		}
		oldType, exists := previous[name]
		if !exists {
			cs.Added = append(cs.Added, domain.Column{Name: name, Type: newType})
			continue
		}
		same, err := ddl.SameType(oldType, newType)
		if err != nil {
			return domain.ChangeSet{}, err
		}
		if !same {
			cs.Retyped = append(cs.Retyped, domain.Retype{Name: name, OldType: oldType, NewType: newType})
		}
	}

	for _, name := range sortedNames(previous) {
		if _, kept := next[name]; kept {
			continue
		}
		oldType := previous[name]
		if _, err := ddl.PhysicalType(oldType); err != nil {
			return domain.ChangeSet{}, err
		}
		cs.Removed = append(cs.Removed, domain.Column{Name: name, Type: oldType})
	}

	return cs, nil
}

// StateOf returns the column state of a table definition.
func StateOf(t *domain.TableDefinition) State {
	if t == nil {
		return State{}
	}
	return State(t.ColumnMap())
}

// StateFromColumns builds a state from an ordered column list.
func StateFromColumns(cols []domain.Column) State {
	s := make(State, len(cols))
	for _, c := range cols {
		s[c.Name] = c.Type
	}
	return s
}

func sortedNames(s State) []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
