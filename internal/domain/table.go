package domain

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// RowIDColumn is the implicit auto-generated identity column of every physical table.
const RowIDColumn = "id"

// ColumnType is the logical type tag of a dynamic column.
type ColumnType string

// Supported column types. The set is closed.
const (
	ColumnText    ColumnType = "text"
	ColumnInteger ColumnType = "integer"
	ColumnBoolean ColumnType = "boolean"
)

// ColumnTypes lists every supported type in display order.
var ColumnTypes = []ColumnType{ColumnText, ColumnInteger, ColumnBoolean}

// Valid reports whether t is one of the supported types.
func (t ColumnType) Valid() bool {
	switch t {
	case ColumnText, ColumnInteger, ColumnBoolean:
		return true
	}
	return false
}

// ParseColumnType resolves a type tag. The display names used by the first
// version of the API ("Char", "Integer", "Boolean") are accepted as aliases.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "char":
		return ColumnText, nil
	case "integer":
		return ColumnInteger, nil
	case "boolean":
		return ColumnBoolean, nil
	}
	return "", &UnknownTypeError{Type: s}
}

// ColumnSpec is a requested column: a name and a type tag.
type ColumnSpec struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// ColumnDefinition is a stored column of a dynamic table.
type ColumnDefinition struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      ColumnType `json:"type"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableDefinition is the logical schema of a dynamic table.
type TableDefinition struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Columns   []ColumnDefinition `json:"columns"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ColumnMap returns the column state as name -> type.
func (t *TableDefinition) ColumnMap() map[string]ColumnType {
	m := make(map[string]ColumnType, len(t.Columns))
	for _, c := range t.Columns {
		m[c.Name] = c.Type
	}
	return m
}

// Column looks up a column by name.
func (t *TableDefinition) Column(name string) (ColumnDefinition, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDefinition{}, false
}

// Clone returns a deep copy so cached definitions are never shared with callers.
func (t *TableDefinition) Clone() *TableDefinition {
	out := *t
	out.Columns = append([]ColumnDefinition(nil), t.Columns...)
	return &out
}

// SortColumns orders columns by name.
func (t *TableDefinition) SortColumns() {
	sort.Slice(t.Columns, func(i, j int) bool { return t.Columns[i].Name < t.Columns[j].Name })
}

// Column is a (name, type) pair inside a ChangeSet.
type Column struct {
	Name string
	Type ColumnType
}

// Retype is a column whose type changes. The column is recreated empty.
type Retype struct {
	Name    string
	OldType ColumnType
	NewType ColumnType
}

// ChangeSet is the set of structural changes between two column states.
// Removed carries the previous type so the change can be inverted.
type ChangeSet struct {
	Added   []Column
	Removed []Column
	Retyped []Retype
}

// Empty reports whether the change set has nothing to apply.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Retyped) == 0
}

// Inverse returns the change set that restores the previous column state.
func (c ChangeSet) Inverse() ChangeSet {
	inv := ChangeSet{
		Added:   append([]Column(nil), c.Removed...),
		Removed: append([]Column(nil), c.Added...),
	}
	for _, r := range c.Retyped {
		inv.Retyped = append(inv.Retyped, Retype{Name: r.Name, OldType: r.NewType, NewType: r.OldType})
	}
	return inv
}

// Value is a row value tagged with its column type. V is nil, string, int64 or bool.
type Value struct {
	Type ColumnType
	V    any
}

// Row is one record of a dynamic table.
type Row struct {
	ID     int64
	Values map[string]Value
}

// Get returns the raw value stored for column.
func (r Row) Get(column string) (any, bool) {
	v, ok := r.Values[column]
	return v.V, ok
}

// MarshalJSON renders the row as a flat object including the identity column.
func (r Row) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Values)+1)
	for k, v := range r.Values {
		m[k] = v.V
	}
	if r.ID != 0 {
		m[RowIDColumn] = r.ID
	}
	return json.Marshal(m)
}
