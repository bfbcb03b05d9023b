package declarative

import (
	"slices"
	"strings"

	"tablebuilder/internal/domain"
)

// Operation is what an action does to a table.
type Operation string

// Operations, in the order they are applied.
const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Action is one planned table change.
type Action struct {
	Operation Operation
	Table     string
	// Source is the manifest declaring the table. Empty for pruned tables.
	Source string
	// Columns is the declared column set for create and update.
	Columns []domain.ColumnSpec
	// Changes is the column change set of an update.
	Changes domain.ChangeSet
}

// Lossy reports whether applying the action discards stored data.
func (a Action) Lossy() bool {
	return a.Operation == OpDelete || len(a.Changes.Removed) > 0 || len(a.Changes.Retyped) > 0
}

// PlanError is a declared table the plan cannot act on.
type PlanError struct {
	Table   string `json:"table"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

// Plan is the ordered set of actions that brings the server to the declared state.
type Plan struct {
	Actions []Action
	Errors  []PlanError
}

// Totals counts a plan's actions by operation.
type Totals struct {
	Creates int `json:"creates"`
	Updates int `json:"updates"`
	Deletes int `json:"deletes"`
	Errors  int `json:"errors"`
}

// Totals returns the plan's action counts.
func (p *Plan) Totals() Totals {
	t := Totals{Errors: len(p.Errors)}
	for _, a := range p.Actions {
		switch a.Operation {
		case OpCreate:
			t.Creates++
		case OpUpdate:
			t.Updates++
		case OpDelete:
			t.Deletes++
		}
	}
	return t
}

// HasChanges reports whether the plan has actions or errors.
func (p *Plan) HasChanges() bool {
	return len(p.Actions) > 0 || len(p.Errors) > 0
}

// sortActions orders creates and updates by table name, then deletes.
func (p *Plan) sortActions() {
	slices.SortStableFunc(p.Actions, func(a, b Action) int {
		if ad, bd := a.Operation == OpDelete, b.Operation == OpDelete; ad != bd {
			if ad {
				return 1
			}
			return -1
		}
		return strings.Compare(a.Table, b.Table)
	})
}
