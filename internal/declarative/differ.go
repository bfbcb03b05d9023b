package declarative

import (
	"context"
	"fmt"
	"strings"

	"tablebuilder/internal/domain"
	"tablebuilder/internal/schema"
	"tablebuilder/internal/service/table"
)

// DiffOptions controls how undeclared server resources are treated.
type DiffOptions struct {
	// Prune plans the deletion of tables that exist on the server but are
	// not declared.
	Prune bool
}

// Diff compares the desired state (from YAML) against the actual tables (from
// the server) and returns a Plan describing the changes needed.
func Diff(desired *DesiredState, actual []domain.TableDefinition, opts DiffOptions) *Plan {
	plan := &Plan{}

	actualByName := make(map[string]domain.TableDefinition, len(actual))
	for _, a := range actual {
		actualByName[a.Name] = a
	}
	declared := make(map[string]bool, len(desired.Tables))

	for _, d := range desired.Tables {
		declared[d.Name] = true
		cols, err := table.ValidateColumns(d.Spec.Columns)
		if err != nil {
			addError(plan, d, err.Error())
			continue
		}

		a, exists := actualByName[d.Name]
		if !exists {
			plan.Actions = append(plan.Actions, Action{
				Operation: OpCreate,
				Table:     d.Name,
				Source:    d.Source,
				Columns:   d.Spec.Columns,
			})
			continue
		}

		changes, err := schema.Diff(schema.StateOf(&a), schema.StateFromColumns(cols))
		if err != nil {
			addError(plan, d, err.Error())
			continue
		}
		if changes.Empty() {
			continue
		}
		update := Action{
			Operation: OpUpdate,
			Table:     d.Name,
			Source:    d.Source,
			Columns:   d.Spec.Columns,
			Changes:   changes,
		}
		if d.DeletionProtection && update.Lossy() {
			addError(plan, d, "deletion-protected table would lose column data: "+lossyColumns(changes))
			continue
		}
		plan.Actions = append(plan.Actions, update)
	}

	if opts.Prune {
		for _, a := range actual {
			if !declared[a.Name] {
				plan.Actions = append(plan.Actions, Action{Operation: OpDelete, Table: a.Name})
			}
		}
	}

	plan.sortActions()
	return plan
}

// TableLister pages through the tables known to the server.
type TableLister interface {
	ListTables(ctx context.Context, page domain.PageRequest) ([]domain.TableDefinition, int64, error)
}

// ReadState returns every table known to the server.
func ReadState(ctx context.Context, lister TableLister) ([]domain.TableDefinition, error) {
	var out []domain.TableDefinition
	page := domain.PageRequest{MaxResults: domain.MaxMaxResults}
	for {
		defs, total, err := lister.ListTables(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("read tables: %w", err)
		}
		out = append(out, defs...)
		next := page.Next(total)
		if next == "" || len(defs) == 0 {
			return out, nil
		}
		page.PageToken = next
	}
}

func addError(plan *Plan, t TableResource, msg string) {
	plan.Errors = append(plan.Errors, PlanError{Table: t.Name, Source: t.Source, Message: msg})
}

func lossyColumns(cs domain.ChangeSet) string {
	var names []string
	for _, c := range cs.Removed {
		names = append(names, c.Name)
	}
	for _, r := range cs.Retyped {
		names = append(names, r.Name)
	}
	return strings.Join(names, ", ")
}
