package declarative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tablebuilder/internal/domain"
)

// TableManager applies table lifecycle changes. Implemented by the table registry.
type TableManager interface {
	CreateTable(ctx context.Context, name string, specs []domain.ColumnSpec) (*domain.TableDefinition, error)
	UpdateTable(ctx context.Context, name string, specs []domain.ColumnSpec) (*domain.TableDefinition, error)
	DeleteTable(ctx context.Context, name string) error
}

// ErrPlanHasErrors is returned by Apply when the plan carries planning errors.
var ErrPlanHasErrors = errors.New("plan has errors")

// ApplyResult reports what Apply did.
type ApplyResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// Apply executes the plan's actions in order and stops at the first failure.
// Actions applied before the failure stay applied.
func Apply(ctx context.Context, mgr TableManager, plan *Plan, logger *slog.Logger) (ApplyResult, error) {
	var res ApplyResult
	if len(plan.Errors) > 0 {
		return res, fmt.Errorf("%w: %d error(s)", ErrPlanHasErrors, len(plan.Errors))
	}
	if logger == nil {
		logger = slog.Default()
	}

	for _, a := range plan.Actions {
		if err := applyAction(ctx, mgr, a); err != nil {
			return res, fmt.Errorf("%s table %q: %w", a.Operation, a.Table, err)
		}
		switch a.Operation {
		case OpCreate:
			res.Created++
		case OpUpdate:
			res.Updated++
		case OpDelete:
			res.Deleted++
		}
		logger.Info("applied", "operation", string(a.Operation), "table", a.Table, "lossy", a.Lossy())
	}
	return res, nil
}

func applyAction(ctx context.Context, mgr TableManager, a Action) error {
	var err error
	switch a.Operation {
	case OpCreate:
		_, err = mgr.CreateTable(ctx, a.Table, a.Columns)
	case OpUpdate:
		_, err = mgr.UpdateTable(ctx, a.Table, a.Columns)
	case OpDelete:
		err = mgr.DeleteTable(ctx, a.Table)
	default:
		err = fmt.Errorf("unknown operation %q", a.Operation)
	}
	return err
}
