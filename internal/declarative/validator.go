package declarative

import (
	"fmt"

	"tablebuilder/internal/ddl"
	"tablebuilder/internal/service/table"
)

// ValidationError represents a single validation problem.
type ValidationError struct {
	Path    string // e.g. "tables/orders.yaml" or "table[orders]"
	Message string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Validate checks the desired state for naming, type and uniqueness problems.
// It returns every problem found.
func Validate(state *DesiredState) []ValidationError {
	var errs []ValidationError
	seen := map[string]string{}

	for _, t := range state.Tables {
		path := fmt.Sprintf("%s: table[%s]", t.Source, t.Name)
		if err := ddl.ValidateTableName(t.Name); err != nil {
			errs = append(errs, ValidationError{Path: path, Message: err.Error()})
			continue
		}
		if prev, ok := seen[t.Name]; ok {
			errs = append(errs, ValidationError{Path: path, Message: fmt.Sprintf("table already declared in %s", prev)})
			continue
		}
		seen[t.Name] = t.Source

		if _, err := table.ValidateColumns(t.Spec.Columns); err != nil {
			errs = append(errs, ValidationError{Path: path, Message: err.Error()})
		}
	}
	return errs
}
