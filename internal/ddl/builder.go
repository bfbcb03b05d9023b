// Package ddl validates identifiers, maps column types to physical types, and
// builds the DDL/DML statements for dynamic tables in each supported dialect.
package ddl

import (
	"fmt"
	"strings"

	"tablebuilder/internal/domain"
)

// CreateTable returns the statements that create a table with an identity
// column plus one column per definition:
// CREATE TABLE "<table>" (<identity>, "<col1>" TYPE1, ...).
func CreateTable(d Dialect, table string, columns []domain.Column) ([]string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}

	colDefs := []string{d.IdentityColumn(table)}
	for _, c := range columns {
		def, err := columnDef(d, c)
		if err != nil {
			return nil, err
		}
		colDefs = append(colDefs, def)
	}

	stmts := append([]string(nil), d.BeforeCreate(table)...)
	stmts = append(stmts, fmt.Sprintf("CREATE TABLE %s (%s)",
		d.QuoteIdentifier(table),
		strings.Join(colDefs, ", "),
	))
	return stmts, nil
}

// DropTable returns the statements that remove a table: DROP TABLE "<table>".
func DropTable(d Dialect, table string) ([]string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}
	stmts := []string{"DROP TABLE " + d.QuoteIdentifier(table)}
	return append(stmts, d.AfterDrop(table)...), nil
}

// AddColumn returns ALTER TABLE "<table>" ADD COLUMN "<col>" TYPE.
func AddColumn(d Dialect, table string, col domain.Column) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	def, err := columnDef(d, col)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.QuoteIdentifier(table), def), nil
}

// DropColumn returns ALTER TABLE "<table>" DROP COLUMN "<col>".
func DropColumn(d Dialect, table, column string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if err := ValidateIdentifier(column); err != nil {
		return "", fmt.Errorf("invalid column name %q: %w", column, err)
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.QuoteIdentifier(table), d.QuoteIdentifier(column)), nil
}

// Insert returns a parameterized INSERT for the given columns. When the
// dialect supports it the generated identity is returned with RETURNING.
func Insert(d Dialect, table string, columns []string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}

	var stmt string
	if len(columns) == 0 {
		stmt = d.InsertDefaultValues(table)
	} else {
		quoted := make([]string, len(columns))
		marks := make([]string, len(columns))
		for i, c := range columns {
			if err := ValidateIdentifier(c); err != nil {
				return "", fmt.Errorf("invalid column name %q: %w", c, err)
			}
			quoted[i] = d.QuoteIdentifier(c)
			marks[i] = "?"
		}
		stmt = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			d.QuoteIdentifier(table),
			strings.Join(quoted, ", "),
			strings.Join(marks, ", "),
		)
	}
	if d.SupportsReturning() {
		stmt += " RETURNING " + d.QuoteIdentifier(domain.RowIDColumn)
	}
	return stmt, nil
}

// SelectRows returns a paginated SELECT of the identity column followed by the
// given columns, ordered by identity. It takes LIMIT and OFFSET arguments.
func SelectRows(d Dialect, table string, columns []string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	quoted := []string{d.QuoteIdentifier(domain.RowIDColumn)}
	for _, c := range columns {
		if err := ValidateIdentifier(c); err != nil {
			return "", fmt.Errorf("invalid column name %q: %w", c, err)
		}
		quoted = append(quoted, d.QuoteIdentifier(c))
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT ? OFFSET ?",
		strings.Join(quoted, ", "),
		d.QuoteIdentifier(table),
		d.QuoteIdentifier(domain.RowIDColumn),
	), nil
}

// CountRows returns SELECT COUNT(*) FROM "<table>".
func CountRows(d Dialect, table string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	return "SELECT COUNT(*) FROM " + d.QuoteIdentifier(table), nil
}

func columnDef(d Dialect, c domain.Column) (string, error) {
	if err := ValidateIdentifier(c.Name); err != nil {
		return "", fmt.Errorf("invalid column name %q: %w", c.Name, err)
	}
	spec, err := PhysicalType(c.Type)
	if err != nil {
		return "", fmt.Errorf("invalid column type for %q: %w", c.Name, err)
	}
	return fmt.Sprintf("%s %s", d.QuoteIdentifier(c.Name), d.ColumnType(spec)), nil
}
