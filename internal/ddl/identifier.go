package ddl

import (
	"fmt"
	"regexp"
	"strings"

	"tablebuilder/internal/domain"
)

// identifierRe allows alphanumeric + underscores, starting with a letter or underscore.
var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// nameRe is the stricter rule for user-declared table and column names:
// a lowercase letter, then lowercase letters, digits or underscores.
var nameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// maxIdentifierLen is the maximum length allowed for a SQL identifier.
const maxIdentifierLen = 128

// Maximum lengths for user-declared names.
const (
	MaxTableNameLen  = 63
	MaxColumnNameLen = 59
)

// reservedTables are names owned by the metastore or the storage engine itself.
var reservedTables = map[string]bool{
	"dynamic_tables":   true,
	"dynamic_columns":  true,
	"audit_log":        true,
	"goose_db_version": true,
	"sqlite_master":    true,
	"sqlite_schema":    true,
	"sqlite_sequence":  true,
	"sqlite_stat1":     true,
	"sqlite_stat4":     true,
}

// reservedTablePrefixes cover engine-internal namespaces.
var reservedTablePrefixes = []string{"sqlite_", "information_schema", "pg_", "duckdb_"}

// IsReservedTable reports whether name belongs to the reserved set.
func IsReservedTable(name string) bool {
	if reservedTables[name] {
		return true
	}
	for _, p := range reservedTablePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Validate checks a user-declared table or column name. It performs no I/O.
func Validate(identifier string, kind domain.IdentifierKind) error {
	invalid := func(rule string) error {
		return &domain.InvalidIdentifierError{Kind: kind, Identifier: identifier, Rule: rule}
	}

	maxLen := MaxColumnNameLen
	if kind == domain.TableName {
		maxLen = MaxTableNameLen
	}

	switch {
	case identifier == "":
		return invalid("name is required")
	case len(identifier) > maxLen:
		return invalid(fmt.Sprintf("name must be at most %d characters", maxLen))
	case !nameRe.MatchString(identifier):
		return invalid("name can only contain lowercase letters, numbers, and underscores, and must start with a letter")
	}

	switch kind {
	case domain.TableName:
		if IsReservedTable(identifier) {
			return invalid("name is reserved")
		}
	case domain.ColumnName:
		if identifier == domain.RowIDColumn {
			return invalid(fmt.Sprintf("%q is the row identity column", domain.RowIDColumn))
		}
	default:
		return fmt.Errorf("unknown identifier kind %q", kind)
	}
	return nil
}

// ValidateTableName is Validate with kind TableName.
func ValidateTableName(name string) error { return Validate(name, domain.TableName) }

// ValidateColumnName is Validate with kind ColumnName.
func ValidateColumnName(name string) error { return Validate(name, domain.ColumnName) }

// ValidateIdentifier checks that name is a safe SQL identifier:
//   - Non-empty
//   - At most 128 characters
//   - Matches [a-zA-Z_][a-zA-Z0-9_]*
//
// Statement builders call it on every identifier they interpolate.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("name must be at most %d characters", maxIdentifierLen)
	}
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("name must match [a-zA-Z_][a-zA-Z0-9_]*")
	}
	return nil
}

// QuoteIdentifier wraps a SQL identifier in double quotes, doubling any
// embedded double quotes. It does not validate name.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteBacktick wraps a MySQL identifier in backticks.
func QuoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteLiteral wraps a string value in single quotes, escaping any
// embedded single-quote characters by doubling them (standard SQL).
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
