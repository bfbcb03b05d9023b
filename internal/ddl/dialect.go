package ddl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Supported data-store drivers.
const (
	DriverSQLite = "sqlite"
	DriverDuckDB = "duckdb"
	DriverMySQL  = "mysql"
)

// Dialect describes how a backing store spells DDL and DML for dynamic tables.
type Dialect interface {
	Name() string
	QuoteIdentifier(name string) string
	// ColumnType renders a physical type spec as a column type.
	ColumnType(spec PhysicalTypeSpec) string
	// ParseColumnType maps an introspected column type back to a spec.
	ParseColumnType(sqlType string) (PhysicalTypeSpec, bool)
	// IdentityColumn is the column definition of the row identity column.
	IdentityColumn(table string) string
	// BeforeCreate and AfterDrop are statements that bracket the table itself.
	BeforeCreate(table string) []string
	AfterDrop(table string) []string
	// TransactionalDDL reports whether DDL statements can be rolled back.
	TransactionalDDL() bool
	// SupportsReturning reports whether INSERT ... RETURNING is available.
	SupportsReturning() bool
	// TableExistsQuery returns a COUNT query taking the table name as its only argument.
	TableExistsQuery() string
	// ColumnsQuery returns (name, type) rows in ordinal order for the table named by its only argument.
	ColumnsQuery() string
	// InsertDefaultValues inserts a row that only has an identity value.
	InsertDefaultValues(table string) string
}

// DialectFor returns the dialect for a driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case DriverSQLite, "sqlite3", "":
		return SQLiteDialect{}, nil
	case DriverDuckDB:
		return DuckDBDialect{}, nil
	case DriverMySQL:
		return MySQLDialect{}, nil
	}
	return nil, fmt.Errorf("unsupported data driver %q", driver)
}

var sqlTypeRe = regexp.MustCompile(`^([a-z ]+?)\s*(?:\(\s*(\d+)\s*\))?(?:\s+unsigned)?$`)

// splitSQLType lowercases a type name and splits an optional length parameter.
func splitSQLType(sqlType string) (string, int) {
	m := sqlTypeRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(sqlType)))
	if m == nil {
		return "", 0
	}
	n := 0
	if m[2] != "" {
		n, _ = strconv.Atoi(m[2])
	}
	return m[1], n
}

// === SQLite ===

// SQLiteDialect targets SQLite 3.35+ (ALTER TABLE ... DROP COLUMN, RETURNING).
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return DriverSQLite }

func (SQLiteDialect) QuoteIdentifier(name string) string { return QuoteIdentifier(name) }

func (SQLiteDialect) ColumnType(spec PhysicalTypeSpec) string {
	switch spec.Kind {
	case KindString:
		return fmt.Sprintf("VARCHAR(%d)", spec.Length)
	case KindInt64:
		return "INTEGER"
	case KindBool:
		return "BOOLEAN"
	}
	return ""
}

func (SQLiteDialect) ParseColumnType(sqlType string) (PhysicalTypeSpec, bool) {
	name, n := splitSQLType(sqlType)
	switch name {
	case "varchar", "character varying", "text":
		return PhysicalTypeSpec{Kind: KindString, Length: n}, true
	case "integer", "bigint", "int":
		return PhysicalTypeSpec{Kind: KindInt64}, true
	case "boolean", "bool":
		return PhysicalTypeSpec{Kind: KindBool}, true
	}
	return PhysicalTypeSpec{}, false
}

func (SQLiteDialect) IdentityColumn(string) string {
	return QuoteIdentifier("id") + " INTEGER PRIMARY KEY AUTOINCREMENT"
}

func (SQLiteDialect) BeforeCreate(string) []string { return nil }
func (SQLiteDialect) AfterDrop(string) []string    { return nil }
func (SQLiteDialect) TransactionalDDL() bool       { return true }
func (SQLiteDialect) SupportsReturning() bool      { return true }

func (SQLiteDialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
}

func (SQLiteDialect) ColumnsQuery() string {
	return `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`
}

func (SQLiteDialect) InsertDefaultValues(table string) string {
	return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", QuoteIdentifier(table))
}

// === DuckDB ===

// DuckDBDialect targets DuckDB. Row identities come from a per-table sequence
// named "<table>$id_seq"; '$' never appears in a validated table name.
type DuckDBDialect struct{}

func (DuckDBDialect) Name() string { return DriverDuckDB }

func (DuckDBDialect) QuoteIdentifier(name string) string { return QuoteIdentifier(name) }

func (DuckDBDialect) ColumnType(spec PhysicalTypeSpec) string {
	switch spec.Kind {
	case KindString:
		return fmt.Sprintf("VARCHAR(%d)", spec.Length)
	case KindInt64:
		return "BIGINT"
	case KindBool:
		return "BOOLEAN"
	}
	return ""
}

// ParseColumnType reads information_schema data types. DuckDB does not keep
// VARCHAR lengths, so every VARCHAR is reported with the text length.
func (DuckDBDialect) ParseColumnType(sqlType string) (PhysicalTypeSpec, bool) {
	name, _ := splitSQLType(sqlType)
	switch name {
	case "varchar", "text", "string":
		return PhysicalTypeSpec{Kind: KindString, Length: TextMaxLength}, true
	case "bigint", "int8", "long":
		return PhysicalTypeSpec{Kind: KindInt64}, true
	case "boolean", "bool":
		return PhysicalTypeSpec{Kind: KindBool}, true
	}
	return PhysicalTypeSpec{}, false
}

func duckDBSequence(table string) string { return table + "$id_seq" }

func (DuckDBDialect) IdentityColumn(table string) string {
	return fmt.Sprintf("%s BIGINT NOT NULL DEFAULT nextval(%s)",
		QuoteIdentifier("id"), QuoteLiteral(duckDBSequence(table)))
}

func (DuckDBDialect) BeforeCreate(table string) []string {
	return []string{"CREATE SEQUENCE " + QuoteIdentifier(duckDBSequence(table))}
}

func (DuckDBDialect) AfterDrop(table string) []string {
	return []string{"DROP SEQUENCE IF EXISTS " + QuoteIdentifier(duckDBSequence(table))}
}

func (DuckDBDialect) TransactionalDDL() bool  { return true }
func (DuckDBDialect) SupportsReturning() bool { return true }

func (DuckDBDialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
}

func (DuckDBDialect) ColumnsQuery() string {
	return `SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? ORDER BY ordinal_position`
}

func (DuckDBDialect) InsertDefaultValues(table string) string {
	return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", QuoteIdentifier(table))
}

// === MySQL ===

// MySQLDialect targets MySQL 8. DDL statements commit implicitly, so changes
// are pre-flighted and compensated by the executor instead of rolled back.
type MySQLDialect struct{}

func (MySQLDialect) Name() string { return DriverMySQL }

func (MySQLDialect) QuoteIdentifier(name string) string { return QuoteBacktick(name) }

func (MySQLDialect) ColumnType(spec PhysicalTypeSpec) string {
	switch spec.Kind {
	case KindString:
		return fmt.Sprintf("VARCHAR(%d)", spec.Length)
	case KindInt64:
		return "BIGINT"
	case KindBool:
		return "BOOLEAN"
	}
	return ""
}

// ParseColumnType reads information_schema COLUMN_TYPE values. BOOLEAN is
// stored as tinyint(1).
func (MySQLDialect) ParseColumnType(sqlType string) (PhysicalTypeSpec, bool) {
	name, n := splitSQLType(sqlType)
	switch name {
	case "varchar":
		return PhysicalTypeSpec{Kind: KindString, Length: n}, true
	case "bigint":
		return PhysicalTypeSpec{Kind: KindInt64}, true
	case "tinyint":
		if n == 1 {
			return PhysicalTypeSpec{Kind: KindBool}, true
		}
	case "boolean", "bool":
		return PhysicalTypeSpec{Kind: KindBool}, true
	}
	return PhysicalTypeSpec{}, false
}

func (MySQLDialect) IdentityColumn(string) string {
	return QuoteBacktick("id") + " BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY"
}

func (MySQLDialect) BeforeCreate(string) []string { return nil }
func (MySQLDialect) AfterDrop(string) []string    { return nil }
func (MySQLDialect) TransactionalDDL() bool       { return false }
func (MySQLDialect) SupportsReturning() bool      { return false }

func (MySQLDialect) TableExistsQuery() string {
	return `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`
}

func (MySQLDialect) ColumnsQuery() string {
	return `SELECT COLUMN_NAME, COLUMN_TYPE FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ? ORDER BY ORDINAL_POSITION`
}

func (MySQLDialect) InsertDefaultValues(table string) string {
	return fmt.Sprintf("INSERT INTO %s () VALUES ()", QuoteBacktick(table))
}
