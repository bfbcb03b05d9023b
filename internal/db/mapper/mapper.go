// Package mapper converts between dbstore rows and domain types.
package mapper

import (
	"database/sql"

	"tablebuilder/internal/db/dbstore"
	"tablebuilder/internal/domain"
)

// TableFromDB builds a definition from a table row and its column rows.
func TableFromDB(t dbstore.DynamicTable, cols []dbstore.DynamicColumn) *domain.TableDefinition {
	def := &domain.TableDefinition{
		ID:        t.ID,
		Name:      t.Name,
		Columns:   make([]domain.ColumnDefinition, 0, len(cols)),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	for _, c := range cols {
		def.Columns = append(def.Columns, ColumnFromDB(c))
	}
	def.SortColumns()
	return def
}

func ColumnFromDB(c dbstore.DynamicColumn) domain.ColumnDefinition {
	return domain.ColumnDefinition{
		ID:        c.ID,
		Name:      c.Name,
		Type:      domain.ColumnType(c.ColumnType),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func AuditEntryFromDB(a dbstore.AuditLog) *domain.AuditEntry {
	e := &domain.AuditEntry{
		ID:            a.ID,
		PrincipalName: a.PrincipalName,
		Action:        a.Action,
		TableName:     a.TableName,
		Status:        a.Status,
		CreatedAt:     a.CreatedAt,
	}
	if a.Detail.Valid {
		e.Detail = &a.Detail.String
	}
	if a.ErrorMessage.Valid {
		e.ErrorMessage = &a.ErrorMessage.String
	}
	if a.DurationMs.Valid {
		e.DurationMs = &a.DurationMs.Int64
	}
	return e
}

func AuditEntryToDBParams(e *domain.AuditEntry) dbstore.InsertAuditLogParams {
	return dbstore.InsertAuditLogParams{
		ID:            e.ID,
		PrincipalName: e.PrincipalName,
		Action:        e.Action,
		TableName:     e.TableName,
		Status:        e.Status,
		Detail:        NullStr(e.Detail),
		ErrorMessage:  NullStr(e.ErrorMessage),
		DurationMs:    nullInt64(e.DurationMs),
		CreatedAt:     e.CreatedAt.UTC(),
	}
}

func AuditFilterToDB(f domain.AuditFilter) dbstore.AuditLogFilter {
	out := dbstore.AuditLogFilter{
		PrincipalName: NullStr(f.PrincipalName),
		Action:        NullStr(f.Action),
		TableName:     NullStr(f.TableName),
		Status:        NullStr(f.Status),
	}
	if f.Since != nil {
		out.Since = sql.NullTime{Time: f.Since.UTC(), Valid: true}
	}
	return out
}

// NullStr maps a nil pointer to NULL.
func NullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
