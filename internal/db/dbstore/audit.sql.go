package dbstore

import (
	"context"
	"database/sql"
	"time"
)

const insertAuditLog = `INSERT INTO audit_log (id, principal_name, action, table_name, status, detail, error_message, duration_ms, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type InsertAuditLogParams struct {
	ID            string
	PrincipalName string
	Action        string
	TableName     string
	Status        string
	Detail        sql.NullString
	ErrorMessage  sql.NullString
	DurationMs    sql.NullInt64
	CreatedAt     time.Time
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	_, err := q.db.ExecContext(ctx, insertAuditLog,
		arg.ID, arg.PrincipalName, arg.Action, arg.TableName, arg.Status,
		arg.Detail, arg.ErrorMessage, arg.DurationMs, arg.CreatedAt)
	return err
}

// Filters are NULL when unset.
const auditFilter = `
WHERE (? IS NULL OR principal_name = ?)
  AND (? IS NULL OR action = ?)
  AND (? IS NULL OR table_name = ?)
  AND (? IS NULL OR status = ?)
  AND (? IS NULL OR created_at >= ?)`

type AuditLogFilter struct {
	PrincipalName sql.NullString
	Action        sql.NullString
	TableName     sql.NullString
	Status        sql.NullString
	Since         sql.NullTime
}

func (f AuditLogFilter) args() []interface{} {
	return []interface{}{
		f.PrincipalName, f.PrincipalName,
		f.Action, f.Action,
		f.TableName, f.TableName,
		f.Status, f.Status,
		f.Since, f.Since,
	}
}

const countAuditLogs = `SELECT COUNT(*) FROM audit_log` + auditFilter

func (q *Queries) CountAuditLogs(ctx context.Context, arg AuditLogFilter) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAuditLogs, arg.args()...).Scan(&n)
	return n, err
}

const listAuditLogs = `SELECT id, principal_name, action, table_name, status, detail, error_message, duration_ms, created_at
FROM audit_log` + auditFilter + `
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?`

type ListAuditLogsParams struct {
	AuditLogFilter
	Limit  int64
	Offset int64
}

func (q *Queries) ListAuditLogs(ctx context.Context, arg ListAuditLogsParams) ([]AuditLog, error) {
	args := append(arg.args(), arg.Limit, arg.Offset)
	rows, err := q.db.QueryContext(ctx, listAuditLogs, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var items []AuditLog
	for rows.Next() {
		var a AuditLog
		if err := rows.Scan(&a.ID, &a.PrincipalName, &a.Action, &a.TableName, &a.Status,
			&a.Detail, &a.ErrorMessage, &a.DurationMs, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
